// Package bvc provides a client for the exchange's daily session download
package bvc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/bolsa/internal/common"
	"github.com/bobmcallan/bolsa/internal/datfile"
	"github.com/bobmcallan/bolsa/internal/interfaces"
	"github.com/bobmcallan/bolsa/internal/models"
)

const (
	DefaultBaseURL   = "https://www.bolsadecaracas.com"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 2 // requests per second

	downloadPath = "/descargar-diario-bolsa/"
	maxBodyBytes = 10 << 20
)

// Client downloads one session file per request
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	archive    interfaces.RawArchiver
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithArchive stores every payload that carries records
func WithArchive(archive interfaces.RawArchiver) ClientOption {
	return func(c *Client) {
		c.archive = archive
	}
}

// NewClient creates a new download client. No credentials are required.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FetchDay downloads and parses the session for date. A payload without
// record lines is an empty day; transport failures and non-200 responses are errors.
func (c *Client) FetchDay(ctx context.Context, date models.Date) (*models.Day, error) {
	if !date.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidDate, date)
	}

	body, err := c.download(ctx, date)
	if err != nil {
		return nil, err
	}

	if !datfile.HasRecords(body) {
		c.logger.Debug().Str("date", date.String()).Msg("BVC download has no records")
		return &models.Day{Date: date}, nil
	}

	day, stats, err := datfile.ParseBytes(body, date, models.SourceAutomatic)
	if err != nil {
		return nil, fmt.Errorf("failed to parse download for %s: %w", date, err)
	}

	if c.archive != nil && !day.Empty() {
		if err := c.archive.SaveRaw(date, body); err != nil {
			c.logger.Warn().Err(err).Str("date", date.String()).Msg("Failed to archive BVC download")
		}
	}

	c.logger.Info().
		Str("date", date.String()).
		Int("records", stats.Records).
		Bool("index", stats.HasIndex).
		Msg("BVC session downloaded")

	return day, nil
}

func (c *Client) download(ctx context.Context, date models.Date) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("type", "dat")
	params.Set("fecha", date.String())
	reqURL := c.baseURL + downloadPath + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn().Err(err).Str("date", date.String()).Dur("elapsed", elapsed).Msg("BVC request failed")
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Str("date", date.String()).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("BVC non-OK response")
		return nil, fmt.Errorf("BVC download error: status %d for %s", resp.StatusCode, date)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug().Str("date", date.String()).Int("bytes", len(body)).Dur("elapsed", elapsed).Msg("BVC request")
	return body, nil
}

// Ensure Client implements DaySource
var _ interfaces.DaySource = (*Client)(nil)
