// Package resolver resolves a trading date through the ordered source tiers:
// Record Store, archive, remote fetch and finally the manual partition.
package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/bolsa/internal/common"
	"github.com/bobmcallan/bolsa/internal/interfaces"
	"github.com/bobmcallan/bolsa/internal/metrics"
	"github.com/bobmcallan/bolsa/internal/models"
)

// DefaultRemoteTimeout bounds a single remote fetch.
const DefaultRemoteTimeout = 10 * time.Second

// Tier names used in logs and metrics.
const (
	TierStore   = "store"
	TierArchive = "archive"
	TierRemote  = "remote"
	TierManual  = "manual"
)

// WriteHook is called with the date of every write-through.
type WriteHook func(date models.Date)

// Resolver implements interfaces.DayResolver over the tier chain.
type Resolver struct {
	store   interfaces.RecordStore
	manual  interfaces.ManualStore
	archive interfaces.DaySource
	remote  interfaces.DaySource

	remoteTimeout time.Duration
	onWrite       WriteHook
	metrics       *metrics.Metrics
	logger        *common.Logger
}

// Option configures the resolver
type Option func(*Resolver)

// WithRemoteTimeout overrides DefaultRemoteTimeout
func WithRemoteTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.remoteTimeout = d
		}
	}
}

// WithWriteHook registers a callback fired after each write-through
func WithWriteHook(hook WriteHook) Option {
	return func(r *Resolver) {
		r.onWrite = hook
	}
}

// WithMetrics counts tier outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// New creates a resolver. archive and remote may be nil; a nil tier is skipped.
func New(store interfaces.RecordStore, manual interfaces.ManualStore, archive, remote interfaces.DaySource, logger *common.Logger, opts ...Option) *Resolver {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	r := &Resolver{
		store:         store,
		manual:        manual,
		archive:       archive,
		remote:        remote,
		remoteTimeout: DefaultRemoteTimeout,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the records and index for date from the first tier that has
// any. Archive and remote hits are upserted into the Record Store before they
// are returned; manual data is returned as-is. Archive and remote failures are
// logged and treated as "no data". A date with no data anywhere yields an
// empty day and a nil error.
func (r *Resolver) Resolve(ctx context.Context, date models.Date) (*models.Day, error) {
	if !date.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidDate, date)
	}

	day, err := r.store.GetDay(ctx, date)
	if err != nil {
		r.metrics.TierResult(TierStore, metrics.OutcomeError)
		return nil, fmt.Errorf("record store lookup %s: %w", date, err)
	}
	if !day.Empty() {
		r.metrics.TierResult(TierStore, metrics.OutcomeHit)
		return day, nil
	}
	r.metrics.TierResult(TierStore, metrics.OutcomeEmpty)

	if day := r.fetch(ctx, TierArchive, r.archive, date, 0); !day.Empty() {
		return r.writeThrough(ctx, TierArchive, day)
	}

	if day := r.fetch(ctx, TierRemote, r.remote, date, r.remoteTimeout); !day.Empty() {
		return r.writeThrough(ctx, TierRemote, day)
	}

	day, err = r.manual.GetManualDay(ctx, date)
	if err != nil {
		r.metrics.TierResult(TierManual, metrics.OutcomeError)
		return nil, fmt.Errorf("manual store lookup %s: %w", date, err)
	}
	if !day.Empty() {
		r.metrics.TierResult(TierManual, metrics.OutcomeHit)
		return day, nil
	}
	r.metrics.TierResult(TierManual, metrics.OutcomeEmpty)

	r.logger.Debug().Str("date", date.String()).Msg("No data in any tier")
	return &models.Day{Date: date}, nil
}

// fetch queries an optional external tier. Errors and timeouts become nil.
func (r *Resolver) fetch(ctx context.Context, tier string, src interfaces.DaySource, date models.Date, timeout time.Duration) *models.Day {
	if src == nil {
		return nil
	}

	fetchCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	day, err := src.FetchDay(fetchCtx, date)
	if err != nil {
		r.metrics.TierResult(tier, metrics.OutcomeError)
		r.logger.Warn().Err(err).Str("tier", tier).Str("date", date.String()).Msg("Source unavailable, falling through")
		return nil
	}
	if day.Empty() {
		r.metrics.TierResult(tier, metrics.OutcomeEmpty)
		return nil
	}
	if day.Date != date {
		r.metrics.TierResult(tier, metrics.OutcomeError)
		r.logger.Warn().Str("tier", tier).Str("date", date.String()).Str("got", day.Date.String()).Msg("Source returned a different date, ignored")
		return nil
	}

	r.metrics.TierResult(tier, metrics.OutcomeHit)
	return day
}

func (r *Resolver) writeThrough(ctx context.Context, tier string, day *models.Day) (*models.Day, error) {
	if err := r.store.SaveDay(ctx, day); err != nil {
		return nil, fmt.Errorf("write-through %s from %s: %w", day.Date, tier, err)
	}
	r.metrics.WriteThrough()
	if r.onWrite != nil {
		r.onWrite(day.Date)
	}

	r.logger.Info().
		Str("tier", tier).
		Str("date", day.Date.String()).
		Int("records", len(day.Records)).
		Bool("index", day.Index != nil).
		Msg("Resolved day written through to record store")
	return day, nil
}

// Ensure Resolver implements DayResolver
var _ interfaces.DayResolver = (*Resolver)(nil)
