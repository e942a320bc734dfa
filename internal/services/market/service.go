// Package market provides the market data façade used by every surface:
// snapshots, symbol and index histories, the manual override surface and
// the bulk archive loader.
package market

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/bolsa/internal/cache"
	"github.com/bobmcallan/bolsa/internal/common"
	"github.com/bobmcallan/bolsa/internal/interfaces"
	"github.com/bobmcallan/bolsa/internal/metrics"
	"github.com/bobmcallan/bolsa/internal/models"
	"github.com/bobmcallan/bolsa/internal/services/history"
	"github.com/bobmcallan/bolsa/internal/services/resolver"
	"github.com/bobmcallan/bolsa/internal/services/tradingday"
)

// DefaultLoadWorkers bounds concurrent archive parsing.
const DefaultLoadWorkers = 4

// Service implements MarketService
type Service struct {
	storage interfaces.StorageManager
	archive interfaces.ArchiveStore

	resolver *resolver.Resolver
	records  *cache.RecordCache
	queries  *cache.QueryCache
	merger   *history.Merger

	maxLookback int
	loadWorkers int
	now         func() time.Time // injectable clock for testing
	logger      *common.Logger
}

type options struct {
	metrics        *metrics.Metrics
	recordCapacity int
	queryOpts      []cache.QueryCacheOption
	rule           history.Redenomination
	maxLookback    int
	remoteTimeout  time.Duration
	loadWorkers    int
	now            func() time.Time
}

// Option configures the service
type Option func(*options)

// WithMetrics counts resolver and cache activity
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithRecordCapacity bounds the record cache
func WithRecordCapacity(n int) Option {
	return func(o *options) { o.recordCapacity = n }
}

// WithQueryCacheOptions configures the query cache
func WithQueryCacheOptions(opts ...cache.QueryCacheOption) Option {
	return func(o *options) { o.queryOpts = append(o.queryOpts, opts...) }
}

// WithRedenomination overrides the index rescaling rule
func WithRedenomination(rule history.Redenomination) Option {
	return func(o *options) { o.rule = rule }
}

// WithMaxLookback sets the per-pass window of LatestSnapshot
func WithMaxLookback(n int) Option {
	return func(o *options) { o.maxLookback = n }
}

// WithRemoteTimeout bounds each remote fetch
func WithRemoteTimeout(d time.Duration) Option {
	return func(o *options) { o.remoteTimeout = d }
}

// WithLoadWorkers bounds concurrent archive parsing
func WithLoadWorkers(n int) Option {
	return func(o *options) { o.loadWorkers = n }
}

// WithClock injects the time source used for "today"
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewService wires the resolver chain and both caches over storage.
// archive and remote may be nil; the matching tiers are then skipped.
func NewService(storage interfaces.StorageManager, archive interfaces.ArchiveStore, remote interfaces.DaySource, logger *common.Logger, opts ...Option) *Service {
	o := options{
		rule:        history.DefaultRedenomination(),
		maxLookback: tradingday.DefaultMaxLookback,
		loadWorkers: DefaultLoadWorkers,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	s := &Service{
		storage:     storage,
		archive:     archive,
		maxLookback: o.maxLookback,
		loadWorkers: o.loadWorkers,
		now:         o.now,
		logger:      logger,
	}

	var archiveTier interfaces.DaySource
	if archive != nil {
		archiveTier = archive
	}

	s.resolver = resolver.New(storage.RecordStore(), storage.ManualStore(), archiveTier, remote, logger,
		resolver.WithMetrics(o.metrics),
		resolver.WithRemoteTimeout(o.remoteTimeout),
		resolver.WithWriteHook(s.invalidateQueries),
	)
	s.records = cache.NewRecordCache(s.resolver, o.recordCapacity, o.metrics, logger)
	s.queries = cache.NewQueryCache(append([]cache.QueryCacheOption{
		cache.WithMetrics(o.metrics),
		cache.WithLogger(logger),
	}, o.queryOpts...)...)
	s.merger = history.NewMerger(storage.RecordStore(), storage.ManualStore(), o.rule, logger)

	return s
}

// invalidate drops every cached view of date after a write.
func (s *Service) invalidate(date models.Date) {
	s.records.Invalidate(date)
	s.invalidateQueries(date)
}

// invalidateQueries drops query cache entries covering date. Resolver
// write-through uses it alone: the record cache is filled with the very day
// that was written.
func (s *Service) invalidateQueries(date models.Date) {
	if n := s.queries.InvalidateDate(date); n > 0 {
		s.logger.Debug().Str("date", date.String()).Int("entries", n).Msg("Query cache entries invalidated")
	}
}

// Snapshot returns the full market day for date. An empty day with the
// requested date echoed back means no data.
func (s *Service) Snapshot(ctx context.Context, date models.Date) (*models.Day, error) {
	if !date.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidDate, date)
	}
	return s.records.Resolve(ctx, date)
}

// LatestSnapshot searches backward from anchor (today when empty) for the
// most recent day with records.
func (s *Service) LatestSnapshot(ctx context.Context, anchor models.Date) (*models.PopulatedDay, error) {
	if anchor == "" {
		anchor = models.DateOf(s.now())
	}
	return tradingday.FindPopulatedDay(ctx, s.records, anchor, s.maxLookback)
}

// SymbolHistory returns the merged series for symbol over [from, to] with its
// summary. Bounds are swapped when reversed.
func (s *Service) SymbolHistory(ctx context.Context, symbol string, from, to models.Date) (*models.SymbolHistory, error) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", models.ErrInvalidRecord)
	}
	if !from.Valid() || !to.Valid() {
		return nil, fmt.Errorf("%w: range %q..%q", models.ErrInvalidDate, from, to)
	}
	from, to = models.OrderRange(from, to)

	result := &models.SymbolHistory{Symbol: symbol, From: from, To: to}

	if series, ok := s.queries.Get(symbol, from, to); ok {
		result.FromCache = true
		result.Series = series
		result.Summary = history.SummarizeSymbol(series.Ascending())
		return result, nil
	}

	series, err := s.merger.MergeSymbolRange(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	s.queries.Put(symbol, from, to, series)

	result.Series = series
	result.Summary = history.SummarizeSymbol(series.Ascending())
	return result, nil
}

// IndexHistory returns the merged, redenomination-adjusted index series.
func (s *Service) IndexHistory(ctx context.Context, from, to models.Date) (*models.IndexHistory, error) {
	return s.merger.MergeIndexRange(ctx, from, to)
}

// Stats reports store counts and cache state.
func (s *Service) Stats(ctx context.Context) (*models.ServiceStats, error) {
	counts, err := s.storage.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count store: %w", err)
	}
	return &models.ServiceStats{
		Store:               counts,
		RecordCacheEntries:  s.records.Len(),
		RecordCacheCapacity: s.records.Capacity(),
		QueryCache:          s.queries.Stats(),
	}, nil
}

// ClearCaches empties the query cache, and the record cache unless queryOnly.
func (s *Service) ClearCaches(queryOnly bool) {
	s.queries.Clear()
	if !queryOnly {
		s.records.Clear()
	}
	s.logger.Info().Bool("query_only", queryOnly).Msg("Caches cleared")
}

// Ensure Service implements MarketService
var _ interfaces.MarketService = (*Service)(nil)
