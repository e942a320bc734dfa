package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/bobmcallan/bolsa/internal/common"
	"github.com/bobmcallan/bolsa/internal/metrics"
	"github.com/bobmcallan/bolsa/internal/models"
)

// DefaultQueryCapacity bounds the query cache when no capacity is given.
const DefaultQueryCapacity = 100

const (
	queryCacheName = "query"
	statsTopN      = 5
)

// QueryKey identifies a symbol range query.
type QueryKey struct {
	Symbol string
	From   models.Date
	To     models.Date
}

// NewQueryKey normalises symbol case and range order.
func NewQueryKey(symbol string, from, to models.Date) QueryKey {
	from, to = models.OrderRange(from, to)
	return QueryKey{Symbol: models.NormalizeSymbol(symbol), From: from, To: to}
}

// covers reports whether date falls inside the key's range.
func (k QueryKey) covers(date models.Date) bool {
	return date >= k.From && date <= k.To
}

type queryEntry struct {
	series       *models.SymbolSeries
	createdAt    time.Time
	lastAccessed time.Time
	hitCount     int
}

// QueryCache holds symbol range results for a TTL measured from creation.
// Expired entries are dropped when touched; overflow evicts the entry with
// the oldest last access.
type QueryCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time
	entries  map[QueryKey]*queryEntry
	hits     uint64
	misses   uint64

	metrics *metrics.Metrics
	logger  *common.Logger
}

// QueryCacheOption configures the query cache
type QueryCacheOption func(*QueryCache)

// WithClock injects the time source
func WithClock(now func() time.Time) QueryCacheOption {
	return func(c *QueryCache) {
		c.now = now
	}
}

// WithTTL sets the entry lifetime
func WithTTL(ttl time.Duration) QueryCacheOption {
	return func(c *QueryCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCapacity sets the entry bound
func WithCapacity(capacity int) QueryCacheOption {
	return func(c *QueryCache) {
		if capacity > 0 {
			c.capacity = capacity
		}
	}
}

// WithMetrics reports hits, misses and evictions
func WithMetrics(m *metrics.Metrics) QueryCacheOption {
	return func(c *QueryCache) {
		c.metrics = m
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) QueryCacheOption {
	return func(c *QueryCache) {
		c.logger = logger
	}
}

// NewQueryCache creates an empty query cache.
func NewQueryCache(opts ...QueryCacheOption) *QueryCache {
	c := &QueryCache{
		capacity: DefaultQueryCapacity,
		ttl:      common.FreshnessQueryResult,
		now:      time.Now,
		entries:  make(map[QueryKey]*queryEntry),
		logger:   common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached series. A hit bumps hit_count and last access.
func (c *QueryCache) Get(symbol string, from, to models.Date) (*models.SymbolSeries, bool) {
	key := NewQueryKey(symbol, from, to)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return c.missLocked()
	}

	if !common.IsFreshAt(entry.createdAt, now, c.ttl) {
		delete(c.entries, key)
		c.metrics.CacheEviction(queryCacheName, "expired")
		return c.missLocked()
	}

	if err := entry.series.Validate(); err != nil || entry.series.Symbol() != key.Symbol {
		delete(c.entries, key)
		c.metrics.CacheInvalidation(queryCacheName, "corrupt")
		c.logger.Debug().Str("symbol", key.Symbol).Msg("Query cache entry failed shape check, dropped")
		return c.missLocked()
	}

	entry.hitCount++
	entry.lastAccessed = now
	c.hits++
	c.metrics.CacheHit(queryCacheName)
	return entry.series, true
}

func (c *QueryCache) missLocked() (*models.SymbolSeries, bool) {
	c.misses++
	c.metrics.CacheMiss(queryCacheName)
	return nil, false
}

// Put stores series under (symbol, from, to). Empty series are not cached.
// Inserting a new key at capacity evicts the least recently accessed entry.
func (c *QueryCache) Put(symbol string, from, to models.Date, series *models.SymbolSeries) {
	if series == nil || series.Len() == 0 {
		return
	}
	key := NewQueryKey(symbol, from, to)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		for len(c.entries) >= c.capacity {
			c.evictOldestLocked()
		}
	}

	c.entries[key] = &queryEntry{
		series:       series,
		createdAt:    now,
		lastAccessed: now,
	}
}

func (c *QueryCache) evictOldestLocked() {
	var (
		oldestKey QueryKey
		oldest    *queryEntry
	)
	for k, e := range c.entries {
		if oldest == nil || e.lastAccessed.Before(oldest.lastAccessed) {
			oldestKey, oldest = k, e
		}
	}
	if oldest == nil {
		return
	}
	delete(c.entries, oldestKey)
	c.metrics.CacheEviction(queryCacheName, "capacity")
}

// InvalidateDate drops every entry whose range covers date and returns how many.
func (c *QueryCache) InvalidateDate(date models.Date) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k := range c.entries {
		if k.covers(date) {
			delete(c.entries, k)
			n++
		}
	}
	for i := 0; i < n; i++ {
		c.metrics.CacheInvalidation(queryCacheName, "write")
	}
	return n
}

// Clear drops every entry and resets the counters.
func (c *QueryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[QueryKey]*queryEntry)
	c.hits = 0
	c.misses = 0
}

// Len returns the number of entries, expired ones included until touched.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Contains reports whether key is present without touching access stats.
func (c *QueryCache) Contains(symbol string, from, to models.Date) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[NewQueryKey(symbol, from, to)]
	return ok
}

// Stats reports hit/miss accounting and the top entries.
func (c *QueryCache) Stats() models.QueryCacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	infos := make([]models.QueryCacheEntryInfo, 0, len(c.entries))
	for k, e := range c.entries {
		infos = append(infos, models.QueryCacheEntryInfo{
			Symbol:       k.Symbol,
			From:         k.From,
			To:           k.To,
			HitCount:     e.hitCount,
			CreatedAt:    e.createdAt,
			LastAccessed: e.lastAccessed,
		})
	}

	frequent := make([]models.QueryCacheEntryInfo, len(infos))
	copy(frequent, infos)
	sort.Slice(frequent, func(i, j int) bool {
		if frequent[i].HitCount != frequent[j].HitCount {
			return frequent[i].HitCount > frequent[j].HitCount
		}
		return frequent[i].LastAccessed.After(frequent[j].LastAccessed)
	})

	recent := infos
	sort.Slice(recent, func(i, j int) bool {
		return recent[i].LastAccessed.After(recent[j].LastAccessed)
	})

	var rate float64
	if total := c.hits + c.misses; total > 0 {
		rate = float64(c.hits) / float64(total)
	}

	return models.QueryCacheStats{
		Entries:      len(c.entries),
		Capacity:     c.capacity,
		Hits:         c.hits,
		Misses:       c.misses,
		HitRate:      rate,
		MostFrequent: topN(frequent),
		Recent:       topN(recent),
	}
}

func topN(infos []models.QueryCacheEntryInfo) []models.QueryCacheEntryInfo {
	if len(infos) > statsTopN {
		return infos[:statsTopN]
	}
	return infos
}
