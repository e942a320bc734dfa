// Package cache provides the in-memory record and query caches.
package cache

import (
	"context"
	"sync"

	"github.com/bobmcallan/bolsa/internal/common"
	"github.com/bobmcallan/bolsa/internal/interfaces"
	"github.com/bobmcallan/bolsa/internal/metrics"
	"github.com/bobmcallan/bolsa/internal/models"
)

// DefaultRecordCapacity bounds the record cache when no capacity is given.
const DefaultRecordCapacity = 100

const recordCacheName = "record"

// RecordCache holds resolved days keyed by date. Eviction is insertion order
// (FIFO); reads never reorder entries.
type RecordCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[models.Date]*models.Day
	order    []models.Date
	// writes counts invalidations; a resolve that overlaps one is not cached.
	writes uint64

	resolver interfaces.DayResolver
	metrics  *metrics.Metrics
	logger   *common.Logger
}

// NewRecordCache wraps resolver with a bounded FIFO cache.
func NewRecordCache(resolver interfaces.DayResolver, capacity int, m *metrics.Metrics, logger *common.Logger) *RecordCache {
	if capacity <= 0 {
		capacity = DefaultRecordCapacity
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &RecordCache{
		capacity: capacity,
		entries:  make(map[models.Date]*models.Day),
		resolver: resolver,
		metrics:  m,
		logger:   logger,
	}
}

// Resolve returns the cached day or populates it through the resolver.
// Empty days are returned but not cached, so a later publication is seen.
func (c *RecordCache) Resolve(ctx context.Context, date models.Date) (*models.Day, error) {
	if day, ok := c.Get(date); ok {
		return day, nil
	}

	// The lock is not held while resolving; concurrent misses for the same
	// date may both resolve, and the store upsert is idempotent.
	c.mu.Lock()
	gen := c.writes
	c.mu.Unlock()

	day, err := c.resolver.Resolve(ctx, date)
	if err != nil {
		return nil, err
	}
	if !day.Empty() {
		c.put(day, gen)
	}
	return day, nil
}

// Get returns a copy of the cached day.
func (c *RecordCache) Get(date models.Date) (*models.Day, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	day, ok := c.entries[date]
	if !ok {
		c.metrics.CacheMiss(recordCacheName)
		return nil, false
	}
	if !validDay(date, day) {
		c.removeLocked(date)
		c.metrics.CacheInvalidation(recordCacheName, "corrupt")
		c.metrics.CacheMiss(recordCacheName)
		c.logger.Debug().Str("date", date.String()).Msg("Record cache entry failed shape check, dropped")
		return nil, false
	}

	c.metrics.CacheHit(recordCacheName)
	return cloneDay(day), true
}

// Put stores a copy of day. A new date evicts the oldest inserted entry when full.
func (c *RecordCache) Put(day *models.Day) {
	if day == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(day)
}

// put stores day unless an invalidation happened after gen was read, in
// which case the resolved day may predate that write.
func (c *RecordCache) put(day *models.Day, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writes != gen {
		c.logger.Debug().Str("date", day.Date.String()).Msg("Record cache fill skipped, write during resolve")
		return
	}
	c.putLocked(day)
}

func (c *RecordCache) putLocked(day *models.Day) {
	if _, exists := c.entries[day.Date]; exists {
		c.entries[day.Date] = cloneDay(day)
		return
	}

	for len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
		c.metrics.CacheEviction(recordCacheName, "capacity")
	}

	c.entries[day.Date] = cloneDay(day)
	c.order = append(c.order, day.Date)
}

// Invalidate drops the entry for date.
func (c *RecordCache) Invalidate(date models.Date) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writes++
	if _, ok := c.entries[date]; ok {
		c.removeLocked(date)
		c.metrics.CacheInvalidation(recordCacheName, "write")
	}
}

// Clear drops every entry.
func (c *RecordCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writes++
	c.entries = make(map[models.Date]*models.Day)
	c.order = nil
}

// Len returns the number of cached dates.
func (c *RecordCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Capacity returns the configured bound.
func (c *RecordCache) Capacity() int {
	return c.capacity
}

// Dates returns cached dates in insertion order.
func (c *RecordCache) Dates() []models.Date {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.Date, len(c.order))
	copy(out, c.order)
	return out
}

func (c *RecordCache) removeLocked(date models.Date) {
	delete(c.entries, date)
	for i, d := range c.order {
		if d == date {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func validDay(date models.Date, day *models.Day) bool {
	return day != nil && day.Date == date && day.Validate() == nil
}

func cloneDay(day *models.Day) *models.Day {
	out := &models.Day{Date: day.Date}
	if day.Records != nil {
		out.Records = make([]models.MarketRecord, len(day.Records))
		copy(out.Records, day.Records)
	}
	if day.Index != nil {
		idx := *day.Index
		out.Index = &idx
	}
	return out
}

// Ensure RecordCache implements DayResolver
var _ interfaces.DayResolver = (*RecordCache)(nil)
