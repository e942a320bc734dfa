// Package metrics exposes Prometheus counters for resolution and caching.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tier outcomes
const (
	OutcomeHit   = "hit"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

// Metrics holds the counters on a private registry so tests and multiple
// app instances never collide on registration. A nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	tierResults        *prometheus.CounterVec
	cacheRequests      *prometheus.CounterVec
	cacheEvictions     *prometheus.CounterVec
	cacheInvalidations *prometheus.CounterVec
	writeThroughs      prometheus.Counter
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		tierResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bolsa_resolver_tier_total",
			Help: "Resolver tier lookups by tier and outcome",
		}, []string{"tier", "outcome"}),
		cacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bolsa_cache_requests_total",
			Help: "Cache lookups by cache and result",
		}, []string{"cache", "result"}),
		cacheEvictions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bolsa_cache_evictions_total",
			Help: "Entries evicted for capacity or expiry",
		}, []string{"cache", "reason"}),
		cacheInvalidations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bolsa_cache_invalidations_total",
			Help: "Entries dropped after writes or failed shape checks",
		}, []string{"cache", "reason"}),
		writeThroughs: factory.NewCounter(prometheus.CounterOpts{
			Name: "bolsa_resolver_write_through_total",
			Help: "Days written back into the record store",
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// TierCounter returns the counter for one tier and outcome.
func (m *Metrics) TierCounter(tier, outcome string) prometheus.Counter {
	return m.tierResults.WithLabelValues(tier, outcome)
}

// WriteThroughCounter returns the write-through counter.
func (m *Metrics) WriteThroughCounter() prometheus.Counter {
	return m.writeThroughs
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// TierResult counts a resolver tier outcome.
func (m *Metrics) TierResult(tier, outcome string) {
	if m == nil {
		return
	}
	m.tierResults.WithLabelValues(tier, outcome).Inc()
}

// WriteThrough counts a day persisted by the resolver.
func (m *Metrics) WriteThrough() {
	if m == nil {
		return
	}
	m.writeThroughs.Inc()
}

// CacheHit counts a hit on the named cache.
func (m *Metrics) CacheHit(cache string) {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues(cache, "hit").Inc()
}

// CacheMiss counts a miss on the named cache.
func (m *Metrics) CacheMiss(cache string) {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues(cache, "miss").Inc()
}

// CacheEviction counts an eviction ("capacity" or "expired").
func (m *Metrics) CacheEviction(cache, reason string) {
	if m == nil {
		return
	}
	m.cacheEvictions.WithLabelValues(cache, reason).Inc()
}

// CacheInvalidation counts a dropped entry ("write" or "corrupt").
func (m *Metrics) CacheInvalidation(cache, reason string) {
	if m == nil {
		return
	}
	m.cacheInvalidations.WithLabelValues(cache, reason).Inc()
}
