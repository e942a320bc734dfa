// Package common provides shared utilities for Bolsa
package common

import "time"

// Freshness TTLs for cached data
const (
	FreshnessQueryResult = 1 * time.Hour // query cache entries, measured from creation
	FreshnessLatestDay   = 1 * time.Hour // scheduler re-resolves the latest trading day
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	return IsFreshAt(updated, time.Now(), ttl)
}

// IsFreshAt is IsFresh against an explicit clock reading.
func IsFreshAt(updated, now time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return now.Sub(updated) < ttl
}
