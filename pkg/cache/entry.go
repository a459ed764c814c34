package cache

import (
	"time"
)

// Entry is a cached value with its lifetime bookkeeping. Entries are owned
// exclusively by the store; they are mutated only by the owning get/set/evict
// operations and destroyed on expiry check, explicit delete, or eviction.
type Entry struct {
	// Value is the cached value.
	Value any

	// CreatedAt is when the entry was stored. Eviction removes the entry
	// with the oldest CreatedAt, not the least recently used one.
	CreatedAt time.Time

	// ExpiresAt is when the entry becomes stale. Always >= CreatedAt.
	ExpiresAt time.Time

	// HitCount is the number of cache hits served from this entry.
	HitCount int

	// ttl is the entry's current base TTL, grown by adaptive extension.
	ttl time.Duration
}

// Expired returns true if the entry is stale at the given instant.
func (e *Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// TTL returns the remaining time until expiry at the given instant.
// Returns 0 if already expired.
func (e *Entry) TTL(now time.Time) time.Duration {
	remaining := e.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
