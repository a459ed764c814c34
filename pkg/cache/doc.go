// Package cache provides a process-lifetime response cache with TTL expiry,
// bounded capacity, and single-flight fetch deduplication.
//
// The Store is a mutex-guarded in-memory map with lazy expiry on Get and
// oldest-created eviction on Set. The Manager layers per-key locks on top so
// that concurrent misses for the same key result in exactly one fetch.
//
// # Basic Usage
//
//	store := cache.NewStore(cache.Config{
//		MaxSize:    1000,
//		DefaultTTL: 5 * time.Minute,
//	})
//	manager := cache.NewManager(store)
//
//	key := cache.Key{Resource: "works", EntityID: "W2741809807"}
//	val, err := manager.GetOrFetch(ctx, key, 5*time.Minute, func(ctx context.Context) (any, error) {
//		return client.Get(ctx, "works", "W2741809807", nil)
//	})
//
// # Eviction
//
// When a Set would exceed MaxSize, the entry with the oldest CreatedAt is
// removed. Eviction is by insertion age, not by recency of access.
//
// # Adaptive TTL
//
// With AdaptiveThreshold set, entries that keep getting hit have their TTL
// multiplied by AdaptiveFactor on each qualifying hit, capped at MaxTTL, so
// hot entries stay cached longer.
//
// # Failure semantics
//
// Fetch failures are never stored. The cache does not absorb or retry
// errors; they propagate to the caller unchanged.
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - openalex_cache_hits_total
//   - openalex_cache_misses_total
//   - openalex_cache_evictions_total
//   - openalex_cache_entries
//
// The same counters are available programmatically via Stats().
package cache
