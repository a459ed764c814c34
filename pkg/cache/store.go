package cache

import (
	"sync"
	"time"
)

// Config holds cache store configuration.
type Config struct {
	// MaxSize is the maximum number of entries. When a Set would exceed it,
	// the entry with the oldest CreatedAt is evicted. Default: 1000.
	MaxSize int

	// DefaultTTL is used when Set is called with a non-positive TTL.
	// Default: 5 minutes.
	DefaultTTL time.Duration

	// AdaptiveThreshold is the hit count past which an entry's TTL is
	// extended multiplicatively. Zero disables adaptive extension.
	AdaptiveThreshold int

	// AdaptiveFactor multiplies the entry TTL on each qualifying hit.
	// Default: 2.0 when AdaptiveThreshold is set.
	AdaptiveFactor float64

	// MaxTTL caps adaptive extension. Default: 1 hour.
	MaxTTL time.Duration

	// Now is the clock. Default: time.Now.
	Now func() time.Time
}

// Store is a bounded in-memory TTL cache. A single mutex guards structural
// operations; fetch deduplication lives in Manager, not here.
type Store struct {
	mu      sync.Mutex
	entries map[string]*Entry
	cfg     Config

	hits      uint64
	misses    uint64
	evictions uint64
}

// NewStore creates a store from cfg.
func NewStore(cfg Config) *Store {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 1000
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 5 * time.Minute
	}
	if cfg.AdaptiveThreshold > 0 && cfg.AdaptiveFactor <= 1 {
		cfg.AdaptiveFactor = 2.0
	}
	if cfg.MaxTTL <= 0 {
		cfg.MaxTTL = time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Store{
		entries: make(map[string]*Entry),
		cfg:     cfg,
	}
}

// Get returns the cached value for key. Expired entries are removed lazily
// and reported as misses. Hits past the adaptive threshold extend the
// entry's expiry multiplicatively up to MaxTTL.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, found := s.entries[key]
	if !found {
		s.misses++
		cacheMisses.Inc()
		return nil, false
	}

	now := s.cfg.Now()
	if e.Expired(now) {
		delete(s.entries, key)
		s.misses++
		cacheMisses.Inc()
		return nil, false
	}

	e.HitCount++
	if s.cfg.AdaptiveThreshold > 0 && e.HitCount >= s.cfg.AdaptiveThreshold {
		extended := time.Duration(float64(e.ttl) * s.cfg.AdaptiveFactor)
		if extended > s.cfg.MaxTTL {
			extended = s.cfg.MaxTTL
		}
		if extended > e.ttl {
			e.ttl = extended
		}
		e.ExpiresAt = now.Add(e.ttl)
	}

	s.hits++
	cacheHits.Inc()
	return e.Value, true
}

// Set stores value under key with the given TTL. A non-positive ttl falls
// back to DefaultTTL. Inserting beyond MaxSize evicts the entry with the
// oldest CreatedAt first.
func (s *Store) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.cfg.DefaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.cfg.Now()

	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.cfg.MaxSize {
		s.evictOldestLocked()
	}

	s.entries[key] = &Entry{
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		ttl:       ttl,
	}
	cacheEntries.Set(float64(len(s.entries)))
}

// Delete removes the entry for key, if present.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	cacheEntries.Set(float64(len(s.entries)))
}

// Clear removes all entries. Statistics counters are kept.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*Entry)
	cacheEntries.Set(0)
}

// Len returns the current entry count.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats reports the observability surface for the cache.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.hits + s.misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(s.hits) / float64(total)
	}

	return Stats{
		Size:          len(s.entries),
		MaxSize:       s.cfg.MaxSize,
		Hits:          s.hits,
		Misses:        s.misses,
		Evictions:     s.evictions,
		HitRate:       hitRate,
		TotalRequests: total,
	}
}

// evictOldestLocked removes the entry with the oldest CreatedAt.
// Caller must hold s.mu.
func (s *Store) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, e := range s.entries {
		if oldestKey == "" || e.CreatedAt.Before(oldest) {
			oldestKey = key
			oldest = e.CreatedAt
		}
	}
	if oldestKey != "" {
		delete(s.entries, oldestKey)
		s.evictions++
		cacheEvictions.Inc()
	}
}

// Stats is the read-only cache statistics surface consumed by observability
// tooling.
type Stats struct {
	Size          int     `json:"size"`
	MaxSize       int     `json:"max_size"`
	Hits          uint64  `json:"hits"`
	Misses        uint64  `json:"misses"`
	Evictions     uint64  `json:"evictions"`
	HitRate       float64 `json:"hit_rate"`
	TotalRequests uint64  `json:"total_requests"`
}
