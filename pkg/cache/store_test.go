package cache

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func TestStore_SetAndGet(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(Config{MaxSize: 10, Now: clock.Now})

	s.Set("k", "value", time.Minute)

	val, ok := s.Get("k")
	if !ok {
		t.Fatal("Get miss for freshly set key")
	}
	if val != "value" {
		t.Errorf("val = %v, want %q", val, "value")
	}
}

func TestStore_LazyExpiry(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(Config{MaxSize: 10, Now: clock.Now})

	s.Set("k", 1, time.Minute)

	clock.Advance(59 * time.Second)
	if _, ok := s.Get("k"); !ok {
		t.Error("entry expired early")
	}

	clock.Advance(2 * time.Second)
	if _, ok := s.Get("k"); ok {
		t.Error("expired entry still served")
	}
	if s.Len() != 0 {
		t.Errorf("expired entry not removed, len = %d", s.Len())
	}
}

func TestStore_EvictsOldestCreated(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(Config{MaxSize: 2, Now: clock.Now})

	s.Set("A", "a", time.Hour)
	clock.Advance(time.Second)
	s.Set("B", "b", time.Hour)
	clock.Advance(time.Second)

	// Touch A so LRU would evict B; oldest-created must still evict A.
	s.Get("A")

	s.Set("C", "c", time.Hour)

	if _, ok := s.Get("A"); ok {
		t.Error("A still cached, want evicted (oldest created)")
	}
	if _, ok := s.Get("B"); !ok {
		t.Error("B missing, want cached")
	}
	if _, ok := s.Get("C"); !ok {
		t.Error("C missing, want cached")
	}
}

func TestStore_SetExistingKeyDoesNotEvict(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(Config{MaxSize: 2, Now: clock.Now})

	s.Set("A", 1, time.Hour)
	s.Set("B", 2, time.Hour)
	s.Set("A", 3, time.Hour) // overwrite, still 2 entries

	if s.Len() != 2 {
		t.Errorf("len = %d, want 2", s.Len())
	}
	if evictions := s.Stats().Evictions; evictions != 0 {
		t.Errorf("evictions = %d, want 0", evictions)
	}
	val, _ := s.Get("A")
	if val != 3 {
		t.Errorf("A = %v, want 3 after overwrite", val)
	}
}

func TestStore_AdaptiveTTLExtension(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(Config{
		MaxSize:           10,
		AdaptiveThreshold: 2,
		AdaptiveFactor:    2.0,
		MaxTTL:            10 * time.Minute,
		Now:               clock.Now,
	})

	s.Set("k", 1, time.Minute)

	// First hit: below threshold, no extension.
	s.Get("k")
	clock.Advance(61 * time.Second)
	if _, ok := s.Get("k"); ok {
		t.Fatal("entry survived past base TTL without enough hits")
	}

	s.Set("k", 1, time.Minute)
	s.Get("k")
	s.Get("k") // second hit crosses the threshold: ttl doubles to 2m

	clock.Advance(90 * time.Second)
	if _, ok := s.Get("k"); !ok {
		t.Error("adaptively extended entry expired early")
	}
}

func TestStore_AdaptiveTTLCappedAtMax(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(Config{
		MaxSize:           10,
		AdaptiveThreshold: 1,
		AdaptiveFactor:    100,
		MaxTTL:            2 * time.Minute,
		Now:               clock.Now,
	})

	s.Set("k", 1, time.Minute)
	s.Get("k") // extension capped at MaxTTL

	clock.Advance(2*time.Minute + time.Second)
	if _, ok := s.Get("k"); ok {
		t.Error("entry survived past MaxTTL")
	}
}

func TestStore_Stats(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(Config{MaxSize: 2, Now: clock.Now})

	s.Set("A", 1, time.Hour)
	clock.Advance(time.Second)
	s.Set("B", 2, time.Hour)
	clock.Advance(time.Second)

	s.Get("A")       // hit
	s.Get("A")       // hit
	s.Get("missing") // miss
	s.Set("C", 3, time.Hour) // evicts A

	stats := s.Stats()
	if stats.Size != 2 {
		t.Errorf("Size = %d, want 2", stats.Size)
	}
	if stats.MaxSize != 2 {
		t.Errorf("MaxSize = %d, want 2", stats.MaxSize)
	}
	if stats.Hits != 2 {
		t.Errorf("Hits = %d, want 2", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
	if stats.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", stats.Evictions)
	}
	if stats.TotalRequests != 3 {
		t.Errorf("TotalRequests = %d, want 3", stats.TotalRequests)
	}
	wantRate := 2.0 / 3.0
	if stats.HitRate < wantRate-1e-9 || stats.HitRate > wantRate+1e-9 {
		t.Errorf("HitRate = %v, want %v", stats.HitRate, wantRate)
	}
}

func TestStore_DeleteAndClear(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(Config{MaxSize: 10, Now: clock.Now})

	s.Set("A", 1, time.Hour)
	s.Set("B", 2, time.Hour)

	s.Delete("A")
	if _, ok := s.Get("A"); ok {
		t.Error("A still cached after Delete")
	}

	s.Clear()
	if s.Len() != 0 {
		t.Errorf("len after Clear = %d, want 0", s.Len())
	}
	if _, ok := s.Get("B"); ok {
		t.Error("B still cached after Clear")
	}
}

func TestStore_ExpiryInvariant(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(Config{MaxSize: 10, Now: clock.Now})

	s.Set("k", 1, time.Minute)

	s.mu.Lock()
	e := s.entries["k"]
	s.mu.Unlock()

	if e.ExpiresAt.Before(e.CreatedAt) {
		t.Errorf("ExpiresAt %v before CreatedAt %v", e.ExpiresAt, e.CreatedAt)
	}
}
