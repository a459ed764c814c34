package ratelimit

import (
	"sync"
	"time"
)

// WindowConfig holds sliding-window limiter configuration.
type WindowConfig struct {
	// Limit is the maximum number of requests per window. Default: 10.
	Limit int

	// Window is the trailing window duration. Default: 1 second.
	Window time.Duration

	// Buffer scales the limit down, in (0, 1]. Default: DefaultBuffer.
	Buffer float64

	// Now is the clock. Default: time.Now.
	Now func() time.Time
}

// SlidingWindow limits requests to a fixed count within a trailing window.
// It tracks admission timestamps; when the window is full, the wait returned
// is the time until the oldest admission exits the window, and that future
// slot is reserved immediately.
type SlidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	stamps []time.Time // admission times, oldest first
	now    func() time.Time
}

// NewSlidingWindow creates a sliding-window limiter from cfg.
func NewSlidingWindow(cfg WindowConfig) *SlidingWindow {
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Second
	}
	if cfg.Buffer <= 0 || cfg.Buffer > 1 {
		cfg.Buffer = DefaultBuffer
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	limit := int(float64(cfg.Limit) * cfg.Buffer)
	if limit < 1 {
		limit = 1
	}

	return &SlidingWindow{
		limit:  limit,
		window: cfg.Window,
		stamps: make([]time.Time, 0, limit),
		now:    cfg.Now,
	}
}

// Acquire reserves one admission slot and returns the duration the caller
// must sleep before proceeding.
func (w *SlidingWindow) Acquire(n float64) time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.pruneLocked(now)

	if len(w.stamps) < w.limit {
		w.stamps = append(w.stamps, now)
		return 0
	}

	// Window full: admitted once the oldest stamp falls out. Record the
	// projected admission time so concurrent acquirers queue behind it.
	wait := w.stamps[0].Add(w.window).Sub(now)
	if wait < 0 {
		wait = 0
	}
	w.stamps = append(w.stamps[1:], now.Add(wait))
	limiterThrottlesTotal.Inc()
	limiterWaitSeconds.Observe(wait.Seconds())
	return wait
}

// TryAcquire admits a request only if a slot is free, with no side effects
// on failure.
func (w *SlidingWindow) TryAcquire(n float64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.pruneLocked(now)

	if len(w.stamps) >= w.limit {
		return false
	}
	w.stamps = append(w.stamps, now)
	return true
}

// InFlight returns the number of admissions currently inside the window.
func (w *SlidingWindow) InFlight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked(w.now())
	return len(w.stamps)
}

// pruneLocked drops timestamps that have exited the trailing window.
// Caller must hold w.mu.
func (w *SlidingWindow) pruneLocked(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}
