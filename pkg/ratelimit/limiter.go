// Package ratelimit implements client-side request throttling. Two variants
// are provided: a token-bucket Limiter for smooth sustained rates with burst
// capacity, and a SlidingWindow limiter for hard per-window request counts.
//
// Both variants compute the wait a caller owes instead of sleeping internally,
// so the queue worker can honor context cancellation during the sleep.
package ratelimit

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for rate limiting.
var (
	limiterWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "openalex_ratelimit_wait_seconds",
		Help:    "Wait durations imposed by the rate limiter",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	})

	limiterThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "openalex_ratelimit_throttles_total",
		Help: "Total number of acquisitions that had to wait for tokens",
	})

	limiterTokens = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "openalex_ratelimit_tokens",
		Help: "Current number of tokens in the bucket",
	})
)

// DefaultBuffer is the fraction of the nominal rate the limiter actually
// operates at, leaving headroom so the server's own limiter is never
// edge-triggered.
const DefaultBuffer = 0.9

// Config holds token-bucket limiter configuration.
type Config struct {
	// Rate is the sustained request rate in requests per second.
	// Default: 10.
	Rate float64

	// Burst is the bucket capacity. Default: Rate rounded up, minimum 1.
	Burst int

	// Buffer scales the nominal rate down, in (0, 1]. Default: DefaultBuffer.
	Buffer float64

	// Now is the clock used for refill computation. Default: time.Now.
	// Injectable for deterministic tests.
	Now func() time.Time
}

// Limiter is a token-bucket rate limiter.
//
// Acquire reserves tokens optimistically: when the bucket cannot cover the
// request, the deficit is taken immediately (tokens drop to zero) and the
// returned wait is what the caller must sleep before proceeding. Reserved
// tokens are never refunded, even if the downstream call fails; failing call
// patterns stay throttled.
type Limiter struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second, buffer already applied
	lastRefill time.Time
	now        func() time.Time
}

// New creates a token-bucket limiter from cfg.
func New(cfg Config) *Limiter {
	if cfg.Rate <= 0 {
		cfg.Rate = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.Rate + 0.5)
		if cfg.Burst < 1 {
			cfg.Burst = 1
		}
	}
	if cfg.Buffer <= 0 || cfg.Buffer > 1 {
		cfg.Buffer = DefaultBuffer
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Limiter{
		tokens:     float64(cfg.Burst),
		capacity:   float64(cfg.Burst),
		refillRate: cfg.Rate * cfg.Buffer,
		lastRefill: cfg.Now(),
		now:        cfg.Now,
	}
}

// Acquire reserves n tokens and returns the duration the caller must sleep
// before proceeding. A zero return means the tokens were available and no
// wait is owed.
func (l *Limiter) Acquire(n float64) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refillLocked()

	if l.tokens >= n {
		l.tokens -= n
		limiterTokens.Set(l.tokens)
		return 0
	}

	// Reserve the deficit now; the caller sleeps, not the limiter.
	wait := time.Duration((n - l.tokens) / l.refillRate * float64(time.Second))
	l.tokens = 0
	limiterTokens.Set(0)
	limiterThrottlesTotal.Inc()
	limiterWaitSeconds.Observe(wait.Seconds())
	return wait
}

// TryAcquire attempts to take n tokens without reserving on failure.
// It returns false, with no side effects, when not enough tokens are
// available.
func (l *Limiter) TryAcquire(n float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refillLocked()

	if l.tokens < n {
		return false
	}
	l.tokens -= n
	limiterTokens.Set(l.tokens)
	return true
}

// Tokens returns the current token count after refill. Intended for
// observability and tests.
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refillLocked()
	return l.tokens
}

// refillLocked adds tokens for the elapsed time, capped at capacity.
// Caller must hold l.mu.
func (l *Limiter) refillLocked() {
	now := l.now()
	elapsed := now.Sub(l.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	l.tokens += elapsed * l.refillRate
	if l.tokens > l.capacity {
		l.tokens = l.capacity
	}
	l.lastRefill = now
}
