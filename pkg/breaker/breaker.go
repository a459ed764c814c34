// Package breaker implements a per-client circuit breaker that stops calling
// a failing upstream for a cooldown period.
package breaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for circuit breaker state.
var (
	breakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "openalex_breaker_state",
		Help: "Current circuit breaker state (0=closed, 1=open, 2=half-open)",
	})

	breakerTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openalex_breaker_transitions_total",
		Help: "Circuit breaker state transitions by target state",
	}, []string{"to"})

	breakerRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "openalex_breaker_rejections_total",
		Help: "Calls rejected while the circuit was open",
	})
)

// ErrOpen is returned by Call when the circuit is open. The wrapped operation
// is not invoked and the rejection does not count as a new failure.
var ErrOpen = errors.New("breaker: circuit open")

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means calls pass through normally.
	StateClosed State = iota
	// StateOpen means calls fail immediately without reaching the upstream.
	StateOpen
	// StateHalfOpen means a single trial call probes whether the upstream
	// recovered.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config configures the circuit breaker.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// circuit. Default: 5.
	FailureThreshold int

	// RecoveryTimeout is how long the circuit stays open before a trial call
	// is allowed. Default: 30 seconds.
	RecoveryTimeout time.Duration

	// IsFailure decides whether an error counts toward the failure tally.
	// Client errors should not trip the breaker. Default: any non-nil error.
	IsFailure func(err error) bool

	// OnStateChange is called after every state transition.
	OnStateChange func(from, to State)

	// Now is the clock. Default: time.Now.
	Now func() time.Time
}

// CircuitBreaker is a three-state breaker: Closed -> Open -> HalfOpen ->
// {Closed | Open}. The Open -> HalfOpen transition happens lazily on state
// reads once the recovery timeout has elapsed; there is no background timer.
type CircuitBreaker struct {
	cfg Config

	mu           sync.Mutex
	state        State
	failures     int
	lastFailure  time.Time
	trialPending bool // half-open trial currently in flight
}

// New creates a circuit breaker from cfg.
func New(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = 30 * time.Second
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return err != nil }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &CircuitBreaker{
		cfg:   cfg,
		state: StateClosed,
	}
}

// Call runs op through the breaker. While the circuit is open it returns
// ErrOpen immediately without invoking op. op may itself retry internally;
// the breaker records one terminal success or failure per Call.
func (cb *CircuitBreaker) Call(ctx context.Context, op func(context.Context) error) error {
	if err := cb.beforeCall(); err != nil {
		breakerRejectionsTotal.Inc()
		return err
	}

	err := op(ctx)
	cb.afterCall(err)
	return err
}

// State returns the externally observable state, applying the lazy
// Open -> HalfOpen transition when the recovery timeout has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset forces the breaker closed with zero failures, bypassing the recovery
// timeout.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	from := cb.state
	cb.state = StateClosed
	cb.failures = 0
	cb.trialPending = false
	if from != StateClosed {
		cb.transitioned(from, StateClosed)
	}
}

func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.stateLocked() {
	case StateOpen:
		return ErrOpen
	case StateHalfOpen:
		if cb.trialPending {
			// Exactly one trial call is let through.
			return ErrOpen
		}
		cb.trialPending = true
	}
	return nil
}

func (cb *CircuitBreaker) afterCall(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	failed := cb.cfg.IsFailure(err)

	switch cb.state {
	case StateClosed:
		if failed {
			cb.failures++
			cb.lastFailure = cb.cfg.Now()
			if cb.failures >= cb.cfg.FailureThreshold {
				cb.state = StateOpen
				cb.transitioned(StateClosed, StateOpen)
			}
		} else {
			cb.failures = 0
		}

	case StateHalfOpen:
		cb.trialPending = false
		if failed {
			cb.lastFailure = cb.cfg.Now()
			cb.state = StateOpen
			cb.transitioned(StateHalfOpen, StateOpen)
		} else {
			cb.failures = 0
			cb.state = StateClosed
			cb.transitioned(StateHalfOpen, StateClosed)
		}

	case StateOpen:
		// A call that started before the circuit opened finished late.
		// Outcome is not counted; the recovery timeout governs from here.
	}
}

// stateLocked returns the effective state. Caller must hold cb.mu.
func (cb *CircuitBreaker) stateLocked() State {
	if cb.state == StateOpen && cb.cfg.Now().Sub(cb.lastFailure) > cb.cfg.RecoveryTimeout {
		cb.state = StateHalfOpen
		cb.trialPending = false
		cb.transitioned(StateOpen, StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) transitioned(from, to State) {
	breakerState.Set(float64(to))
	breakerTransitionsTotal.WithLabelValues(to.String()).Inc()

	evt := log.Warn()
	if to == StateClosed {
		evt = log.Info()
	}
	evt.Str("component", "circuit-breaker").
		Str("from", from.String()).
		Str("to", to.String()).
		Int("failures", cb.failures).
		Msg("Circuit breaker state changed")

	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(from, to)
	}
}
