package client

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// RetryPolicy holds the configuration for retry logic. It is an immutable
// value; share it freely.
type RetryPolicy struct {
	// MaxAttempts is the total number of invocations, including the first
	// try. MaxAttempts = 1 means no retries.
	MaxAttempts int

	// InitialWait is the backoff before the second attempt.
	InitialWait time.Duration

	// MaxWait caps the computed backoff.
	MaxWait time.Duration

	// Multiplier grows the backoff between attempts.
	Multiplier float64

	// Jitter randomizes each backoff by ±Jitter fraction (0 disables,
	// 0.2 means ±20%) to avoid synchronized retry storms.
	Jitter float64
}

// DefaultRetryPolicy returns the default retry configuration.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		InitialWait: 1 * time.Second,
		MaxWait:     30 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.2,
	}
}

// backoffFor computes the wait before the next attempt. A server-specified
// delay on the error is used verbatim; otherwise exponential backoff with
// jitter, capped at MaxWait. attempt is the attempt that just failed,
// starting at 1.
func (p RetryPolicy) backoffFor(err error, attempt int) time.Duration {
	if delay := serverDelay(err); delay > 0 {
		return delay
	}

	wait := p.InitialWait
	for i := 1; i < attempt; i++ {
		wait = time.Duration(float64(wait) * p.Multiplier)
		if wait >= p.MaxWait {
			wait = p.MaxWait
			break
		}
	}
	if wait > p.MaxWait {
		wait = p.MaxWait
	}

	if p.Jitter > 0 {
		frac := 1 - p.Jitter + 2*p.Jitter*rand.Float64()
		wait = time.Duration(float64(wait) * frac)
	}
	return wait
}

// retryWithBackoff invokes fn up to policy.MaxAttempts times. Retryable
// failures sleep the computed backoff between attempts; non-retryable
// failures propagate immediately. The exhaustion error wraps both
// ErrRetryExhausted and the last underlying error, so classification
// survives for the breaker above.
func retryWithBackoff(ctx context.Context, logger zerolog.Logger, policy RetryPolicy, fn func(context.Context) error) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err
		class := ClassOf(err)

		if !Retryable(err) {
			return err
		}
		if attempt >= policy.MaxAttempts {
			break
		}

		backoff := policy.backoffFor(err, attempt)
		requestRetriesTotal.WithLabelValues(string(class)).Inc()
		retryBackoffSeconds.WithLabelValues(string(class)).Observe(backoff.Seconds())

		logger.Warn().
			Str("error_class", string(class)).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("Retrying request after backoff")

		select {
		case <-ctx.Done():
			logger.Warn().
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		case <-time.After(backoff):
		}
	}

	retryExhaustedTotal.WithLabelValues(string(ClassOf(lastErr))).Inc()
	logger.Warn().
		Int("max_attempts", policy.MaxAttempts).
		Str("error_class", string(ClassOf(lastErr))).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, policy.MaxAttempts, lastErr)
}
