package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testPolicy(maxAttempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		InitialWait: time.Millisecond,
		MaxWait:     5 * time.Millisecond,
		Multiplier:  2.0,
		Jitter:      0,
	}
}

func serverErr() error {
	return &APIError{Class: ClassServer, StatusCode: 503, Message: "503 Service Unavailable"}
}

func TestRetry_ExhaustionSurfacesError(t *testing.T) {
	// Fails deterministically 3 times, then would succeed.
	calls := 0
	fn := func(ctx context.Context) error {
		calls++
		if calls <= 3 {
			return serverErr()
		}
		return nil
	}

	err := retryWithBackoff(context.Background(), zerolog.Nop(), testPolicy(3), fn)
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("err = %v, want ErrRetryExhausted", err)
	}
	if calls != 3 {
		t.Errorf("fn invoked %d times, want 3 (MaxAttempts is total tries)", calls)
	}

	// Classification survives the exhaustion wrap.
	if ClassOf(err) != ClassServer {
		t.Errorf("ClassOf = %q, want %q", ClassOf(err), ClassServer)
	}
}

func TestRetry_SucceedsWithinBudget(t *testing.T) {
	calls := 0
	fn := func(ctx context.Context) error {
		calls++
		if calls <= 3 {
			return serverErr()
		}
		return nil
	}

	err := retryWithBackoff(context.Background(), zerolog.Nop(), testPolicy(4), fn)
	if err != nil {
		t.Errorf("err = %v, want nil", err)
	}
	if calls != 4 {
		t.Errorf("fn invoked %d times, want 4", calls)
	}
}

func TestRetry_NonRetryableFailsImmediately(t *testing.T) {
	calls := 0
	fn := func(ctx context.Context) error {
		calls++
		return &APIError{Class: ClassClient, StatusCode: 404, Message: "404 Not Found"}
	}

	err := retryWithBackoff(context.Background(), zerolog.Nop(), testPolicy(5), fn)
	if ClassOf(err) != ClassClient {
		t.Errorf("ClassOf = %q, want %q", ClassOf(err), ClassClient)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("non-retryable error must not be wrapped as exhaustion")
	}
	if calls != 1 {
		t.Errorf("fn invoked %d times, want 1", calls)
	}
}

func TestRetry_FirstTrySuccess(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), zerolog.Nop(), testPolicy(3), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Errorf("err = %v, calls = %d; want nil, 1", err, calls)
	}
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 3,
		InitialWait: time.Minute,
		MaxWait:     time.Minute,
		Multiplier:  2.0,
	}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- retryWithBackoff(ctx, zerolog.Nop(), policy, func(ctx context.Context) error {
			calls++
			return serverErr()
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, ErrContextCancelled) {
			t.Errorf("err = %v, want ErrContextCancelled", err)
		}
		if calls != 1 {
			t.Errorf("fn invoked %d times, want 1", calls)
		}
	case <-time.After(time.Second):
		t.Fatal("retry loop did not observe cancellation")
	}
}

func TestBackoffFor_Exponential(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 5,
		InitialWait: time.Second,
		MaxWait:     10 * time.Second,
		Multiplier:  2.0,
		Jitter:      0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second}, // capped at MaxWait
		{10, 10 * time.Second},
	}

	for _, tt := range tests {
		if got := policy.backoffFor(serverErr(), tt.attempt); got != tt.want {
			t.Errorf("backoffFor(attempt=%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestBackoffFor_ServerDelayWins(t *testing.T) {
	policy := testPolicy(3)
	err := &APIError{Class: ClassRateLimit, StatusCode: 429, RetryAfter: 42 * time.Second}

	if got := policy.backoffFor(err, 1); got != 42*time.Second {
		t.Errorf("backoffFor = %v, want server-specified 42s", got)
	}
}

func TestBackoffFor_JitterBounds(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 3,
		InitialWait: time.Second,
		MaxWait:     time.Minute,
		Multiplier:  2.0,
		Jitter:      0.2,
	}

	for i := 0; i < 100; i++ {
		got := policy.backoffFor(serverErr(), 1)
		if got < 800*time.Millisecond || got > 1200*time.Millisecond {
			t.Fatalf("jittered backoff %v outside ±20%% of 1s", got)
		}
	}
}
