package client

import (
	"errors"
	"fmt"
	"time"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during
	// a retry backoff sleep.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass classifies request failures. The class decides retryability and
// whether the circuit breaker counts the failure.
type ErrorClass string

const (
	// ClassClient represents 4xx client errors other than 429. Not retryable.
	ClassClient ErrorClass = "client"

	// ClassServer represents 5xx server errors. Retryable.
	ClassServer ErrorClass = "server"

	// ClassRateLimit represents 429 responses. Retryable, and may carry a
	// server-specified delay via Retry-After.
	ClassRateLimit ErrorClass = "rate_limit"

	// ClassNetwork represents connection-level failures. Retryable.
	ClassNetwork ErrorClass = "network"

	// ClassTimeout represents an exceeded timeout budget. Retryable with a
	// fresh budget.
	ClassTimeout ErrorClass = "timeout"

	// ClassCircuitOpen is synthetic: the breaker rejected the call without a
	// transport attempt. Not retryable at this layer.
	ClassCircuitOpen ErrorClass = "circuit_open"

	// ClassBackpressure is synthetic: the request queue stayed full. Not
	// retryable; the caller must back off.
	ClassBackpressure ErrorClass = "backpressure"
)

// APIError is a classified request failure.
type APIError struct {
	StatusCode int
	Class      ErrorClass
	Message    string

	// RetryAfter is a server-specified delay (from a Retry-After header);
	// zero when the server gave none. Used verbatim over computed backoff.
	RetryAfter time.Duration

	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode > 0:
		return fmt.Sprintf("openalex %s error (status %d): %s: %v", e.Class, e.StatusCode, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("openalex %s error: %s: %v", e.Class, e.Message, e.Err)
	case e.StatusCode > 0:
		return fmt.Sprintf("openalex %s error (status %d): %s", e.Class, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("openalex %s error: %s", e.Class, e.Message)
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is matches APIErrors by class, so callers can test against a prototype:
// errors.Is(err, &APIError{Class: ClassRateLimit}).
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Class == t.Class
}

// Retryable reports whether the error class is worth retrying.
func (e *APIError) Retryable() bool {
	switch e.Class {
	case ClassNetwork, ClassTimeout, ClassServer, ClassRateLimit:
		return true
	default:
		return false
	}
}

// Retryable reports whether err should be retried. Unclassified errors are
// not retried.
func Retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}

// ClassOf extracts the error class from err, or "" for unclassified errors.
func ClassOf(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Class
	}
	return ""
}

// serverDelay extracts a server-specified retry delay from err, if any.
func serverDelay(err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return 0
}

// classForStatus maps an HTTP status code to an error class.
func classForStatus(status int) ErrorClass {
	switch {
	case status == 429:
		return ClassRateLimit
	case status >= 500:
		return ClassServer
	case status >= 400:
		return ClassClient
	default:
		return ""
	}
}
