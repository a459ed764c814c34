package client

import (
	"time"

	"github.com/b-vitamins/openalex-go/pkg/cache"
	"github.com/b-vitamins/openalex-go/pkg/ratelimit"
)

// DefaultBaseURL is the public API endpoint.
const DefaultBaseURL = "https://api.openalex.org"

// OperationClass selects the timeout budget for a request.
type OperationClass string

const (
	// OpGet is a single-entity fetch.
	OpGet OperationClass = "get"

	// OpList is a filtered listing.
	OpList OperationClass = "list"

	// OpSearch is a full-text search.
	OpSearch OperationClass = "search"
)

// Config holds the client configuration. It is consumed by New; assembling
// it from flags or the environment is the caller's concern.
type Config struct {
	// BaseURL is the API root. Default: DefaultBaseURL.
	BaseURL string

	// UserAgent identifies the caller, e.g. "myapp/1.0 (mail@example.com)".
	// Required.
	UserAgent string

	// Rate limiting.
	Rate   float64 // requests per second
	Burst  int     // token bucket capacity
	Buffer float64 // fraction of nominal rate to operate at, (0, 1]

	// Circuit breaker.
	CircuitFailureThreshold int
	CircuitRecoveryTimeout  time.Duration

	// Request queue.
	QueueMaxSize     int
	QueueEnqueueWait time.Duration

	// Retry.
	Retry RetryPolicy

	// Caching.
	CacheEnabled           bool
	CacheMaxSize           int
	CacheTTL               time.Duration
	CacheAdaptiveThreshold int
	CacheMaxTTL            time.Duration

	// Per-operation-class timeout budgets.
	GetTimeout    time.Duration
	ListTimeout   time.Duration
	SearchTimeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: userAgent,

		Rate:   10,
		Burst:  10,
		Buffer: ratelimit.DefaultBuffer,

		CircuitFailureThreshold: 5,
		CircuitRecoveryTimeout:  30 * time.Second,

		QueueMaxSize:     100,
		QueueEnqueueWait: 5 * time.Second,

		Retry: DefaultRetryPolicy(),

		CacheEnabled:           true,
		CacheMaxSize:           1000,
		CacheTTL:               5 * time.Minute,
		CacheAdaptiveThreshold: 3,
		CacheMaxTTL:            time.Hour,

		GetTimeout:    10 * time.Second,
		ListTimeout:   20 * time.Second,
		SearchTimeout: 30 * time.Second,
	}
}

// timeoutFor returns the timeout budget for an operation class.
func (c Config) timeoutFor(op OperationClass) time.Duration {
	var t time.Duration
	switch op {
	case OpList:
		t = c.ListTimeout
	case OpSearch:
		t = c.SearchTimeout
	default:
		t = c.GetTimeout
	}
	if t <= 0 {
		t = 10 * time.Second
	}
	return t
}

// cacheConfig translates client configuration into a cache store config.
func (c Config) cacheConfig() cache.Config {
	return cache.Config{
		MaxSize:           c.CacheMaxSize,
		DefaultTTL:        c.CacheTTL,
		AdaptiveThreshold: c.CacheAdaptiveThreshold,
		MaxTTL:            c.CacheMaxTTL,
	}
}
