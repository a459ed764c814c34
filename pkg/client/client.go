// Package client provides the resilient request pipeline for the OpenAlex
// HTTP API: rate limiting, a single-worker request queue, circuit breaking,
// retries with backoff, and cached single-entity fetches.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/b-vitamins/openalex-go/pkg/breaker"
	"github.com/b-vitamins/openalex-go/pkg/cache"
	"github.com/b-vitamins/openalex-go/pkg/logging"
	"github.com/b-vitamins/openalex-go/pkg/queue"
	"github.com/b-vitamins/openalex-go/pkg/ratelimit"
)

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openalex_requests_total",
		Help: "Total requests by operation class and outcome",
	}, []string{"operation", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "openalex_request_duration_seconds",
		Help:    "Request duration in seconds by operation class",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"operation"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openalex_errors_total",
		Help: "Total errors by class",
	}, []string{"class"})

	requestRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openalex_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "openalex_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openalex_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// Client is the dispatcher: it owns no pipeline state of its own and
// composes RequestQueue -> CircuitBreaker -> retry -> Transport, with the
// cache manager wrapped around single-entity GETs.
type Client struct {
	transport Transport
	limiter   *ratelimit.Limiter
	breaker   *breaker.CircuitBreaker
	queue     *queue.Queue[*Response]
	cache     *cache.Manager
	config    Config
	logger    zerolog.Logger
}

// New creates a client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	logger := logging.NewLogger("openalex-client")

	limiter := ratelimit.New(ratelimit.Config{
		Rate:   cfg.Rate,
		Burst:  cfg.Burst,
		Buffer: cfg.Buffer,
	})

	cb := breaker.New(breaker.Config{
		FailureThreshold: cfg.CircuitFailureThreshold,
		RecoveryTimeout:  cfg.CircuitRecoveryTimeout,
		IsFailure:        tripWorthy,
	})

	q := queue.New[*Response](limiter, queue.Config{
		MaxSize:     cfg.QueueMaxSize,
		EnqueueWait: cfg.QueueEnqueueWait,
	})

	var cacheManager *cache.Manager
	if cfg.CacheEnabled {
		cacheManager = cache.NewManager(cache.NewStore(cfg.cacheConfig()))
	}

	return &Client{
		transport: NewHTTPTransport(cfg.BaseURL, cfg.UserAgent),
		limiter:   limiter,
		breaker:   cb,
		queue:     q,
		cache:     cacheManager,
		config:    cfg,
		logger:    logger,
	}, nil
}

// tripWorthy decides which failures count toward opening the circuit.
// Client errors never trip it; neither does a plain timeout, unless the
// transport classified it as something stronger.
func tripWorthy(err error) bool {
	switch ClassOf(err) {
	case ClassNetwork, ClassServer, ClassRateLimit:
		return true
	default:
		return false
	}
}

// Do dispatches one request through the full pipeline, bypassing the cache.
// The call blocks until the queue worker completes it.
func (c *Client) Do(ctx context.Context, op OperationClass, req *Request) (*Response, error) {
	requestID := uuid.NewString()
	logger := c.logger.With().
		Str("request_id", requestID).
		Str("operation", string(op)).
		Str("path", req.Path).
		Logger()

	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())
	}()

	timeout := c.config.timeoutFor(op)

	resp, err := c.queue.Enqueue(ctx, func(taskCtx context.Context) (*Response, error) {
		callCtx, cancel := context.WithTimeout(taskCtx, timeout)
		defer cancel()

		var resp *Response
		err := c.breaker.Call(callCtx, func(breakerCtx context.Context) error {
			return retryWithBackoff(breakerCtx, logger, c.config.Retry, func(attemptCtx context.Context) error {
				r, sendErr := c.transport.Send(attemptCtx, req)
				if sendErr != nil {
					return sendErr
				}
				resp = r
				return nil
			})
		})
		return resp, err
	})

	if err != nil {
		err = c.classifyPipelineError(err)
		class := ClassOf(err)
		errorsTotal.WithLabelValues(string(class)).Inc()
		requestsTotal.WithLabelValues(string(op), "error").Inc()
		logger.Error().
			Err(err).
			Str("error_class", string(class)).
			Msg("Request failed")
		return nil, err
	}

	requestsTotal.WithLabelValues(string(op), "ok").Inc()
	logger.Debug().
		Int("status_code", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Request completed")
	return resp, nil
}

// classifyPipelineError wraps synthetic pipeline failures (breaker, queue,
// context) as APIErrors so callers see one taxonomy.
func (c *Client) classifyPipelineError(err error) error {
	switch {
	case errors.Is(err, breaker.ErrOpen):
		return &APIError{Class: ClassCircuitOpen, Message: "circuit open", Err: err}
	case errors.Is(err, queue.ErrBackpressure):
		return &APIError{Class: ClassBackpressure, Message: "request queue full", Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		if ClassOf(err) == "" {
			return &APIError{Class: ClassTimeout, Message: "timeout budget exceeded", Err: err}
		}
	}
	return err
}

// Get fetches a single entity, served from the cache when possible.
func (c *Client) Get(ctx context.Context, resource, entityID string, params url.Values) (*Response, error) {
	req := &Request{Path: resource + "/" + entityID, Params: params}

	if c.cache == nil {
		return c.Do(ctx, OpGet, req)
	}

	key := cache.Key{Resource: resource, EntityID: entityID, Params: params}
	val, err := c.cache.GetOrFetch(ctx, key, c.config.CacheTTL, func(fetchCtx context.Context) (any, error) {
		return c.Do(fetchCtx, OpGet, req)
	})
	if err != nil {
		return nil, err
	}
	return val.(*Response), nil
}

// List fetches a filtered listing. Listings are not cached; pagination above
// this layer decides the fetch pattern.
func (c *Client) List(ctx context.Context, resource string, params url.Values) (*Response, error) {
	return c.Do(ctx, OpList, &Request{Path: resource, Params: params})
}

// Search performs a full-text search within a resource.
func (c *Client) Search(ctx context.Context, resource string, params url.Values) (*Response, error) {
	return c.Do(ctx, OpSearch, &Request{Path: resource, Params: params})
}

// BreakerState returns the circuit breaker's externally observable state.
func (c *Client) BreakerState() breaker.State {
	return c.breaker.State()
}

// ResetBreaker forces the circuit closed, bypassing the recovery timeout.
func (c *Client) ResetBreaker() {
	c.breaker.Reset()
}

// CacheStats reports cache statistics, or zero stats when caching is off.
func (c *Client) CacheStats() cache.Stats {
	if c.cache == nil {
		return cache.Stats{}
	}
	return c.cache.Stats()
}

// InvalidateCache drops the cached response for one entity.
func (c *Client) InvalidateCache(resource, entityID string, params url.Values) {
	if c.cache != nil {
		c.cache.Invalidate(cache.Key{Resource: resource, EntityID: entityID, Params: params})
	}
}

// Close stops the queue worker and releases resources.
func (c *Client) Close() error {
	c.queue.Close()
	return nil
}

// SetTransport sets a custom transport (for testing).
func (c *Client) SetTransport(t Transport) {
	c.transport = t
}
