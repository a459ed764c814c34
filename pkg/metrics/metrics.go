// Package metrics provides the centralized Prometheus registry for the
// OpenAlex client. All metrics are defined in their respective packages
// (client, cache, queue, breaker, ratelimit) to maintain modularity and
// avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - openalex_ratelimit_wait_seconds (Histogram): Wait imposed by the limiter per acquisition
//   - openalex_ratelimit_throttles_total (Counter): Acquisitions that had to wait
//   - openalex_ratelimit_tokens (Gauge): Tokens currently available in the bucket
//
// Circuit Breaker Metrics (pkg/breaker):
//   - openalex_breaker_state (Gauge): Current state (0=closed, 1=open, 2=half-open)
//   - openalex_breaker_transitions_total{to} (Counter): State transitions by target state
//   - openalex_breaker_rejections_total (Counter): Calls rejected while open
//
// Queue Metrics (pkg/queue):
//   - openalex_queue_depth (Gauge): Tasks currently waiting in the queue
//   - openalex_queue_backpressure_total (Counter): Enqueues rejected because the queue was full
//   - openalex_queue_task_seconds (Histogram): Task duration from dequeue to completion
//
// Cache Metrics (pkg/cache):
//   - openalex_cache_hits_total (Counter): Cache hits
//   - openalex_cache_misses_total (Counter): Cache misses
//   - openalex_cache_evictions_total (Counter): Entries evicted at capacity
//   - openalex_cache_entries (Gauge): Entries currently stored
//
// Request Metrics (pkg/client):
//   - openalex_requests_total{operation, outcome} (Counter): Requests by operation class and outcome
//   - openalex_request_duration_seconds{operation} (Histogram): End-to-end request duration
//   - openalex_errors_total{class} (Counter): Errors by class (network, timeout, server, rate_limit, client, circuit_open, backpressure)
//
// Retry Metrics (pkg/client):
//   - openalex_retries_total{error_class} (Counter): Retry attempts by error class
//   - openalex_retry_backoff_seconds{error_class} (Histogram): Backoff slept between attempts
//   - openalex_retry_exhausted_total{error_class} (Counter): Requests that exhausted the retry budget
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(openalex_cache_hits_total[5m])) /
//   (sum(rate(openalex_cache_hits_total[5m])) + sum(rate(openalex_cache_misses_total[5m])))
//
//   # Breaker Open
//   openalex_breaker_state == 1
//
//   # Request Error Rate
//   rate(openalex_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(openalex_request_duration_seconds_bucket[5m]))
//
//   # Throttle Pressure
//   rate(openalex_ratelimit_throttles_total[5m])
