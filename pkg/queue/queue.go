// Package queue provides a bounded FIFO request queue with a single consuming
// worker. All calls funneled through one queue instance are serialized to at
// most one in-flight transport call at a time, which makes the queue the hard
// global throttle point of the pipeline.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for queue operations.
var (
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "openalex_queue_depth",
		Help: "Number of tasks currently waiting in the request queue",
	})

	queueBackpressureTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "openalex_queue_backpressure_total",
		Help: "Enqueue attempts rejected because the queue stayed full",
	})

	queueTaskSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "openalex_queue_task_seconds",
		Help:    "Time from enqueue to task completion",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	})
)

// Errors returned by the queue.
var (
	// ErrBackpressure is returned when the queue stays full for the whole
	// enqueue wait. Callers must back off; the error is not retryable here.
	ErrBackpressure = errors.New("queue: full, enqueue timed out")

	// ErrClosed is returned for tasks enqueued on, or still pending in, a
	// closed queue.
	ErrClosed = errors.New("queue: closed")
)

// Limiter yields the wait a caller owes before its next request may proceed.
// *ratelimit.Limiter and *ratelimit.SlidingWindow both satisfy it.
type Limiter interface {
	Acquire(n float64) time.Duration
}

// Task is a unit of work producing a value of type T.
type Task[T any] func(ctx context.Context) (T, error)

type result[T any] struct {
	val T
	err error
}

type task[T any] struct {
	ctx      context.Context
	fn       Task[T]
	enqueued time.Time
	done     chan result[T] // buffered, worker never blocks on completion
}

// Config holds queue configuration.
type Config struct {
	// MaxSize is the queue capacity. Default: 100.
	MaxSize int

	// EnqueueWait is how long Enqueue blocks on a full queue before failing
	// with ErrBackpressure. Default: 5 seconds.
	EnqueueWait time.Duration
}

// Queue is a bounded FIFO dispatcher with one worker goroutine. Producers may
// enqueue concurrently; dispatch order is FIFO but completion order depends on
// task durations as observed by each caller's own completion handle.
type Queue[T any] struct {
	tasks   chan *task[T]
	limiter Limiter
	cfg     Config
	logger  zerolog.Logger
	closed  chan struct{}
	stopped chan struct{}
}

// New creates a queue and starts its worker. limiter may be nil, in which
// case tasks dispatch without throttling.
func New[T any](limiter Limiter, cfg Config) *Queue[T] {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 100
	}
	if cfg.EnqueueWait <= 0 {
		cfg.EnqueueWait = 5 * time.Second
	}

	q := &Queue[T]{
		tasks:   make(chan *task[T], cfg.MaxSize),
		limiter: limiter,
		cfg:     cfg,
		logger:  log.With().Str("component", "request-queue").Logger(),
		closed:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go q.worker()
	return q
}

// Enqueue submits fn and blocks until the worker completes it, returning the
// task's value or error. A full queue is waited on for at most EnqueueWait,
// then the call fails with ErrBackpressure instead of growing the queue.
func (q *Queue[T]) Enqueue(ctx context.Context, fn Task[T]) (T, error) {
	var zero T

	select {
	case <-q.closed:
		return zero, ErrClosed
	default:
	}

	t := &task[T]{
		ctx:      ctx,
		fn:       fn,
		enqueued: time.Now(),
		done:     make(chan result[T], 1),
	}

	wait := time.NewTimer(q.cfg.EnqueueWait)
	defer wait.Stop()

	select {
	case q.tasks <- t:
		queueDepth.Set(float64(len(q.tasks)))
	case <-wait.C:
		queueBackpressureTotal.Inc()
		q.logger.Warn().
			Int("max_size", q.cfg.MaxSize).
			Dur("waited", q.cfg.EnqueueWait).
			Msg("Queue full, rejecting task")
		return zero, ErrBackpressure
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-q.closed:
		return zero, ErrClosed
	}

	select {
	case r := <-t.done:
		queueTaskSeconds.Observe(time.Since(t.enqueued).Seconds())
		return r.val, r.err
	case <-ctx.Done():
		// The worker may still run the task; its context is cancelled too.
		return zero, ctx.Err()
	}
}

// Len returns the number of tasks currently waiting.
func (q *Queue[T]) Len() int {
	return len(q.tasks)
}

// Close stops the worker. Tasks still waiting in the queue fail with
// ErrClosed. Close is idempotent only for a single caller; concurrent closes
// are not supported.
func (q *Queue[T]) Close() {
	close(q.closed)
	<-q.stopped
}

func (q *Queue[T]) worker() {
	defer close(q.stopped)

	for {
		select {
		case <-q.closed:
			q.drain()
			return
		case t := <-q.tasks:
			queueDepth.Set(float64(len(q.tasks)))
			q.run(t)
		}
	}
}

// run dispatches one task: wait out the rate limiter, then invoke.
func (q *Queue[T]) run(t *task[T]) {
	var zero T

	if err := t.ctx.Err(); err != nil {
		t.done <- result[T]{zero, err}
		return
	}

	if q.limiter != nil {
		if wait := q.limiter.Acquire(1); wait > 0 {
			q.logger.Debug().
				Dur("wait", wait).
				Msg("Rate limiter imposed wait")
			if err := sleep(t.ctx, wait); err != nil {
				// Reserved tokens are not refunded on cancellation.
				t.done <- result[T]{zero, err}
				return
			}
		}
	}

	val, err := t.fn(t.ctx)
	t.done <- result[T]{val, err}
}

func (q *Queue[T]) drain() {
	var zero T
	for {
		select {
		case t := <-q.tasks:
			t.done <- result[T]{zero, ErrClosed}
		default:
			queueDepth.Set(0)
			return
		}
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
