package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// queue is a bounded FIFO of audit jobs drained by a single dedicated worker
// goroutine. Enqueue never blocks: at capacity it rejects, and the caller
// takes the synchronous fallback path instead of buffering without bound.
type queue struct {
	jobs    chan Job
	stop    chan struct{}
	wg      sync.WaitGroup
	pending atomic.Int64

	closeMu sync.RWMutex
	closed  bool

	process    func(ctx context.Context, job Job) error
	maxRetries int
	logger     *slog.Logger
	metrics    *metrics
}

func newQueue(size, maxRetries int, process func(ctx context.Context, job Job) error, logger *slog.Logger, m *metrics) *queue {
	q := &queue{
		jobs:       make(chan Job, size),
		stop:       make(chan struct{}),
		process:    process,
		maxRetries: maxRetries,
		logger:     logger,
		metrics:    m,
	}
	q.wg.Add(1)
	go q.worker()
	return q
}

// Enqueue appends a job, reporting false when the queue is at capacity or
// shutting down. Rejection is not an error; it signals the caller to persist
// inline. The read lock is held across the send so Close cannot slip between
// the closed check and the deposit: every accepted job is in the buffer
// before the worker's final drain begins.
func (q *queue) Enqueue(job Job) bool {
	q.closeMu.RLock()
	defer q.closeMu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.jobs <- job:
		q.pending.Add(1)
		q.metrics.incEnqueued()
		return true
	default:
		q.metrics.incRejected()
		return false
	}
}

// Pending returns the number of jobs not yet finally disposed of, the
// in-flight one included.
func (q *queue) Pending() int64 {
	return q.pending.Load()
}

func (q *queue) worker() {
	defer q.wg.Done()

	for {
		select {
		case job := <-q.jobs:
			q.handle(job)
		case <-q.stop:
			// Drain whatever is buffered, then exit. Jobs re-enqueued during
			// the drain are picked up by this same loop.
			for {
				select {
				case job := <-q.jobs:
					q.handle(job)
				default:
					return
				}
			}
		}
	}
}

func (q *queue) handle(job Job) {
	// Persistence runs on a background context: the originating request is
	// long gone, and its cancellation must not take audit entries with it.
	err := q.process(context.Background(), job)
	if err == nil {
		q.pending.Add(-1)
		q.metrics.incPersisted()
		return
	}

	if job.retry < q.maxRetries {
		job.retry++
		q.metrics.incRetried()
		// Back of the queue, so a poison job cannot stall FIFO progress for
		// the jobs behind it.
		select {
		case q.jobs <- job:
			return
		default:
		}
		q.pending.Add(-1)
		q.metrics.incDropped()
		q.logger.Error("audit job dropped: queue full on retry re-enqueue",
			slog.String("entity", job.Mutation.Entity),
			slog.String("action", string(job.Mutation.Action)),
			slog.Int("retries", job.retry),
			slog.Any("error", err),
		)
		return
	}

	q.pending.Add(-1)
	q.metrics.incDropped()
	q.logger.Error("audit job dropped: retries exhausted",
		slog.String("entity", job.Mutation.Entity),
		slog.String("action", string(job.Mutation.Action)),
		slog.Int("retries", job.retry),
		slog.Any("error", err),
	)
}

// Close stops accepting jobs and waits for the worker to drain the backlog,
// up to the context deadline. A timeout abandons the wait, never the worker:
// in-flight persistence is not cancelled.
func (q *queue) Close(ctx context.Context) error {
	q.closeMu.Lock()
	alreadyClosed := q.closed
	q.closed = true
	q.closeMu.Unlock()
	if alreadyClosed {
		return nil
	}
	close(q.stop)

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ErrDrainTimeout
	}
}
