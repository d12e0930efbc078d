package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Job is one document to process.
type Job struct {
	Path        string
	Hash        string // hex sha256 of the file, when known
	SubmittedAt time.Time
	TraceID     string
}

// Sink receives the result of every job, from worker goroutines.
type Sink interface {
	Handle(ctx context.Context, job Job, out Outcome, err error)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, job Job, out Outcome, err error)

func (f SinkFunc) Handle(ctx context.Context, job Job, out Outcome, err error) { f(ctx, job, out, err) }

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// Runner processes one path. *Processor implements it.
type Runner interface {
	Process(ctx context.Context, path string) (Outcome, error)
}

type Queue struct {
	proc    Runner
	sink    Sink
	logger  *slog.Logger
	workers int
	timeout time.Duration
	base    context.Context

	// jobs run under ctx; Shutdown cancels it once it gives up waiting
	ctx    context.Context
	cancel context.CancelFunc

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu      sync.RWMutex
	closed  bool
	pending sync.WaitGroup
}

type Option func(*Queue)

func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithBaseContext makes every job context a child of ctx, so cancelling it
// aborts jobs in flight.
func WithBaseContext(ctx context.Context) Option {
	return func(q *Queue) {
		if ctx != nil {
			q.base = ctx
		}
	}
}

func NewQueue(proc Runner, sink Sink, logger *slog.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = SinkFunc(func(context.Context, Job, Outcome, error) {})
	}
	q := &Queue{
		proc:    proc,
		sink:    sink,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		base:    context.Background(),
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.ctx, q.cancel = context.WithCancel(q.base)
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("queue.worker.start", "worker_id", workerID)

				for job := range q.ch {
					q.handle(workerID, job)
				}

				q.logger.Debug("queue.worker.stop", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *Queue) handle(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(q.ctx, q.timeout)
	defer cancel()

	out, err := q.proc.Process(ctx, job.Path)
	if err != nil {
		q.logger.Error("queue.job.failed", "worker_id", workerID, "path", job.Path, "error", err)
	} else {
		q.logger.Info("queue.job.ok", "worker_id", workerID, "path", job.Path, "req_id", out.RequestID)
	}
	q.sink.Handle(ctx, job, out, err)
}

// Enqueue hands a job to the workers, blocking while the buffer is full
// until ctx is done.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		q.logger.Warn("queue.enqueue.closed", "path", job.Path)
		return ErrQueueClosed
	}
	q.pending.Add(1)
	q.mu.RUnlock()
	defer q.pending.Done()

	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queue.enqueue.ok", "path", job.Path)
		return nil
	default:
	}
	q.logger.Warn("queue.enqueue.backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish. When ctx
// is done first, jobs still running or queued have their context cancelled.
func (q *Queue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		q.pending.Wait()
		close(q.ch)
		q.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		q.cancel()
		q.logger.Warn("queue.shutdown.interrupted", "error", ctx.Err())
	case <-done:
		q.cancel()
		q.logger.Info("queue.shutdown.ok")
	}
}
