// Package worker runs queued tasks on a fixed set of goroutines.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/tourguide/internal/adapters/mq/queue"
	"github.com/okian/tourguide/pkg/logger"
	"github.com/okian/tourguide/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount    = 100
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Queue defines how workers receive tasks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Task
	Done() <-chan struct{}
}

// Worker runs tasks read from a queue.
type Worker interface {
	// Run starts the worker loop until Shutdown is called, or until ctx is
	// canceled or the queue is closed, after which it drains what is queued.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for in-process tasks.
type InMemoryWorker struct {
	queue Queue
	name  string
	busy  *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		name:     "worker",
		busy:     &atomic.Int64{},
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	tasks := w.queue.Dequeue(ctx)
	for {
		select {
		case <-w.shutdown:
			return
		case <-ctx.Done():
			w.drain(ctx, tasks)
			return
		case <-w.queue.Done():
			w.drain(ctx, tasks)
			return
		case task := <-tasks:
			w.execute(ctx, task)
		}
	}
}

// drain runs whatever is still queued. Tasks see ctx, so a canceled ctx
// lets them resolve without doing their work.
func (w *InMemoryWorker) drain(ctx context.Context, tasks <-chan queue.Task) {
	for {
		select {
		case <-w.shutdown:
			return
		default:
		}
		select {
		case task := <-tasks:
			w.execute(ctx, task)
		default:
			return
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out", logger.String("worker", w.name))
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// execute runs one task. A panicking task never takes the worker down.
func (w *InMemoryWorker) execute(ctx context.Context, task queue.Task) {
	if task == nil {
		return
	}
	start := time.Now()
	w.busy.Add(1)
	metrics.AddWorkerBusy(1)
	defer func() {
		w.busy.Add(-1)
		metrics.AddWorkerBusy(-1)
		metrics.RecordTaskLatency(float64(time.Since(start).Milliseconds()))
		if r := recover(); r != nil {
			metrics.RecordTaskPanic()
			w.logger.Error(ctx, "task panicked",
				logger.String("worker", w.name),
				logger.Any("panic", r),
			)
		}
	}()
	task(ctx)
}

// Pool manages a fixed number of workers sharing one queue.
//
// Canceling the ctx given to Start closes the queue: later submissions fail
// with queue.ErrStopped and queued tasks run with the canceled ctx.
type Pool struct {
	workers []*InMemoryWorker
	queue   queue.Queue
	busy    atomic.Int64

	mu        sync.Mutex
	started   bool
	stopped   bool
	watchDone chan struct{}

	logger logger.Logger
}

// NewPool creates a new worker pool. A workerCount below one selects the default.
func NewPool(workerCount int, q queue.Queue, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	p := &Pool{
		queue:     q,
		watchDone: make(chan struct{}),
		logger:    logger.Get().Named("pool"),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.workers = make([]*InMemoryWorker, workerCount)
	for i := range p.workers {
		w := NewInMemoryWorker(q, WithName(fmt.Sprintf("worker-%d", i)), WithLogger(p.logger))
		w.busy = &p.busy
		p.workers[i] = w
	}
	return p
}

// Start starts all workers in the pool. Calling it twice is a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.watch(ctx)
	metrics.UpdateWorkerActiveCount(len(p.workers))
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// watch closes the queue when ctx ends and, once every worker has exited,
// runs anything enqueued after the workers drained.
func (p *Pool) watch(ctx context.Context) {
	defer close(p.watchDone)

	select {
	case <-p.queue.Done():
		return
	case <-ctx.Done():
	}

	p.logger.Warn(context.Background(), "pool context ended, closing queue", logger.Error(ctx.Err()))
	if err := p.queue.Close(); err != nil {
		p.logger.Error(context.Background(), "error closing queue", logger.Error(err))
	}
	for _, w := range p.workers {
		<-w.done
	}
	metrics.UpdateWorkerActiveCount(0)
	if len(p.workers) > 0 {
		p.workers[0].drain(ctx, p.queue.Dequeue(ctx))
	}
}

// Submit queues a task, waiting while the queue is full.
func (p *Pool) Submit(ctx context.Context, task queue.Task) error {
	err := p.queue.Enqueue(ctx, task)
	switch {
	case err == nil:
		return nil
	case p.queue.IsClosed():
		return fmt.Errorf("submit: %w", queue.ErrStopped)
	default:
		return err
	}
}

// Closed reports whether the pool no longer accepts tasks.
func (p *Pool) Closed() bool { return p.queue.IsClosed() }

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Busy returns the number of workers currently running a task.
func (p *Pool) Busy() int { return int(p.busy.Load()) }

// Pending returns the number of queued tasks.
func (p *Pool) Pending(ctx context.Context) int { return p.queue.Len(ctx) }

// Shutdown closes the queue and waits for workers to drain it. Workers still
// busy when ctx or the pool timeout ends are told to quit after their
// current task, and queued tasks they never reached are dropped.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	started := p.started
	p.mu.Unlock()

	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}
	if !started {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
		if timedOut {
			break
		}
	}
	if timedOut {
		abortCtx, abort := context.WithTimeout(context.Background(), workerShutdownTimeout)
		defer abort()
		for _, w := range p.workers {
			_ = w.Shutdown(abortCtx)
		}
		metrics.UpdateWorkerActiveCount(0)
		return fmt.Errorf("pool shutdown: %w", shutdownCtx.Err())
	}

	select {
	case <-p.watchDone:
	case <-shutdownCtx.Done():
		return fmt.Errorf("pool shutdown: %w", shutdownCtx.Err())
	}
	metrics.UpdateWorkerActiveCount(0)
	return nil
}
