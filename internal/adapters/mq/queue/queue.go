// Package queue holds tasks waiting for a free worker.
//
// The queue is a bounded buffered channel. Producers block while it is full,
// which is the backpressure that keeps a tracking cycle's fan-out bounded.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/tourguide/pkg/metrics"
)

const defaultQueueCapacity = 10_000

// Task is a unit of work executed by a pool worker.
type Task func(ctx context.Context)

// Queue provides bounded enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a task, waiting for space. It fails with ErrClosed once
	// the queue is closed, or with ctx's error.
	Enqueue(ctx context.Context, t Task) error

	// Dequeue returns the channel workers read tasks from. It is never closed;
	// consumers watch Done and then drain what is left.
	Dequeue(ctx context.Context) <-chan Task

	// Done is closed after Close. No task is accepted once Done is closed.
	Done() <-chan struct{}

	// Len returns the current number of queued tasks.
	Len(ctx context.Context) int

	// Cap returns the queue capacity.
	Cap() int

	// Close stops accepting tasks. Queued tasks stay available to Dequeue.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	tasks    chan Task
	capacity int

	mu        sync.RWMutex
	closed    bool
	closing   chan struct{} // wakes producers blocked on a full queue
	done      chan struct{}
	closeOnce sync.Once
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.tasks = make(chan Task, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a task, blocking while the queue is full.
func (q *InMemoryQueue) Enqueue(ctx context.Context, t Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejected("closed")
		return ErrClosed
	}

	select {
	case q.tasks <- t:
		metrics.UpdateQueueSize(len(q.tasks))
		return nil
	case <-q.closing:
		metrics.RecordQueueRejected("closed")
		return ErrClosed
	case <-ctx.Done():
		metrics.RecordQueueRejected("context_cancelled")
		return fmt.Errorf("enqueue: %w", ctx.Err())
	}
}

// Dequeue returns the task channel.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Task {
	return q.tasks
}

// Done is closed once the queue stops accepting tasks.
func (q *InMemoryQueue) Done() <-chan struct{} {
	return q.done
}

// Len returns the current number of queued tasks.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.tasks)
	metrics.UpdateQueueSize(size)
	return size
}

// Cap returns the queue capacity.
func (q *InMemoryQueue) Cap() int {
	return q.capacity
}

// Close stops accepting tasks. It waits for in-flight Enqueue calls to
// return so nothing is added after Done is closed.
func (q *InMemoryQueue) Close() error {
	q.closeOnce.Do(func() {
		close(q.closing)

		q.mu.Lock()
		q.closed = true
		close(q.done)
		q.mu.Unlock()
	})
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
