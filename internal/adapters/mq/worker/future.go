package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/tourguide/internal/adapters/mq/queue"
	"github.com/okian/tourguide/pkg/metrics"
)

// Submitter accepts tasks for asynchronous execution.
type Submitter interface {
	Submit(ctx context.Context, task queue.Task) error
}

// Future is the pending result of a function running on a pool.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a Future that is already complete.
func Resolved[T any](val T, err error) *Future[T] {
	f := newFuture[T]()
	f.resolve(val, err)
	return f
}

func (f *Future[T]) resolve(val T, err error) {
	f.once.Do(func() {
		f.val, f.err = val, err
		close(f.done)
	})
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait blocks until the result is available or ctx ends.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Go runs fn on s and returns its Future. fn receives ctx. If submission
// fails the Future resolves immediately with that error; if the pool was
// canceled before fn started it resolves with queue.ErrStopped.
func Go[T any](ctx context.Context, s Submitter, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()
	task := func(runCtx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				metrics.RecordTaskPanic()
				var zero T
				f.resolve(zero, fmt.Errorf("%w: %v", ErrTaskPanicked, r))
			}
		}()
		if err := runCtx.Err(); err != nil {
			var zero T
			f.resolve(zero, fmt.Errorf("%w: %w", queue.ErrStopped, err))
			return
		}
		if err := ctx.Err(); err != nil {
			var zero T
			f.resolve(zero, err)
			return
		}
		f.resolve(fn(ctx))
	}
	if err := s.Submit(ctx, task); err != nil {
		var zero T
		f.resolve(zero, err)
	}
	return f
}

// WaitAll waits for every future and returns their results in order.
// It returns early with ctx's error if ctx ends first.
func WaitAll[T any](ctx context.Context, futures []*Future[T]) ([]T, []error, error) {
	vals := make([]T, len(futures))
	errs := make([]error, len(futures))
	for i, f := range futures {
		select {
		case <-f.done:
			vals[i], errs[i] = f.val, f.err
		case <-ctx.Done():
			return vals, errs, ctx.Err()
		}
	}
	return vals, errs, nil
}
