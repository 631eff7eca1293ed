package pool

import (
	"context"
	"sync"
)

// Future is the pending result of a task run by Go
type Future[T any] struct {
	done   chan struct{}
	once   sync.Once
	cancel context.CancelFunc
	value  T
	err    error
}

// Go runs fn on p and returns its future. Submission fails with ErrRejected
// or ErrStopped without running fn.
func Go[T any](p *Pool, ctx context.Context, fn func(context.Context) (T, error)) (*Future[T], error) {
	taskCtx, cancel := context.WithCancel(ctx)
	f := &Future[T]{
		done:   make(chan struct{}),
		cancel: cancel,
	}

	err := p.submit(&task{
		ctx: taskCtx,
		run: func(ctx context.Context) {
			v, err := fn(ctx)
			f.complete(v, err)
		},
		abort: func(err error) {
			var zero T
			f.complete(zero, err)
		},
	})
	if err != nil {
		cancel()
		return nil, err
	}
	return f, nil
}

func (f *Future[T]) complete(v T, err error) {
	f.once.Do(func() {
		f.value = v
		f.err = err
		close(f.done)
		f.cancel()
	})
}

// Done is closed once the result is available
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Cancel asks the task to stop. A task that has not started yet is dropped.
func (f *Future[T]) Cancel() {
	f.cancel()
}

// Wait blocks until the task finishes or ctx ends
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
