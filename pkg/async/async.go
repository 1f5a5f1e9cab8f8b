package async

import (
	"context"
	"sync"
	"time"
)

// Future is the eventual result of an asynchronous command.
type Future[U any] struct {
	result U
	err    error
	once   sync.Once
	done   chan struct{}
}

// Resolver completes a Future. Only the first call has an effect.
type Resolver[U any] func(result U, err error)

// NewPromise returns a pending Future and the function that completes it.
// It is used where the work is run by an existing goroutine (a queue worker)
// instead of a goroutine spawned per call.
func NewPromise[U any]() (*Future[U], Resolver[U]) {
	f := &Future[U]{done: make(chan struct{})}
	return f, f.resolve
}

// Resolved returns an already completed Future.
func Resolved[U any](result U, err error) *Future[U] {
	f, resolve := NewPromise[U]()
	resolve(result, err)
	return f
}

func (f *Future[U]) resolve(result U, err error) {
	f.once.Do(func() {
		f.result = result
		f.err = err
		close(f.done)
	})
}

// Await waits for completion and returns the result and error.
func (f *Future[U]) Await() (U, error) {
	<-f.done
	return f.result, f.err
}

// AwaitContext waits for completion or for ctx to end, whichever comes first.
func (f *Future[U]) AwaitContext(ctx context.Context) (U, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		var zero U
		return zero, ctx.Err()
	}
}

// AwaitWithTimeout waits for completion for at most timeout.
// It returns ErrTimeout when the future is still pending.
func (f *Future[U]) AwaitWithTimeout(timeout time.Duration) (U, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.result, f.err
	case <-timer.C:
		var zero U
		return zero, ErrTimeout
	}
}

// Done is closed when the future completes.
func (f *Future[U]) Done() <-chan struct{} {
	return f.done
}

// IsComplete reports completion without blocking.
func (f *Future[U]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Async runs fn in its own goroutine and returns its Future.
// A context cancelled before fn starts completes the future with ctx.Err().
func Async[T any, U any](ctx context.Context, param T, fn func(context.Context, T) (U, error)) *Future[U] {
	f, resolve := NewPromise[U]()

	go func() {
		select {
		case <-ctx.Done():
			var zero U
			resolve(zero, ctx.Err())
			return
		default:
		}

		resolve(fn(ctx, param))
	}()

	return f
}

// WaitAll waits for every future and returns their results in order.
// The first error encountered (in slice order) is returned.
func WaitAll[U any](futures ...*Future[U]) ([]U, error) {
	results := make([]U, len(futures))

	var firstErr error
	for i, future := range futures {
		result, err := future.Await()
		results[i] = result
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return results, firstErr
}
