package async

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrTimeout is returned by AwaitWithTimeout when the future does not complete in time.
	ErrTimeout = errors.New("async: operation timed out")

	// ErrNoFutures is returned by WaitAny when called without futures.
	ErrNoFutures = errors.New("async: no futures provided")
)

// Future represents the result of an asynchronous computation.
type Future[U any] struct {
	result U
	err    error
	once   sync.Once
	done   chan struct{}
}

// Await blocks until the computation completes and returns its result.
func (f *Future[U]) Await() (U, error) {
	<-f.done
	return f.result, f.err
}

// AwaitWithTimeout waits up to timeout for the computation to complete.
func (f *Future[U]) AwaitWithTimeout(timeout time.Duration) (U, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-time.After(timeout):
		var zero U
		return zero, ErrTimeout
	}
}

// Done returns a channel closed when the computation completes.
func (f *Future[U]) Done() <-chan struct{} {
	return f.done
}

// IsComplete reports whether the computation has completed without blocking.
func (f *Future[U]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Async runs fn(ctx, param) in its own goroutine and returns a Future for its result.
// If ctx is already done, fn is not called and the future completes with ctx.Err().
func Async[T, U any](ctx context.Context, param T, fn func(context.Context, T) (U, error)) *Future[U] {
	f := &Future[U]{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		select {
		case <-ctx.Done():
			f.err = ctx.Err()
			return
		default:
		}

		result, err := fn(ctx, param)
		f.once.Do(func() {
			f.result = result
			f.err = err
		})
	}()

	return f
}

// WaitAll waits for every future and returns their results in order.
// The first error encountered (in argument order) is returned.
func WaitAll[U any](futures ...*Future[U]) ([]U, error) {
	results := make([]U, len(futures))
	for i, future := range futures {
		result, err := future.Await()
		if err != nil {
			return nil, err
		}
		results[i] = result
	}
	return results, nil
}

// WaitAny returns as soon as one of the futures completes, reporting its index,
// result and error. The remaining futures keep running.
func WaitAny[U any](futures ...*Future[U]) (int, U, error) {
	var zero U
	if len(futures) == 0 {
		return -1, zero, ErrNoFutures
	}

	type outcome struct {
		index  int
		result U
		err    error
	}

	// Buffered so losing watchers never block.
	done := make(chan outcome, len(futures))
	for i, future := range futures {
		go func() {
			<-future.done
			done <- outcome{index: i, result: future.result, err: future.err}
		}()
	}

	res := <-done
	return res.index, res.result, res.err
}

// First runs fn once per param concurrently and returns the first successful
// result together with the index of the param that produced it. As soon as a
// winner is known the context passed to the other calls is cancelled and
// their results are discarded.
//
// Calls that fail do not end the race unless every call fails, in which case
// the last error is returned. With no params First blocks until ctx is done.
func First[T, U any](ctx context.Context, params []T, fn func(context.Context, T) (U, error)) (int, U, error) {
	var zero U

	if len(params) == 0 {
		<-ctx.Done()
		return -1, zero, ctx.Err()
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	futures := make([]*Future[U], len(params))
	for i, param := range params {
		futures[i] = Async(raceCtx, param, fn)
	}

	pending := futures
	indexes := make([]int, len(futures))
	for i := range indexes {
		indexes[i] = i
	}

	var lastErr error
	for len(pending) > 0 {
		i, result, err := WaitAny(pending...)
		if err == nil {
			return indexes[i], result, nil
		}
		lastErr = err

		pending = append(pending[:i:i], pending[i+1:]...)
		indexes = append(indexes[:i:i], indexes[i+1:]...)
	}

	// Prefer the caller's own cancellation over errors it caused.
	if ctx.Err() != nil {
		return -1, zero, ctx.Err()
	}
	return -1, zero, lastErr
}
