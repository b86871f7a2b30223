package async_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjuct/mini-redis-http/pkg/async"
)

func TestAsync(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	future := async.Async(ctx, 21, func(ctx context.Context, n int) (int, error) {
		return n * 2, nil
	})

	result, err := future.Await()
	require.NoError(t, err)
	assert.Equal(t, 42, result)

	select {
	case <-future.Done():
	default:
		t.Fatal("future should be done after Await")
	}
}

func TestWaitAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	double := func(ctx context.Context, n int) (int, error) { return n * 2, nil }
	results, err := async.WaitAll(
		async.Async(ctx, 1, double),
		async.Async(ctx, 2, double),
		async.Async(ctx, 3, double),
	)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 6}, results)

	expectedErr := errors.New("boom")
	_, err = async.WaitAll(
		async.Async(ctx, 1, double),
		async.Async(ctx, 2, func(context.Context, int) (int, error) { return 0, expectedErr }),
	)
	assert.ErrorIs(t, err, expectedErr)
}

func TestWaitAny(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, _, err := async.WaitAny[int]()
	assert.ErrorIs(t, err, async.ErrNoFutures)

	block := make(chan struct{})
	defer close(block)

	slow := async.Async(ctx, 0, func(context.Context, int) (string, error) {
		<-block
		return "slow", nil
	})
	fast := async.Async(ctx, 0, func(context.Context, int) (string, error) {
		return "fast", nil
	})

	index, result, err := async.WaitAny(slow, fast)
	require.NoError(t, err)
	assert.Equal(t, 1, index)
	assert.Equal(t, "fast", result)
}

func TestFirst(t *testing.T) {
	t.Parallel()

	t.Run("returns first winner and cancels the rest", func(t *testing.T) {
		ctx := context.Background()
		var cancelled atomic.Int32

		params := []string{"a", "b", "c"}
		index, result, err := async.First(ctx, params, func(ctx context.Context, p string) (string, error) {
			if p == "b" {
				return "winner:" + p, nil
			}
			<-ctx.Done()
			cancelled.Add(1)
			return "", ctx.Err()
		})

		require.NoError(t, err)
		assert.Equal(t, 1, index)
		assert.Equal(t, "winner:b", result)
		assert.Eventually(t, func() bool {
			return cancelled.Load() == 2
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("failed calls do not end the race", func(t *testing.T) {
		ctx := context.Background()
		index, result, err := async.First(ctx, []int{0, 1}, func(ctx context.Context, p int) (int, error) {
			if p == 0 {
				return 0, errors.New("lost")
			}
			time.Sleep(10 * time.Millisecond)
			return 7, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, index)
		assert.Equal(t, 7, result)
	})

	t.Run("all failures return last error", func(t *testing.T) {
		ctx := context.Background()
		expectedErr := errors.New("nope")
		index, _, err := async.First(ctx, []int{1, 2}, func(ctx context.Context, p int) (int, error) {
			return 0, expectedErr
		})
		assert.Equal(t, -1, index)
		assert.ErrorIs(t, err, expectedErr)
	})

	t.Run("empty params wait for context", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		index, _, err := async.First(ctx, nil, func(ctx context.Context, p int) (int, error) {
			t.Fatal("fn must not be called")
			return 0, nil
		})
		assert.Equal(t, -1, index)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("caller cancellation wins over inner errors", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		_, _, err := async.First(ctx, []int{1, 2}, func(ctx context.Context, p int) (int, error) {
			<-ctx.Done()
			return 0, errors.New("aborted")
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
