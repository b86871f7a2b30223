package ratelimiter_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjuct/mini-redis-http/pkg/ratelimiter"
)

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newLimiter(t *testing.T, clk *clock, cfg ratelimiter.Config) (*ratelimiter.Bucket, *ratelimiter.MemoryStore) {
	t.Helper()
	store := ratelimiter.NewMemoryStore(ratelimiter.WithClock(clk.Now))
	limiter, err := ratelimiter.NewBucket(store, cfg)
	require.NoError(t, err)
	return limiter, store
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  ratelimiter.Config
	}{
		{"zero capacity", ratelimiter.Config{RefillRate: 1, RefillInterval: time.Second}},
		{"zero rate", ratelimiter.Config{Capacity: 1, RefillInterval: time.Second}},
		{"zero interval", ratelimiter.Config{Capacity: 1, RefillRate: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), tt.cfg)
			assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
		})
	}

	_, err := ratelimiter.NewBucket(nil, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Second})
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
}

func TestBucket_AllowAndRefill(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := newClock()

	limiter, store := newLimiter(t, clk, ratelimiter.Config{
		Capacity:       3,
		RefillRate:     1,
		RefillInterval: time.Second,
	})

	for i := range 3 {
		res, err := limiter.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
		assert.Equal(t, 2-i, res.Remaining)
		assert.Equal(t, 3, res.Limit)
		assert.Zero(t, res.RetryAfter())
	}

	res, err := limiter.Allow(ctx, "a")
	require.NoError(t, err)
	assert.False(t, res.Allowed())
	assert.Equal(t, 0, res.Remaining)

	// Keys are independent.
	res, err = limiter.Allow(ctx, "b")
	require.NoError(t, err)
	assert.True(t, res.Allowed())

	clk.Advance(1500 * time.Millisecond)
	res, err = limiter.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, res.Allowed())
	assert.Equal(t, 0, res.Remaining)

	// The half interval carried over.
	clk.Advance(500 * time.Millisecond)
	res, err = limiter.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, res.Allowed())

	clk.Advance(time.Hour)
	res, err = limiter.Allow(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Remaining, "refill is capped at capacity")

	assert.Equal(t, int64(1), store.Stats().Refused)
}

func TestBucket_AllowN(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	limiter, _ := newLimiter(t, newClock(), ratelimiter.Config{
		Capacity:       5,
		RefillRate:     5,
		RefillInterval: time.Minute,
	})

	res, err := limiter.AllowN(ctx, "k", 4)
	require.NoError(t, err)
	assert.True(t, res.Allowed())

	res, err = limiter.AllowN(ctx, "k", 2)
	require.NoError(t, err)
	assert.False(t, res.Allowed())
	assert.Equal(t, 1, res.Remaining, "a refused request takes nothing")

	_, err = limiter.AllowN(ctx, "k", 0)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)
	_, err = limiter.AllowN(ctx, "k", 6)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)

	require.NoError(t, limiter.Reset(ctx, "k"))
	res, err = limiter.AllowN(ctx, "k", 5)
	require.NoError(t, err)
	assert.True(t, res.Allowed())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = limiter.Allow(cancelled, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResult_RetryAfter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	limiter, _ := newLimiter(t, newClock(), ratelimiter.Config{
		Capacity:       1,
		RefillRate:     1,
		RefillInterval: time.Hour,
	})

	_, err := limiter.Allow(ctx, "k")
	require.NoError(t, err)

	// ResetAt is on the fake clock, far in the past for time.Until.
	res, err := limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, res.Allowed())
	assert.GreaterOrEqual(t, res.RetryAfter(), time.Duration(0))
}

func TestMemoryStore_RemoveStale(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := newClock()

	store := ratelimiter.NewMemoryStore(
		ratelimiter.WithClock(clk.Now),
		ratelimiter.WithStaleAfter(time.Minute),
	)
	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Second})
	require.NoError(t, err)

	_, _ = limiter.Allow(ctx, "old")
	clk.Advance(2 * time.Minute)
	_, _ = limiter.Allow(ctx, "fresh")

	assert.Equal(t, 1, store.RemoveStale())

	stats := store.Stats()
	assert.Equal(t, 1, stats.ActiveBuckets)
	assert.Equal(t, int64(2), stats.BucketsCreated)
	assert.Equal(t, int64(1), stats.BucketsRemoved)
}

func TestMemoryStore_Run(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())

	run := store.Run(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- run() }()

	require.Eventually(t, func() bool { return store.Stats().Running }, time.Second, time.Millisecond)
	assert.ErrorIs(t, store.Run(ctx)(), ratelimiter.ErrAlreadyRunning)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	assert.False(t, store.Stats().Running)
}

func TestMemoryStore_Concurrent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping concurrency test in short mode")
	}
	t.Parallel()
	ctx := context.Background()

	limiter, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.Config{
		Capacity:       100,
		RefillRate:     1,
		RefillInterval: time.Hour,
	})
	require.NoError(t, err)

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				res, err := limiter.Allow(ctx, "shared")
				assert.NoError(t, err)
				if res.Allowed() {
					allowed.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(100), allowed.Load())
}
