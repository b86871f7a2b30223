// Package ratelimiter provides token bucket rate limiting over a pluggable
// Store.
//
// A bucket holds up to Capacity tokens and regains RefillRate tokens every
// RefillInterval. Each request takes tokens; a request that would overdraw
// the bucket is refused and takes nothing.
//
//	store := ratelimiter.NewMemoryStore()
//	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{
//		Capacity:       100,
//		RefillRate:     10,
//		RefillInterval: time.Second,
//	})
//	if err != nil {
//		return err
//	}
//
//	result, err := limiter.Allow(ctx, clientAddr)
//	if err != nil {
//		return err
//	}
//	if !result.Allowed() {
//		log.Printf("retry after %s", result.RetryAfter())
//	}
//
// MemoryStore keeps one bucket per key in memory. Run removes buckets that
// have not been used for an hour and fits an errgroup:
//
//	g.Go(store.Run(ctx))
//
// RedisStore keeps buckets in Redis so that several gateway instances share
// one limit per client. Refill and consumption run in a single Lua script;
// untouched buckets expire on their own.
//
//	limiter, err := ratelimiter.NewBucket(ratelimiter.NewRedisStore(client), cfg)
package ratelimiter
