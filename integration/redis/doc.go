// Package redis connects to Redis with retries and exposes a readiness check.
//
// It is used by the serve command when REDIS_URL is set, to share rate limit
// buckets between gateway instances:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	store := ratelimiter.NewRedisStore(client)
//
// Both redis:// and rediss:// (TLS) URLs are accepted. Connect retries the
// initial ping RetryAttempts times, doubling RetryInterval after each failure,
// and gives up once ConnectTimeout elapses.
//
// Errors are checked with errors.Is:
//
//   - ErrEmptyConnectionURL: no URL configured
//   - ErrFailedToParseRedisConnString: malformed URL or unsupported scheme
//   - ErrRedisNotReady: no successful ping within the retry budget
//   - ErrHealthcheckFailed: a Healthcheck ping failed
package redis
