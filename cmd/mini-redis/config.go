package main

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/zjuct/mini-redis-http/core/logger"
	"github.com/zjuct/mini-redis-http/core/service"
	"github.com/zjuct/mini-redis-http/middleware"
	"github.com/zjuct/mini-redis-http/pkg/ratelimiter"
)

// appConfig holds the serve settings not covered by server.Config.
type appConfig struct {
	Name     string `env:"APP_NAME" envDefault:"mini-redis"`
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	BufferSize       int           `env:"PUBSUB_BUFFER_SIZE" envDefault:"16"`
	SubscribeTimeout time.Duration `env:"SUBSCRIBE_TIMEOUT" envDefault:"0s"`
	BlockOps         []string      `env:"FILTER_BLOCK_OPS" envSeparator:","`
	BodyLimit        int64         `env:"BODY_LIMIT" envDefault:"1048576"`

	// RateLimitCapacity 0 disables rate limiting.
	RateLimitCapacity int           `env:"RATE_LIMIT_CAPACITY" envDefault:"0"`
	RateLimitRefill   int           `env:"RATE_LIMIT_REFILL" envDefault:"10"`
	RateLimitInterval time.Duration `env:"RATE_LIMIT_INTERVAL" envDefault:"1s"`
}

// clientConfig holds the settings of the client commands.
type clientConfig struct {
	URL string `env:"MINI_REDIS_URL" envDefault:"http://localhost:8080"`
}

func (c appConfig) newLogger() *slog.Logger {
	opts := []logger.Option{
		logger.WithLevel(logger.ParseLevel(c.LogLevel)),
		logger.WithAttr(slog.String("service", c.Name), slog.String("env", c.Env)),
		logger.WithContextExtractors(middleware.RequestIDExtractor()),
	}
	if c.Env == "production" {
		opts = append(opts, logger.WithJSONFormatter())
	}
	return logger.New(opts...)
}

// blockedOperations normalises FILTER_BLOCK_OPS and rejects unknown names.
func (c appConfig) blockedOperations() ([]string, error) {
	var ops []string
	for _, op := range c.BlockOps {
		op = strings.ToLower(strings.TrimSpace(op))
		if op == "" {
			continue
		}
		if !slices.Contains(service.Operations, op) {
			return nil, fmt.Errorf("FILTER_BLOCK_OPS: unknown operation %q", op)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// rateLimiter returns nil when rate limiting is disabled.
func (c appConfig) rateLimiter(store ratelimiter.Store) (ratelimiter.RateLimiter, error) {
	if c.RateLimitCapacity <= 0 {
		return nil, nil
	}
	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{
		Capacity:       c.RateLimitCapacity,
		RefillRate:     c.RateLimitRefill,
		RefillInterval: c.RateLimitInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_*: %w", err)
	}
	return limiter, nil
}

// serviceMiddleware builds the operation chain: logging outermost, then the
// operation filter (or plain panic recovery without one), then the
// subscribe timeout.
func (c appConfig) serviceMiddleware(log *slog.Logger) ([]service.Middleware, error) {
	blocked, err := c.blockedOperations()
	if err != nil {
		return nil, err
	}

	mws := []service.Middleware{service.Logging(log)}
	if len(blocked) > 0 {
		mws = append(mws, service.Filter(
			service.BlockOperations(blocked...),
			service.WithFilterMessage("operation disabled: "+strings.Join(blocked, ", ")),
		))
	} else {
		mws = append(mws, service.Recover())
	}
	if c.SubscribeTimeout > 0 {
		mws = append(mws, service.Timeout(c.SubscribeTimeout, service.OpSubscribe))
	}
	return mws, nil
}
