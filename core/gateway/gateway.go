package gateway

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/zjuct/mini-redis-http/core/handler"
	"github.com/zjuct/mini-redis-http/core/health"
	"github.com/zjuct/mini-redis-http/core/router"
	"github.com/zjuct/mini-redis-http/core/service"
	"github.com/zjuct/mini-redis-http/middleware"
	"github.com/zjuct/mini-redis-http/pkg/ratelimiter"
)

// Gateway translates HTTP and WebSocket requests into service operations.
type Gateway struct {
	svc         *service.Service
	handler     service.Handler
	middlewares []service.Middleware
	logger      *slog.Logger
	bodyLimit   int64
	limiter     ratelimiter.RateLimiter
	checks      []health.Check
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger for request and operation logs.
func WithLogger(log *slog.Logger) Option {
	return func(g *Gateway) {
		if log != nil {
			g.logger = log
		}
	}
}

// WithServiceMiddleware wraps every operation, including WebSocket streams,
// with mws. The first middleware is the outermost.
func WithServiceMiddleware(mws ...service.Middleware) Option {
	return func(g *Gateway) {
		g.middlewares = append(g.middlewares, mws...)
	}
}

// WithBodyLimit caps request bodies (default middleware.DefaultBodyLimit).
func WithBodyLimit(n int64) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.bodyLimit = n
		}
	}
}

// WithRateLimiter limits requests per client host. Health routes are exempt.
func WithRateLimiter(l ratelimiter.RateLimiter) Option {
	return func(g *Gateway) {
		g.limiter = l
	}
}

// WithReadinessCheck adds dependency checks to /health/ready. The registry
// check is always included.
func WithReadinessCheck(checks ...health.Check) Option {
	return func(g *Gateway) {
		g.checks = append(g.checks, checks...)
	}
}

// New creates a Gateway serving svc.
func New(svc *service.Service, opts ...Option) *Gateway {
	g := &Gateway{
		svc:       svc,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		bodyLimit: middleware.DefaultBodyLimit,
	}

	for _, opt := range opts {
		opt(g)
	}

	g.handler = service.Chain(svc, g.middlewares...)

	return g
}

// Handler returns the complete HTTP handler with request IDs, body limits,
// optional rate limiting, request logging and every route.
func (g *Gateway) Handler() http.Handler {
	r := router.New(
		router.WithErrorHandler(g.handleError),
		router.WithLogger(g.logger),
	)
	r.Use(
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{UseExisting: true}),
		middleware.BodyLimitWithSize(g.bodyLimit),
	)
	if g.limiter != nil {
		r.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Limiter:    g.limiter,
			SetHeaders: true,
			Skip: func(ctx handler.Context) bool {
				return strings.HasPrefix(ctx.Request().URL.Path, "/health")
			},
		}))
	}
	g.Register(r)
	return r
}

// Register adds the gateway routes to r.
func (g *Gateway) Register(r router.Router) {
	logging := func(cfg middleware.LoggingConfig) handler.Middleware {
		cfg.Logger = g.logger
		return middleware.LoggingWithConfig(cfg)
	}

	r.Group(func(r router.Router) {
		r.Use(logging(middleware.LoggingConfig{}))

		r.Get("/ping", g.ping)
		r.Get("/ping/{payload}", g.ping)
		r.Get("/get/{key}", g.get)
		r.Get("/set", g.form(setForm))
		r.Post("/set", g.set)
		r.Get("/del", g.form(delForm))
		r.Post("/del", g.del)
		r.Get("/publish", g.form(publishForm))
		r.Post("/publish", g.publish)
		r.Get("/subscribe", g.form(subscribeForm))
	})

	// Subscribe holds the request open until a message arrives.
	r.Group(func(r router.Router) {
		r.Use(logging(middleware.LoggingConfig{DisableSlowWarning: true}))

		r.Post("/subscribe", g.subscribe)
		r.Post("/rpc/{op}", g.rpc)
		r.Get("/ws/subscribe", g.stream)
	})

	r.Group(func(r router.Router) {
		r.Get("/health", health.Stats(func() any { return g.svc.Stats() }))
		r.Get("/health/live", health.Liveness)
		r.Get("/health/ready", health.Readiness(g.logger, append([]health.Check{g.svc.Healthcheck}, g.checks...)...))
	})
}
