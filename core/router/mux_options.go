package router

import (
	"log/slog"

	"github.com/zjuct/mini-redis-http/core/handler"
)

// Option configures a Router during creation.
type Option func(*mux)

// WithErrorHandler sets a custom error handler for the router.
func WithErrorHandler(h handler.ErrorHandler) Option {
	return func(m *mux) {
		if h != nil {
			m.errorHandler = h
		}
	}
}

// WithMiddleware adds middleware to the router.
func WithMiddleware(middlewares ...handler.Middleware) Option {
	return func(m *mux) {
		m.middlewares = append(m.middlewares, middlewares...)
	}
}

// WithLogger sets a custom logger for the router.
func WithLogger(logger *slog.Logger) Option {
	return func(m *mux) {
		if logger != nil {
			m.logger = logger
		}
	}
}
