package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/zjuct/mini-redis-http/core/handler"
	"github.com/zjuct/mini-redis-http/core/response"
)

// Common size constants for convenience
const (
	KB int64 = 1024
	MB       = 1024 * KB
)

// DefaultBodyLimit caps request bodies when no size is configured.
const DefaultBodyLimit = 1 * MB

// BodyLimitConfig configures the request body limit middleware.
type BodyLimitConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(ctx handler.Context) bool

	// MaxSize is the maximum allowed size in bytes (default: 1MB)
	MaxSize int64
}

// BodyLimit creates a body limit middleware with the default limit.
func BodyLimit() handler.Middleware {
	return BodyLimitWithConfig(BodyLimitConfig{})
}

// BodyLimitWithSize creates a body limit middleware with a specified size limit.
func BodyLimitWithSize(maxSize int64) handler.Middleware {
	return BodyLimitWithConfig(BodyLimitConfig{MaxSize: maxSize})
}

// BodyLimitWithConfig rejects requests whose declared Content-Length exceeds
// the limit and caps the body reader for the rest. Reading past the limit
// fails with an error that IsBodyTooLarge recognises.
func BodyLimitWithConfig(cfg BodyLimitConfig) handler.Middleware {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultBodyLimit
	}

	return func(next handler.HandlerFunc) handler.HandlerFunc {
		return func(ctx handler.Context) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			req := ctx.Request()
			if req.ContentLength > cfg.MaxSize {
				return response.Error(BodyTooLarge(req.ContentLength, cfg.MaxSize))
			}

			if req.Body != nil && req.Body != http.NoBody {
				req.Body = http.MaxBytesReader(ctx.ResponseWriter(), req.Body, cfg.MaxSize)
			}

			return next(ctx)
		}
	}
}

// BodyTooLarge builds the 413 error reported for oversized bodies.
func BodyTooLarge(size, limit int64) response.HTTPError {
	details := map[string]any{"limit": limit}
	message := fmt.Sprintf("request body too large, limit is %d bytes", limit)
	if size > 0 {
		details["size"] = size
		message = fmt.Sprintf("request body of %d bytes too large, limit is %d bytes", size, limit)
	}
	return response.ErrRequestEntityTooLarge.WithMessage(message).WithDetails(details)
}

// IsBodyTooLarge reports whether err came from reading past the body limit.
func IsBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
