package service

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/zjuct/mini-redis-http/core/logger"
)

// Predicate decides whether a request may reach the wrapped handler.
type Predicate func(ctx context.Context, req Request) bool

// FilterOption configures Filter.
type FilterOption func(*filterConfig)

type filterConfig struct {
	message string
}

// WithFilterMessage sets the diagnostic message of rejections.
func WithFilterMessage(msg string) FilterOption {
	return func(c *filterConfig) {
		c.message = msg
	}
}

// Filter forwards requests accepted by pred and rejects the rest with a
// KindFiltered error without calling next. Results of next, including its
// errors, pass through unchanged; a panic in next becomes a KindHandlerFault error.
//
//	h := service.Chain(svc, service.Filter(service.BlockOperations(service.OpPing)))
func Filter(pred Predicate, opts ...FilterOption) Middleware {
	cfg := filterConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req Request) (any, error) {
			if !pred(ctx, req) {
				return nil, Filtered(req.Operation(), cfg.message)
			}
			return safeHandle(ctx, next, req)
		})
	}
}

// BlockOperations accepts every request except the listed operations.
func BlockOperations(ops ...string) Predicate {
	return func(_ context.Context, req Request) bool {
		return !slices.Contains(ops, req.Operation())
	}
}

// AllowOperations accepts only the listed operations.
func AllowOperations(ops ...string) Predicate {
	return func(_ context.Context, req Request) bool {
		return slices.Contains(ops, req.Operation())
	}
}

// Recover converts a panic in next into a KindHandlerFault error.
func Recover() Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req Request) (any, error) {
			return safeHandle(ctx, next, req)
		})
	}
}

// Timeout bounds the listed operations (every operation when none are listed).
// next must respect ctx for the bound to take effect.
func Timeout(d time.Duration, ops ...string) Middleware {
	return func(next Handler) Handler {
		if d <= 0 {
			return next
		}
		return HandlerFunc(func(ctx context.Context, req Request) (any, error) {
			if len(ops) > 0 && !slices.Contains(ops, req.Operation()) {
				return next.Handle(ctx, req)
			}
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next.Handle(ctx, req)
		})
	}
}

// Logging logs every request with its operation, duration and outcome.
func Logging(log *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req Request) (any, error) {
			start := time.Now()
			op := req.Operation()

			resp, err := next.Handle(ctx, req)

			attrs := []slog.Attr{
				logger.Component("service"),
				logger.Operation(op),
				logger.Duration(time.Since(start)),
			}

			switch KindOf(err) {
			case 0:
				if err != nil {
					log.LogAttrs(ctx, slog.LevelWarn, "operation failed",
						append(attrs, logger.Result("failure"), logger.Error(err))...)
					return resp, err
				}
				log.LogAttrs(ctx, slog.LevelDebug, "operation completed",
					append(attrs, logger.Result("success"))...)
			case KindFiltered:
				log.LogAttrs(ctx, slog.LevelWarn, "operation filtered",
					append(attrs, logger.Result("filtered"), logger.Error(err))...)
			case KindHandlerFault:
				attrs = append(attrs, logger.Result("fault"), logger.Error(err))
				if stack, ok := PanicStack(err); ok {
					attrs = append(attrs, slog.String("stack", string(stack)))
				}
				log.LogAttrs(ctx, slog.LevelError, "operation fault", attrs...)
			}

			return resp, err
		})
	}
}
