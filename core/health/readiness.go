package health

import (
	"context"
	"log/slog"

	"github.com/zjuct/mini-redis-http/core/handler"
	"github.com/zjuct/mini-redis-http/core/logger"
	"github.com/zjuct/mini-redis-http/core/response"
)

// Check reports whether a dependency can serve requests.
type Check func(context.Context) error

// Readiness runs every check and answers "READY", or 503 Service Unavailable
// when any of them fails.
//
//	r.Get("/health/ready", health.Readiness(log, svc.Healthcheck))
func Readiness(log *slog.Logger, checks ...Check) handler.HandlerFunc {
	return func(ctx handler.Context) handler.Response {
		for _, check := range checks {
			if err := check(ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed",
					logger.Component("health"),
					logger.Error(err))
				return response.Error(response.ErrServiceUnavailable.WithError(err))
			}
		}

		return response.WithCache(response.String("READY"), 0)
	}
}

// Stats answers the value returned by snapshot as JSON. The snapshot is
// taken per request.
//
//	r.Get("/health", health.Stats(func() any { return svc.Stats() }))
func Stats(snapshot func() any) handler.HandlerFunc {
	return func(handler.Context) handler.Response {
		return response.WithCache(response.JSON(snapshot()), 0)
	}
}
