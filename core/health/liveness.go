package health

import (
	"github.com/zjuct/mini-redis-http/core/handler"
	"github.com/zjuct/mini-redis-http/core/response"
)

// Liveness indicates if the service process is running.
// Always returns "ALIVE" with 200 OK. No dependency checks.
//
//	r.Get("/health/live", health.Liveness)
func Liveness(handler.Context) handler.Response {
	return response.WithCache(response.String("ALIVE"), 0)
}
