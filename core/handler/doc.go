// Package handler defines the HTTP handler abstractions shared by the router,
// the response helpers and the middleware packages.
//
// A handler does not write to the connection directly. It returns a Response,
// a render function the router invokes afterwards:
//
//	type Response func(w http.ResponseWriter, r *http.Request) error
//	type HandlerFunc func(ctx Context) Response
//	type Middleware func(next HandlerFunc) HandlerFunc
//
// Keeping rendering separate lets middleware decorate the response (headers,
// logging, request IDs) before any byte is written, and lets a single
// ErrorHandler turn render errors into HTTP error responses.
//
// # Context
//
// Context embeds context.Context, so it can be passed to any blocking call:
//
//	func getHandler(svc *service.Service) handler.HandlerFunc {
//		return func(ctx handler.Context) handler.Response {
//			resp := svc.Get(ctx, service.GetRequest{Key: ctx.Param("key")})
//			return response.JSON(resp)
//		}
//	}
//
// SetValue stores request-scoped values that later handlers read back with
// ctx.Value.
//
// # Middleware
//
// Chain composes middleware; the first one listed is the outermost:
//
//	h := handler.Chain(final, requestID, logging)
//	// requestID -> logging -> final
package handler
