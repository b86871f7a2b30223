// Package router provides an HTTP router with middleware support built on the
// pattern matching of net/http.ServeMux.
//
// Handlers return a handler.Response instead of writing directly; the router
// renders it and sends any error, including not-found routes and recovered
// panics, to a single error handler.
//
// # Basic Usage
//
//	r := router.New(router.WithErrorHandler(response.JSONErrorHandler))
//
//	r.Get("/get/{key}", func(ctx handler.Context) handler.Response {
//		return response.String(ctx.Param("key"))
//	})
//	r.Post("/rpc/{op}", rpcHandler)
//
//	http.ListenAndServe(":8080", r)
//
// Patterns use the ServeMux syntax: {name} matches one segment,
// {name...} the remainder of the path and {$} anchors the end.
//
// # Middleware
//
// Use registers router-wide middleware and must be called before the first
// route. With and Group create inline routers whose extra middleware applies
// only to routes registered through them:
//
//	r.Use(middleware.RequestID(), middleware.Logging(log))
//	r.Group(func(r router.Router) {
//		r.Use(noCache)
//		r.Get("/health", healthHandler)
//	})
//
// The first middleware listed is the outermost.
//
// # Errors
//
// Unmatched requests produce ErrNotFound with status 404, or ErrMethodNotAllowed
// with status 405 when the path is routed for another method. Errors implementing
// StatusCode() int choose their status in the default handler. Panics are
// recovered and passed to the error handler as a PanicError unless the
// response was already written.
package router
