package router

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"

	"github.com/zjuct/mini-redis-http/core/handler"
)

var allowedMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodConnect,
	http.MethodOptions,
	http.MethodTrace,
}

// mux is the private implementation of Router on top of http.ServeMux.
// Inline routers created by With and Group share the parent's ServeMux and
// route list and only carry their own middleware.
type mux struct {
	std          *http.ServeMux
	routes       *[]Route
	middlewares  []handler.Middleware
	errorHandler handler.ErrorHandler
	logger       *slog.Logger
	parent       *mux // for inline routers
	inline       bool
	hasRoutes    bool
}

func newMux(opts ...Option) *mux {
	m := &mux{
		std:          http.NewServeMux(),
		routes:       &[]Route{},
		errorHandler: defaultErrorHandler,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)), // No-op logger by default
	}

	for _, opt := range opts {
		opt(m)
	}

	// Everything the ServeMux cannot match goes through the error handler,
	// so unknown paths get the same error rendering as failed handlers.
	m.std.Handle("/", m.endpoint(func(handler.Context) handler.Response {
		return func(_ http.ResponseWriter, r *http.Request) error {
			if m.matchesOtherMethod(r) {
				return statusError{error: ErrMethodNotAllowed, status: http.StatusMethodNotAllowed}
			}
			return statusError{error: ErrNotFound, status: http.StatusNotFound}
		}
	}))

	return m
}

// matchesOtherMethod reports whether r's path is routed for some other method.
func (m *mux) matchesOtherMethod(r *http.Request) bool {
	for _, route := range *m.routes {
		if route.Method == "" || route.Method == r.Method {
			continue
		}
		probe := *r
		probe.Method = route.Method
		if _, pattern := m.std.Handler(&probe); pattern != "/" {
			return true
		}
	}
	return false
}

// ServeHTTP implements http.Handler interface.
func (m *mux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.root().std.ServeHTTP(w, r)
}

// Get registers a handler for GET requests.
func (m *mux) Get(pattern string, h handler.HandlerFunc) {
	m.handle(http.MethodGet, pattern, h)
}

// Post registers a handler for POST requests.
func (m *mux) Post(pattern string, h handler.HandlerFunc) {
	m.handle(http.MethodPost, pattern, h)
}

// Handle registers a handler for all HTTP methods.
func (m *mux) Handle(pattern string, h handler.HandlerFunc) {
	m.handle("", pattern, h)
}

// Method registers a handler for one or more specific HTTP methods.
func (m *mux) Method(pattern string, h handler.HandlerFunc, methods ...string) {
	if len(methods) == 0 {
		panic(fmt.Errorf("%w: no methods provided", ErrInvalidMethod))
	}

	seen := make(map[string]bool, len(methods))
	for _, method := range methods {
		method = strings.ToUpper(method)
		if !slices.Contains(allowedMethods, method) {
			panic(fmt.Errorf("%w: %s", ErrInvalidMethod, method))
		}
		if seen[method] {
			continue
		}
		seen[method] = true
		m.handle(method, pattern, h)
	}
}

// Use appends middleware to the router.
func (m *mux) Use(middlewares ...handler.Middleware) {
	if m.hasRoutes {
		panic("router: all middlewares must be defined before routes on a mux")
	}
	m.middlewares = append(m.middlewares, middlewares...)
}

// With creates a new inline router with additional middleware.
func (m *mux) With(middlewares ...handler.Middleware) Router {
	return &mux{
		std:          m.std,
		routes:       m.routes,
		middlewares:  middlewares,
		errorHandler: m.errorHandler,
		logger:       m.logger,
		parent:       m,
		inline:       true,
	}
}

// Group creates a new inline router for grouping routes.
func (m *mux) Group(fn func(r Router)) Router {
	im := m.With()
	if fn != nil {
		fn(im)
	}
	return im
}

// Routes returns all registered routes in registration order.
func (m *mux) Routes() []Route {
	return slices.Clone(*m.routes)
}

func (m *mux) root() *mux {
	curr := m
	for curr.inline && curr.parent != nil {
		curr = curr.parent
	}
	return curr
}

// handle registers fn under "METHOD pattern" on the shared ServeMux.
func (m *mux) handle(method, pattern string, fn handler.HandlerFunc) {
	if len(pattern) == 0 || pattern[0] != '/' {
		panic(fmt.Errorf("%w: '%s'", ErrInvalidPattern, pattern))
	}

	root := m.root()
	root.hasRoutes = true

	// Inline routers apply their own middleware chain at registration time.
	// Parent middlewares come first so the outermost group runs first.
	h := fn
	if m.inline {
		var inlineMiddlewares []handler.Middleware
		for curr := m; curr != nil && curr.inline; curr = curr.parent {
			inlineMiddlewares = append(slices.Clone(curr.middlewares), inlineMiddlewares...)
		}
		h = handler.Chain(fn, inlineMiddlewares...)
	}

	stdPattern := pattern
	if method != "" {
		stdPattern = method + " " + pattern
	}
	root.std.Handle(stdPattern, root.endpoint(h))
	*root.routes = append(*root.routes, Route{Method: method, Pattern: pattern})
}

// endpoint adapts fn to http.Handler: it runs the router middleware, renders
// the response and routes every failure to the error handler.
func (m *mux) endpoint(fn handler.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := newResponseWriter(w)
		ctx := newContext(ww, r)

		// Recover from panics to prevent server crashes
		defer func() {
			if p := recover(); p != nil {
				panicErr := &panicError{
					value: p,
					stack: debug.Stack(),
				}

				if ww.Written() {
					// Can't send error response, just log the panic
					m.logger.Error("panic after response written",
						"value", panicErr.value,
						"stack", string(panicErr.stack),
						"path", r.URL.Path,
						"method", r.Method,
						"status", ww.Status(),
					)
					return
				}
				m.errorHandler(ctx, panicErr)
			}
		}()

		h := fn
		if len(m.middlewares) > 0 {
			h = handler.Chain(fn, m.middlewares...)
		}

		response := h(ctx)
		if response == nil {
			m.errorHandler(ctx, ErrNilResponse)
			return
		}

		if err := response(ww, ctx.Request()); err != nil {
			m.errorHandler(ctx, err)
		}
	})
}
