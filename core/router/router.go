package router

import (
	"net/http"

	"github.com/zjuct/mini-redis-http/core/handler"
)

// Router is the main routing interface for handling HTTP requests.
// It supports middleware chaining and route grouping.
type Router interface {
	http.Handler
	Routes

	// HTTP method handlers
	Get(pattern string, h handler.HandlerFunc)
	Post(pattern string, h handler.HandlerFunc)

	// Generic handlers
	Handle(pattern string, h handler.HandlerFunc)
	Method(pattern string, h handler.HandlerFunc, methods ...string)

	// Middleware
	Use(middlewares ...handler.Middleware)
	With(middlewares ...handler.Middleware) Router

	// Grouping
	Group(fn func(r Router)) Router
}

// Routes provides route introspection capabilities for debugging and monitoring.
type Routes interface {
	Routes() []Route
}

// Route describes a single route in the router with its HTTP method and pattern.
// Method is empty for routes matching every method.
type Route struct {
	Method  string
	Pattern string
}

// New creates a new router with the given options.
func New(opts ...Option) Router {
	return newMux(opts...)
}
