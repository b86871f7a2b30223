package handler

import (
	"context"
	"net/http"
)

// Context is the per-request context passed to handlers.
// It embeds the request's context.Context, so it can be handed directly
// to blocking operations and is cancelled when the client goes away.
type Context interface {
	context.Context
	Request() *http.Request
	ResponseWriter() http.ResponseWriter
	Param(key string) string
	SetValue(key, val any)
}
