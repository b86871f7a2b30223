package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
)

// Handler processes one request and returns its response.
type Handler interface {
	Handle(ctx context.Context, req Request) (any, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req Request) (any, error)

// Handle calls f(ctx, req).
func (f HandlerFunc) Handle(ctx context.Context, req Request) (any, error) {
	return f(ctx, req)
}

// Middleware wraps a Handler to add cross-cutting behavior.
type Middleware func(next Handler) Handler

// Chain wraps h with mws. The first middleware becomes the outermost wrapper.
//
//	h := service.Chain(svc, Logging(log), Filter(pred), Recover())
//
// Execution order: Logging -> Filter -> Recover -> svc
func Chain(h Handler, mws ...Middleware) Handler {
	for i := range len(mws) {
		h = mws[len(mws)-1-i](h)
	}
	return h
}

// safeHandle calls h and converts a panic into a KindHandlerFault error.
func safeHandle(ctx context.Context, h Handler, req Request) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("panic: %v", r)
			}
			resp = nil
			err = &Error{
				Kind:    KindHandlerFault,
				Op:      req.Operation(),
				Message: cause.Error(),
				Err:     &panicError{cause: cause, stack: debug.Stack()},
			}
		}
	}()
	return h.Handle(ctx, req)
}

type panicError struct {
	cause error
	stack []byte
}

func (p *panicError) Error() string {
	return p.cause.Error()
}

func (p *panicError) Unwrap() error {
	return p.cause
}

// PanicStack returns the stack captured when err was produced by a recovered panic.
func PanicStack(err error) ([]byte, bool) {
	var p *panicError
	if errors.As(err, &p) {
		return p.stack, true
	}
	return nil, false
}
