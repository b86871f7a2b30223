package router

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/zjuct/mini-redis-http/core/handler"
)

var (
	ErrMethodNotAllowed   = errors.New("method not allowed")
	ErrNotFound           = errors.New("not found")
	ErrNilResponse        = errors.New("nil response")
	ErrInvalidMethod      = errors.New("invalid http method")
	ErrInvalidPattern     = errors.New("invalid route path pattern")
	ErrHijackNotSupported = errors.New("response writer does not support hijacking")
)

// statusCode is an unexported interface that errors can implement
// to provide a custom HTTP status code.
type statusCode interface {
	StatusCode() int
}

type statusError struct {
	error
	status int
}

func (e statusError) StatusCode() int { return e.status }
func (e statusError) Unwrap() error   { return e.error }

// defaultErrorHandler writes err as plain text.
func defaultErrorHandler(ctx handler.Context, err error) {
	w := ctx.ResponseWriter()

	// Prevent double-writing responses which causes HTTP protocol errors
	if ww, ok := w.(*responseWriter); ok && ww.Written() {
		return
	}

	status := http.StatusInternalServerError
	var sc statusCode
	if errors.As(err, &sc) {
		status = sc.StatusCode()
	}

	http.Error(w, err.Error(), status)
}

// PanicError allows external error handlers to detect recovered panics.
type PanicError interface {
	error
	// Value returns the original panic value.
	Value() any
	// Stack returns the stack trace captured at the panic point.
	Stack() []byte
}

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

func (e *panicError) Value() any {
	return e.value
}

func (e *panicError) Stack() []byte {
	return e.stack
}

// Unwrap allows errors.Is/As to work with wrapped panics.
func (e *panicError) Unwrap() error {
	if err, ok := e.value.(error); ok {
		return err
	}
	return nil
}
