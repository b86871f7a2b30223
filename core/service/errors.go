package service

import (
	"errors"
	"fmt"
)

// Kind classifies service errors so transports can tell them apart.
type Kind int

const (
	// KindFiltered marks a request rejected by a filter before reaching its handler.
	KindFiltered Kind = iota + 1

	// KindHandlerFault marks an unexpected failure inside a handler.
	KindHandlerFault
)

func (k Kind) String() string {
	switch k {
	case KindFiltered:
		return "filtered"
	case KindHandlerFault:
		return "handler_fault"
	default:
		return "unknown"
	}
}

// Error is the structured error returned by filters and fault recovery.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so errors.Is(err, ErrFiltered) works
// regardless of operation and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	// ErrFiltered matches every KindFiltered error.
	ErrFiltered = &Error{Kind: KindFiltered, Message: "request filtered"}

	// ErrHandlerFault matches every KindHandlerFault error.
	ErrHandlerFault = &Error{Kind: KindHandlerFault, Message: "handler fault"}

	// ErrUnsupportedRequest is returned for request types the service does not know.
	ErrUnsupportedRequest = errors.New("unsupported request")
)

// Filtered builds a KindFiltered error for op.
func Filtered(op, message string) *Error {
	if message == "" {
		message = ErrFiltered.Message
	}
	return &Error{Kind: KindFiltered, Op: op, Message: message}
}

// HandlerFault builds a KindHandlerFault error for op wrapping cause.
func HandlerFault(op string, cause error) *Error {
	msg := ErrHandlerFault.Message
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: KindHandlerFault, Op: op, Message: msg, Err: cause}
}

// KindOf returns the Kind of err, or 0 when err is not a service error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
