package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidURL    = errors.New("invalid server url")
	ErrFiltered      = errors.New("request filtered")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("operation timed out")
	ErrUnavailable   = errors.New("service unavailable")
	ErrBadRequest    = errors.New("bad request")
	ErrServerFault   = errors.New("server fault")
	ErrStreamClosed  = errors.New("stream closed by server")
	ErrInvalidStream = errors.New("invalid stream message")
)

// APIError is an error answered by the gateway.
type APIError struct {
	Status  int            `json:"-"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%d %s", e.Status, e.Code)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// StatusCode returns the HTTP status of the response.
func (e *APIError) StatusCode() int {
	return e.Status
}

// Is maps the status to the package sentinels, so callers can write
// errors.Is(err, client.ErrFiltered).
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrFiltered:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrTimeout:
		return e.Status == http.StatusGatewayTimeout
	case ErrUnavailable:
		return e.Status == http.StatusServiceUnavailable
	case ErrBadRequest:
		return e.Status == http.StatusBadRequest || e.Status == http.StatusRequestEntityTooLarge
	case ErrServerFault:
		return e.Status == http.StatusInternalServerError
	}
	return false
}
