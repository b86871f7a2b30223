package gateway

import (
	"context"
	"errors"

	"github.com/zjuct/mini-redis-http/core/handler"
	"github.com/zjuct/mini-redis-http/core/pubsub"
	"github.com/zjuct/mini-redis-http/core/response"
	"github.com/zjuct/mini-redis-http/core/service"
	"github.com/zjuct/mini-redis-http/middleware"
)

var (
	ErrUnknownOperation = errors.New("unknown operation")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidTimeout   = errors.New("invalid timeout")
)

// httpError maps service and transport errors to HTTP errors:
//
//	filtered         403 forbidden
//	handler fault    500 internal_server_error
//	invalid input    400 bad_request
//	body too large   413 request_entity_too_large
//	deadline         504 gateway_timeout
//	registry closed  503 service_unavailable
//	unknown op       404 not_found
//
// Anything else is returned unchanged for the router's default mapping.
func httpError(err error) error {
	var httpErr response.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		details := map[string]any{"operation": svcErr.Op}
		switch svcErr.Kind {
		case service.KindFiltered:
			return response.ErrForbidden.WithMessage(svcErr.Message).WithDetails(details)
		case service.KindHandlerFault:
			return response.ErrInternalServerError.WithMessage("handler fault").WithDetails(details)
		}
	}

	switch {
	case middleware.IsBodyTooLarge(err):
		return response.ErrRequestEntityTooLarge.WithMessage("request body too large")
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidTimeout):
		return response.ErrBadRequest.WithMessage(err.Error())
	case errors.Is(err, ErrUnknownOperation), errors.Is(err, service.ErrUnsupportedRequest):
		return response.ErrNotFound.WithMessage(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return response.ErrGatewayTimeout.WithMessage("operation timed out")
	case errors.Is(err, context.Canceled):
		return response.ErrRequestTimeout.WithMessage("request cancelled")
	case errors.Is(err, pubsub.ErrRegistryClosed):
		return response.ErrServiceUnavailable.WithMessage(err.Error())
	}

	return err
}

// fail returns err as a response for the router's error handler.
func fail(err error) handler.Response {
	return response.Error(httpError(err))
}

// handleError renders every error reaching the router as JSON.
func (g *Gateway) handleError(ctx handler.Context, err error) {
	response.JSONErrorHandler(ctx, httpError(err))
}
