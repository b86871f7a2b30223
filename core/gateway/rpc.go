package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/zjuct/mini-redis-http/core/handler"
	"github.com/zjuct/mini-redis-http/core/response"
	"github.com/zjuct/mini-redis-http/core/service"
)

// newRequest returns an empty request value for op, ready for decoding.
func newRequest(op string) (service.Request, error) {
	switch op {
	case service.OpPing:
		return &service.PingRequest{}, nil
	case service.OpSet:
		return &service.SetRequest{}, nil
	case service.OpGet:
		return &service.GetRequest{}, nil
	case service.OpDel:
		return &service.DelRequest{}, nil
	case service.OpPublish:
		return &service.PublishRequest{}, nil
	case service.OpSubscribe:
		return &service.SubscribeRequest{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}
}

// rpc handles POST /rpc/{op}. The body is the JSON request for op; an empty
// body is the zero request. The reply is the JSON response of op.
func (g *Gateway) rpc(ctx handler.Context) handler.Response {
	req, err := newRequest(ctx.Param("op"))
	if err != nil {
		return fail(err)
	}

	dec := json.NewDecoder(ctx.Request().Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil && !errors.Is(err, io.EOF) {
		return fail(fmt.Errorf("%w: %w", ErrInvalidRequest, err))
	}

	resp, err := g.handler.Handle(ctx, req)
	if err != nil {
		return fail(err)
	}

	return response.JSON(resp)
}
