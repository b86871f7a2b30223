package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zjuct/mini-redis-http/core/handler"
	"github.com/zjuct/mini-redis-http/core/response"
	"github.com/zjuct/mini-redis-http/core/service"
)

// Browser forms served on GET; each posts back to its own path.
const (
	setForm = `<form action="/set" method="post">
  <label>key <input type="text" name="key"></label>
  <label>value <input type="text" name="value"></label>
  <input type="submit" value="set">
</form>`

	delForm = `<form action="/del" method="post">
  <label>keys <input type="text" name="keys" placeholder="space separated"></label>
  <input type="submit" value="del">
</form>`

	publishForm = `<form action="/publish" method="post">
  <label>channel <input type="text" name="channel"></label>
  <label>message <input type="text" name="message"></label>
  <input type="submit" value="publish">
</form>`

	subscribeForm = `<form action="/subscribe" method="post">
  <label>channels <input type="text" name="channels" placeholder="space separated"></label>
  <label>timeout <input type="text" name="timeout" placeholder="e.g. 30s"></label>
  <input type="submit" value="subscribe">
</form>`
)

// NotFoundBody is the plain-text body of GET /get/{key} for a missing key.
const NotFoundBody = "not found"

func (g *Gateway) form(page string) handler.HandlerFunc {
	return func(handler.Context) handler.Response {
		return response.WithCache(response.HTML(page), 0)
	}
}

// ping handles GET /ping and GET /ping/{payload}.
func (g *Gateway) ping(ctx handler.Context) handler.Response {
	req := service.PingRequest{}
	if payload := ctx.Param("payload"); payload != "" {
		req.Payload = &payload
	}

	resp, err := g.handler.Handle(ctx, req)
	if err != nil {
		return fail(err)
	}
	return response.String(resp.(service.PingResponse).Payload)
}

// get handles GET /get/{key}.
func (g *Gateway) get(ctx handler.Context) handler.Response {
	resp, err := g.handler.Handle(ctx, service.GetRequest{Key: ctx.Param("key")})
	if err != nil {
		return fail(err)
	}

	value := resp.(service.GetResponse).Value
	if value == nil {
		return response.StringWithStatus(NotFoundBody, http.StatusNotFound)
	}
	return response.String(*value)
}

// set handles POST /set with form fields key and value.
func (g *Gateway) set(ctx handler.Context) handler.Response {
	r, err := parseForm(ctx)
	if err != nil {
		return fail(err)
	}

	resp, err := g.handler.Handle(ctx, service.SetRequest{
		Key:   r.PostFormValue("key"),
		Value: r.PostFormValue("value"),
	})
	if err != nil {
		return fail(err)
	}
	return response.String(resp.(service.SetResponse).Status)
}

// del handles POST /del with the space-separated form field keys.
// The reply is the number of keys removed.
func (g *Gateway) del(ctx handler.Context) handler.Response {
	r, err := parseForm(ctx)
	if err != nil {
		return fail(err)
	}

	resp, err := g.handler.Handle(ctx, service.DelRequest{
		Keys: strings.Fields(r.PostFormValue("keys")),
	})
	if err != nil {
		return fail(err)
	}
	return response.String(strconv.Itoa(resp.(service.DelResponse).Num))
}

// publish handles POST /publish with form fields channel and message.
// The reply is the number of subscribers that received the message.
func (g *Gateway) publish(ctx handler.Context) handler.Response {
	r, err := parseForm(ctx)
	if err != nil {
		return fail(err)
	}

	resp, err := g.handler.Handle(ctx, service.PublishRequest{
		Channel: r.PostFormValue("channel"),
		Message: r.PostFormValue("message"),
	})
	if err != nil {
		return fail(err)
	}
	return response.String(strconv.Itoa(resp.(service.PublishResponse).Num))
}

// subscribe handles POST /subscribe with the space-separated form field
// channels and an optional timeout duration. It blocks until the first
// message and replies with its payload; the X-Channel header names the
// channel it arrived on.
func (g *Gateway) subscribe(ctx handler.Context) handler.Response {
	r, err := parseForm(ctx)
	if err != nil {
		return fail(err)
	}

	var opCtx context.Context = ctx
	if timeout := r.Form.Get("timeout"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil || d <= 0 {
			return fail(fmt.Errorf("%w: %q", ErrInvalidTimeout, timeout))
		}
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	resp, err := g.handler.Handle(opCtx, service.SubscribeRequest{
		Channels: strings.Fields(r.PostFormValue("channels")),
	})
	if err != nil {
		return fail(err)
	}

	msg := resp.(service.SubscribeResponse)
	return response.WithHeaders(response.String(msg.Message), map[string]string{
		"X-Channel": msg.Channel,
	})
}

func parseForm(ctx handler.Context) (*http.Request, error) {
	r := ctx.Request()
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return r, nil
}
