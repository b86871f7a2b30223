package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zjuct/mini-redis-http/core/service"
)

const closeWriteWait = time.Second

// Stream stays attached to channels over WebSocket and calls fn for every
// message until ctx ends, fn fails or the server ends the stream. A filtered
// stream returns an error matching ErrFiltered; a server-side subscribe
// timeout matches ErrTimeout.
func (c *Client) Stream(ctx context.Context, channels []string, fn func(service.SubscribeResponse) error) error {
	u := *c.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path += "/ws/subscribe"
	u.RawQuery = url.Values{"channel": channels}.Encode()

	header := http.Header{}
	header.Set("X-Request-ID", uuid.NewString())

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			defer func() { _ = resp.Body.Close() }()
			data, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
			return decodeError(resp.StatusCode, data)
		}
		return fmt.Errorf("dial stream: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// Unblocks the read loop when ctx ends.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeWriteWait))
		_ = conn.Close()
	})
	defer stop()

	for {
		var msg service.SubscribeResponse
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return streamError(err)
		}
		if err := fn(msg); err != nil {
			return err
		}
	}
}

// streamError translates the close frame that ended a stream.
func streamError(err error) error {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch {
		case closeErr.Code == websocket.ClosePolicyViolation:
			return &APIError{Status: http.StatusForbidden, Code: "forbidden", Message: closeErr.Text}
		case closeErr.Code == websocket.CloseInternalServerErr:
			return &APIError{Status: http.StatusInternalServerError, Code: "internal_server_error", Message: closeErr.Text}
		case closeErr.Code == websocket.CloseNormalClosure && closeErr.Text == "timeout":
			return &APIError{Status: http.StatusGatewayTimeout, Code: "gateway_timeout", Message: "operation timed out"}
		}
		return fmt.Errorf("%w: %w", ErrStreamClosed, err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%w: %w", ErrInvalidStream, err)
	}

	return fmt.Errorf("read stream: %w", err)
}
