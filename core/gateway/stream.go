package gateway

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zjuct/mini-redis-http/core/handler"
	"github.com/zjuct/mini-redis-http/core/logger"
	"github.com/zjuct/mini-redis-http/core/pubsub"
	"github.com/zjuct/mini-redis-http/core/response"
	"github.com/zjuct/mini-redis-http/core/service"
	"github.com/zjuct/mini-redis-http/pkg/async"
)

// maxCloseReason is the largest close reason a control frame can carry.
const maxCloseReason = 123

const closeWriteWait = time.Second

// stream handles GET /ws/subscribe?channel=a&channel=b. The connection stays
// attached to every listed channel and receives each message as a JSON
// SubscribeResponse until the client disconnects. Rejections and failures
// end the session with a close frame:
//
//	filtered         1008 policy violation, reason is the filter message
//	deadline         1000 normal closure, reason "timeout"
//	shutdown         1001 going away
//	handler fault    1011 internal error
func (g *Gateway) stream(ctx handler.Context) handler.Response {
	q := ctx.Request().URL.Query()
	channels := q["channel"]
	if list := q.Get("channels"); list != "" {
		channels = append(channels, strings.Fields(list)...)
	}

	return response.WebSocket(
		func(ctx context.Context, conn *websocket.Conn) error {
			return g.session(ctx, conn, channels)
		},
		response.WithWSAllowAnyOrigin(),
		response.WithWSErrorHandler(func(ctx context.Context, err error) {
			g.logger.ErrorContext(ctx, "websocket session failed",
				logger.Component("gateway"),
				logger.Channels(channels),
				logger.Error(err),
			)
		}),
	)
}

func (g *Gateway) session(ctx context.Context, conn *websocket.Conn, channels []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// A hijacked connection no longer cancels the request context, so a
	// reader watches for the client going away. It ends when conn is closed.
	async.Exec(ctx, conn, func(_ context.Context, conn *websocket.Conn) error {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return err
			}
		}
	})

	emitted := false
	_, err := g.handler.Handle(ctx, service.StreamRequest{
		Channels: channels,
		Emit: func(msg service.SubscribeResponse) error {
			emitted = true
			return conn.WriteJSON(msg)
		},
	})

	// Writing may fail when the client is already gone.
	code, reason, report := closeStatus(err)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(closeWriteWait))

	g.logger.DebugContext(ctx, "websocket session ended",
		logger.Component("gateway"),
		logger.Channels(channels),
		slog.Bool("emitted", emitted),
		slog.Int("close_code", code),
	)

	if report && ctx.Err() == nil {
		return err
	}
	return nil
}

// closeStatus picks the close frame for the error that ended a stream and
// reports whether the error deserves logging.
func closeStatus(err error) (code int, reason string, report bool) {
	var svcErr *service.Error
	switch {
	case err == nil:
		return websocket.CloseNormalClosure, "", false
	case errors.Is(err, context.Canceled):
		return websocket.CloseGoingAway, "", false
	case errors.As(err, &svcErr) && svcErr.Kind == service.KindFiltered:
		return websocket.ClosePolicyViolation, truncate(svcErr.Message, maxCloseReason), false
	case errors.As(err, &svcErr) && svcErr.Kind == service.KindHandlerFault:
		return websocket.CloseInternalServerErr, "handler fault", true
	case errors.Is(err, context.DeadlineExceeded):
		return websocket.CloseNormalClosure, "timeout", false
	case errors.Is(err, pubsub.ErrRegistryClosed):
		return websocket.CloseGoingAway, "shutting down", false
	default:
		return websocket.CloseInternalServerErr, "", true
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
