package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjuct/mini-redis-http/core/gateway"
	"github.com/zjuct/mini-redis-http/core/pubsub"
	"github.com/zjuct/mini-redis-http/core/service"
	"github.com/zjuct/mini-redis-http/core/store"
	"github.com/zjuct/mini-redis-http/pkg/ratelimiter"
)

type fixture struct {
	svc *service.Service
	srv *httptest.Server
}

func newFixture(t *testing.T, opts ...gateway.Option) *fixture {
	t.Helper()
	reg := pubsub.NewRegistry()
	svc := service.New(store.NewMemoryStore(), reg)

	srv := httptest.NewServer(gateway.New(svc, opts...).Handler())
	t.Cleanup(func() {
		_ = reg.Close()
		srv.Close()
	})

	return &fixture{svc: svc, srv: srv}
}

func (f *fixture) waitForSubscribers(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.svc.Stats().PubSub.Subscribers == n
	}, 2*time.Second, 2*time.Millisecond)
}

func (f *fixture) rpc(t *testing.T, op, body string) (int, []byte) {
	t.Helper()
	resp, err := http.Post(f.srv.URL+"/rpc/"+op, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func (f *fixture) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func (f *fixture) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := http.PostForm(f.srv.URL+path, form)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

func decodeError(t *testing.T, data []byte) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(data, &body), string(data))
	return body
}

func TestRPC_Operations(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	status, body := f.rpc(t, "ping", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"payload":"PONG"}`, string(body))

	status, body = f.rpc(t, "ping", `{"payload":"hi"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"payload":"hi"}`, string(body))

	status, body = f.rpc(t, "set", `{"key":"k","value":"v"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"OK"}`, string(body))

	_, body = f.rpc(t, "get", `{"key":"k"}`)
	assert.JSONEq(t, `{"value":"v"}`, string(body))

	_, body = f.rpc(t, "get", `{"key":"missing"}`)
	assert.JSONEq(t, `{"value":null}`, string(body))

	_, body = f.rpc(t, "del", `{"keys":["k","missing"]}`)
	assert.JSONEq(t, `{"num":1}`, string(body))

	_, body = f.rpc(t, "publish", `{"channel":"nobody","message":"m"}`)
	assert.JSONEq(t, `{"num":0}`, string(body))
}

func TestRPC_Subscribe(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	done := make(chan []byte, 1)
	go func() {
		_, body := f.rpc(t, "subscribe", `{"channels":["a","b"]}`)
		done <- body
	}()
	f.waitForSubscribers(t, 2)

	_, body := f.rpc(t, "publish", `{"channel":"b","message":"hello"}`)
	assert.JSONEq(t, `{"num":1}`, string(body))

	select {
	case body := <-done:
		assert.JSONEq(t, `{"channel":"b","message":"hello"}`, string(body))
	case <-time.After(2 * time.Second):
		t.Fatal("subscribe did not return")
	}
}

func TestRPC_Errors(t *testing.T) {
	t.Parallel()

	t.Run("unknown operation", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		status, body := f.rpc(t, "flushall", "")
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "not_found", decodeError(t, body).Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		status, body := f.rpc(t, "set", `{"key":`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "bad_request", decodeError(t, body).Code)

		status, _ = f.rpc(t, "set", `{"key":"k","ttl":5}`)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("body too large", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, gateway.WithBodyLimit(16))

		status, body := f.rpc(t, "set", `{"key":"k","value":"`+strings.Repeat("x", 64)+`"}`)
		assert.Equal(t, http.StatusRequestEntityTooLarge, status)
		assert.Equal(t, "request_entity_too_large", decodeError(t, body).Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		status, body := f.get(t, "/rpc/ping")
		assert.Equal(t, http.StatusMethodNotAllowed, status)
		assert.Equal(t, "method_not_allowed", decodeError(t, []byte(body)).Code)
	})
}

func TestFilteredOperations(t *testing.T) {
	t.Parallel()
	f := newFixture(t, gateway.WithServiceMiddleware(
		service.Filter(service.BlockOperations(service.OpPing), service.WithFilterMessage("ping disabled")),
	))

	status, body := f.rpc(t, "ping", "")
	assert.Equal(t, http.StatusForbidden, status)
	errBody := decodeError(t, body)
	assert.Equal(t, "forbidden", errBody.Code)
	assert.Equal(t, "ping disabled", errBody.Message)
	assert.Equal(t, "ping", errBody.Details["operation"])

	status, _ = f.get(t, "/ping")
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = f.rpc(t, "set", `{"key":"k","value":"v"}`)
	assert.Equal(t, http.StatusOK, status)
}

func TestHandlerFault(t *testing.T) {
	t.Parallel()
	boom := func(service.Handler) service.Handler {
		return service.HandlerFunc(func(_ context.Context, req service.Request) (any, error) {
			return nil, service.HandlerFault(req.Operation(), errors.New("boom"))
		})
	}
	f := newFixture(t, gateway.WithServiceMiddleware(boom))

	status, body := f.rpc(t, "get", `{"key":"k"}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal_server_error", decodeError(t, body).Code)
	assert.NotContains(t, string(body), "boom")
}

func TestBrowserRoutes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	status, body := f.get(t, "/ping")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "PONG", body)

	_, body = f.get(t, "/ping/hello")
	assert.Equal(t, "hello", body)

	for _, path := range []string{"/set", "/del", "/publish", "/subscribe"} {
		status, body := f.get(t, path)
		assert.Equal(t, http.StatusOK, status, path)
		assert.Contains(t, body, `action="`+path+`"`)
	}

	resp := f.postForm(t, "/set", url.Values{"key": {"k"}, "value": {"v w"}})
	assert.Equal(t, "OK", readBody(t, resp))

	status, body = f.get(t, "/get/k")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "v w", body)

	status, body = f.get(t, "/get/missing")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, gateway.NotFoundBody, body)

	resp = f.postForm(t, "/del", url.Values{"keys": {"k  missing"}})
	assert.Equal(t, "1", readBody(t, resp))

	resp = f.postForm(t, "/publish", url.Values{"channel": {"c"}, "message": {"m"}})
	assert.Equal(t, "0", readBody(t, resp))

	status, _ = f.get(t, "/nope")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestBrowserSubscribe(t *testing.T) {
	t.Parallel()

	t.Run("first message", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		done := make(chan *http.Response, 1)
		go func() {
			resp, err := http.PostForm(f.srv.URL+"/subscribe", url.Values{"channels": {"a b"}})
			assert.NoError(t, err)
			done <- resp
		}()
		f.waitForSubscribers(t, 2)

		resp := f.postForm(t, "/publish", url.Values{"channel": {"a"}, "message": {"hi"}})
		assert.Equal(t, "1", readBody(t, resp))

		select {
		case resp := <-done:
			require.NotNil(t, resp)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "a", resp.Header.Get("X-Channel"))
			assert.Equal(t, "hi", readBody(t, resp))
		case <-time.After(2 * time.Second):
			t.Fatal("subscribe did not return")
		}
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		resp := f.postForm(t, "/subscribe", url.Values{"channels": {"quiet"}, "timeout": {"20ms"}})
		assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
		assert.Equal(t, "gateway_timeout", decodeError(t, []byte(readBody(t, resp))).Code)
	})

	t.Run("invalid timeout", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		resp := f.postForm(t, "/subscribe", url.Values{"channels": {"quiet"}, "timeout": {"soon"}})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("service timeout", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, gateway.WithServiceMiddleware(
			service.Timeout(20*time.Millisecond, service.OpSubscribe),
		))

		status, _ := f.rpc(t, "subscribe", `{"channels":["quiet"]}`)
		assert.Equal(t, http.StatusGatewayTimeout, status)
	})
}

func dialStream(t *testing.T, f *fixture, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/subscribe?" + query

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestStream(t *testing.T) {
	t.Parallel()

	t.Run("delivers every message", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		conn := dialStream(t, f, "channel=a&channel=b")
		f.waitForSubscribers(t, 2)

		for _, p := range []service.PublishRequest{
			{Channel: "a", Message: "one"},
			{Channel: "b", Message: "two"},
			{Channel: "a", Message: "three"},
		} {
			_, err := f.svc.Publish(t.Context(), p)
			require.NoError(t, err)

			require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
			var msg service.SubscribeResponse
			require.NoError(t, conn.ReadJSON(&msg))
			assert.Equal(t, service.SubscribeResponse{Channel: p.Channel, Message: p.Message}, msg)
		}
	})

	t.Run("client close detaches", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		conn := dialStream(t, f, "channels=x+y")
		f.waitForSubscribers(t, 2)

		require.NoError(t, conn.Close())
		f.waitForSubscribers(t, 0)
	})

	t.Run("filtered", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, gateway.WithServiceMiddleware(
			service.Filter(service.BlockOperations(service.OpSubscribe), service.WithFilterMessage("no streams")),
		))
		conn := dialStream(t, f, "channel=a")

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, _, err := conn.ReadMessage()

		var closeErr *websocket.CloseError
		require.ErrorAs(t, err, &closeErr)
		assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
		assert.Equal(t, "no streams", closeErr.Text)
	})
}

func TestHealth(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.Handle(t.Context(), service.SetRequest{Key: "k", Value: "v"})
	require.NoError(t, err)

	status, body := f.get(t, "/health")
	assert.Equal(t, http.StatusOK, status)

	var stats service.Stats
	require.NoError(t, json.Unmarshal([]byte(body), &stats))
	assert.Equal(t, 1, stats.Store.Keys)

	status, body = f.get(t, "/health/live")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ALIVE", body)

	status, body = f.get(t, "/health/ready")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "READY", body)
}

func TestHealth_ReadinessCheck(t *testing.T) {
	t.Parallel()

	var down atomic.Bool
	f := newFixture(t, gateway.WithReadinessCheck(func(context.Context) error {
		if down.Load() {
			return errors.New("redis unreachable")
		}
		return nil
	}))

	status, _ := f.get(t, "/health/ready")
	assert.Equal(t, http.StatusOK, status)

	down.Store(true)
	status, body := f.get(t, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, body, "service_unavailable")

	status, _ = f.get(t, "/ping")
	assert.Equal(t, http.StatusOK, status)
}

func TestHealth_RegistryClosed(t *testing.T) {
	t.Parallel()
	reg := pubsub.NewRegistry()
	svc := service.New(store.NewMemoryStore(), reg)
	srv := httptest.NewServer(gateway.New(svc).Handler())
	t.Cleanup(srv.Close)

	require.NoError(t, reg.Close())

	resp, err := http.Get(srv.URL + "/health/ready")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/rpc/publish", "application/json", strings.NewReader(`{"channel":"c"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	limiter, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.Config{
		Capacity:       2,
		RefillRate:     1,
		RefillInterval: time.Hour,
	})
	require.NoError(t, err)
	f := newFixture(t, gateway.WithRateLimiter(limiter))

	for range 2 {
		status, _ := f.get(t, "/ping")
		assert.Equal(t, http.StatusOK, status)
	}

	status, body := f.get(t, "/ping")
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "too_many_requests", decodeError(t, []byte(body)).Code)

	status, _ = f.get(t, "/health/live")
	assert.Equal(t, http.StatusOK, status)
}
