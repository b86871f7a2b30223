package response_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjuct/mini-redis-http/core/handler"
	"github.com/zjuct/mini-redis-http/core/response"
)

// testContext is a simple test implementation of handler.Context
type testContext struct {
	context.Context
	w http.ResponseWriter
	r *http.Request
}

func newTestContext(w http.ResponseWriter, r *http.Request) *testContext {
	return &testContext{Context: r.Context(), w: w, r: r}
}

func (tc *testContext) Request() *http.Request             { return tc.r }
func (tc *testContext) ResponseWriter() http.ResponseWriter { return tc.w }
func (tc *testContext) Param(string) string                 { return "" }
func (tc *testContext) SetValue(any, any)                   {}

func render(t *testing.T, resp handler.Response) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	require.NoError(t, resp(w, httptest.NewRequest(http.MethodGet, "/", nil)))
	return w
}

func TestTextResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		resp        handler.Response
		status      int
		contentType string
		body        string
	}{
		{"string", response.String("PONG"), http.StatusOK, "text/plain; charset=utf-8", "PONG"},
		{"string with status", response.StringWithStatus("not found", http.StatusNotFound), http.StatusNotFound, "text/plain; charset=utf-8", "not found"},
		{"string zero status", response.StringWithStatus("x", 0), http.StatusOK, "text/plain; charset=utf-8", "x"},
		{"html", response.HTML("<p>hi</p>"), http.StatusOK, "text/html; charset=utf-8", "<p>hi</p>"},
		{"html with status", response.HTMLWithStatus("", http.StatusAccepted), http.StatusAccepted, "text/html; charset=utf-8", ""},
		{"no content", response.NoContent(), http.StatusNoContent, "", ""},
		{"status", response.Status(http.StatusTeapot), http.StatusTeapot, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := render(t, tt.resp)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.contentType, w.Header().Get("Content-Type"))
			assert.Equal(t, tt.body, w.Body.String())
		})
	}
}

func TestJSON(t *testing.T) {
	t.Parallel()

	w := render(t, response.JSON(map[string]int{"num": 2}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"num":2}`, w.Body.String())

	w = render(t, response.JSONWithStatus(nil, 0))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = render(t, response.JSONWithStatus(nil, http.StatusOK))
	assert.Equal(t, "null\n", w.Body.String())
}

func TestDecorators(t *testing.T) {
	t.Parallel()

	w := render(t, response.WithHeaders(response.String("ok"), map[string]string{"X-Test": "1"}))
	assert.Equal(t, "1", w.Header().Get("X-Test"))

	w = render(t, response.WithCache(response.String("ok"), 0))
	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))

	w = render(t, response.WithCache(response.String("ok"), time.Minute))
	assert.Equal(t, "public, max-age=60", w.Header().Get("Cache-Control"))

	assert.Nil(t, response.WithHeaders(nil, nil))
	assert.Nil(t, response.WithCache(nil, 0))
}

type statusErr struct{ status int }

func (e statusErr) Error() string   { return "custom" }
func (e statusErr) StatusCode() int { return e.status }

func TestAsHTTPError(t *testing.T) {
	t.Parallel()

	t.Run("http error passes through", func(t *testing.T) {
		t.Parallel()
		in := response.ErrForbidden.WithMessage("nope")
		out := response.AsHTTPError(errors.Join(errors.New("ctx"), in))
		assert.Equal(t, in, out)
	})

	t.Run("status code interface", func(t *testing.T) {
		t.Parallel()
		out := response.AsHTTPError(statusErr{status: http.StatusGatewayTimeout})
		assert.Equal(t, http.StatusGatewayTimeout, out.Status)
		assert.Equal(t, "gateway_timeout", out.Code)
		assert.Equal(t, "custom", out.Details["cause"])
	})

	t.Run("unknown status falls back to 500", func(t *testing.T) {
		t.Parallel()
		out := response.AsHTTPError(statusErr{status: 599})
		assert.Equal(t, http.StatusInternalServerError, out.Status)
	})

	t.Run("plain error", func(t *testing.T) {
		t.Parallel()
		out := response.AsHTTPError(errors.New("boom"))
		assert.Equal(t, http.StatusInternalServerError, out.Status)
		assert.Equal(t, "boom", out.Details["cause"])
		assert.Nil(t, response.ErrInternalServerError.Details, "predefined errors are not mutated")
	})
}

func TestErrorHandlers(t *testing.T) {
	t.Parallel()

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		response.JSONErrorHandler(newTestContext(w, r), response.ErrBadRequest.WithMessage("missing key"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "bad_request", body["code"])
		assert.Equal(t, "missing key", body["message"])
	})

	t.Run("text", func(t *testing.T) {
		t.Parallel()
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		response.ErrorHandler(newTestContext(w, r), response.ErrNotFound)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Not Found", w.Body.String())
	})

	t.Run("error response", func(t *testing.T) {
		t.Parallel()
		err := errors.New("propagated")
		w := httptest.NewRecorder()
		assert.Same(t, err, response.Error(err)(w, httptest.NewRequest(http.MethodGet, "/", nil)))
	})
}

func TestWebSocket(t *testing.T) {
	t.Parallel()

	connected := make(chan struct{})
	disconnected := make(chan struct{})
	resp := response.WebSocket(
		func(ctx context.Context, conn *websocket.Conn) error {
			var in map[string]string
			if err := conn.ReadJSON(&in); err != nil {
				return err
			}
			return conn.WriteJSON(map[string]string{"echo": in["msg"]})
		},
		response.WithWSAllowAnyOrigin(),
		response.WithWSOnConnect(func(context.Context, *websocket.Conn) error {
			close(connected)
			return nil
		}),
		response.WithWSOnDisconnect(func(context.Context, *websocket.Conn) {
			close(disconnected)
		}),
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, resp(w, r))
	}))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	<-connected
	require.NoError(t, conn.WriteJSON(map[string]string{"msg": "hi"}))

	var out map[string]string
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, "hi", out["echo"])

	select {
	case <-disconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end")
	}
}

func TestWebSocket_UpgradeFailure(t *testing.T) {
	t.Parallel()

	var reported error
	resp := response.WebSocket(
		func(context.Context, *websocket.Conn) error { return nil },
		response.WithWSErrorHandler(func(_ context.Context, err error) { reported = err }),
	)

	w := httptest.NewRecorder()
	require.NoError(t, resp(w, httptest.NewRequest(http.MethodGet, "/", nil)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Error(t, reported)
}
