package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjuct/mini-redis-http/core/gateway"
	"github.com/zjuct/mini-redis-http/core/pubsub"
	"github.com/zjuct/mini-redis-http/core/service"
	"github.com/zjuct/mini-redis-http/core/store"
	"github.com/zjuct/mini-redis-http/pkg/client"
)

func newClient(t *testing.T, mws ...service.Middleware) (*client.Client, *service.Service) {
	t.Helper()
	reg := pubsub.NewRegistry()
	svc := service.New(store.NewMemoryStore(), reg)
	srv := httptest.NewServer(gateway.New(svc, gateway.WithServiceMiddleware(mws...)).Handler())
	t.Cleanup(func() {
		_ = reg.Close()
		srv.Close()
	})

	c, err := client.New(srv.URL + "/")
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, svc
}

func waitForSubscribers(t *testing.T, svc *service.Service, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return svc.Stats().PubSub.Subscribers == n
	}, 2*time.Second, 2*time.Millisecond)
}

func TestNew_InvalidURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "localhost:8080", "ftp://host", "http://"} {
		_, err := client.New(raw)
		assert.ErrorIs(t, err, client.ErrInvalidURL, raw)
	}
}

func TestClient_KeyValue(t *testing.T) {
	t.Parallel()
	c, _ := newClient(t)
	ctx := context.Background()

	pong, err := c.Ping(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "PONG", pong)

	echo, err := c.Ping(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", echo)

	require.NoError(t, c.Set(ctx, "k", "v"))

	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	n, err := c.Del(ctx, "k", "other")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_PublishSubscribe(t *testing.T) {
	t.Parallel()
	c, svc := newClient(t)
	ctx := context.Background()

	done := make(chan service.SubscribeResponse, 1)
	go func() {
		msg, err := c.Subscribe(ctx, "a", "b")
		assert.NoError(t, err)
		done <- msg
	}()
	waitForSubscribers(t, svc, 2)

	n, err := c.Publish(ctx, "a", "hi")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	select {
	case msg := <-done:
		assert.Equal(t, service.SubscribeResponse{Channel: "a", Message: "hi"}, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("subscribe did not return")
	}
}

func TestClient_SubscribeContext(t *testing.T) {
	t.Parallel()
	c, _ := newClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.Subscribe(ctx, "quiet")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c, _ := newClient(t,
		service.Filter(service.BlockOperations(service.OpPing)),
		service.Timeout(20*time.Millisecond, service.OpSubscribe),
	)

	_, err := c.Ping(ctx, "")
	require.ErrorIs(t, err, client.ErrFiltered)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode())
	assert.Equal(t, "forbidden", apiErr.Code)

	_, err = c.Subscribe(ctx, "quiet")
	assert.ErrorIs(t, err, client.ErrTimeout)
	assert.NotErrorIs(t, err, client.ErrFiltered)
}

func TestClient_Stream(t *testing.T) {
	t.Parallel()
	c, svc := newClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan service.SubscribeResponse, 4)
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Stream(ctx, []string{"x", "y"}, func(msg service.SubscribeResponse) error {
			got <- msg
			return nil
		})
	}()
	waitForSubscribers(t, svc, 2)

	for _, ch := range []string{"y", "x"} {
		_, err := c.Publish(ctx, ch, "m-"+ch)
		require.NoError(t, err)
		select {
		case msg := <-got:
			assert.Equal(t, service.SubscribeResponse{Channel: ch, Message: "m-" + ch}, msg)
		case <-time.After(2 * time.Second):
			t.Fatal("stream did not deliver")
		}
	}

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop")
	}
	waitForSubscribers(t, svc, 0)
}

func TestClient_StreamStops(t *testing.T) {
	t.Parallel()

	t.Run("callback error", func(t *testing.T) {
		t.Parallel()
		c, svc := newClient(t)
		errStop := errors.New("stop")

		errCh := make(chan error, 1)
		go func() {
			errCh <- c.Stream(context.Background(), []string{"s"}, func(service.SubscribeResponse) error {
				return errStop
			})
		}()
		waitForSubscribers(t, svc, 1)

		_, err := svc.Publish(context.Background(), service.PublishRequest{Channel: "s", Message: "m"})
		require.NoError(t, err)

		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, errStop)
		case <-time.After(2 * time.Second):
			t.Fatal("stream did not stop")
		}
	})

	t.Run("filtered", func(t *testing.T) {
		t.Parallel()
		c, _ := newClient(t, service.Filter(service.BlockOperations(service.OpSubscribe)))

		err := c.Stream(context.Background(), []string{"s"}, func(service.SubscribeResponse) error { return nil })
		assert.ErrorIs(t, err, client.ErrFiltered)
	})

	t.Run("server timeout", func(t *testing.T) {
		t.Parallel()
		c, _ := newClient(t, service.Timeout(20*time.Millisecond, service.OpSubscribe))

		err := c.Stream(context.Background(), []string{"s"}, func(service.SubscribeResponse) error { return nil })
		assert.ErrorIs(t, err, client.ErrTimeout)
	})
}
