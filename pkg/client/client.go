package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zjuct/mini-redis-http/core/service"
)

const maxResponseBodySize = 1 << 20 // 1MB

const (
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 60 * time.Second
)

// Client calls the gateway's JSON RPC endpoints.
//
// There is no global request timeout: subscribe blocks until a message
// arrives, so bound calls through ctx.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	dialer     *websocket.Dialer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for RPC calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithDialer replaces the WebSocket dialer used by Stream.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// New creates a client for the gateway at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	c := &Client{
		baseURL: u,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
		dialer: websocket.DefaultDialer,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Ping returns "PONG", or payload echoed back when it is not empty.
func (c *Client) Ping(ctx context.Context, payload string) (string, error) {
	req := service.PingRequest{}
	if payload != "" {
		req.Payload = &payload
	}

	var resp service.PingResponse
	if err := c.call(ctx, service.OpPing, req, &resp); err != nil {
		return "", err
	}
	return resp.Payload, nil
}

// Set stores value under key.
func (c *Client) Set(ctx context.Context, key, value string) error {
	var resp service.SetResponse
	return c.call(ctx, service.OpSet, service.SetRequest{Key: key, Value: value}, &resp)
}

// Get returns the value of key and whether it exists.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	var resp service.GetResponse
	if err := c.call(ctx, service.OpGet, service.GetRequest{Key: key}, &resp); err != nil {
		return "", false, err
	}
	if resp.Value == nil {
		return "", false, nil
	}
	return *resp.Value, true, nil
}

// Del removes keys and returns how many existed.
func (c *Client) Del(ctx context.Context, keys ...string) (int, error) {
	var resp service.DelResponse
	if err := c.call(ctx, service.OpDel, service.DelRequest{Keys: keys}, &resp); err != nil {
		return 0, err
	}
	return resp.Num, nil
}

// Publish sends message on channel and returns the number of receivers.
func (c *Client) Publish(ctx context.Context, channel, message string) (int, error) {
	var resp service.PublishResponse
	req := service.PublishRequest{Channel: channel, Message: message}
	if err := c.call(ctx, service.OpPublish, req, &resp); err != nil {
		return 0, err
	}
	return resp.Num, nil
}

// Subscribe blocks until a message arrives on any of channels or ctx ends.
func (c *Client) Subscribe(ctx context.Context, channels ...string) (service.SubscribeResponse, error) {
	var resp service.SubscribeResponse
	if err := c.call(ctx, service.OpSubscribe, service.SubscribeRequest{Channels: channels}, &resp); err != nil {
		return service.SubscribeResponse{}, err
	}
	return resp, nil
}

// Close releases idle connections. The client stays usable.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) endpoint(path string) string {
	u := *c.baseURL
	u.Path += path
	return u.String()
}

func (c *Client) call(ctx context.Context, op string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/rpc/"+op), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return fmt.Errorf("read %s response: %w", op, err)
	}

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

func decodeError(status int, data []byte) error {
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}
