package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/zjuct/mini-redis-http/core/logger"
	"github.com/zjuct/mini-redis-http/core/pubsub"
	"github.com/zjuct/mini-redis-http/core/store"
)

// Service implements the six data operations on top of a key-value store and
// a channel registry. Both are owned by whoever constructs the Service.
type Service struct {
	store    *store.MemoryStore
	registry *pubsub.Registry
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger for operation events.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// New creates a Service over st and reg.
func New(st *store.MemoryStore, reg *pubsub.Registry, opts ...Option) *Service {
	s := &Service{
		store:    st,
		registry: reg,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Handle dispatches req to the matching operation. A panic inside an
// operation is returned as a KindHandlerFault error instead of unwinding
// into the caller.
func (s *Service) Handle(ctx context.Context, req Request) (any, error) {
	return safeHandle(ctx, HandlerFunc(s.dispatch), req)
}

func (s *Service) dispatch(ctx context.Context, req Request) (any, error) {
	switch r := req.(type) {
	case PingRequest:
		return s.Ping(ctx, r), nil
	case *PingRequest:
		return s.Ping(ctx, *r), nil
	case SetRequest:
		return s.Set(ctx, r), nil
	case *SetRequest:
		return s.Set(ctx, *r), nil
	case GetRequest:
		return s.Get(ctx, r), nil
	case *GetRequest:
		return s.Get(ctx, *r), nil
	case DelRequest:
		return s.Del(ctx, r), nil
	case *DelRequest:
		return s.Del(ctx, *r), nil
	case PublishRequest:
		return s.Publish(ctx, r)
	case *PublishRequest:
		return s.Publish(ctx, *r)
	case SubscribeRequest:
		return s.Subscribe(ctx, r)
	case *SubscribeRequest:
		return s.Subscribe(ctx, *r)
	case StreamRequest:
		return nil, s.Stream(ctx, r.Channels, r.Emit)
	case *StreamRequest:
		return nil, s.Stream(ctx, r.Channels, r.Emit)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedRequest, req)
	}
}

// Ping echoes the payload, or returns Pong without one.
func (s *Service) Ping(_ context.Context, req PingRequest) PingResponse {
	if req.Payload != nil {
		return PingResponse{Payload: *req.Payload}
	}
	return PingResponse{Payload: Pong}
}

// Set stores the value. It always succeeds.
func (s *Service) Set(_ context.Context, req SetRequest) SetResponse {
	s.store.Set(req.Key, req.Value)
	return SetResponse{Status: StatusOK}
}

// Get returns the stored value, or a nil Value when the key is absent.
func (s *Service) Get(_ context.Context, req GetRequest) GetResponse {
	value, ok := s.store.Get(req.Key)
	if !ok {
		return GetResponse{}
	}
	return GetResponse{Value: &value}
}

// Del removes the keys and reports how many existed.
func (s *Service) Del(_ context.Context, req DelRequest) DelResponse {
	return DelResponse{Num: s.store.Delete(req.Keys...)}
}

// Publish delivers the message to the channel's current subscribers.
func (s *Service) Publish(ctx context.Context, req PublishRequest) (PublishResponse, error) {
	n, err := s.registry.Publish(ctx, req.Channel, req.Message)
	if err != nil {
		return PublishResponse{}, err
	}

	s.logger.DebugContext(ctx, "message published",
		logger.Channel(req.Channel),
		logger.Count("delivered", n))

	return PublishResponse{Num: n}, nil
}

// Subscribe blocks until the first message arrives on any listed channel or ctx is done.
func (s *Service) Subscribe(ctx context.Context, req SubscribeRequest) (SubscribeResponse, error) {
	msg, err := s.registry.Subscribe(ctx, req.Channels)
	if err != nil {
		return SubscribeResponse{}, err
	}
	return SubscribeResponse{Channel: msg.Channel, Message: msg.Payload}, nil
}

// Stream forwards every message on the listed channels to handle until ctx is
// done or handle fails.
func (s *Service) Stream(ctx context.Context, channels []string, handle func(SubscribeResponse) error) error {
	return s.registry.Stream(ctx, channels, func(msg pubsub.Message) error {
		return handle(SubscribeResponse{Channel: msg.Channel, Message: msg.Payload})
	})
}

// Stats is a snapshot of store and registry statistics.
type Stats struct {
	Store  store.Stats  `json:"store"`
	PubSub pubsub.Stats `json:"pubsub"`
}

// Stats returns current store and registry statistics.
func (s *Service) Stats() Stats {
	return Stats{
		Store:  s.store.Stats(),
		PubSub: s.registry.Stats(),
	}
}

// Healthcheck reports whether the service can serve requests.
func (s *Service) Healthcheck(ctx context.Context) error {
	return s.registry.Healthcheck(ctx)
}
