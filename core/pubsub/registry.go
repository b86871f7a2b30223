package pubsub

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/zjuct/mini-redis-http/core/logger"
	"github.com/zjuct/mini-redis-http/pkg/async"
	"github.com/zjuct/mini-redis-http/pkg/broadcast"
)

// Message is a payload received on a named channel.
type Message struct {
	Channel string `json:"channel"`
	Payload string `json:"payload"`
}

// Stats provides registry counters for observability.
type Stats struct {
	Topics      int   `json:"topics"`
	Subscribers int   `json:"subscribers"`
	Published   int64 `json:"published"`
	Delivered   int64 `json:"delivered"`
	Dropped     int64 `json:"dropped"`
}

// Registry maps channel names to lazily created broadcast topics.
//
// The registry lock covers only lookups, topic creation and attachment.
// It is always released before any wait for a message begins.
type Registry struct {
	mu     sync.Mutex
	topics map[string]*broadcast.MemoryBroadcaster[string]
	closed bool

	bufferSize int
	logger     *slog.Logger

	published atomic.Int64
}

// Option configures a Registry.
type Option func(*Registry)

// WithBufferSize sets the per-subscriber buffer of newly created topics.
func WithBufferSize(size int) Option {
	return func(r *Registry) {
		if size > 0 {
			r.bufferSize = size
		}
	}
}

// WithLogger sets the logger for registry events.
func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.logger = log
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		topics:     make(map[string]*broadcast.MemoryBroadcaster[string]),
		bufferSize: broadcast.DefaultBufferSize,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Publish delivers message to every subscriber currently attached to channel
// and returns how many there were. Publishing to an unknown channel is a no-op
// that returns 0 and does not create the channel.
func (r *Registry) Publish(ctx context.Context, channel, message string) (int, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0, ErrRegistryClosed
	}
	topic, ok := r.topics[channel]
	r.mu.Unlock()

	if !ok {
		return 0, nil
	}

	n, err := topic.Broadcast(ctx, broadcast.Message[string]{Data: message})
	if err != nil {
		if errors.Is(err, broadcast.ErrBroadcasterClosed) {
			return 0, ErrRegistryClosed
		}
		return 0, err
	}

	r.published.Add(1)
	return n, nil
}

// Subscribe attaches to every listed channel, creating missing ones, and
// returns the first message published on any of them after attachment.
// The other attachments are discarded.
//
// With no channels Subscribe waits until ctx is done.
func (r *Registry) Subscribe(ctx context.Context, channels []string) (Message, error) {
	subs, err := r.attach(ctx, channels)
	if err != nil {
		return Message{}, err
	}
	defer closeAll(subs)

	_, msg, err := async.First(ctx, subs, func(ctx context.Context, s subscription) (Message, error) {
		m, err := s.sub.Next(ctx)
		if err != nil {
			return Message{}, err
		}
		return Message{Channel: s.channel, Payload: m.Data}, nil
	})
	if err != nil {
		if errors.Is(err, broadcast.ErrSubscriberClosed) {
			return Message{}, ErrRegistryClosed
		}
		return Message{}, err
	}

	return msg, nil
}

// Stream attaches to every listed channel and calls handle for each message
// received on any of them until ctx is done or handle returns an error.
func (r *Registry) Stream(ctx context.Context, channels []string, handle func(Message) error) error {
	subs, err := r.attach(ctx, channels)
	if err != nil {
		return err
	}
	defer closeAll(subs)

	g, gctx := errgroup.WithContext(ctx)
	out := make(chan Message)

	for _, s := range subs {
		g.Go(func() error {
			for {
				select {
				case m, ok := <-s.sub.Receive():
					if !ok {
						return ErrRegistryClosed
					}
					select {
					case out <- Message{Channel: s.channel, Payload: m.Data}:
					case <-gctx.Done():
						return nil
					}
				case <-gctx.Done():
					return nil
				}
			}
		})
	}

	g.Go(func() error {
		for {
			select {
			case msg := <-out:
				if err := handle(msg); err != nil {
					return err
				}
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	err = g.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Channels returns a sorted snapshot of the known channel names.
func (r *Registry) Channels() []string {
	r.mu.Lock()
	names := make([]string, 0, len(r.topics))
	for name := range r.topics {
		names = append(names, name)
	}
	r.mu.Unlock()

	slices.Sort(names)
	return names
}

// Stats returns current registry statistics.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	topics := make([]*broadcast.MemoryBroadcaster[string], 0, len(r.topics))
	for _, topic := range r.topics {
		topics = append(topics, topic)
	}
	r.mu.Unlock()

	stats := Stats{
		Topics:    len(topics),
		Published: r.published.Load(),
	}
	for _, topic := range topics {
		stats.Subscribers += topic.SubscriberCount()
		stats.Delivered += topic.Delivered()
		stats.Dropped += topic.Dropped()
	}
	return stats
}

// Close closes every topic. Waiting subscribers return ErrRegistryClosed.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	topics := r.topics
	r.topics = make(map[string]*broadcast.MemoryBroadcaster[string])
	r.mu.Unlock()

	for _, topic := range topics {
		_ = topic.Close()
	}
	return nil
}

// Healthcheck reports whether the registry accepts operations.
func (r *Registry) Healthcheck(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRegistryClosed
	}
	return nil
}

type subscription struct {
	channel string
	sub     broadcast.Subscriber[string]
}

// attach is the critical section of Subscribe: get-or-create every topic and
// attach a fresh subscriber to it. It never waits for messages.
func (r *Registry) attach(ctx context.Context, channels []string) ([]subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}

	subs := make([]subscription, 0, len(channels))
	for _, channel := range channels {
		topic, ok := r.topics[channel]
		if !ok {
			topic = broadcast.NewMemoryBroadcaster[string](r.bufferSize)
			r.topics[channel] = topic
			r.logger.DebugContext(ctx, "channel created",
				logger.Component("pubsub"),
				logger.Channel(channel))
		}
		subs = append(subs, subscription{channel: channel, sub: topic.Subscribe(ctx)})
	}
	return subs, nil
}

func closeAll(subs []subscription) {
	for _, s := range subs {
		_ = s.sub.Close()
	}
}
