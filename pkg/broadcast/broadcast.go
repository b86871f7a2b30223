package broadcast

import (
	"context"
	"errors"
)

var (
	// ErrBroadcasterClosed is returned when broadcasting to a closed broadcaster.
	ErrBroadcasterClosed = errors.New("broadcaster is closed")

	// ErrSubscriberClosed is returned when receiving from a closed subscriber.
	ErrSubscriberClosed = errors.New("subscriber is closed")
)

// DefaultBufferSize is the per-subscriber buffer used when a non-positive size is given.
const DefaultBufferSize = 16

// Message wraps a broadcast payload.
type Message[T any] struct {
	Data T
}

// Broadcaster sends messages to every attached subscriber.
type Broadcaster[T any] interface {
	// Broadcast delivers msg to every subscriber attached at call time and
	// returns how many subscribers it was delivered to.
	Broadcast(ctx context.Context, msg Message[T]) (int, error)

	// Subscribe attaches a new subscriber. It is detached when ctx is done
	// or Close is called on it.
	Subscribe(ctx context.Context) Subscriber[T]

	// Close detaches all subscribers and rejects further broadcasts.
	Close() error
}

// Subscriber receives messages from a Broadcaster.
type Subscriber[T any] interface {
	// ID uniquely identifies the subscription.
	ID() string

	// Receive returns the channel messages are delivered on.
	// The channel is closed when the subscriber is closed.
	Receive() <-chan Message[T]

	// Next blocks until a message arrives, ctx is done, or the subscriber is closed.
	Next(ctx context.Context) (Message[T], error)

	// Close detaches the subscriber. Safe to call more than once.
	Close() error
}
