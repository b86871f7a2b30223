// Package broadcast provides a generic in-memory pub/sub topic with many
// independent subscribers.
//
// Every subscriber receives every message broadcast after it subscribed.
// Messages are never queued for subscribers that attach later.
//
// # Architecture
//
// The package defines two main interfaces:
//   - Broadcaster: delivers a message to every currently attached subscriber
//   - Subscriber: one attachment to a broadcaster, receiving its messages
//
// MemoryBroadcaster is the in-memory implementation.
//
// # Usage
//
//	// Each subscriber buffers up to 16 undelivered messages
//	topic := broadcast.NewMemoryBroadcaster[string](16)
//	defer topic.Close()
//
//	sub := topic.Subscribe(ctx)
//	defer sub.Close()
//
//	n, _ := topic.Broadcast(ctx, broadcast.Message[string]{Data: "hello"})
//	// n == 1
//
//	msg, err := sub.Next(ctx)
//	// msg.Data == "hello"
//
// # Slow Consumers
//
// Broadcast never blocks on a subscriber. When a subscriber's buffer is full,
// the oldest undelivered message for that subscriber is dropped to make room
// for the new one. Other subscribers are unaffected.
//
// # Context Integration
//
// A subscription is detached automatically when the context passed to
// Subscribe is cancelled:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//	sub := topic.Subscribe(ctx)
//
// # Thread Safety
//
// All types in this package are safe for concurrent use.
package broadcast
