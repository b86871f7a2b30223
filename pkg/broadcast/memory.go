package broadcast

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// MemoryBroadcaster is an in-memory Broadcaster.
// Broadcast holds a read lock, so concurrent broadcasts do not serialize on
// each other; subscription changes take the write lock.
type MemoryBroadcaster[T any] struct {
	mu          sync.RWMutex
	subscribers map[string]*memorySubscriber[T]
	bufferSize  int
	closed      bool

	delivered atomic.Int64
	dropped   atomic.Int64
}

// NewMemoryBroadcaster creates a broadcaster whose subscribers each buffer up
// to bufferSize undelivered messages. Non-positive sizes use DefaultBufferSize.
func NewMemoryBroadcaster[T any](bufferSize int) *MemoryBroadcaster[T] {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &MemoryBroadcaster[T]{
		subscribers: make(map[string]*memorySubscriber[T]),
		bufferSize:  bufferSize,
	}
}

// Broadcast delivers msg to every subscriber attached at call time.
func (b *MemoryBroadcaster[T]) Broadcast(ctx context.Context, msg Message[T]) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, ErrBroadcasterClosed
	}

	for _, sub := range b.subscribers {
		if sub.deliver(msg) {
			b.dropped.Add(1)
		}
	}

	n := len(b.subscribers)
	b.delivered.Add(int64(n))
	return n, nil
}

// Subscribe attaches a new subscriber that only sees messages broadcast from now on.
// Subscribing to a closed broadcaster returns an already closed subscriber.
func (b *MemoryBroadcaster[T]) Subscribe(ctx context.Context) Subscriber[T] {
	sub := &memorySubscriber[T]{
		id:     uuid.New().String(),
		ch:     make(chan Message[T], b.bufferSize),
		parent: b,
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.closed = true
		close(sub.ch)
		return sub
	}
	b.subscribers[sub.id] = sub
	b.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		_ = sub.Close()
	})

	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		stop()
		return sub
	}
	sub.stop = stop
	sub.mu.Unlock()

	return sub
}

// Close detaches every subscriber and rejects further broadcasts.
func (b *MemoryBroadcaster[T]) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subscribers
	b.subscribers = make(map[string]*memorySubscriber[T])
	b.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}
	return nil
}

// SubscriberCount returns the number of currently attached subscribers.
func (b *MemoryBroadcaster[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Delivered returns the total number of per-subscriber deliveries so far.
func (b *MemoryBroadcaster[T]) Delivered() int64 {
	return b.delivered.Load()
}

// Dropped returns the total number of messages evicted from full subscriber buffers.
func (b *MemoryBroadcaster[T]) Dropped() int64 {
	return b.dropped.Load()
}

func (b *MemoryBroadcaster[T]) remove(id string) {
	b.mu.Lock()
	delete(b.subscribers, id)
	b.mu.Unlock()
}

type memorySubscriber[T any] struct {
	id     string
	ch     chan Message[T]
	parent *MemoryBroadcaster[T]

	// sendMu serializes producers so the drop-oldest loop always terminates.
	sendMu sync.Mutex

	mu     sync.Mutex
	closed bool
	stop   func() bool
}

func (s *memorySubscriber[T]) ID() string {
	return s.id
}

func (s *memorySubscriber[T]) Receive() <-chan Message[T] {
	return s.ch
}

func (s *memorySubscriber[T]) Next(ctx context.Context) (Message[T], error) {
	select {
	case msg, ok := <-s.ch:
		if !ok {
			return Message[T]{}, ErrSubscriberClosed
		}
		return msg, nil
	case <-ctx.Done():
		return Message[T]{}, ctx.Err()
	}
}

func (s *memorySubscriber[T]) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()

	if stop != nil {
		stop()
	}

	// remove waits for in-flight broadcasts, so nothing sends on ch after it returns.
	s.parent.remove(s.id)
	close(s.ch)
	return nil
}

// deliver enqueues msg, evicting the oldest buffered message when full.
// Must be called with the parent's read lock held. Reports whether a message was dropped.
func (s *memorySubscriber[T]) deliver(msg Message[T]) bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	dropped := false
	for {
		select {
		case s.ch <- msg:
			return dropped
		default:
		}

		select {
		case <-s.ch:
			dropped = true
		default:
		}
	}
}
