package broadcast

import (
	"context"
	"sync"
)

// Subscriber receives values from a Broadcaster.
// Implementations must be safe for concurrent use.
type Subscriber[T any] interface {
	// Receive returns the channel values are delivered on.
	// The channel is closed once the subscriber is closed.
	Receive() <-chan T

	// Close releases the subscription. It is idempotent.
	Close() error
}

// Broadcaster fans values out to every active subscriber.
// Publishing never blocks: a subscriber whose buffer is full loses its
// oldest pending value so the most recent one is always delivered.
type Broadcaster[T any] interface {
	// Subscribe registers a subscriber whose lifetime is bound to ctx.
	Subscribe(ctx context.Context) Subscriber[T]

	// Publish delivers v to all active subscribers.
	Publish(v T)

	// Close shuts down the broadcaster and closes all subscribers.
	Close() error
}

type subscriber[T any] struct {
	ch      chan T
	closed  bool
	dropped uint64
	mu      sync.Mutex
}

func newSubscriber[T any](bufferSize int) *subscriber[T] {
	return &subscriber[T]{
		ch: make(chan T, bufferSize),
	}
}

func (s *subscriber[T]) Receive() <-chan T {
	return s.ch
}

func (s *subscriber[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.ch)
		s.closed = true
	}
	return nil
}

// send enqueues v, evicting the oldest pending value while the buffer is full.
func (s *subscriber[T]) send(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	for {
		select {
		case s.ch <- v:
			return true
		default:
		}

		select {
		case <-s.ch:
			s.dropped++
		default:
		}
	}
}
