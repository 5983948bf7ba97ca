package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/infractl/infractl/pkg/logger"
)

// DefaultBufferSize is the per-subscriber channel capacity.
const DefaultBufferSize = 256

// Subscriber is one registered event consumer. Its channel is closed when the
// subscription ends, which readers observe as end-of-stream.
type Subscriber struct {
	id      string
	filter  Filter
	ch      chan Event
	dropped atomic.Uint64
}

// ID returns the subscriber's unique identifier.
func (s *Subscriber) ID() string {
	return s.id
}

// Events returns the receive channel.
func (s *Subscriber) Events() <-chan Event {
	return s.ch
}

// Dropped returns how many events this subscriber has missed due to a full
// buffer.
func (s *Subscriber) Dropped() uint64 {
	return s.dropped.Load()
}

// Bus is an in-process publish/subscribe fan-out. Publishing never blocks: a
// subscriber that cannot keep up loses events rather than stalling writers.
type Bus struct {
	bufferSize int

	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	closed      bool
}

// NewBus creates a Bus with the given per-subscriber buffer size.
// Sizes < 1 fall back to DefaultBufferSize.
func NewBus(bufferSize int) *Bus {
	if bufferSize < 1 {
		bufferSize = DefaultBufferSize
	}
	return &Bus{
		bufferSize:  bufferSize,
		subscribers: map[string]*Subscriber{},
	}
}

// Subscribe registers a consumer. Returns nil if the bus is already closed.
func (b *Bus) Subscribe(filter Filter) *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	sub := &Subscriber{
		id:     uuid.NewString(),
		filter: filter,
		ch:     make(chan Event, b.bufferSize),
	}
	b.subscribers[sub.id] = sub
	subscriberCount.Set(float64(len(b.subscribers)))
	return sub
}

// Unsubscribe removes a consumer and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subscribers[id]
	if !ok {
		return
	}
	delete(b.subscribers, id)
	close(sub.ch)
	subscriberCount.Set(float64(len(b.subscribers)))
}

// Publish delivers the event to every matching subscriber without blocking.
// A full subscriber buffer counts a drop and the event is skipped for that
// subscriber only.
func (b *Bus) Publish(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	publishedTotal.WithLabelValues(string(event.EventType)).Inc()

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subscribers {
		if !sub.filter.Matches(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			sub.dropped.Add(1)
			droppedTotal.Inc()
			logger.Warn(ctx, "Dropping event for slow subscriber",
				logger.FieldSubscriberID, sub.id,
				logger.FieldEventType, string(event.EventType))
		}
	}
}

// Close shuts the bus down and closes every subscriber channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subscribers {
		delete(b.subscribers, id)
		close(sub.ch)
	}
	subscriberCount.Set(0)
}
