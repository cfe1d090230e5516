package bus

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// DefaultQueueCapacity bounds each subscriber queue unless SubscribeBuffered
// is used.
const DefaultQueueCapacity = 1000

var (
	ErrBusClosed      = errors.New("bus closed")
	ErrInvalidPayload = errors.New("payload type does not match event id")
)

// Subscription is a single subscriber queue. Events arrive in publish order.
// After Unsubscribe or Bus.Close the channel is closed once the buffered
// events are drained.
type Subscription struct {
	bus     *Bus
	eventId EventId
	ch      chan Event
	once    sync.Once
}

// Events returns the receive side of the subscriber queue.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// EventId returns the event this subscription receives.
func (s *Subscription) EventId() EventId {
	return s.eventId
}

// Bus is a typed publish/subscribe dispatcher. Every subscriber of an event
// receives its own copy. Publishing never blocks: when a subscriber queue is
// full the event is dropped for that subscriber and counted.
type Bus struct {
	logger *zap.Logger

	mu     sync.Mutex
	subs   map[EventId][]*Subscription
	closed bool

	stats statistics
}

func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		logger: logger,
		subs:   make(map[EventId][]*Subscription),
	}
}

// Subscribe registers a new subscriber queue for id with the default
// capacity.
func (b *Bus) Subscribe(id EventId) (*Subscription, error) {
	return b.SubscribeBuffered(id, DefaultQueueCapacity)
}

// SubscribeBuffered registers a new subscriber queue for id with an explicit
// capacity.
func (b *Bus) SubscribeBuffered(id EventId, capacity int) (*Subscription, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("invalid queue capacity %d", capacity)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	sub := &Subscription{
		bus:     b,
		eventId: id,
		ch:      make(chan Event, capacity),
	}
	b.subs[id] = append(b.subs[id], sub)

	b.logger.Debug("subscribed",
		zap.Stringer("event", id),
		zap.Int("capacity", capacity),
		zap.Int("subscribers", len(b.subs[id])))
	return sub, nil
}

// Unsubscribe removes the subscription and closes its channel. Calling it
// more than once, or with a subscription from another bus, is a no-op.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil || sub.bus != b {
		return
	}

	b.mu.Lock()
	queue := b.subs[sub.eventId]
	for i, s := range queue {
		if s == sub {
			b.subs[sub.eventId] = append(queue[:i], queue[i+1:]...)
			break
		}
	}
	b.mu.Unlock()

	sub.once.Do(func() { close(sub.ch) })
}

// Publish validates the payload against id and delivers the event to every
// current subscriber. It returns ErrInvalidPayload on a mismatched payload
// and ErrBusClosed after Close. A full subscriber queue drops the event for
// that subscriber only.
func (b *Bus) Publish(id EventId, data any) error {
	if !validPayload(id, data) {
		return fmt.Errorf("%w: %s <- %T", ErrInvalidPayload, id, data)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}

	b.stats.published.Add(1)
	ev := Event{Id: id, Data: data}
	for _, sub := range b.subs[id] {
		select {
		case sub.ch <- ev:
			b.stats.delivered.Add(1)
		default:
			b.stats.dropped.Add(1)
			b.logger.Warn("subscriber queue full, event dropped",
				zap.Stringer("event", id),
				zap.Int("capacity", cap(sub.ch)))
		}
	}
	return nil
}

// Close shuts the bus down. Subsequent Publish and Subscribe calls return
// ErrBusClosed. Subscriber channels are closed so consumers drain what is
// already queued and then stop.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, queue := range b.subs {
		for _, sub := range queue {
			sub.once.Do(func() { close(sub.ch) })
		}
	}
	b.subs = make(map[EventId][]*Subscription)

	b.logger.Debug("bus closed", zap.Uint64("published", b.stats.published.Load()))
}

// Statistics returns a snapshot of the delivery counters.
func (b *Bus) Statistics() Statistics {
	return b.stats.snapshot()
}
