package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
)

// Bus is the storefront's in-process publish/subscribe surface.
//
// Publish runs every handler registered for the topic synchronously, in
// registration order, before returning. A failing or panicking handler is
// logged and skipped; nothing is queued or retried.
//
// Bus satisfies events.Publisher and events.Subscriber, so components that
// talk to it can be pointed at NATS without changes.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string][]entry
	logger   apt.Logger
}

type entry struct {
	id      uint64
	handler events.HandlerFunc
}

// Subscription is the handle returned by Listen. Every component that listens
// on activation must call Unsubscribe on teardown.
type Subscription struct {
	bus   *Bus
	id    uint64
	topic string
	once  sync.Once
}

func New(logger apt.Logger) *Bus {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Bus{
		handlers: make(map[string][]entry),
		logger:   logger,
	}
}

// Listen registers handler for topic and returns its subscription handle.
func (b *Bus) Listen(topic string, handler events.HandlerFunc) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[topic] = append(b.handlers[topic], entry{id: id, handler: handler})

	return &Subscription{bus: b, id: id, topic: topic}
}

// Subscribe registers handler for as long as ctx is alive.
func (b *Bus) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	if handler == nil {
		return fmt.Errorf("nil handler for topic %s", topic)
	}
	sub := b.Listen(topic, handler)
	context.AfterFunc(ctx, sub.Unsubscribe)
	return nil
}

func (b *Bus) Publish(ctx context.Context, topic string, msg []byte) error {
	b.mu.RLock()
	registered := make([]entry, len(b.handlers[topic]))
	copy(registered, b.handlers[topic])
	b.mu.RUnlock()

	for _, e := range registered {
		b.deliver(ctx, topic, e, msg)
	}

	b.logger.Debug("bus event published", "topic", topic, "subscribers", len(registered))
	return nil
}

func (b *Bus) deliver(ctx context.Context, topic string, e entry, msg []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("bus handler panicked", "topic", topic, "subscription", e.id, "panic", rec)
		}
	}()

	if err := e.handler(ctx, msg); err != nil {
		b.logger.Info("bus handler failed, event dropped", "topic", topic, "subscription", e.id, "error", err)
	}
}

// Count returns the number of live subscriptions for topic.
func (b *Bus) Count(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[topic])
}

func (b *Bus) remove(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.handlers[topic]
	for i, e := range current {
		if e.id != id {
			continue
		}
		kept := make([]entry, 0, len(current)-1)
		kept = append(kept, current[:i]...)
		kept = append(kept, current[i+1:]...)
		if len(kept) == 0 {
			delete(b.handlers, topic)
		} else {
			b.handlers[topic] = kept
		}
		return
	}
}

// Unsubscribe releases the subscription. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.bus.remove(s.topic, s.id)
	})
}

func (s *Subscription) Topic() string {
	return s.topic
}

// PublishJSON marshals payload and publishes it on topic.
func PublishJSON(ctx context.Context, pub events.Publisher, topic string, payload interface{}) error {
	if pub == nil {
		return nil
	}

	msg, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("cannot marshal %s payload: %w", topic, err)
	}

	if err := pub.Publish(ctx, topic, msg); err != nil {
		return fmt.Errorf("cannot publish %s: %w", topic, err)
	}
	return nil
}
