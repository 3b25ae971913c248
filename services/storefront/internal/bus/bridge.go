package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/taqueria/pkg/event"
)

// Bridge mirrors storefront bus traffic to an external broker and feeds
// selected external signals back into the bus.
//
// Outbound and inbound traffic must use different subjects, otherwise a
// mirrored signal would come straight back in.
type Bridge struct {
	bus     *Bus
	out     events.Publisher
	in      events.Subscriber
	inbound []string
	logger  apt.Logger

	mu   sync.Mutex
	subs []*Subscription
}

func NewBridge(b *Bus, out events.Publisher, in events.Subscriber, logger apt.Logger) *Bridge {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Bridge{
		bus:     b,
		out:     out,
		in:      in,
		inbound: []string{event.CallEnded},
		logger:  logger,
	}
}

func (br *Bridge) Start(ctx context.Context) error {
	if br.bus == nil {
		return fmt.Errorf("bus bridge not configured")
	}

	if br.out != nil {
		br.mu.Lock()
		for _, topic := range event.Topics {
			br.subs = append(br.subs, br.bus.Listen(topic, br.forward(topic)))
		}
		br.mu.Unlock()
	}

	if br.in != nil {
		for _, topic := range br.inbound {
			if err := br.in.Subscribe(ctx, topic, br.relay(topic)); err != nil {
				return fmt.Errorf("cannot subscribe bridge to %s: %w", topic, err)
			}
		}
	}

	br.logger.Info("bus bridge started", "outbound", len(event.Topics), "inbound", len(br.inbound))
	return nil
}

func (br *Bridge) Stop(ctx context.Context) error {
	br.mu.Lock()
	defer br.mu.Unlock()

	for _, sub := range br.subs {
		sub.Unsubscribe()
	}
	br.subs = nil
	return nil
}

func (br *Bridge) forward(topic string) events.HandlerFunc {
	return func(ctx context.Context, msg []byte) error {
		if err := br.out.Publish(ctx, topic, msg); err != nil {
			br.logger.Error("cannot mirror bus event", "topic", topic, "error", err)
		}
		return nil
	}
}

func (br *Bridge) relay(topic string) events.HandlerFunc {
	return func(ctx context.Context, msg []byte) error {
		br.logger.Debug("external signal received", "topic", topic)
		return br.bus.Publish(ctx, topic, msg)
	}
}
