package menu

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/taqueria/pkg/event"
	"github.com/appetiteclub/taqueria/services/storefront/internal/bus"
)

const DefaultHighlightDuration = 3 * time.Second

// Listener hands out scoped bus subscriptions.
type Listener interface {
	Listen(topic string, handler events.HandlerFunc) *bus.Subscription
}

// Highlight is the product currently emphasized on the menu.
type Highlight struct {
	ProductID  string    `json:"productId"`
	Name       string    `json:"name"`
	CategoryID string    `json:"categoryId"`
	Until      time.Time `json:"until"`
}

// Board tracks the highlighted product. A new highlight replaces the previous
// one and restarts the countdown.
type Board struct {
	mu       sync.Mutex
	listener Listener
	duration time.Duration
	logger   apt.Logger
	now      func() time.Time

	current    *Highlight
	generation uint64
	timer      *time.Timer
	sub        *bus.Subscription
}

func NewBoard(listener Listener, duration time.Duration, logger apt.Logger) *Board {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if duration <= 0 {
		duration = DefaultHighlightDuration
	}
	return &Board{
		listener: listener,
		duration: duration,
		logger:   logger,
		now:      time.Now,
	}
}

func (b *Board) Start(ctx context.Context) error {
	if b.listener == nil {
		return fmt.Errorf("menu board has no bus")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sub == nil {
		b.sub = b.listener.Listen(event.HighlightProduct, b.handleHighlight)
	}
	return nil
}

func (b *Board) Stop(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sub.Unsubscribe()
	b.sub = nil
	b.clearLocked()
	return nil
}

// Current returns the active highlight, if any.
func (b *Board) Current() (Highlight, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil || !b.now().Before(b.current.Until) {
		return Highlight{}, false
	}
	return *b.current, true
}

func (b *Board) handleHighlight(ctx context.Context, msg []byte) error {
	var evt event.HighlightProductEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		return fmt.Errorf("invalid highlight payload: %w", err)
	}
	if evt.ProductID == "" {
		return fmt.Errorf("highlight without product id")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.clearLocked()
	b.generation++
	gen := b.generation
	b.current = &Highlight{
		ProductID:  evt.ProductID,
		Name:       evt.Name,
		CategoryID: evt.CategoryID,
		Until:      b.now().Add(b.duration),
	}
	b.timer = time.AfterFunc(b.duration, func() { b.expire(gen) })

	b.logger.Debug("product highlighted", "product_id", evt.ProductID)
	return nil
}

func (b *Board) expire(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.generation {
		return
	}
	b.current = nil
	b.timer = nil
}

func (b *Board) clearLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.current = nil
}
