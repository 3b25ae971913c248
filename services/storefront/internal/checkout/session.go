package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/taqueria/pkg/event"
	"github.com/appetiteclub/taqueria/services/storefront/internal/bus"
	"github.com/appetiteclub/taqueria/services/storefront/internal/order"
)

var ErrContactIncomplete = errors.New("contact information incomplete")

type Stage string

const (
	StageIdle       Stage = "idle"
	StageCollecting Stage = "collecting"
	StageCompleted  Stage = "completed"
)

// Listener hands out scoped bus subscriptions.
type Listener interface {
	Listen(topic string, handler events.HandlerFunc) *bus.Subscription
}

// Orders is the part of the order store checkout needs.
type Orders interface {
	Current() order.Order
	Complete(ctx context.Context) (order.Order, error)
	Clear(ctx context.Context) order.Order
}

type SessionDeps struct {
	Bus       Listener
	Publisher events.Publisher
	Orders    Orders
}

// Receipt summarizes the last registered order.
type Receipt struct {
	OrderID      string      `json:"orderId"`
	Reference    string      `json:"reference"`
	Total        string      `json:"total"`
	Contact      ContactInfo `json:"contact"`
	RegisteredAt time.Time   `json:"registeredAt"`
}

type State struct {
	Stage   Stage             `json:"stage"`
	Contact ContactInfo       `json:"contact"`
	Missing []Field           `json:"missing"`
	Errors  []ValidationError `json:"errors,omitempty"`
	Ready   bool              `json:"ready"`
	OrderID string            `json:"orderId,omitempty"`
	Total   float64           `json:"total,omitempty"`
	Receipt *Receipt          `json:"receipt,omitempty"`
}

// Session is the checkout surface for the current order. It opens when a
// payment is initiated, collects contact fields from voice capture or direct
// input, registers the order when payment completes and resets when the
// voice call ends.
type Session struct {
	mu        sync.Mutex
	listener  Listener
	publisher events.Publisher
	orders    Orders
	logger    apt.Logger
	now       func() time.Time

	stage   Stage
	contact ContactInfo
	pending event.ProcessPaymentEvent
	receipt *Receipt
	subs    []*bus.Subscription
}

func NewSession(deps SessionDeps, logger apt.Logger) *Session {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Session{
		listener:  deps.Bus,
		publisher: deps.Publisher,
		orders:    deps.Orders,
		logger:    logger,
		now:       time.Now,
		stage:     StageIdle,
	}
}

// Start subscribes the session to the checkout events.
func (s *Session) Start(ctx context.Context) error {
	if s.listener == nil {
		return fmt.Errorf("checkout session not configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.subs) > 0 {
		return nil
	}

	s.subs = []*bus.Subscription{
		s.listener.Listen(event.ProcessPayment, s.handleProcessPayment),
		s.listener.Listen(event.VoicePaymentInput, s.handleVoicePaymentInput),
		s.listener.Listen(event.PaymentCompleted, s.handlePaymentCompleted),
		s.listener.Listen(event.CallEnded, s.handleCallEnded),
	}
	s.logger.Info("checkout session listening", "topics", len(s.subs))
	return nil
}

// Stop releases every subscription taken by Start.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
	s.subs = nil
	return nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// SetField stores a contact field typed by the customer.
func (s *Session) SetField(f Field, value string) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.contact.Set(f, value)
	return s.stateLocked()
}

// Confirm registers the order from the checkout form. It requires a
// non-empty order and valid contact information, then publishes the same
// completion event the voice agent's completePayment does.
func (s *Session) Confirm(ctx context.Context) (State, error) {
	current := s.orders.Current()
	if current.IsEmpty() {
		return s.State(), order.ErrEmptyOrder
	}

	s.mu.Lock()
	problems := s.contact.Validate()
	s.mu.Unlock()
	if len(problems) > 0 {
		return s.State(), ErrContactIncomplete
	}

	completed := event.PaymentCompletedEvent{
		Success:   true,
		OrderID:   current.ID.String(),
		Total:     current.Total.InexactFloat64(),
		Timestamp: s.now(),
	}
	if err := bus.PublishJSON(ctx, s.publisher, event.PaymentCompleted, completed); err != nil {
		return s.State(), err
	}

	return s.State(), nil
}

func (s *Session) handleProcessPayment(ctx context.Context, msg []byte) error {
	var evt event.ProcessPaymentEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		s.logger.Info("invalid process payment event", "error", err)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stage = StageCollecting
	s.pending = evt
	s.receipt = nil
	s.logger.Debug("checkout opened", "order_id", evt.OrderID)
	return nil
}

func (s *Session) handleVoicePaymentInput(ctx context.Context, msg []byte) error {
	var evt event.VoicePaymentInputEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		s.logger.Info("invalid payment input event", "error", err)
		return nil
	}

	f, ok := ParseField(evt.Field)
	if !ok {
		s.logger.Info("payment input for unknown field", "field", evt.Field)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.contact.Set(f, evt.Value)
	s.logger.Debug("contact field captured", "field", string(f))
	return nil
}

func (s *Session) handlePaymentCompleted(ctx context.Context, msg []byte) error {
	var evt event.PaymentCompletedEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		s.logger.Info("invalid payment completed event", "error", err)
		return nil
	}
	if !evt.Success {
		s.logger.Info("payment reported as failed", "order_id", evt.OrderID)
		return nil
	}

	registered, err := s.orders.Complete(ctx)
	if err != nil {
		s.logger.Info("nothing to register on payment completion", "order_id", evt.OrderID, "error", err)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.receipt = &Receipt{
		OrderID:      registered.ID.String(),
		Reference:    registered.Reference,
		Total:        order.FormatAmount(registered.Total),
		Contact:      s.contact,
		RegisteredAt: registered.UpdatedAt,
	}
	s.stage = StageCompleted
	s.contact = ContactInfo{}
	s.pending = event.ProcessPaymentEvent{}
	return nil
}

func (s *Session) handleCallEnded(ctx context.Context, msg []byte) error {
	s.orders.Clear(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stage = StageIdle
	s.contact = ContactInfo{}
	s.pending = event.ProcessPaymentEvent{}
	s.logger.Info("voice call ended, storefront reset")
	return nil
}

func (s *Session) stateLocked() State {
	problems := s.contact.Validate()
	return State{
		Stage:   s.stage,
		Contact: s.contact,
		Missing: s.contact.Missing(),
		Errors:  problems,
		Ready:   len(problems) == 0,
		OrderID: s.pending.OrderID,
		Total:   s.pending.TotalAmount,
		Receipt: s.receipt,
	}
}
