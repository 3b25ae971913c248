package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/taqueria/pkg/enums/orderstatus"
	"github.com/appetiteclub/taqueria/pkg/event"
	"github.com/appetiteclub/taqueria/services/storefront/internal/catalog"
)

var (
	ErrUnknownItem     = errors.New("unknown item")
	ErrUnavailableItem = errors.New("item not available")
	ErrLineNotFound    = errors.New("line not found")
	ErrEmptyOrder      = errors.New("order is empty")
	ErrInvalidPrice    = errors.New("invalid price")
)

// ItemLookup resolves catalog identities.
type ItemLookup interface {
	ByID(id string) (catalog.Item, bool)
}

type StoreDeps struct {
	Catalog   ItemLookup
	Storage   Storage
	Publisher events.Publisher
}

// Store owns the current order and is its only writer. Every mutation
// recomputes totals, saves the serialized lines under KeyOrderDetails and
// publishes the same bytes on event.OrderDetailsUpdated.
//
// OrderDetailsUpdated handlers run while the store is locked and must not
// call back into it.
type Store struct {
	mu        sync.Mutex
	current   *Order
	catalog   ItemLookup
	storage   Storage
	publisher events.Publisher
	logger    apt.Logger
	now       func() time.Time
}

func NewStore(deps StoreDeps, logger apt.Logger) *Store {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	s := &Store{
		catalog:   deps.Catalog,
		storage:   deps.Storage,
		publisher: deps.Publisher,
		logger:    logger,
		now:       time.Now,
	}
	s.current = NewOrder(s.now())
	return s
}

func (s *Store) Start(ctx context.Context) error {
	return s.Load(ctx)
}

// Load restores the persisted order. A missing or unreadable record leaves
// the store with an empty order.
func (s *Store) Load(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}

	data, err := s.storage.Load(ctx, KeyOrderDetails)
	if err != nil {
		s.logger.Error("cannot load persisted order", "key", KeyOrderDetails, "error", err)
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	var lines []event.OrderLine
	if err := json.Unmarshal(data, &lines); err != nil {
		s.logger.Info("ignoring malformed persisted order", "key", KeyOrderDetails, "error", err)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	restored := NewOrder(s.now())
	restored.Items = Collapse(FromLines(lines))
	restored.Recalculate()
	s.current = restored

	s.logger.Info("order restored", "lines", len(restored.Items), "total", FormatAmount(restored.Total))
	return nil
}

// Current returns a copy of the current order. An empty order is a valid state.
func (s *Store) Current() Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.clone()
}

// AddItem adds quantity units of a catalog item. A line with the same item and
// instructions is incremented, capped at MaxQuantity.
func (s *Store) AddItem(ctx context.Context, id string, quantity int, instructions string) (Order, error) {
	id = strings.TrimSpace(id)
	if s.catalog == nil {
		return Order{}, fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	item, ok := s.catalog.ByID(id)
	if !ok {
		return Order{}, fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	if !item.Available {
		return Order{}, fmt.Errorf("%w: %s", ErrUnavailableItem, id)
	}
	if !catalog.ValidPrice(item.Price) {
		return Order{}, fmt.Errorf("%w: %s", ErrInvalidPrice, id)
	}

	qty, _ := ClampQuantity(quantity)
	instructions = normalizeInstructions(instructions)

	return s.mutate(ctx, func(o *Order) error {
		key := LineKey{ID: item.ID, Instructions: instructions}
		if i := o.indexOf(key); i >= 0 {
			o.Items[i].Quantity, _ = ClampQuantity(o.Items[i].Quantity + qty)
		} else {
			o.Items = append(o.Items, LineItem{
				ID:                  item.ID,
				Name:                item.Name,
				Quantity:            qty,
				Price:               item.Price,
				CategoryID:          item.Category,
				SpecialInstructions: instructions,
			})
		}
		s.logger.Debug("item added", "item_id", item.ID, "quantity", qty)
		return nil
	})
}

// RemoveItem deletes every line of the item, or only the line with the given
// instructions when they are supplied.
func (s *Store) RemoveItem(ctx context.Context, id string, instructions ...string) (Order, error) {
	m := newMatch(id, instructions)

	return s.mutate(ctx, func(o *Order) error {
		if !removeWhere(o, m) {
			return fmt.Errorf("%w: %s", ErrLineNotFound, m.id)
		}
		s.logger.Debug("item removed", "item_id", m.id)
		return nil
	})
}

// UpdateQuantity sets the quantity of the matching lines. Zero or less removes them.
func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int, instructions ...string) (Order, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, id, instructions...)
	}

	m := newMatch(id, instructions)
	qty, _ := ClampQuantity(quantity)

	return s.mutate(ctx, func(o *Order) error {
		found := false
		for i := range o.Items {
			if m.matches(o.Items[i]) {
				o.Items[i].Quantity = qty
				found = true
			}
		}
		if !found {
			return fmt.Errorf("%w: %s", ErrLineNotFound, m.id)
		}
		return nil
	})
}

// UpdateInstructions replaces the instructions of the matching lines. Lines
// that end up with the same item and instructions are merged.
func (s *Store) UpdateInstructions(ctx context.Context, id, text string, current ...string) (Order, error) {
	m := newMatch(id, current)
	text = normalizeInstructions(text)

	return s.mutate(ctx, func(o *Order) error {
		found := false
		for i := range o.Items {
			if m.matches(o.Items[i]) {
				o.Items[i].SpecialInstructions = text
				found = true
			}
		}
		if !found {
			return fmt.Errorf("%w: %s", ErrLineNotFound, m.id)
		}
		o.Items = Collapse(o.Items)
		return nil
	})
}

// Apply runs a reconciliation plan as a single mutation.
func (s *Store) Apply(ctx context.Context, plan Plan) (Order, error) {
	for _, c := range plan.Changes {
		if c.Kind != ChangeUpsert && c.Kind != ChangeRemove {
			return Order{}, fmt.Errorf("cannot apply change of kind %d", c.Kind)
		}
		if err := validateLine(c.Line); err != nil {
			return Order{}, fmt.Errorf("cannot apply %s: %w", c.Kind, err)
		}
	}

	return s.mutate(ctx, func(o *Order) error {
		if plan.Fresh {
			*o = *NewOrder(s.now())
		}
		applyChanges(o, plan.Changes)
		s.logger.Debug("order plan applied", "changes", len(plan.Changes), "fresh", plan.Fresh)
		return nil
	})
}

// Reconcile turns the current order into desired in one mutation. The diff
// is computed under the store lock, so changes made by other writers since
// the caller last read the order are never lost to a stale diff. With fresh
// set the order is rebuilt from empty.
func (s *Store) Reconcile(ctx context.Context, desired []LineItem, fresh bool) (Order, error) {
	for _, line := range desired {
		if err := validateLine(line); err != nil {
			return Order{}, fmt.Errorf("cannot reconcile: %w", err)
		}
	}

	return s.mutate(ctx, func(o *Order) error {
		if fresh {
			*o = *NewOrder(s.now())
		}
		changes := Diff(o.Items, desired)
		applyChanges(o, changes)
		s.logger.Debug("order reconciled", "changes", len(changes), "fresh", fresh)
		return nil
	})
}

func validateLine(line LineItem) error {
	if strings.TrimSpace(line.ID) == "" {
		return fmt.Errorf("line without item id")
	}
	if !catalog.ValidPrice(line.Price) {
		return fmt.Errorf("%w: %s", ErrInvalidPrice, line.ID)
	}
	return nil
}

func applyChanges(o *Order, changes []Change) {
	for _, c := range changes {
		line := c.Line
		line.SpecialInstructions = normalizeInstructions(line.SpecialInstructions)

		switch c.Kind {
		case ChangeRemove:
			removeWhere(o, match{id: line.ID, instructions: line.SpecialInstructions, scoped: true})
		case ChangeUpsert:
			line.Quantity, _ = ClampQuantity(line.Quantity)
			if i := o.indexOf(line.Key()); i >= 0 {
				o.Items[i] = line
			} else {
				o.Items = append(o.Items, line)
			}
		}
	}
}

// Clear empties the order and erases the persisted record.
func (s *Store) Clear(ctx context.Context) Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reset(ctx)
}

// Complete registers the current order in the local history and starts a new
// empty one. It returns the registered order.
func (s *Store) Complete(ctx context.Context) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.IsEmpty() {
		return Order{}, ErrEmptyOrder
	}

	s.current.Recalculate()
	s.current.Status = orderstatus.Statuses.Registered.Code()
	s.current.UpdatedAt = s.now()
	registered := s.current.clone()

	s.appendHistory(ctx, registered)
	s.reset(ctx)

	s.logger.Info("order registered", "order_id", registered.ID.String(), "reference", registered.Reference, "total", FormatAmount(registered.Total))
	return registered, nil
}

// History returns the registered orders, oldest first.
func (s *Store) History(ctx context.Context) ([]Order, error) {
	if s.storage == nil {
		return []Order{}, nil
	}

	data, err := s.storage.Load(ctx, KeyHistory)
	if err != nil {
		return nil, fmt.Errorf("cannot load order history: %w", err)
	}

	orders := []Order{}
	if len(data) == 0 {
		return orders, nil
	}
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("cannot decode order history: %w", err)
	}
	return orders, nil
}

func (s *Store) appendHistory(ctx context.Context, o Order) {
	if s.storage == nil {
		return
	}

	orders, err := s.History(ctx)
	if err != nil {
		s.logger.Error("history unreadable, starting a new one", "error", err)
		orders = []Order{}
	}
	orders = append(orders, o)

	data, err := json.Marshal(orders)
	if err != nil {
		s.logger.Error("cannot encode order history", "error", err)
		return
	}
	if err := s.storage.Save(ctx, KeyHistory, data); err != nil {
		s.logger.Error("cannot persist order history", "key", KeyHistory, "error", err)
	}
}

func (s *Store) reset(ctx context.Context) Order {
	s.current = NewOrder(s.now())

	if s.storage != nil {
		if err := s.storage.Delete(ctx, KeyOrderDetails); err != nil {
			s.logger.Error("cannot erase persisted order", "key", KeyOrderDetails, "error", err)
		}
	}

	s.publish(ctx, []byte("[]"))
	s.logger.Debug("order cleared")
	return s.current.clone()
}

func removeWhere(o *Order, m match) bool {
	kept := make([]LineItem, 0, len(o.Items))
	removed := false
	for _, line := range o.Items {
		if m.matches(line) {
			removed = true
			continue
		}
		kept = append(kept, line)
	}
	o.Items = kept
	return removed
}

// mutate runs fn on a working copy of the current order. The copy replaces
// the current order only when fn succeeds and the result serializes; it is
// then persisted and published as one snapshot.
func (s *Store) mutate(ctx context.Context, fn func(o *Order) error) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.clone()
	if err := fn(&next); err != nil {
		return Order{}, err
	}
	next.Recalculate()
	next.UpdatedAt = s.now()

	data, err := json.Marshal(next.Lines())
	if err != nil {
		s.logger.Error("cannot serialize order, change discarded", "error", err)
		return Order{}, fmt.Errorf("cannot serialize order: %w", err)
	}

	s.current = &next
	if s.storage != nil {
		if err := s.storage.Save(ctx, KeyOrderDetails, data); err != nil {
			s.logger.Error("cannot persist order", "key", KeyOrderDetails, "error", err)
		}
	}
	s.publish(ctx, data)
	return next.clone(), nil
}

func (s *Store) publish(ctx context.Context, data []byte) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event.OrderDetailsUpdated, data); err != nil {
		s.logger.Error("cannot publish order update", "topic", event.OrderDetailsUpdated, "error", err)
	}
}

type match struct {
	id           string
	instructions string
	scoped       bool
}

func newMatch(id string, instructions []string) match {
	m := match{id: strings.TrimSpace(id)}
	if len(instructions) > 0 {
		m.instructions = normalizeInstructions(instructions[0])
		m.scoped = true
	}
	return m
}

func (m match) matches(line LineItem) bool {
	if line.ID != m.id {
		return false
	}
	return !m.scoped || normalizeInstructions(line.SpecialInstructions) == m.instructions
}
