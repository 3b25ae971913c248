package checkout

import (
	"context"
	"sync"

	"github.com/appetiteclub/taqueria/services/storefront/internal/order"
	"github.com/shopspring/decimal"
)

// MockOrders is a mock implementation of Orders
type MockOrders struct {
	mu         sync.Mutex
	current    order.Order
	Completed  []order.Order
	ClearCalls int
}

func NewMockOrders(lines ...order.LineItem) *MockOrders {
	o := order.NewOrder(fixedNow())
	o.Reference = "ORD-123456-789"
	o.Items = append(o.Items, lines...)
	o.Recalculate()
	return &MockOrders{current: *o}
}

func (m *MockOrders) Current() order.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *MockOrders) Complete(ctx context.Context) (order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current.IsEmpty() {
		return order.Order{}, order.ErrEmptyOrder
	}
	registered := m.current
	m.Completed = append(m.Completed, registered)
	m.current = *order.NewOrder(fixedNow())
	return registered, nil
}

func (m *MockOrders) Clear(ctx context.Context) order.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearCalls++
	m.current = *order.NewOrder(fixedNow())
	return m.current
}

func (m *MockOrders) CompletedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Completed)
}

func tacoLine(qty int) order.LineItem {
	return order.LineItem{
		ID:         "taco-pastor",
		Name:       "Taco al Pastor",
		Quantity:   qty,
		Price:      decimal.NewFromInt(15),
		CategoryID: "taco",
	}
}
