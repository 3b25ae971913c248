package order

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/appetiteclub/taqueria/pkg/enums/orderstatus"
	"github.com/appetiteclub/taqueria/pkg/event"
	"github.com/appetiteclub/taqueria/services/storefront/internal/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MinQuantity = 1
	MaxQuantity = 10
)

// TaxRate is applied to the subtotal of every order.
var TaxRate = decimal.New(10, -2)

// LineItem is one row of the order. Name, price and category are copied from
// the catalog when the line is created so later catalog changes do not alter it.
type LineItem struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Quantity            int             `json:"quantity"`
	Price               decimal.Decimal `json:"price"`
	CategoryID          string          `json:"categoryId,omitempty"`
	SpecialInstructions string          `json:"specialInstructions,omitempty"`
}

func (l LineItem) Amount() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l LineItem) Key() LineKey {
	return LineKey{ID: l.ID, Instructions: normalizeInstructions(l.SpecialInstructions)}
}

// LineKey identifies a line for deduplication: the same product with
// different instructions is a different line.
type LineKey struct {
	ID           string
	Instructions string
}

type Order struct {
	ID        uuid.UUID       `json:"id"`
	Reference string          `json:"reference"`
	Items     []LineItem      `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func NewOrder(now time.Time) *Order {
	return &Order{
		ID:        uuid.New(),
		Reference: NewReference(now),
		Items:     []LineItem{},
		Status:    orderstatus.Statuses.Pending.Code(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewReference returns the short order reference read back to the customer,
// e.g. ORD-123456-042.
func NewReference(now time.Time) string {
	ms := fmt.Sprintf("%d", now.UnixMilli())
	if len(ms) > 6 {
		ms = ms[len(ms)-6:]
	}
	return fmt.Sprintf("ORD-%s-%03d", ms, rand.IntN(1000))
}

func (o *Order) IsEmpty() bool {
	return len(o.Items) == 0
}

// Recalculate derives subtotal, tax and total from the lines.
func (o *Order) Recalculate() {
	subtotal := decimal.Zero
	for _, line := range o.Items {
		subtotal = subtotal.Add(line.Amount())
	}
	o.Subtotal = subtotal
	o.Tax = subtotal.Mul(TaxRate)
	o.Total = subtotal.Add(o.Tax)
}

func (o *Order) ItemCount() int {
	n := 0
	for _, line := range o.Items {
		n += line.Quantity
	}
	return n
}

func (o *Order) indexOf(key LineKey) int {
	for i, line := range o.Items {
		if line.Key() == key {
			return i
		}
	}
	return -1
}

func (o Order) clone() Order {
	items := make([]LineItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}

// Lines returns the wire form of the order lines.
func (o *Order) Lines() []event.OrderLine {
	lines := make([]event.OrderLine, 0, len(o.Items))
	for _, item := range o.Items {
		lines = append(lines, event.OrderLine{
			ID:                  item.ID,
			Name:                item.Name,
			Quantity:            item.Quantity,
			Price:               item.Price.InexactFloat64(),
			CategoryID:          item.CategoryID,
			SpecialInstructions: item.SpecialInstructions,
		})
	}
	return lines
}

// FromLines rebuilds line items from their wire form. Lines without identity
// and name are dropped; quantities are clamped.
func FromLines(lines []event.OrderLine) []LineItem {
	items := make([]LineItem, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line.ID) == "" && strings.TrimSpace(line.Name) == "" {
			continue
		}
		id := strings.TrimSpace(line.ID)
		if id == "" {
			id = catalog.Slug(line.Name)
		}
		qty, _ := ClampQuantity(line.Quantity)
		price := decimal.NewFromFloat(line.Price)
		if !catalog.ValidPrice(price) {
			price = decimal.Zero
		}
		items = append(items, LineItem{
			ID:                  id,
			Name:                line.Name,
			Quantity:            qty,
			Price:               price,
			CategoryID:          line.CategoryID,
			SpecialInstructions: normalizeInstructions(line.SpecialInstructions),
		})
	}
	return items
}

// ClampQuantity bounds q to [MinQuantity, MaxQuantity] and reports whether it
// had to change it.
func ClampQuantity(q int) (int, bool) {
	switch {
	case q < MinQuantity:
		return MinQuantity, true
	case q > MaxQuantity:
		return MaxQuantity, true
	default:
		return q, false
	}
}

// FormatAmount renders a money amount with two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func normalizeInstructions(s string) string {
	return strings.TrimSpace(s)
}
