package order

import (
	"regexp"
	"testing"
	"time"

	"github.com/appetiteclub/taqueria/pkg/event"
	"github.com/shopspring/decimal"
)

func line(id string, qty int, price, instructions string) LineItem {
	return LineItem{
		ID:                  id,
		Name:                id,
		Quantity:            qty,
		Price:               decimal.RequireFromString(price),
		SpecialInstructions: instructions,
	}
}

func TestNewOrder(t *testing.T) {
	now := time.Date(2025, 5, 1, 13, 0, 0, 0, time.UTC)
	o := NewOrder(now)

	if !o.IsEmpty() {
		t.Error("NewOrder() should be empty")
	}
	if o.Status != "pending" {
		t.Errorf("NewOrder() status = %q, want pending", o.Status)
	}
	if !o.Total.IsZero() {
		t.Errorf("NewOrder() total = %s, want 0", o.Total)
	}
	if o.Items == nil {
		t.Error("NewOrder() items should be an empty slice, not nil")
	}
}

func TestNewReference(t *testing.T) {
	ref := NewReference(time.UnixMilli(1714568400123))
	if !regexp.MustCompile(`^ORD-400123-\d{3}$`).MatchString(ref) {
		t.Errorf("NewReference() = %q, want ORD-400123-NNN", ref)
	}
}

func TestOrderRecalculate(t *testing.T) {
	tests := []struct {
		name         string
		items        []LineItem
		wantSubtotal string
		wantTax      string
		wantTotal    string
	}{
		{
			name:         "empty",
			wantSubtotal: "0.00",
			wantTax:      "0.00",
			wantTotal:    "0.00",
		},
		{
			name:         "singleLine",
			items:        []LineItem{line("taco-pastor", 2, "15.00", "")},
			wantSubtotal: "30.00",
			wantTax:      "3.00",
			wantTotal:    "33.00",
		},
		{
			name: "twoLines",
			items: []LineItem{
				line("taco-pastor", 2, "15.00", ""),
				line("agua-horchata", 1, "25.00", ""),
			},
			wantSubtotal: "55.00",
			wantTax:      "5.50",
			wantTotal:    "60.50",
		},
		{
			name:         "centavos",
			items:        []LineItem{line("product-tamal", 3, "15.55", "")},
			wantSubtotal: "46.65",
			wantTax:      "4.67",
			wantTotal:    "51.32",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOrder(time.Now())
			o.Items = tt.items
			o.Recalculate()

			if got := FormatAmount(o.Subtotal); got != tt.wantSubtotal {
				t.Errorf("Subtotal = %s, want %s", got, tt.wantSubtotal)
			}
			if got := FormatAmount(o.Tax); got != tt.wantTax {
				t.Errorf("Tax = %s, want %s", got, tt.wantTax)
			}
			if got := FormatAmount(o.Total); got != tt.wantTotal {
				t.Errorf("Total = %s, want %s", got, tt.wantTotal)
			}
			if !o.Total.Equal(o.Subtotal.Add(o.Subtotal.Mul(TaxRate))) {
				t.Errorf("Total %s != Subtotal + 10%%", o.Total)
			}
		})
	}
}

func TestClampQuantity(t *testing.T) {
	tests := []struct {
		name        string
		input       int
		want        int
		wantClamped bool
	}{
		{name: "belowRange", input: -3, want: 1, wantClamped: true},
		{name: "zero", input: 0, want: 1, wantClamped: true},
		{name: "inRange", input: 4, want: 4},
		{name: "upperBound", input: 10, want: 10},
		{name: "aboveRange", input: 25, want: 10, wantClamped: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, clamped := ClampQuantity(tt.input)
			if got != tt.want || clamped != tt.wantClamped {
				t.Errorf("ClampQuantity(%d) = %d, %v, want %d, %v", tt.input, got, clamped, tt.want, tt.wantClamped)
			}
		})
	}
}

func TestFromLines(t *testing.T) {
	lines := []event.OrderLine{
		{ID: "taco-pastor", Name: "Taco al Pastor", Quantity: 14, Price: 15},
		{Name: "Tamal Verde", Quantity: 1, Price: 22.5, SpecialInstructions: "  sin crema "},
		{Quantity: 2, Price: 10},
		{ID: "refresco", Name: "Refresco", Quantity: 1, Price: -20},
	}

	items := FromLines(lines)
	if len(items) != 3 {
		t.Fatalf("FromLines() returned %d items, want 3", len(items))
	}
	if items[0].Quantity != 10 {
		t.Errorf("quantity = %d, want clamped 10", items[0].Quantity)
	}
	if items[1].ID != "product-tamal-verde" {
		t.Errorf("synthesized id = %q, want product-tamal-verde", items[1].ID)
	}
	if items[1].SpecialInstructions != "sin crema" {
		t.Errorf("instructions = %q, want trimmed", items[1].SpecialInstructions)
	}
	if !items[2].Price.IsZero() {
		t.Errorf("negative price = %s, want 0", items[2].Price)
	}
}

func TestCollapse(t *testing.T) {
	got := Collapse([]LineItem{
		line("taco-pastor", 6, "15", ""),
		line("refresco", 1, "20", ""),
		line("taco-pastor", 7, "15", " "),
		line("taco-pastor", 1, "15", "sin piña"),
	})

	if len(got) != 3 {
		t.Fatalf("Collapse() returned %d lines, want 3", len(got))
	}
	if got[0].ID != "taco-pastor" || got[0].Quantity != 10 {
		t.Errorf("first line = %s x%d, want taco-pastor x10", got[0].ID, got[0].Quantity)
	}
	if got[2].SpecialInstructions != "sin piña" {
		t.Errorf("third line instructions = %q, want sin piña", got[2].SpecialInstructions)
	}
}

func TestDiff(t *testing.T) {
	current := []LineItem{
		line("taco-pastor", 2, "15", ""),
		line("refresco", 1, "20", ""),
	}

	tests := []struct {
		name    string
		desired []LineItem
		want    []ChangeKind
	}{
		{
			name:    "resendUnchanged",
			desired: current,
			want:    nil,
		},
		{
			name: "addNewLine",
			desired: []LineItem{
				line("taco-pastor", 2, "15", ""),
				line("refresco", 1, "20", ""),
				line("guacamole", 1, "35", ""),
			},
			want: []ChangeKind{ChangeUpsert},
		},
		{
			name: "dropAndChange",
			desired: []LineItem{
				line("taco-pastor", 3, "15", ""),
			},
			want: []ChangeKind{ChangeRemove, ChangeUpsert},
		},
		{
			name: "newInstructionsIsNewLine",
			desired: []LineItem{
				line("taco-pastor", 2, "15", "con todo"),
				line("refresco", 1, "20", ""),
			},
			want: []ChangeKind{ChangeRemove, ChangeUpsert},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes := Diff(current, tt.desired)
			if len(changes) != len(tt.want) {
				t.Fatalf("Diff() = %d changes, want %d", len(changes), len(tt.want))
			}
			for i, c := range changes {
				if c.Kind != tt.want[i] {
					t.Errorf("change[%d] = %s, want %s", i, c.Kind, tt.want[i])
				}
			}
		})
	}
}
