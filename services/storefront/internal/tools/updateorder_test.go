package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/appetiteclub/taqueria/pkg/event"
	"github.com/appetiteclub/taqueria/services/storefront/internal/catalog"
	"github.com/appetiteclub/taqueria/services/storefront/internal/localstore"
	"github.com/appetiteclub/taqueria/services/storefront/internal/order"
)

func TestUpdateOrderResendScenario(t *testing.T) {
	r, store, pub := newTestRegistry(t)
	ctx := context.Background()

	got := r.Invoke(ctx, "updateOrder", []byte(`{"orderDetailsData":[{"name":"Taco al Pastor","quantity":2,"price":15.00}]}`))
	if got != "Pedido actualizado. Total: 33.00 MXN" {
		t.Fatalf("first call = %q", got)
	}
	current := store.Current()
	if len(current.Items) != 1 || current.Items[0].Quantity != 2 {
		t.Fatalf("items after first call = %+v", current.Items)
	}
	if current.Subtotal.StringFixed(2) != "30.00" {
		t.Errorf("subtotal = %s, want 30.00", current.Subtotal.StringFixed(2))
	}

	got = r.Invoke(ctx, "updateOrder", []byte(`{"orderDetailsData":[
		{"name":"Taco al Pastor","quantity":2,"price":15.00},
		{"name":"Agua de Horchata","quantity":1,"price":25.00}
	]}`))
	if got != "Pedido actualizado. Total: 60.50 MXN" {
		t.Fatalf("second call = %q", got)
	}

	current = store.Current()
	if len(current.Items) != 2 {
		t.Fatalf("lines = %d, want 2", len(current.Items))
	}
	if current.Items[0].ID != "taco-pastor" || current.Items[0].Quantity != 2 {
		t.Errorf("first line = %+v", current.Items[0])
	}
	if current.Items[1].ID != "agua-horchata" {
		t.Errorf("second line id = %s, want agua-horchata", current.Items[1].ID)
	}
	if current.Subtotal.StringFixed(2) != "55.00" {
		t.Errorf("subtotal = %s, want 55.00", current.Subtotal.StringFixed(2))
	}
	if n := len(pub.ByTopic(event.OrderDetailsUpdated)); n != 0 {
		t.Errorf("tool layer published %d order updates, the store owns that topic", n)
	}
}

func TestUpdateOrderRemovesItemsNotResent(t *testing.T) {
	r, store, _ := newTestRegistry(t)
	ctx := context.Background()

	r.Invoke(ctx, "updateOrder", []byte(`{"orderDetailsData":[{"name":"Guacamole","quantity":1,"price":35},{"name":"Refresco","quantity":2,"price":20}]}`))
	r.Invoke(ctx, "updateOrder", []byte(`{"orderDetailsData":[{"name":"Refresco","quantity":3,"price":20}]}`))

	current := store.Current()
	if len(current.Items) != 1 {
		t.Fatalf("lines = %d, want 1", len(current.Items))
	}
	if current.Items[0].ID != "refresco" || current.Items[0].Quantity != 3 {
		t.Errorf("line = %+v, want refresco x3", current.Items[0])
	}
}

func TestUpdateOrderFailuresLeaveOrderUntouched(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "emptyBatch",
			raw:  `{"orderDetailsData":[]}`,
			want: "No se encontraron ítems en los parámetros",
		},
		{
			name: "noItemParameters",
			raw:  `{"note":"hola"}`,
			want: "No se encontraron ítems en los parámetros",
		},
		{
			name: "unparsableString",
			raw:  `{"orderDetailsData":"not json"}`,
			want: "No se encontraron ítems en los parámetros",
		},
		{
			name: "noValidEntries",
			raw:  `{"orderDetailsData":[{"quantity":2},"taco",42]}`,
			want: "Error: No hay productos válidos en la orden",
		},
		{
			name: "invalidParameters",
			raw:  `not json at all`,
			want: "Error: Parámetros de pedido inválidos",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, store, _ := newTestRegistry(t)
			ctx := context.Background()
			if _, err := store.AddItem(ctx, "quesadilla", 1, ""); err != nil {
				t.Fatalf("AddItem() error = %v", err)
			}
			before := store.Current()

			if got := r.Invoke(ctx, "updateOrder", []byte(tt.raw)); got != tt.want {
				t.Errorf("Invoke() = %q, want %q", got, tt.want)
			}

			after := store.Current()
			if len(after.Items) != 1 || after.Items[0].ID != "quesadilla" {
				t.Errorf("order changed: %+v", after.Items)
			}
			if !after.Total.Equal(before.Total) {
				t.Errorf("total = %s, want %s", after.Total, before.Total)
			}
		})
	}
}

func TestUpdateOrderWireShapes(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantIDs   []string
		wantTotal string
	}{
		{
			name:      "jsonString",
			raw:       `{"orderDetailsData":"[{\"name\":\"Refresco\",\"quantity\":1,\"price\":20}]"}`,
			wantIDs:   []string{"refresco"},
			wantTotal: "22.00",
		},
		{
			name:      "orderDataWrapper",
			raw:       `{"orderData":{"items":[{"name":"Quesadilla","quantity":1,"price":30}]}}`,
			wantIDs:   []string{"quesadilla"},
			wantTotal: "33.00",
		},
		{
			name:      "orderDataSingleObject",
			raw:       `{"orderData":{"name":"Guacamole","quantity":1,"price":35}}`,
			wantIDs:   []string{"guacamole"},
			wantTotal: "38.50",
		},
		{
			name:      "orderDataKeyedMap",
			raw:       `{"orderData":{"taco-bistec":{"name":"Taco de Bistec","quantity":2,"price":18}}}`,
			wantIDs:   []string{"taco-bistec"},
			wantTotal: "39.60",
		},
		{
			name:      "orderDataJSONString",
			raw:       `{"orderData":"{\"items\":[{\"name\":\"Refresco\",\"quantity\":2,\"price\":20}]}"}`,
			wantIDs:   []string{"refresco"},
			wantTotal: "44.00",
		},
		{
			name:      "anyArrayParameter",
			raw:       `{"pedido":[{"name":"Queso Extra","quantity":1,"price":15}]}`,
			wantIDs:   []string{"queso-extra"},
			wantTotal: "16.50",
		},
		{
			name:      "bareArrayBody",
			raw:       `[{"name":"Refresco","quantity":1,"price":20}]`,
			wantIDs:   []string{"refresco"},
			wantTotal: "22.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, store, _ := newTestRegistry(t)

			r.Invoke(context.Background(), "updateOrder", []byte(tt.raw))

			current := store.Current()
			if len(current.Items) != len(tt.wantIDs) {
				t.Fatalf("lines = %d, want %d (%+v)", len(current.Items), len(tt.wantIDs), current.Items)
			}
			for i, id := range tt.wantIDs {
				if current.Items[i].ID != id {
					t.Errorf("line %d id = %s, want %s", i, current.Items[i].ID, id)
				}
			}
			if got := current.Total.StringFixed(2); got != tt.wantTotal {
				t.Errorf("total = %s, want %s", got, tt.wantTotal)
			}
		})
	}
}

func TestUpdateOrderLenientItems(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		wantID       string
		wantQuantity int
		wantPrice    string
	}{
		{
			name:         "quantityCapped",
			raw:          `{"orderDetailsData":[{"name":"Taco al Pastor","quantity":25,"price":15}]}`,
			wantID:       "taco-pastor",
			wantQuantity: 10,
			wantPrice:    "15.00",
		},
		{
			name:         "quantityAsString",
			raw:          `{"orderDetailsData":[{"name":"Taco al Pastor","quantity":"3","price":15}]}`,
			wantID:       "taco-pastor",
			wantQuantity: 3,
			wantPrice:    "15.00",
		},
		{
			name:         "quantityInvalid",
			raw:          `{"orderDetailsData":[{"name":"Taco al Pastor","quantity":"muchos","price":15}]}`,
			wantID:       "taco-pastor",
			wantQuantity: 1,
			wantPrice:    "15.00",
		},
		{
			name:         "priceMissing",
			raw:          `{"orderDetailsData":[{"name":"Refresco","quantity":1}]}`,
			wantID:       "refresco",
			wantQuantity: 1,
			wantPrice:    "0.00",
		},
		{
			name:         "priceNotNumeric",
			raw:          `{"orderDetailsData":[{"name":"Refresco","quantity":1,"price":"veinte"}]}`,
			wantID:       "refresco",
			wantQuantity: 1,
			wantPrice:    "0.00",
		},
		{
			name:         "priceOverflow",
			raw:          `{"orderDetailsData":[{"name":"Guacamole","quantity":1,"price":"1e400"}]}`,
			wantID:       "guacamole",
			wantQuantity: 1,
			wantPrice:    "0.00",
		},
		{
			name:         "priceAboveMaximum",
			raw:          `{"orderDetailsData":[{"name":"Guacamole","quantity":1,"price":2000000}]}`,
			wantID:       "guacamole",
			wantQuantity: 1,
			wantPrice:    "0.00",
		},
		{
			name:         "caseAndAccentInsensitiveName",
			raw:          `{"orderDetailsData":[{"name":"agua de jamaica","quantity":1,"price":25}]}`,
			wantID:       "agua-jamaica",
			wantQuantity: 1,
			wantPrice:    "25.00",
		},
		{
			name:         "substringName",
			raw:          `{"orderDetailsData":[{"name":"cebollitas","quantity":1,"price":25}]}`,
			wantID:       "cebollitas",
			wantQuantity: 1,
			wantPrice:    "25.00",
		},
		{
			name:         "unknownNameSlug",
			raw:          `{"orderDetailsData":[{"name":"Taco de Birria","quantity":2,"price":22}]}`,
			wantID:       "product-taco-de-birria",
			wantQuantity: 2,
			wantPrice:    "22.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, store, _ := newTestRegistry(t)

			r.Invoke(context.Background(), "updateOrder", []byte(tt.raw))

			current := store.Current()
			if len(current.Items) != 1 {
				t.Fatalf("lines = %d, want 1", len(current.Items))
			}
			line := current.Items[0]
			if line.ID != tt.wantID {
				t.Errorf("id = %s, want %s", line.ID, tt.wantID)
			}
			if line.Quantity != tt.wantQuantity {
				t.Errorf("quantity = %d, want %d", line.Quantity, tt.wantQuantity)
			}
			if got := line.Price.StringFixed(2); got != tt.wantPrice {
				t.Errorf("price = %s, want %s", got, tt.wantPrice)
			}
		})
	}
}

func TestUpdateOrderClearFlag(t *testing.T) {
	r, store, _ := newTestRegistry(t)
	ctx := context.Background()
	_, _ = store.AddItem(ctx, "guacamole", 1, "")
	firstID := store.Current().ID

	r.Invoke(ctx, "updateOrder", []byte(`{"clearOrder":true,"orderDetailsData":[{"name":"Refresco","quantity":1,"price":20}]}`))

	current := store.Current()
	if len(current.Items) != 1 || current.Items[0].ID != "refresco" {
		t.Fatalf("items = %+v, want only refresco", current.Items)
	}
	if current.ID == firstID {
		t.Error("clearOrder should start a new order")
	}
}

func TestUpdateOrderSpecialInstructionsSplitLines(t *testing.T) {
	r, store, _ := newTestRegistry(t)

	r.Invoke(context.Background(), "updateOrder", []byte(`{"orderDetailsData":[
		{"name":"Taco al Pastor","quantity":2,"price":15},
		{"name":"Taco al Pastor","quantity":1,"price":15,"specialInstructions":"sin cebolla"},
		{"name":"Taco al Pastor","quantity":1,"price":15}
	]}`))

	current := store.Current()
	if len(current.Items) != 2 {
		t.Fatalf("lines = %d, want 2", len(current.Items))
	}
	if current.Items[0].Quantity != 3 {
		t.Errorf("plain line quantity = %d, want 3", current.Items[0].Quantity)
	}
	if current.Items[1].SpecialInstructions != "sin cebolla" {
		t.Errorf("second line instructions = %q", current.Items[1].SpecialInstructions)
	}
}

func TestUpdateOrderOverflowPriceKeepsRecordInSync(t *testing.T) {
	ctx := context.Background()
	storage := localstore.NewMemoryStore()
	storePub := NewMockPublisher()
	cat := catalog.New(catalog.Defaults())
	store := order.NewStore(order.StoreDeps{Catalog: cat, Storage: storage, Publisher: storePub}, nil)
	r := NewToolRegistry(Deps{Catalog: cat, Orders: store, Publisher: NewMockPublisher()}, time.Second, nil)

	if _, err := store.AddItem(ctx, "taco-pastor", 2, ""); err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}

	got := r.Invoke(ctx, "updateOrder", []byte(`{"orderDetailsData":[{"name":"Taco al Pastor","quantity":2,"price":15},{"name":"Guacamole","quantity":1,"price":"1e400"}]}`))
	if got != "Pedido actualizado. Total: 33.00 MXN" {
		t.Errorf("updateOrder = %q", got)
	}

	current := store.Current()
	if len(current.Items) != 2 {
		t.Fatalf("lines = %d, want 2", len(current.Items))
	}
	if n := len(storePub.ByTopic(event.OrderDetailsUpdated)); n != 2 {
		t.Errorf("order updates published = %d, want 2", n)
	}

	data, err := storage.Load(ctx, order.KeyOrderDetails)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	var persisted []event.OrderLine
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatalf("persisted record is not valid JSON: %v", err)
	}
	if len(persisted) != 2 {
		t.Errorf("persisted lines = %d, want 2", len(persisted))
	}

	if got := r.Invoke(ctx, "processPayment", nil); got == "Error al procesar el pago del pedido." {
		t.Errorf("processPayment failed after an overflowing price")
	}
}
