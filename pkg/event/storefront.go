package event

import "time"

// Storefront bus topics. The names are shared with the browser UI and the
// hosted voice agent, so they keep the camelCase spelling the page listens for.
const (
	// OrderDetailsUpdated carries the serialized line items after every order mutation.
	OrderDetailsUpdated = "orderDetailsUpdated"
	// HighlightProduct asks the menu to emphasize a product without touching the order.
	HighlightProduct = "highlightProduct"
	// ProcessPayment opens the checkout contact collection.
	ProcessPayment = "processPayment"
	// VoicePaymentInput delivers a contact field captured by the voice agent.
	VoicePaymentInput = "voicePaymentInput"
	// PaymentCompleted registers the current order and resets the storefront.
	PaymentCompleted = "paymentCompleted"
	// CallEnded signals that the voice session finished.
	CallEnded = "callEnded"
)

// Topics lists every storefront topic in a stable order.
var Topics = []string{
	OrderDetailsUpdated,
	HighlightProduct,
	ProcessPayment,
	VoicePaymentInput,
	PaymentCompleted,
	CallEnded,
}

// OrderLine is the wire form of a line item, as stored locally and as
// published in OrderDetailsUpdated.
type OrderLine struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	Quantity            int     `json:"quantity"`
	Price               float64 `json:"price"`
	CategoryID          string  `json:"categoryId,omitempty"`
	SpecialInstructions string  `json:"specialInstructions,omitempty"`
}

type HighlightProductEvent struct {
	ProductID  string `json:"productId"`
	Name       string `json:"name,omitempty"`
	CategoryID string `json:"categoryId,omitempty"`
}

type ProcessPaymentEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	OrderID     string    `json:"orderId"`
	TotalAmount float64   `json:"totalAmount"`
}

type VoicePaymentInputEvent struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type PaymentCompletedEvent struct {
	Success   bool      `json:"success"`
	OrderID   string    `json:"orderId"`
	Total     float64   `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}
