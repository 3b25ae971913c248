package tools

import (
	"context"
	"fmt"

	"github.com/appetiteclub/taqueria/pkg/event"
	"github.com/appetiteclub/taqueria/services/storefront/internal/checkout"
	"github.com/appetiteclub/taqueria/services/storefront/internal/order"
)

func (r *ToolRegistry) processPayment(ctx context.Context, p Params) string {
	current := r.orders.Current()
	if current.IsEmpty() {
		return "No hay pedido activo para procesar el pago."
	}

	evt := event.ProcessPaymentEvent{
		Timestamp:   r.now(),
		OrderID:     current.ID.String(),
		TotalAmount: current.Total.InexactFloat64(),
	}
	if err := r.publish(ctx, event.ProcessPayment, evt); err != nil {
		r.logger.Error("cannot start payment", "order_id", evt.OrderID, "error", err)
		return "Error al procesar el pago del pedido."
	}

	return fmt.Sprintf("Procesamiento de pago iniciado para el pedido #%s. Total: %s MXN", current.Reference, order.FormatAmount(current.Total))
}

// paymentInput forwards a contact field dictated by the customer to the
// checkout session.
func (r *ToolRegistry) paymentInput(ctx context.Context, p Params) string {
	raw := p.String("field")
	if raw == "" {
		return "Se requiere especificar un campo (name, email, phone)"
	}

	field, ok := checkout.ParseField(raw)
	if !ok {
		return fmt.Sprintf("Campo no reconocido: %s. Campos válidos: name, email, phone", raw)
	}

	value := p.String("value")
	if value == "" {
		return fmt.Sprintf("Se requiere proporcionar un valor para el campo %s", field)
	}

	evt := event.VoicePaymentInputEvent{Field: string(field), Value: value}
	if err := r.publish(ctx, event.VoicePaymentInput, evt); err != nil {
		r.logger.Error("cannot forward contact field", "field", string(field), "error", err)
		return "Error al procesar datos de pago."
	}

	return fmt.Sprintf("Datos de %s (%q) recibidos y procesados", field, value)
}

// completePayment asks the storefront to register the current order. The
// reference is read before publishing since registration starts a new order.
func (r *ToolRegistry) completePayment(ctx context.Context, p Params) string {
	current := r.orders.Current()
	if current.IsEmpty() {
		return "No hay pedido activo para completar."
	}

	evt := event.PaymentCompletedEvent{
		Success:   true,
		OrderID:   current.ID.String(),
		Total:     current.Total.InexactFloat64(),
		Timestamp: r.now(),
	}
	if err := r.publish(ctx, event.PaymentCompleted, evt); err != nil {
		r.logger.Error("cannot complete payment", "order_id", evt.OrderID, "error", err)
		return "Error al completar el registro del pedido."
	}

	return fmt.Sprintf("Pedido #%s registrado con éxito. Total: %s MXN", current.Reference, order.FormatAmount(current.Total))
}
