package tools

import (
	"context"
	"fmt"

	"github.com/appetiteclub/taqueria/services/storefront/internal/catalog"
	"github.com/appetiteclub/taqueria/services/storefront/internal/order"
)

// updateOrder receives the full item set the caller believes the order holds
// and reconciles the current order against it. Items missing from the call
// are removed, new ones are appended and changed ones are updated, all in a
// single store mutation diffed against the order as it is at that moment. With clearOrder or clear set, the call starts from
// an empty order.
func (r *ToolRegistry) updateOrder(ctx context.Context, p Params) string {
	if p == nil {
		return "Error: Parámetros de pedido inválidos"
	}

	raw, err := orderItems(p)
	if err != nil || len(raw) == 0 {
		r.logger.Info("updateOrder without items", "error", err)
		return "No se encontraron ítems en los parámetros"
	}

	desired, capped := r.resolveItems(raw)
	if len(desired) == 0 {
		return "Error: No hay productos válidos en la orden"
	}

	fresh := p.Bool("clearOrder") || p.Bool("clear")
	updated, err := r.orders.Reconcile(ctx, desired, fresh)
	if err != nil {
		r.logger.Error("cannot apply order update", "error", err)
		return fmt.Sprintf("Error al actualizar el pedido: %v", err)
	}

	r.logger.Info("order updated by voice agent", "lines", len(updated.Items), "fresh", fresh, "total", order.FormatAmount(updated.Total))

	result := fmt.Sprintf("Pedido actualizado. Total: %s MXN", order.FormatAmount(updated.Total))
	if capped > 0 {
		result += fmt.Sprintf(" (la cantidad máxima por producto es %d)", order.MaxQuantity)
	}
	return result
}

// resolveItems turns the raw entries into order lines. Names are matched
// against the catalog; unmatched names get a synthesized identity so the
// batch is never rejected because of one entry.
func (r *ToolRegistry) resolveItems(raw []interface{}) ([]order.LineItem, int) {
	lines := make([]order.LineItem, 0, len(raw))
	capped := 0

	for _, entry := range raw {
		arg, wasCapped, ok := normalizeItem(entry)
		if !ok {
			r.logger.Info("dropping invalid order entry", "entry", entry)
			continue
		}
		if wasCapped {
			capped++
			r.logger.Info("quantity capped", "name", arg.Name, "max", order.MaxQuantity)
		}

		line, err := r.resolveItem(arg)
		if err != nil {
			r.logger.Info("dropping order entry", "name", arg.Name, "error", err)
			continue
		}
		lines = append(lines, line)
	}

	return lines, capped
}

func (r *ToolRegistry) resolveItem(arg ItemArg) (order.LineItem, error) {
	line := order.LineItem{
		ID:                  arg.ID,
		Name:                arg.Name,
		Quantity:            arg.Quantity,
		Price:               arg.Price,
		CategoryID:          arg.CategoryID,
		SpecialInstructions: arg.SpecialInstructions,
	}

	item, found := r.lookup(arg)
	if !found {
		if line.ID == "" {
			line.ID = catalog.Slug(arg.Name)
		}
		if line.Name == "" {
			line.Name = line.ID
		}
		return line, nil
	}

	if !item.Available {
		return order.LineItem{}, fmt.Errorf("%w: %s", order.ErrUnavailableItem, item.ID)
	}

	line.ID = item.ID
	line.Name = item.Name
	line.CategoryID = item.Category
	return line, nil
}

func (r *ToolRegistry) lookup(arg ItemArg) (catalog.Item, bool) {
	if r.catalog == nil {
		return catalog.Item{}, false
	}
	if arg.ID != "" {
		if item, ok := r.catalog.ByID(arg.ID); ok {
			return item, true
		}
	}
	if arg.Name != "" {
		return r.catalog.Search(arg.Name)
	}
	return catalog.Item{}, false
}
