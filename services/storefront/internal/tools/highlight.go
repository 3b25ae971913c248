package tools

import (
	"context"
	"fmt"

	"github.com/appetiteclub/taqueria/pkg/event"
	"github.com/appetiteclub/taqueria/services/storefront/internal/catalog"
)

// highlightProduct points the menu at a product. It never touches the order.
func (r *ToolRegistry) highlightProduct(ctx context.Context, p Params) string {
	productID := p.String("productId")
	productName := p.String("productName")
	if productID == "" && productName == "" {
		return "Se requiere el ID o el nombre del producto para resaltarlo."
	}

	item, ok := r.findProduct(productID, productName)
	if !ok {
		ref := productName
		if ref == "" {
			ref = productID
		}
		r.logger.Info("product to highlight not found", "ref", ref)
		return fmt.Sprintf("No se encontró el producto llamado %q.", ref)
	}

	evt := event.HighlightProductEvent{
		ProductID:  item.ID,
		Name:       item.Name,
		CategoryID: item.Category,
	}
	if err := r.publish(ctx, event.HighlightProduct, evt); err != nil {
		r.logger.Error("cannot publish highlight", "product_id", item.ID, "error", err)
		return "Ocurrió un error al intentar resaltar el producto."
	}

	return fmt.Sprintf("Producto %q resaltado correctamente.", item.Name)
}

// findProduct resolves the id first, which may also carry a name, then the name.
func (r *ToolRegistry) findProduct(productID, productName string) (catalog.Item, bool) {
	if r.catalog == nil {
		return catalog.Item{}, false
	}
	if productID != "" {
		if item, ok := r.catalog.Resolve(productID); ok {
			return item, true
		}
	}
	if productName != "" {
		return r.catalog.Search(productName)
	}
	return catalog.Item{}, false
}
