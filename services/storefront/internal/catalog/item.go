package catalog

import (
	"github.com/appetiteclub/taqueria/pkg/enums/category"
	"github.com/shopspring/decimal"
)

// MaxPrice bounds every unit price the storefront accepts.
var MaxPrice = decimal.NewFromInt(1_000_000)

// maxPriceScale bounds the decimal exponent of a price, checked before any
// arithmetic touches it.
const maxPriceScale = 18

// ValidPrice reports whether d can be used as a unit price: not negative,
// with a sane exponent and at most MaxPrice.
func ValidPrice(d decimal.Decimal) bool {
	if d.IsNegative() {
		return false
	}
	if exp := d.Exponent(); exp < -maxPriceScale || exp > maxPriceScale {
		return false
	}
	return !d.GreaterThan(MaxPrice)
}

// Item is a purchasable product. Items are immutable once loaded.
type Item struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Category  string          `json:"categoryId"`
	Available bool            `json:"available"`
}

func (i Item) CategoryLabel() string {
	if c := category.ByName(i.Category); c != nil {
		return c.Label
	}
	return i.Category
}

func newItem(id, name, price string, c category.Category) Item {
	return Item{
		ID:        id,
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Category:  c.Code(),
		Available: true,
	}
}

// Defaults returns the restaurant's menu.
func Defaults() []Item {
	taco := category.Categories.Taco
	beverage := category.Categories.Beverage
	extra := category.Categories.Extra

	return []Item{
		newItem("taco-pastor", "Taco al Pastor", "15.00", taco),
		newItem("taco-suadero", "Taco de Suadero", "17.00", taco),
		newItem("taco-bistec", "Taco de Bistec", "18.00", taco),
		newItem("taco-campechano", "Taco Campechano", "20.00", taco),
		newItem("taco-carnitas", "Taco de Carnitas", "20.00", taco),
		newItem("agua-horchata", "Agua de Horchata", "25.00", beverage),
		newItem("agua-jamaica", "Agua de Jamaica", "25.00", beverage),
		newItem("refresco", "Refresco", "20.00", beverage),
		newItem("guacamole", "Guacamole", "35.00", extra),
		newItem("quesadilla", "Quesadilla", "30.00", extra),
		newItem("queso-extra", "Queso Extra", "15.00", extra),
		newItem("cebollitas", "Orden de Cebollitas", "25.00", extra),
	}
}
