package category

import "strings"

type Category struct {
	Name  string
	Label string
}

func (c Category) Code() string {
	return c.Name
}

type Enum struct {
	Taco     Category
	Beverage Category
	Extra    Category
}

var Categories = Enum{
	Taco:     Category{Name: "taco", Label: "Tacos"},
	Beverage: Category{Name: "beverage", Label: "Bebidas"},
	Extra:    Category{Name: "extra", Label: "Extras"},
}

var All = []Category{
	Categories.Taco,
	Categories.Beverage,
	Categories.Extra,
}

// legacy names used by the storefront's earlier menu data
var aliases = map[string]Category{
	"tacos":   Categories.Taco,
	"bebidas": Categories.Beverage,
	"bebida":  Categories.Beverage,
	"drinks":  Categories.Beverage,
	"extras":  Categories.Extra,
}

// ByName returns the category for a code or a known legacy name, or nil if not found
func ByName(name string) *Category {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, c := range All {
		if c.Name == name {
			return &c
		}
	}
	if c, ok := aliases[name]; ok {
		return &c
	}
	return nil
}
