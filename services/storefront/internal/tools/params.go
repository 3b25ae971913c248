package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/appetiteclub/taqueria/services/storefront/internal/catalog"
	"github.com/appetiteclub/taqueria/services/storefront/internal/order"
	"github.com/shopspring/decimal"
)

// Params are the loosely typed arguments of a tool call.
type Params map[string]interface{}

// String returns the parameter as text. Numbers are formatted; other values
// and missing keys yield "".
func (p Params) String(key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// Bool reports whether the parameter is the JSON value true.
func (p Params) Bool(key string) bool {
	b, ok := p[key].(bool)
	return ok && b
}

// ItemArg is one entry of an updateOrder call after normalization.
type ItemArg struct {
	ID                  string
	Name                string
	Quantity            int
	Price               decimal.Decimal
	CategoryID          string
	SpecialInstructions string
}

var errNoItems = fmt.Errorf("no items in parameters")

// orderItems extracts the raw item list from the accepted wire shapes:
// orderDetailsData (array or JSON string), orderData (array, {items}, keyed
// map, single object or JSON string of those) or, failing both, the first
// other parameter holding an array or an {items} object.
func orderItems(p Params) ([]interface{}, error) {
	if v, ok := p["orderDetailsData"]; ok && v != nil {
		switch val := v.(type) {
		case string:
			var parsed interface{}
			if err := json.Unmarshal([]byte(val), &parsed); err != nil {
				return nil, errNoItems
			}
			if list, ok := parsed.([]interface{}); ok {
				return list, nil
			}
			return itemsFromValue(parsed), nil
		case []interface{}:
			return val, nil
		default:
			return nil, errNoItems
		}
	}

	if v, ok := p["orderData"]; ok && v != nil {
		if s, ok := v.(string); ok {
			var parsed interface{}
			if err := json.Unmarshal([]byte(s), &parsed); err != nil {
				return nil, errNoItems
			}
			v = parsed
		}
		return itemsFromValue(v), nil
	}

	for _, key := range sortedKeys(p) {
		switch val := p[key].(type) {
		case []interface{}:
			return val, nil
		case map[string]interface{}:
			if list, ok := val["items"].([]interface{}); ok {
				return list, nil
			}
		}
	}

	return nil, errNoItems
}

func itemsFromValue(v interface{}) []interface{} {
	switch val := v.(type) {
	case []interface{}:
		return val
	case map[string]interface{}:
		if list, ok := val["items"].([]interface{}); ok {
			return list
		}

		var keyed []interface{}
		for _, key := range sortedKeys(val) {
			entry, ok := val[key].(map[string]interface{})
			if !ok {
				continue
			}
			item := make(map[string]interface{}, len(entry)+1)
			for k, ev := range entry {
				item[k] = ev
			}
			if _, hasID := item["id"]; !hasID {
				item["id"] = key
			}
			keyed = append(keyed, item)
		}
		if len(keyed) > 0 {
			return keyed
		}
		return []interface{}{val}
	default:
		return nil
	}
}

// normalizeItem converts one raw entry. Entries that are not objects or carry
// neither a name nor an id are dropped. The second result reports whether the
// quantity had to be capped.
func normalizeItem(raw interface{}) (ItemArg, bool, bool) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return ItemArg{}, false, false
	}

	p := Params(m)
	arg := ItemArg{
		ID:                  p.String("id"),
		Name:                p.String("name"),
		CategoryID:          p.String("categoryId"),
		SpecialInstructions: p.String("specialInstructions"),
		Price:               parsePrice(m["price"]),
	}
	if arg.Name == "" && arg.ID == "" {
		return ItemArg{}, false, false
	}

	qty, capped := parseQuantity(m["quantity"])
	arg.Quantity = qty
	return arg, capped, true
}

// parseQuantity reads a numeric or numeric-string quantity. Missing, invalid
// or non-positive values become 1; values above the maximum are capped.
func parseQuantity(v interface{}) (int, bool) {
	q := 1
	switch val := v.(type) {
	case float64:
		if !math.IsNaN(val) && !math.IsInf(val, 0) {
			q = int(math.Min(math.Trunc(val), float64(math.MaxInt32)))
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			q = n
		}
	}
	if q < order.MinQuantity {
		return order.MinQuantity, false
	}
	return order.ClampQuantity(q)
}

// parsePrice reads a numeric or numeric-string price. Anything else, and
// amounts outside catalog.ValidPrice, become zero.
func parsePrice(v interface{}) decimal.Decimal {
	var d decimal.Decimal
	switch val := v.(type) {
	case float64:
		d = decimal.NewFromFloat(val)
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			return decimal.Zero
		}
		d = parsed
	default:
		return decimal.Zero
	}
	if !catalog.ValidPrice(d) {
		return decimal.Zero
	}
	return d
}
