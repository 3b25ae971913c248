package order

// ChangeKind tells Apply what to do with a line.
type ChangeKind int

const (
	// ChangeUpsert sets the line to the given quantity and price, appending it when absent.
	ChangeUpsert ChangeKind = iota
	// ChangeRemove deletes the line with the same key.
	ChangeRemove
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeUpsert:
		return "upsert"
	case ChangeRemove:
		return "remove"
	default:
		return "unknown"
	}
}

type Change struct {
	Kind ChangeKind
	Line LineItem
}

// Plan is a batch of line changes applied by the store as one mutation.
// Fresh starts from an empty order before applying the changes.
type Plan struct {
	Fresh   bool
	Changes []Change
}

// Collapse merges lines that share a key, summing quantities up to
// MaxQuantity. The first occurrence keeps its position and its price.
func Collapse(lines []LineItem) []LineItem {
	out := make([]LineItem, 0, len(lines))
	index := make(map[LineKey]int, len(lines))

	for _, line := range lines {
		line.SpecialInstructions = normalizeInstructions(line.SpecialInstructions)
		if i, ok := index[line.Key()]; ok {
			out[i].Quantity, _ = ClampQuantity(out[i].Quantity + line.Quantity)
			continue
		}
		line.Quantity, _ = ClampQuantity(line.Quantity)
		index[line.Key()] = len(out)
		out = append(out, line)
	}
	return out
}

// Diff computes the changes that turn current into desired. Lines missing
// from desired are removed; lines that differ are upserted. Removals come
// first, upserts follow desired's order.
func Diff(current, desired []LineItem) []Change {
	desired = Collapse(desired)

	wanted := make(map[LineKey]LineItem, len(desired))
	for _, line := range desired {
		wanted[line.Key()] = line
	}

	existing := make(map[LineKey]LineItem, len(current))
	var changes []Change
	for _, line := range current {
		existing[line.Key()] = line
		if _, ok := wanted[line.Key()]; !ok {
			changes = append(changes, Change{Kind: ChangeRemove, Line: line})
		}
	}

	for _, line := range desired {
		if prev, ok := existing[line.Key()]; ok && sameLine(prev, line) {
			continue
		}
		changes = append(changes, Change{Kind: ChangeUpsert, Line: line})
	}

	return changes
}

func sameLine(a, b LineItem) bool {
	return a.Quantity == b.Quantity &&
		a.Price.Equal(b.Price) &&
		a.Name == b.Name &&
		a.CategoryID == b.CategoryID
}
