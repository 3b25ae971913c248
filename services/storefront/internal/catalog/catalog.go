package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/appetiteclub/apt"
)

const minSearchLen = 3

// Source provides the items the catalog is loaded from.
type Source interface {
	List(ctx context.Context) ([]Item, error)
}

// StaticSource serves a fixed item list.
type StaticSource []Item

func (s StaticSource) List(ctx context.Context) ([]Item, error) {
	items := make([]Item, len(s))
	copy(items, s)
	return items, nil
}

// Catalog is the read-only product lookup shared by the order store, the
// tools and the menu. It is loaded once at startup.
type Catalog struct {
	mu     sync.RWMutex
	items  []Item
	byID   map[string]int
	source Source
	logger apt.Logger
}

func New(items []Item) *Catalog {
	c := &Catalog{logger: apt.NewNoopLogger()}
	c.set(items)
	return c
}

// NewFromSource returns an empty catalog that is filled by Start.
func NewFromSource(src Source, logger apt.Logger) *Catalog {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	c := &Catalog{source: src, logger: logger}
	c.set(nil)
	return c
}

func (c *Catalog) Start(ctx context.Context) error {
	if c.source == nil {
		return nil
	}

	items, err := c.source.List(ctx)
	if err != nil {
		return fmt.Errorf("cannot load catalog: %w", err)
	}
	if len(items) == 0 {
		return fmt.Errorf("cannot load catalog: source returned no items")
	}

	c.set(items)
	c.logger.Info("catalog loaded", "items", len(items))
	return nil
}

func (c *Catalog) set(items []Item) {
	byID := make(map[string]int, len(items))
	kept := make([]Item, 0, len(items))
	for _, item := range items {
		if _, dup := byID[item.ID]; dup || item.ID == "" {
			continue
		}
		byID[item.ID] = len(kept)
		kept = append(kept, item)
	}

	c.mu.Lock()
	c.items = kept
	c.byID = byID
	c.mu.Unlock()
}

func (c *Catalog) All() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()

	items := make([]Item, len(c.items))
	copy(items, c.items)
	return items
}

func (c *Catalog) ByCategory(code string) []Item {
	var items []Item
	for _, item := range c.All() {
		if item.Category == code {
			items = append(items, item)
		}
	}
	return items
}

func (c *Catalog) ByID(id string) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return Item{}, false
	}
	return c.items[i], true
}

// ByName matches the whole name ignoring case and accents.
func (c *Catalog) ByName(name string) (Item, bool) {
	query := Fold(name)
	if query == "" {
		return Item{}, false
	}
	for _, item := range c.All() {
		if Fold(item.Name) == query {
			return item, true
		}
	}
	return Item{}, false
}

// Search resolves a spoken or typed product name: exact match first, then
// plural-insensitive match, then substring in either direction. The first
// catalog entry wins when several match.
func (c *Catalog) Search(name string) (Item, bool) {
	if item, ok := c.ByName(name); ok {
		return item, true
	}

	query := Fold(name)
	if len([]rune(query)) < minSearchLen {
		return Item{}, false
	}
	stemmed := stem(query)
	items := c.All()

	for _, item := range items {
		if stem(Fold(item.Name)) == stemmed {
			return item, true
		}
	}

	for _, item := range items {
		candidate := Fold(item.Name)
		if strings.Contains(candidate, query) || strings.Contains(query, candidate) {
			return item, true
		}
	}

	for _, item := range items {
		candidate := stem(Fold(item.Name))
		if strings.Contains(candidate, stemmed) || strings.Contains(stemmed, candidate) {
			return item, true
		}
	}

	return Item{}, false
}

// Resolve looks ref up as an identity first and as a name second.
func (c *Catalog) Resolve(ref string) (Item, bool) {
	if item, ok := c.ByID(ref); ok {
		return item, true
	}
	return c.Search(ref)
}
