// Package grocery finds nearby grocery prices and deals for a list of item
// names, over a static catalog plus session-synthesized items for
// ingredients the catalog does not carry.
package grocery

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"auraagent/kitchen"
	"auraagent/storage"
)

//go:embed catalog.json
var defaultCatalog []byte

// Store is a grocery chain a price point can come from.
type Store struct {
	Name kitchen.Text
	Logo string
}

// Stores lists the chains prices are quoted for.
var Stores = []Store{
	{Name: kitchen.Text{EN: "WinMart", VI: "WinMart"}, Logo: "🔴"},
	{Name: kitchen.Text{EN: "Bach Hoa Xanh", VI: "Bách Hóa Xanh"}, Logo: "🟢"},
	{Name: kitchen.Text{EN: "Co.opmart", VI: "Co.opmart"}, Logo: "🔵"},
}

// Catalog is the static set of known grocery items.
type Catalog struct {
	Items []kitchen.GroceryItem `json:"items"`
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// DefaultCatalogState exposes the embedded catalog as a storage.State.
func DefaultCatalogState() storage.State {
	return storage.Bytes(defaultCatalog)
}

// LoadCatalog reads and parses a catalog from state.
func LoadCatalog(ctx context.Context, state storage.State) (Catalog, error) {
	data, err := state.Load(ctx)
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to load catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a JSON catalog document.
func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return c, nil
}

// Match returns the first item whose id or name contains name, ignoring case.
func (c Catalog) Match(name string) (kitchen.GroceryItem, bool) {
	q := normalize(name)
	if q == "" {
		return kitchen.GroceryItem{}, false
	}
	for _, item := range c.Items {
		if strings.Contains(strings.ToLower(item.ID), q) ||
			strings.Contains(strings.ToLower(item.Name.EN), q) ||
			strings.Contains(strings.ToLower(item.Name.VI), q) {
			return item, true
		}
	}
	return kitchen.GroceryItem{}, false
}

func normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
