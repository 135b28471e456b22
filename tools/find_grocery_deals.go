package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"auraagent/grocery"
)

// DealFinder is the part of the grocery finder the deals tool uses.
type DealFinder interface {
	Find(req grocery.Request, virtual *grocery.VirtualItems) grocery.Deals
}

type FindGroceryDealsTool struct{ finder DealFinder }

func NewFindGroceryDeals(finder DealFinder) *FindGroceryDealsTool {
	return &FindGroceryDealsTool{finder: finder}
}

func (t *FindGroceryDealsTool) Name() Name    { return FindGroceryDeals }
func (t *FindGroceryDealsTool) Title() string { return "Find Grocery Deals" }
func (t *FindGroceryDealsTool) Description() string {
	return "Finds nearby in-stock prices for grocery items and highlights deals at least 10% below the usual price. " +
		"Pass the recipe's ingredient names in English."
}

func (t *FindGroceryDealsTool) InputSchema() *jsonschema.Schema {
	minDistance := 0.0
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"items": {
				Type:        "array",
				Description: "Item names to price",
				Items:       &jsonschema.Schema{Type: "string"},
			},
			"max_distance_km": {
				Type:        "number",
				Description: "Only consider stores within this distance",
				Minimum:     &minDistance,
			},
			LanguageKey: languageSchema(),
		},
		Required: []string{"items"},
	}
}

func (t *FindGroceryDealsTool) OutputSchema() *jsonschema.Schema {
	item := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"id":           {Type: "string"},
			"basePriceVND": {Type: "number"},
			"basePriceUSD": {Type: "number"},
			"prices":       {Type: "array", Items: &jsonschema.Schema{Type: "object"}},
		},
		Required: []string{"id", "prices"},
	}
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"items":        {Type: "array", Items: item},
			"bestDeals":    {Type: "array", Items: item},
			"totalSavings": {Type: "string"},
		},
		Required: []string{"items", "bestDeals", "totalSavings"},
	}
}

func (t *FindGroceryDealsTool) Run(ctx context.Context, input map[string]any) (any, error) {
	return t.finder.Find(grocery.Request{
		Items:         stringsArg(input, "items"),
		MaxDistanceKm: floatArg(input, "max_distance_km"),
		Language:      languageArg(input),
	}, grocery.VirtualItemsFrom(ctx)), nil
}
