package grocery

import (
	"log/slog"
	"math"
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"auraagent/kitchen"
)

const (
	// DefaultMaxDistanceKm applies when a request carries no distance bound.
	DefaultMaxDistanceKm = 10

	// dealThreshold is the fraction of the baseline a price must fall under
	// to count as a deal.
	dealThreshold = 0.9

	maxBestDeals = 3
	maxItems     = 8
)

// Request selects items and the distance bound for Find.
type Request struct {
	Items         []string
	MaxDistanceKm float64
	Language      kitchen.Language
}

// Deals is the result of Find. Items and BestDeals carry only the price points
// that passed the distance and stock filter.
type Deals struct {
	Items        []kitchen.GroceryItem `json:"items"`
	BestDeals    []kitchen.GroceryItem `json:"bestDeals"`
	TotalSavings string                `json:"totalSavings"`
}

// Finder filters a catalog for nearby, in-stock prices.
type Finder struct {
	catalog            Catalog
	defaultMaxDistance float64
}

// NewFinder returns a Finder over catalog. A non-positive defaultMaxDistance
// uses DefaultMaxDistanceKm.
func NewFinder(catalog Catalog, defaultMaxDistance float64) *Finder {
	if defaultMaxDistance <= 0 {
		defaultMaxDistance = DefaultMaxDistanceKm
	}
	return &Finder{catalog: catalog, defaultMaxDistance: defaultMaxDistance}
}

// Find resolves req.Items against the catalog, synthesizing unmatched names
// through virtual when it is non-nil, and reports the deals among them. An
// empty item list selects the whole catalog.
func (f *Finder) Find(req Request, virtual *VirtualItems) Deals {
	maxDistance := req.MaxDistanceKm
	if maxDistance <= 0 {
		maxDistance = f.defaultMaxDistance
	}

	var filtered []kitchen.GroceryItem
	for _, item := range f.resolve(req.Items, virtual) {
		if in := inRange(item, maxDistance); len(in.Prices) > 0 {
			filtered = append(filtered, in)
		}
	}

	var best []kitchen.GroceryItem
	for _, item := range filtered {
		if MinPriceVND(item) < item.BasePriceVND*dealThreshold {
			best = append(best, item)
		}
	}
	sort.SliceStable(best, func(i, j int) bool {
		return discountRatio(best[i]) < discountRatio(best[j])
	})
	if len(best) > maxBestDeals {
		best = best[:maxBestDeals]
	}

	items := filtered
	if len(items) > maxItems {
		items = items[:maxItems]
	}

	deals := Deals{
		Items:        nonNil(items),
		BestDeals:    nonNil(best),
		TotalSavings: FormatSavings(best, req.Language),
	}

	slog.Info("DEALS: Search complete",
		"requested", len(req.Items),
		"max_distance_km", maxDistance,
		"matched", len(filtered),
		"best_deals", len(deals.BestDeals),
		"total_savings", deals.TotalSavings)
	return deals
}

func (f *Finder) resolve(names []string, virtual *VirtualItems) []kitchen.GroceryItem {
	if len(names) == 0 {
		return f.catalog.Items
	}

	seen := make(map[string]bool)
	var out []kitchen.GroceryItem
	for _, name := range names {
		item, ok := f.catalog.Match(name)
		if !ok {
			if virtual == nil || normalize(name) == "" {
				slog.Debug("DEALS: No catalog match", "item", name)
				continue
			}
			item = virtual.Get(name)
		}
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		out = append(out, item)
	}
	return out
}

// inRange returns item with only the in-stock price points within maxDistance.
func inRange(item kitchen.GroceryItem, maxDistance float64) kitchen.GroceryItem {
	prices := make([]kitchen.PricePoint, 0, len(item.Prices))
	for _, p := range item.Prices {
		if p.InStock && p.DistanceKm <= maxDistance {
			prices = append(prices, p)
		}
	}
	item.Prices = prices
	return item
}

// MinPriceVND returns the lowest price point of item, or +Inf when it has none.
func MinPriceVND(item kitchen.GroceryItem) float64 {
	lowest := math.Inf(1)
	for _, p := range item.Prices {
		lowest = math.Min(lowest, p.PriceVND)
	}
	return lowest
}

func discountRatio(item kitchen.GroceryItem) float64 {
	return MinPriceVND(item) / item.BasePriceVND
}

// FormatSavings sums the VND savings of deals and formats them for lang:
// "12.000 ₫" in Vietnamese, dollars converted at a fixed rate otherwise.
func FormatSavings(deals []kitchen.GroceryItem, lang kitchen.Language) string {
	var saved float64
	for _, item := range deals {
		saved += item.BasePriceVND - MinPriceVND(item)
	}

	return FormatPrice(saved, lang)
}

// FormatPrice formats a VND amount for lang.
func FormatPrice(vnd float64, lang kitchen.Language) string {
	if lang == kitchen.Vietnamese {
		return message.NewPrinter(language.Vietnamese).Sprintf("%d ₫", int64(math.Round(vnd)))
	}
	return message.NewPrinter(language.AmericanEnglish).Sprintf("$%.2f", vnd/vndPerUSD)
}

func nonNil(items []kitchen.GroceryItem) []kitchen.GroceryItem {
	if items == nil {
		return []kitchen.GroceryItem{}
	}
	return items
}
