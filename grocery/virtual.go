package grocery

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/brianvoe/gofakeit/v6"

	"auraagent/kitchen"
)

const (
	vndPerUSD = 25000

	minVirtualBaseVND = 10000
	maxVirtualBaseVND = 150000
	virtualPriceStep  = 500
)

var virtualCategory = kitchen.Text{EN: "AI Suggested", VI: "Gợi ý AI"}

// VirtualItems synthesizes priced placeholder items for ingredients with no
// catalog entry. An item depends only on the seed and its normalized name, so
// two caches built from the same seed agree regardless of lookup order.
type VirtualItems struct {
	mu    sync.Mutex
	seed  int64
	items map[string]kitchen.GroceryItem
}

// NewVirtualItems returns an empty cache. A zero seed draws a random one.
func NewVirtualItems(seed int64) *VirtualItems {
	if seed == 0 {
		seed = rand.Int64() | 1
	}
	return &VirtualItems{
		seed:  seed,
		items: make(map[string]kitchen.GroceryItem),
	}
}

// Get returns the synthesized item for name, creating it on first use.
func (v *VirtualItems) Get(name string) kitchen.GroceryItem {
	key := normalize(name)

	v.mu.Lock()
	defer v.mu.Unlock()

	if item, ok := v.items[key]; ok {
		return item
	}
	item := v.synthesize(key, strings.TrimSpace(name))
	v.items[key] = item
	return item
}

// Len reports how many items have been synthesized.
func (v *VirtualItems) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.items)
}

// itemSeed mixes the session seed with key. The result is never zero, which
// gofakeit would treat as a request for a random seed.
func (v *VirtualItems) itemSeed(key string) int64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v.seed))
	h.Write(buf[:])      // nolint: errcheck
	h.Write([]byte(key)) // nolint: errcheck
	return int64(h.Sum64() | 1)
}

func (v *VirtualItems) synthesize(key, display string) kitchen.GroceryItem {
	faker := gofakeit.New(v.itemSeed(key))
	base := roundTo(faker.Float64Range(minVirtualBaseVND, maxVirtualBaseVND), virtualPriceStep)

	stores := make([]Store, len(Stores))
	copy(stores, Stores)
	faker.ShuffleAnySlice(stores)
	stores = stores[:faker.IntRange(1, len(stores))]

	prices := make([]kitchen.PricePoint, 0, len(stores))
	for _, s := range stores {
		vnd := roundTo(base*faker.Float64Range(0.8, 1.15), virtualPriceStep)
		prices = append(prices, kitchen.PricePoint{
			StoreName:  s.Name,
			Logo:       s.Logo,
			PriceVND:   vnd,
			PriceUSD:   toUSD(vnd),
			DistanceKm: math.Round(faker.Float64Range(0.5, 12)*10) / 10,
			InStock:    true,
		})
	}

	return kitchen.GroceryItem{
		ID:           "ai-" + strings.ReplaceAll(key, " ", "-"),
		Name:         kitchen.Same(display),
		Category:     virtualCategory,
		Image:        "🛒",
		BasePriceVND: base,
		BasePriceUSD: toUSD(base),
		Prices:       prices,
		Virtual:      true,
	}
}

func roundTo(v, step float64) float64 {
	return math.Round(v/step) * step
}

func toUSD(vnd float64) float64 {
	return math.Round(vnd/vndPerUSD*100) / 100
}

type virtualItemsKey struct{}

// WithVirtualItems attaches a session cache to ctx.
func WithVirtualItems(ctx context.Context, v *VirtualItems) context.Context {
	return context.WithValue(ctx, virtualItemsKey{}, v)
}

// VirtualItemsFrom returns the session cache attached to ctx, or nil.
func VirtualItemsFrom(ctx context.Context) *VirtualItems {
	v, _ := ctx.Value(virtualItemsKey{}).(*VirtualItems)
	return v
}
