package worker

import (
	"sort"
	"strings"
)

// Kind is the search operation an Intent maps to.
type Kind string

const (
	ByName       Kind = "name"
	ByIngredient Kind = "ingredient"
	ByCategory   Kind = "category"
	ByArea       Kind = "area"
	Random       Kind = "random"
)

// ParseKind maps a strategy tag onto a Kind.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case ByName, ByIngredient, ByCategory, ByArea, Random:
		return k, true
	default:
		return "", false
	}
}

// Intent is one search attempt with the confidence that it matches what the
// user asked for.
type Intent struct {
	Kind       Kind    `json:"type"`
	Term       string  `json:"term"`
	Confidence float64 `json:"confidence"`
}

// Rank sorts intents by descending confidence, keeping input order for ties,
// and drops repeats of the same kind and term.
func Rank(intents []Intent) []Intent {
	sorted := make([]Intent, len(intents))
	copy(sorted, intents)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	seen := make(map[string]bool, len(sorted))
	out := make([]Intent, 0, len(sorted))
	for _, in := range sorted {
		key := string(in.Kind) + "\x00" + strings.ToLower(in.Term)
		if in.Kind == Random {
			key = string(Random)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, in)
	}
	return out
}
