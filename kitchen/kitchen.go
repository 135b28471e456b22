// Package kitchen holds the canonical domain types shared by the recipe
// lookup, search, grocery and coordination layers.
package kitchen

import (
	"strings"
	"time"
)

// Language is a supported reply language.
type Language string

const (
	English    Language = "en"
	Vietnamese Language = "vi"
)

// ParseLanguage maps a free-form language code onto a supported Language,
// defaulting to English.
func ParseLanguage(s string) Language {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vi", "vi-vn", "vietnamese":
		return Vietnamese
	default:
		return English
	}
}

// Text is a string pair keyed by language.
type Text struct {
	EN string `json:"en"`
	VI string `json:"vi"`
}

// Same returns a Text with both sides set to s.
func Same(s string) Text { return Text{EN: s, VI: s} }

// In returns the side of t for lang, falling back to English when empty.
func (t Text) In(lang Language) string {
	if lang == Vietnamese && t.VI != "" {
		return t.VI
	}
	return t.EN
}

// RecipeIngredient is one ingredient line of a Recipe.
type RecipeIngredient struct {
	Name   Text   `json:"name"`
	Amount string `json:"amount"`
}

// Recipe is the canonical bilingual recipe. Ingredients and Steps keep the
// order of the source record.
type Recipe struct {
	ID          string             `json:"id"`
	Title       Text               `json:"title"`
	Time        Text               `json:"time"`
	Calories    int                `json:"calories"`
	Image       string             `json:"image"`
	Ingredients []RecipeIngredient `json:"ingredients"`
	Steps       []Text             `json:"steps"`
}

// HasImageURL reports whether Image is a URL rather than an emoji glyph.
func (r Recipe) HasImageURL() bool {
	return strings.HasPrefix(r.Image, "http://") || strings.HasPrefix(r.Image, "https://")
}

// PricePoint is the price of a grocery item at one store.
type PricePoint struct {
	StoreName  Text    `json:"storeName"`
	Logo       string  `json:"logo"`
	PriceVND   float64 `json:"priceVND"`
	PriceUSD   float64 `json:"priceUSD"`
	DistanceKm float64 `json:"distanceKm"`
	InStock    bool    `json:"inStock"`
}

// GroceryItem is a catalog entry with its per-store prices.
type GroceryItem struct {
	ID           string       `json:"id"`
	Name         Text         `json:"name"`
	Category     Text         `json:"category"`
	Image        string       `json:"image"`
	BasePriceVND float64      `json:"basePriceVND"`
	BasePriceUSD float64      `json:"basePriceUSD"`
	Prices       []PricePoint `json:"prices"`
	Virtual      bool         `json:"virtual,omitempty"`
}

// Image is an inline image attachment.
type Image struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// Role is the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the session-owned conversation history.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Image     *Image    `json:"image,omitempty"`
	Recipe    *Recipe   `json:"recipe,omitempty"`
	ToolNames []string  `json:"tool_names,omitempty"`
	At        time.Time `json:"at,omitempty"`
}
