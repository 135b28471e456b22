package mealdb

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MaxIngredientSlots is the number of numbered ingredient/measure field pairs
// a record may carry.
const MaxIngredientSlots = 20

// Meal is a raw record as returned by the recipe database. Filter endpoints
// only populate ID, Name and Thumbnail.
type Meal struct {
	ID           string `json:"idMeal"`
	Name         string `json:"strMeal"`
	Thumbnail    string `json:"strMealThumb"`
	Category     string `json:"strCategory,omitempty"`
	Area         string `json:"strArea,omitempty"`
	Instructions string `json:"strInstructions,omitempty"`

	Ingredients [MaxIngredientSlots]string `json:"-"`
	Measures    [MaxIngredientSlots]string `json:"-"`
}

// HasDetails reports whether the record carries full instructions.
func (m Meal) HasDetails() bool {
	return strings.TrimSpace(m.Instructions) != ""
}

// UnmarshalJSON decodes the fixed fields and the numbered strIngredientN /
// strMeasureN slots, which may be absent, null or blank.
func (m *Meal) UnmarshalJSON(b []byte) error {
	type plain Meal
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}

	var slots map[string]any
	if err := json.Unmarshal(b, &slots); err != nil {
		return err
	}
	for i := 1; i <= MaxIngredientSlots; i++ {
		p.Ingredients[i-1] = slotString(slots[fmt.Sprintf("strIngredient%d", i)])
		p.Measures[i-1] = slotString(slots[fmt.Sprintf("strMeasure%d", i)])
	}

	*m = Meal(p)
	return nil
}

// MarshalJSON writes the record back in the database's wire shape.
func (m Meal) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"idMeal":       m.ID,
		"strMeal":      m.Name,
		"strMealThumb": m.Thumbnail,
	}
	if m.Category != "" {
		out["strCategory"] = m.Category
	}
	if m.Area != "" {
		out["strArea"] = m.Area
	}
	if m.Instructions != "" {
		out["strInstructions"] = m.Instructions
	}
	for i := 0; i < MaxIngredientSlots; i++ {
		if m.Ingredients[i] != "" {
			out[fmt.Sprintf("strIngredient%d", i+1)] = m.Ingredients[i]
		}
		if m.Measures[i] != "" {
			out[fmt.Sprintf("strMeasure%d", i+1)] = m.Measures[i]
		}
	}
	return json.Marshal(out)
}

func slotString(v any) string {
	s, _ := v.(string)
	return s
}

// envelope is the response body of every endpoint.
type envelope struct {
	Meals []Meal `json:"meals"`
}
