package mealdb

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"auraagent/kitchen"
)

const (
	// minStepLength drops stray blank or markup lines from instructions.
	minStepLength = 6

	defaultCalories = 500
	defaultImage    = "🍳"
)

var (
	defaultTime = kitchen.Text{EN: "45 mins", VI: "45 phút"}
	lineBreaks  = regexp.MustCompile(`\r\n|\n|\r`)
)

// ToRecipe maps a raw record onto the canonical Recipe. The source is English
// only, so both sides of every Text carry the same string.
func ToRecipe(m Meal) kitchen.Recipe {
	image := m.Thumbnail
	if image == "" {
		image = defaultImage
	}
	return kitchen.Recipe{
		ID:          m.ID,
		Title:       kitchen.Same(m.Name),
		Time:        defaultTime,
		Calories:    defaultCalories,
		Image:       image,
		Ingredients: Ingredients(m),
		Steps:       Steps(m.Instructions),
	}
}

// Ingredients returns the non-empty ingredient slots in slot order.
func Ingredients(m Meal) []kitchen.RecipeIngredient {
	out := make([]kitchen.RecipeIngredient, 0, MaxIngredientSlots)
	for i := 0; i < MaxIngredientSlots; i++ {
		name := strings.TrimSpace(m.Ingredients[i])
		if name == "" {
			continue
		}
		out = append(out, kitchen.RecipeIngredient{
			Name:   kitchen.Same(name),
			Amount: strings.TrimSpace(m.Measures[i]),
		})
	}
	return out
}

// Steps splits an instructions blob on line breaks, keeping trimmed fragments
// of at least minStepLength characters in their original order.
func Steps(instructions string) []kitchen.Text {
	out := make([]kitchen.Text, 0)
	for _, line := range lineBreaks.Split(instructions, -1) {
		s := strings.TrimSpace(line)
		if utf8.RuneCountInString(s) < minStepLength {
			continue
		}
		out = append(out, kitchen.Same(s))
	}
	return out
}
