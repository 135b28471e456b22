package mealdb

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auraagent/kitchen"
)

func TestToRecipe(t *testing.T) {
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(chickenSearchBody), &env))
	require.Len(t, env.Meals, 1)

	recipe := ToRecipe(env.Meals[0])

	assert.Equal(t, "52795", recipe.ID)
	assert.Equal(t, kitchen.Text{EN: "Chicken Handi", VI: "Chicken Handi"}, recipe.Title)
	assert.Equal(t, 500, recipe.Calories)
	assert.Equal(t, "45 mins", recipe.Time.EN)
	assert.Equal(t, "45 phút", recipe.Time.VI)
	assert.Equal(t, "https://www.themealdb.com/images/media/meals/wyxwsp1486979827.jpg", recipe.Image)
	assert.True(t, recipe.HasImageURL())

	assert.Equal(t, []kitchen.RecipeIngredient{
		{Name: kitchen.Same("Chicken"), Amount: "1.2 kg"},
		{Name: kitchen.Same("Onion"), Amount: "5 thinly sliced"},
	}, recipe.Ingredients)

	assert.Equal(t, []kitchen.Text{
		kitchen.Same("Take a large pot."),
		kitchen.Same("Add the chicken."),
	}, recipe.Steps)
}

func TestToRecipe_NoThumbnailUsesGlyph(t *testing.T) {
	recipe := ToRecipe(Meal{ID: "1", Name: "Pho"})
	assert.Equal(t, "🍳", recipe.Image)
	assert.False(t, recipe.HasImageURL())
	assert.Empty(t, recipe.Ingredients)
	assert.Empty(t, recipe.Steps)
}

func TestIngredients_CountAndOrder(t *testing.T) {
	// Every populated-slot count from 0 to 20, with populated slots spread
	// across the numbered range rather than packed at the front.
	for populated := 0; populated <= MaxIngredientSlots; populated++ {
		t.Run(fmt.Sprintf("%d populated", populated), func(t *testing.T) {
			var m Meal
			var want []string
			for i := 0; i < MaxIngredientSlots && len(want) < populated; i++ {
				slot := (i * 7) % MaxIngredientSlots
				if m.Ingredients[slot] != "" {
					continue
				}
				m.Ingredients[slot] = fmt.Sprintf("ingredient-%02d", slot)
				m.Measures[slot] = fmt.Sprintf("%d g", slot)
				want = append(want, m.Ingredients[slot])
			}
			// Blank slots must be skipped.
			for i := range m.Ingredients {
				if m.Ingredients[i] == "" && i%2 == 0 {
					m.Ingredients[i] = "   "
				}
			}

			got := Ingredients(m)
			require.Len(t, got, len(want))

			names := make([]string, len(got))
			for i, g := range got {
				names[i] = g.Name.EN
			}
			for i := 1; i < len(names); i++ {
				assert.Less(t, names[i-1], names[i], "slot order must be preserved")
			}
		})
	}
}

func TestIngredients_RoundTripThroughWireFormat(t *testing.T) {
	m := Meal{ID: "7", Name: "Bun Cha"}
	m.Ingredients[0], m.Measures[0] = "Pork", "500g"
	m.Ingredients[19], m.Measures[19] = "Lime", "1"

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"strIngredient20":"Lime"`)

	var decoded Meal
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, m, decoded)

	got := Ingredients(decoded)
	require.Len(t, got, 2)
	assert.Equal(t, "Pork", got[0].Name.EN)
	assert.Equal(t, "Lime", got[1].Name.EN)
}

func TestSteps(t *testing.T) {
	tests := []struct {
		name         string
		instructions string
		want         []string
	}{
		{
			name:         "empty",
			instructions: "",
			want:         []string{},
		},
		{
			name:         "crlf and lf mixed",
			instructions: "Heat the oil.\r\nFry garlic until fragrant.\nServe hot with rice.",
			want:         []string{"Heat the oil.", "Fry garlic until fragrant.", "Serve hot with rice."},
		},
		{
			name:         "short fragments dropped",
			instructions: "STEP 1\n1.\n\n   \nMarinate the chicken for 15 minutes.\n<br>\nStir fry.",
			want:         []string{"STEP 1", "Marinate the chicken for 15 minutes.", "Stir fry."},
		},
		{
			name:         "multibyte characters counted as runes",
			instructions: "Ướp gà\nxả ớt",
			want:         []string{"Ướp gà"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Steps(tt.instructions)
			texts := make([]string, len(got))
			for i, s := range got {
				assert.Equal(t, s.EN, s.VI)
				texts[i] = s.EN
			}
			assert.Equal(t, tt.want, texts)
		})
	}
}

func TestSteps_NeverKeepsShortFragments(t *testing.T) {
	inputs := []string{
		"a\nbb\nccc\ndddd\neeeee\nffffff\nggggggg",
		strings.Repeat("x\r\n", 50),
		"  padded line  \n\t\ttab\t\n",
	}
	for _, in := range inputs {
		prev := -1
		for _, s := range Steps(in) {
			assert.GreaterOrEqual(t, utf8.RuneCountInString(s.EN), minStepLength)
			idx := strings.Index(in, s.EN)
			assert.Greater(t, idx, prev, "order must be preserved")
			prev = idx
		}
	}
}
