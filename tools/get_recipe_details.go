package tools

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"auraagent/kitchen"
)

// RecipeDetails is the output of get_recipe_details.
type RecipeDetails struct {
	Recipe kitchen.Recipe `json:"recipe"`
}

type GetRecipeDetailsTool struct{ searcher RecipeSearcher }

func NewGetRecipeDetails(searcher RecipeSearcher) *GetRecipeDetailsTool {
	return &GetRecipeDetailsTool{searcher: searcher}
}

func (t *GetRecipeDetailsTool) Name() Name    { return GetRecipeDetails }
func (t *GetRecipeDetailsTool) Title() string { return "Get Recipe Details" }
func (t *GetRecipeDetailsTool) Description() string {
	return "Fetches the full recipe (ingredients with amounts and steps) for a suggestion. recipe_name must be the " +
		"englishTitle returned by suggest_recipes, never a translated title."
}

func (t *GetRecipeDetailsTool) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"recipe_name": {
				Type:        "string",
				Description: "The englishTitle of the chosen suggestion",
			},
			LanguageKey: languageSchema(),
		},
		Required: []string{"recipe_name"},
	}
}

func (t *GetRecipeDetailsTool) OutputSchema() *jsonschema.Schema {
	text := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"en": {Type: "string"},
			"vi": {Type: "string"},
		},
		Required: []string{"en", "vi"},
	}
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"recipe": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"id":       {Type: "string"},
					"title":    text,
					"time":     text,
					"calories": {Type: "integer"},
					"image":    {Type: "string"},
					"ingredients": {
						Type: "array",
						Items: &jsonschema.Schema{
							Type: "object",
							Properties: map[string]*jsonschema.Schema{
								"name":   text,
								"amount": {Type: "string"},
							},
							Required: []string{"name", "amount"},
						},
					},
					"steps": {Type: "array", Items: text},
				},
				Required: []string{"id", "title", "ingredients", "steps"},
			},
		},
		Required: []string{"recipe"},
	}
}

func (t *GetRecipeDetailsTool) Run(ctx context.Context, input map[string]any) (any, error) {
	name := stringArg(input, "recipe_name")
	if name == "" {
		return nil, errors.New("recipe_name is required")
	}
	recipe, err := t.searcher.Details(ctx, name)
	if err != nil {
		return nil, err
	}
	return RecipeDetails{Recipe: recipe}, nil
}
