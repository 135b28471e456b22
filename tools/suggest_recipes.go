package tools

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"auraagent/kitchen"
	"auraagent/worker"
)

// RecipeSearcher is the part of the search worker the recipe tools use.
type RecipeSearcher interface {
	Search(ctx context.Context, query string, ingredients []string) (worker.Result, error)
	Details(ctx context.Context, searchTitle string) (kitchen.Recipe, error)
}

type SuggestRecipesTool struct{ searcher RecipeSearcher }

func NewSuggestRecipes(searcher RecipeSearcher) *SuggestRecipesTool {
	return &SuggestRecipesTool{searcher: searcher}
}

func (t *SuggestRecipesTool) Name() Name    { return SuggestRecipes }
func (t *SuggestRecipesTool) Title() string { return "Suggest Recipes" }
func (t *SuggestRecipesTool) Description() string {
	return "Searches the recipe database for the user's request. Tries dish name, ingredient, cuisine and category " +
		"searches until one matches. Returns up to 5 suggestions; each carries englishTitle, the only title valid " +
		"for get_recipe_details. When isFallback is true, tell the user the exact dish was not found."
}

func (t *SuggestRecipesTool) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"query": {
				Type:        "string",
				Description: "What the user wants to cook or eat, in their own words",
			},
			"ingredients": {
				Type:        "array",
				Description: "Ingredients the user already has",
				Items:       &jsonschema.Schema{Type: "string"},
			},
			LanguageKey: languageSchema(),
		},
		Required: []string{"query"},
	}
}

func (t *SuggestRecipesTool) OutputSchema() *jsonschema.Schema {
	suggestion := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"id":           {Type: "string"},
			"title":        {Type: "string"},
			"englishTitle": {Type: "string"},
			"image":        {Type: "string"},
			"category":     {Type: "string"},
			"area":         {Type: "string"},
		},
		Required: []string{"id", "title", "englishTitle"},
	}
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"suggestions":    {Type: "array", Items: suggestion},
			"totalFound":     {Type: "integer"},
			"searchStrategy": {Type: "string"},
			"searchTerm":     {Type: "string"},
			"userQuery":      {Type: "string"},
			"isExactMatch":   {Type: "boolean"},
			"isFallback":     {Type: "boolean"},
			"note":           {Type: "string"},
		},
		Required: []string{"suggestions", "totalFound", "searchStrategy", "isExactMatch", "isFallback"},
	}
}

func (t *SuggestRecipesTool) Run(ctx context.Context, input map[string]any) (any, error) {
	query := stringArg(input, "query")
	ingredients := stringsArg(input, "ingredients")
	if query == "" && len(ingredients) == 0 {
		return nil, errors.New("query is required")
	}
	return t.searcher.Search(ctx, query, ingredients)
}
