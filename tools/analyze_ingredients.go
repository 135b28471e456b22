package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"auraagent/ingredient"
)

type AnalyzeIngredientsTool struct{}

func NewAnalyzeIngredients() *AnalyzeIngredientsTool { return &AnalyzeIngredientsTool{} }

func (t *AnalyzeIngredientsTool) Name() Name    { return AnalyzeIngredients }
func (t *AnalyzeIngredientsTool) Title() string { return "Analyze Ingredients" }
func (t *AnalyzeIngredientsTool) Description() string {
	return "Turns a list of food ingredients into structured data. When the user attached a photo, look at it yourself " +
		"and pass the ingredients you can see as text. Never invent ingredients that are not visible or mentioned."
}

func (t *AnalyzeIngredientsTool) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"text": {
				Type:        "string",
				Description: "Ingredients separated by commas, semicolons or new lines",
			},
			FromImageKey: {
				Type:        "boolean",
				Description: "True when the text describes an attached photo",
			},
			LanguageKey: languageSchema(),
		},
	}
}

func (t *AnalyzeIngredientsTool) OutputSchema() *jsonschema.Schema {
	minConfidence, maxConfidence := 0.0, 1.0
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"ingredients": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			"confidence":  {Type: "number", Minimum: &minConfidence, Maximum: &maxConfidence},
			"source":      {Type: "string", Enum: []any{string(ingredient.SourceText), string(ingredient.SourceImage)}},
		},
		Required: []string{"ingredients", "confidence", "source"},
	}
}

func (t *AnalyzeIngredientsTool) Run(ctx context.Context, input map[string]any) (any, error) {
	return ingredient.Analyze(ingredient.Request{
		Text:     stringArg(input, "text"),
		HasImage: boolArg(input, FromImageKey),
	}), nil
}
