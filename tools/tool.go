package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

// ErrUnknownTool is returned for a tool name outside the declared set.
var ErrUnknownTool = errors.New("unknown tool")

// Name identifies one of the declared tools.
type Name string

const (
	AnalyzeIngredients Name = "analyze_ingredients"
	SuggestRecipes     Name = "suggest_recipes"
	GetRecipeDetails   Name = "get_recipe_details"
	FindGroceryDeals   Name = "find_grocery_deals"
)

// Names lists every declared tool in declaration order.
func Names() []Name {
	return []Name{AnalyzeIngredients, SuggestRecipes, GetRecipeDetails, FindGroceryDeals}
}

// ParseName maps a model-supplied tool name onto a Name.
func ParseName(s string) (Name, error) {
	for _, n := range Names() {
		if string(n) == s {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTool, s)
}

type Tool interface {
	Name() Name
	Title() string
	Description() string
	InputSchema() *jsonschema.Schema
	OutputSchema() *jsonschema.Schema
	Run(ctx context.Context, input map[string]any) (output any, err error)
}

// Call is a tool invocation requested by the model.
type Call struct {
	Name      string         `json:"name"`
	Input     map[string]any `json:"input"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
}

// Result is the uniform record of one tool invocation. A failed result has no
// Data and a non-empty Error.
type Result struct {
	Tool    Name   `json:"toolName"`
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Error   string `json:"error,omitempty"`
}

// Succeeded builds a successful Result.
func Succeeded(name Name, data any) Result {
	return Result{Tool: name, Success: true, Data: data}
}

// Failed builds a failed Result from err.
func Failed(name Name, err error) Result {
	msg := "tool failed"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return Result{Tool: name, Success: false, Error: msg}
}

// Payload renders r as a generic JSON object for feeding back to a model.
func (r Result) Payload() map[string]any {
	if !r.Success {
		return map[string]any{"success": false, "error": r.Error}
	}

	// marshal -> map[string]any to keep outputs uniform
	b, err := json.Marshal(r.Data)
	if err != nil {
		return map[string]any{"success": false, "error": fmt.Sprintf("encode result: %v", err)}
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil || m == nil {
		var v any
		_ = json.Unmarshal(b, &v)
		m = map[string]any{"result": v}
	}
	m["success"] = true
	return m
}
