package tools

import (
	"context"
	"fmt"
	"log/slog"
)

// Registry maps tool names to implementations
type Registry map[Name]Tool

// NewRegistry creates a registry holding every declared tool.
func NewRegistry(searcher RecipeSearcher, finder DealFinder) *Registry {
	tools := make(map[Name]Tool, len(Names()))
	for _, name := range Names() {
		switch name {
		case AnalyzeIngredients:
			tools[name] = NewAnalyzeIngredients()
		case SuggestRecipes:
			tools[name] = NewSuggestRecipes(searcher)
		case GetRecipeDetails:
			tools[name] = NewGetRecipeDetails(searcher)
		case FindGroceryDeals:
			tools[name] = NewFindGroceryDeals(finder)
		default:
			panic(fmt.Sprintf("tool %q declared but not constructed", name))
		}
	}

	registry := Registry(tools)
	return &registry
}

// GetTools returns all tools in declaration order
func (r *Registry) GetTools() []Tool {
	tools := make([]Tool, 0, len(*r))
	for _, name := range Names() {
		if tool, ok := (*r)[name]; ok {
			tools = append(tools, tool)
		}
	}
	return tools
}

// GetTool retrieves a tool by name from the registry
func (r Registry) GetTool(name string) (Tool, error) {
	n, err := ParseName(name)
	if err != nil {
		return nil, err
	}
	tool, exists := r[n]
	if !exists {
		return nil, fmt.Errorf("%w: %q not found in registry", ErrUnknownTool, name)
	}
	return tool, nil
}

// Execute runs call and records the outcome as a Result. It never returns an
// error: failures are reported in the Result so the model can react to them.
func (r Registry) Execute(ctx context.Context, call Call) Result {
	tool, err := r.GetTool(call.Name)
	if err != nil {
		slog.Warn("TOOLS: Unknown tool requested", "tool", call.Name)
		return Failed(Name(call.Name), err)
	}

	out, err := tool.Run(ctx, call.Input)
	if err != nil {
		slog.Warn("TOOLS: Tool failed", "tool", tool.Name(), "error", err)
		return Failed(tool.Name(), err)
	}
	return Succeeded(tool.Name(), out)
}
