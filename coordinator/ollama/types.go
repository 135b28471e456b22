package ollama

import (
	"encoding/json"

	"auraagent/coordinator"
)

type options struct {
	Temperature   float64 `json:"temperature,omitempty"`
	TopP          float64 `json:"top_p,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
	NumCtx        int     `json:"num_ctx,omitempty"`
	NumPredict    int     `json:"num_predict,omitempty"`
}

// Tool represents a tool in Ollama's native format
type Tool struct {
	Type     string     `json:"type"`
	Function ToolSchema `json:"function"`
}

// ToolSchema represents the function schema for Ollama tools
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type wireToolCall struct {
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

type wireMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Images    []string       `json:"images,omitempty"`
	Name      string         `json:"name,omitempty"`
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
}

type wireRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Tools    []Tool        `json:"tools,omitempty"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
	Options  options       `json:"options,omitempty"`
}

type wireResponse struct {
	Message    wireMessage `json:"message"`
	DoneReason string      `json:"done_reason,omitempty"`
}

// toolsFromSpecs converts tool declarations to Ollama's function format.
func toolsFromSpecs(specs []coordinator.ToolSpec) []Tool {
	out := make([]Tool, 0, len(specs))
	for _, spec := range specs {
		parameters := map[string]any{"type": "object"}
		if spec.InputSchema != nil {
			// Round-trip through JSON so the schema's own MarshalJSON decides the shape.
			if b, err := json.Marshal(spec.InputSchema); err == nil {
				_ = json.Unmarshal(b, &parameters)
			}
		}
		out = append(out, Tool{
			Type: "function",
			Function: ToolSchema{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  parameters,
			},
		})
	}
	return out
}
