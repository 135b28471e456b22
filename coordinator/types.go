package coordinator

import (
	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"auraagent/grocery"
	"auraagent/kitchen"
	"auraagent/tools"
)

// Message roles understood by every backend.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message part types.
const (
	PartText       = "text"
	PartImage      = "image"
	PartToolUse    = "tool_use"
	PartToolResult = "tool_result"
)

type MessagePart struct {
	Type      string         `json:"type"`
	Text      string         `json:"text,omitempty"`
	Image     *kitchen.Image `json:"-"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	ToolName  string         `json:"tool_name,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	IsError   bool           `json:"is_error,omitempty"`
}

type MessageParts []MessagePart

// Join concatenates the text parts.
func (mp MessageParts) Join() string {
	var result string
	for _, part := range mp {
		if part.Type == PartText {
			result += part.Text
		}
	}
	return result
}

type Message struct {
	Role    string       `json:"role"`
	Content MessageParts `json:"content"`
}

// ToolSpec is a tool declaration handed to the model.
type ToolSpec struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"input_schema"`
}

// Prompt is a backend-neutral dialogue session.
type Prompt struct {
	System   string     `json:"system"`
	Messages []Message  `json:"messages"`
	Tools    []ToolSpec `json:"tools,omitempty"`
}

// Response is the model's answer: final text, tool calls, or both.
type Response struct {
	Content   string       `json:"content,omitempty"`
	ToolCalls []tools.Call `json:"tool_calls,omitempty"`
}

type ToolResult struct {
	ToolUseID string
	ToolName  string
	Data      map[string]any
	IsError   bool
}

// NewToolResultMessage wraps results in a single user message.
func NewToolResultMessage(results []ToolResult) Message {
	var parts MessageParts
	for _, result := range results {
		parts = append(parts, MessagePart{
			Type:      PartToolResult,
			ToolUseID: result.ToolUseID,
			ToolName:  result.ToolName,
			Data:      result.Data,
			IsError:   result.IsError,
		})
	}
	return Message{
		Role:    RoleUser,
		Content: parts,
	}
}

// Request is one user turn.
type Request struct {
	Message  string           `json:"message"`
	Image    *kitchen.Image   `json:"image,omitempty"`
	Language kitchen.Language `json:"language"`
	History  []kitchen.Turn   `json:"history,omitempty"`
}

// Reply is the assembled outcome of a turn.
type Reply struct {
	TurnID       string           `json:"turnId"`
	Reply        string           `json:"reply"`
	ToolCalls    []tools.Result   `json:"toolCalls"`
	Recipe       *kitchen.Recipe  `json:"recipe,omitempty"`
	Ingredients  []string         `json:"ingredients,omitempty"`
	GroceryDeals *grocery.Deals   `json:"groceryDeals,omitempty"`
	Degraded     bool             `json:"degraded,omitempty"`
	Language     kitchen.Language `json:"language"`
}

// Turn converts r into an assistant history entry.
func (r Reply) Turn() kitchen.Turn {
	names := make([]string, 0, len(r.ToolCalls))
	for _, tc := range r.ToolCalls {
		names = append(names, string(tc.Tool))
	}
	return kitchen.Turn{
		Role:      kitchen.RoleAssistant,
		Content:   r.Reply,
		Recipe:    r.Recipe,
		ToolNames: names,
	}
}
