package coordinator

import (
	"fmt"
	"strings"

	"auraagent"
	"auraagent/kitchen"
)

const systemPrompt = `You are Aura AI, a friendly cooking assistant.

LANGUAGE:
Reply in the user's language. The current reply language is %s.

TOOLS:
- analyze_ingredients: turn a description of visible or listed ingredients into an ingredient list.
- suggest_recipes: search the recipe database. Pass the user's request as "query" and any known ingredients.
- get_recipe_details: fetch the full recipe. ALWAYS pass the "englishTitle" from suggest_recipes as "recipe_name", never a translated title.
- find_grocery_deals: find nearby store prices for ingredients the user needs to buy.
Call tools directly through the tool interface; do not describe tool calls in text.

CRITICAL RULES:
- Never invent recipes. Only present recipes, ingredients, and steps returned by the tools.
- When suggest_recipes reports isFallback=true, tell the user honestly that the exact dish was not found and explain what is shown instead, using its note.
- When a tool fails, explain briefly and suggest an alternative; do not make up data.
- You may translate dish names and steps for display, but keep the English title for lookups.
- Keep answers short and friendly. Use markdown bold for dish names.
`

var languageNames = map[kitchen.Language]string{
	kitchen.English:    "English (en)",
	kitchen.Vietnamese: "Vietnamese (vi)",
}

// SystemInstruction returns the fixed system instruction for lang.
func SystemInstruction(lang kitchen.Language) string {
	return fmt.Sprintf(systemPrompt, languageNames[lang])
}

// NewPrompt seeds a dialogue session with the system instruction, the
// trailing history window and the current turn.
func NewPrompt(req Request, tp auraagent.ToolProvider, window int) Prompt {
	tools := tp.GetTools()
	specs := make([]ToolSpec, 0, len(tools))
	for _, tool := range tools {
		specs = append(specs, ToolSpec{
			Name:        string(tool.Name()),
			Description: tool.Description(),
			InputSchema: tool.InputSchema(),
		})
	}

	var msgs []Message
	for _, turn := range WindowHistory(req.History, window) {
		msgs = appendText(msgs, string(turn.Role), historyText(turn))
	}
	for len(msgs) > 0 && msgs[0].Role != RoleUser {
		msgs = msgs[1:]
	}

	current := MessageParts{}
	text := strings.TrimSpace(req.Message)
	if req.Image != nil {
		current = append(current, MessagePart{Type: PartImage, Image: req.Image})
		text = strings.TrimSpace(text + "\n\n" + imageInstruction.In(req.Language))
	}
	current = append(current, MessagePart{Type: PartText, Text: text})

	if n := len(msgs); n > 0 && msgs[n-1].Role == RoleUser {
		msgs[n-1].Content = append(msgs[n-1].Content, current...)
	} else {
		msgs = append(msgs, Message{Role: RoleUser, Content: current})
	}

	return Prompt{
		System:   SystemInstruction(req.Language),
		Messages: msgs,
		Tools:    specs,
	}
}

// WindowHistory keeps the last window turns and drops leading assistant turns
// so the session starts on a user turn.
func WindowHistory(history []kitchen.Turn, window int) []kitchen.Turn {
	if window <= 0 {
		return nil
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}
	for len(history) > 0 && history[0].Role != kitchen.RoleUser {
		history = history[1:]
	}
	return history
}

func historyText(turn kitchen.Turn) string {
	text := strings.TrimSpace(turn.Content)
	if turn.Recipe != nil {
		text += fmt.Sprintf("\n(Recipe shown: %s)", turn.Recipe.Title.EN)
	}
	return strings.TrimSpace(text)
}

// appendText adds a text part, merging consecutive messages of one role.
func appendText(msgs []Message, role, text string) []Message {
	if text == "" {
		return msgs
	}
	if role != RoleAssistant {
		role = RoleUser
	}
	part := MessagePart{Type: PartText, Text: text}
	if n := len(msgs); n > 0 && msgs[n-1].Role == role {
		msgs[n-1].Content = append(msgs[n-1].Content, part)
		return msgs
	}
	return append(msgs, Message{Role: role, Content: MessageParts{part}})
}
