// Package mock is a deterministic scripted backend for local demos and tests.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"auraagent/coordinator"
	"auraagent/tools"
)

// sampleIngredients is what the mock "sees" in any attached photo.
const sampleIngredients = "chicken, lemongrass, chili, garlic"

type LLMClient struct{}

func NewLLMClient() *LLMClient {
	return &LLMClient{}
}

// Invoke walks a fixed script based on the tool results already in the
// prompt. It is deterministic and only serves to show how the coordinator
// handles each phase of tool use; real models may not be so kind :)
//
//  1. photo attached, no results yet -> analyze_ingredients
//  2. no results yet -> suggest_recipes with the user's text
//  3. suggestions found -> get_recipe_details with the first englishTitle
//  4. anything else -> final text
func (m *LLMClient) Invoke(ctx context.Context, prompt coordinator.Prompt) (coordinator.Response, error) {
	slog.Info("LLM_CLIENT: Invoked", "messages_len", len(prompt.Messages))

	results := toolResults(prompt)
	query, hasImage := lastUserInput(prompt)

	if len(results) == 0 {
		if hasImage {
			slog.Info("LLM_CLIENT: Returning analyze_ingredients call")
			return call(tools.AnalyzeIngredients, map[string]any{"text": sampleIngredients}), nil
		}
		slog.Info("LLM_CLIENT: Returning suggest_recipes call")
		return call(tools.SuggestRecipes, map[string]any{"query": query}), nil
	}

	if r, ok := results[tools.AnalyzeIngredients]; ok && !has(results, tools.SuggestRecipes) && succeeded(r) {
		return call(tools.SuggestRecipes, map[string]any{"query": query, "ingredients": r["ingredients"]}), nil
	}

	if r, ok := results[tools.SuggestRecipes]; ok && !has(results, tools.GetRecipeDetails) && succeeded(r) {
		if title := firstEnglishTitle(r); title != "" {
			slog.Info("LLM_CLIENT: Returning get_recipe_details call", "recipe_name", title)
			return call(tools.GetRecipeDetails, map[string]any{"recipe_name": title}), nil
		}
	}

	slog.Info("LLM_CLIENT: Returning final reply")
	return coordinator.Response{Content: finalReply(results)}, nil
}

// Complete returns a two-attempt search plan built from the first word of the
// first quoted segment of instruction.
func (m *LLMClient) Complete(ctx context.Context, instruction string) (string, error) {
	term := "chicken"
	if fields := strings.Fields(quoted(instruction)); len(fields) > 0 {
		term = fields[0]
	}
	plan := map[string]any{
		"attempts": []map[string]string{
			{"type": "name", "term": term},
			{"type": "ingredient", "term": term},
		},
	}
	b, err := json.Marshal(plan)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func call(name tools.Name, input map[string]any) coordinator.Response {
	return coordinator.Response{ToolCalls: []tools.Call{{Name: string(name), Input: input}}}
}

// toolResults collects the latest result payload per tool across the prompt.
func toolResults(prompt coordinator.Prompt) map[tools.Name]map[string]any {
	out := map[tools.Name]map[string]any{}
	for _, msg := range prompt.Messages {
		for _, part := range msg.Content {
			if part.Type != coordinator.PartToolResult {
				continue
			}
			if name, err := tools.ParseName(part.ToolName); err == nil {
				out[name] = part.Data
			}
		}
	}
	return out
}

func lastUserInput(prompt coordinator.Prompt) (string, bool) {
	for i := len(prompt.Messages) - 1; i >= 0; i-- {
		msg := prompt.Messages[i]
		if msg.Role != coordinator.RoleUser {
			continue
		}
		var text string
		var image bool
		for _, part := range msg.Content {
			switch part.Type {
			case coordinator.PartText:
				text = part.Text
			case coordinator.PartImage:
				image = true
			}
		}
		if text != "" || image {
			// drop the photo instruction appended to the user's text
			if j := strings.Index(text, "\n\n"); j >= 0 {
				text = text[:j]
			}
			return strings.TrimSpace(text), image
		}
	}
	return "", false
}

func has(results map[tools.Name]map[string]any, name tools.Name) bool {
	_, ok := results[name]
	return ok
}

func succeeded(payload map[string]any) bool {
	ok, _ := payload["success"].(bool)
	return ok
}

func firstEnglishTitle(payload map[string]any) string {
	suggestions, _ := payload["suggestions"].([]any)
	if len(suggestions) == 0 {
		return ""
	}
	first, _ := suggestions[0].(map[string]any)
	title, _ := first["englishTitle"].(string)
	return title
}

func finalReply(results map[tools.Name]map[string]any) string {
	if r, ok := results[tools.GetRecipeDetails]; ok && succeeded(r) {
		recipe, _ := r["recipe"].(map[string]any)
		title, _ := recipe["title"].(map[string]any)
		name, _ := title["en"].(string)
		reply := fmt.Sprintf("I suggest **%s**! The full recipe is below. 🍳", name)
		if s, ok := results[tools.SuggestRecipes]; ok {
			if note, _ := s["note"].(string); note != "" {
				reply = note + "\n\n" + reply
			}
		}
		return reply
	}
	if r, ok := results[tools.FindGroceryDeals]; ok && succeeded(r) {
		savings, _ := r["totalSavings"].(string)
		return fmt.Sprintf("🛒 You can save up to **%s** at nearby stores.", savings)
	}
	return "Sorry, I couldn't find a recipe for that. Try another dish or ingredient!"
}

// quoted returns the first double-quoted segment of s.
func quoted(s string) string {
	i := strings.Index(s, `"`)
	if i < 0 {
		return ""
	}
	j := strings.Index(s[i+1:], `"`)
	if j < 0 {
		return ""
	}
	return strings.TrimSpace(s[i+1 : i+1+j])
}
