package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

const (
	dishConfidence           = 0.9
	explicitRandomConfidence = 0.9
	categoryConfidence       = 0.7
	areaConfidence           = 0.6
	ingredientConfidence     = 0.5
	remainderConfidence      = 0.4
	randomConfidence         = 0.3

	// minRemainderLength is the shortest filler-stripped query worth a
	// by-name search.
	minRemainderLength = 3

	fallbackIngredient = "chicken"

	// maxPlanAttempts bounds how many searches one model plan may trigger.
	maxPlanAttempts = 5
)

// Strategy turns a query into search attempts. Attempts need not be ranked;
// the worker ranks them before executing.
type Strategy interface {
	Name() string
	Attempts(ctx context.Context, query string, ingredients []string) []Intent
}

// IntentStrategy matches queries against keyword tables without calling a
// model.
type IntentStrategy struct {
	tables *Tables
}

func NewIntentStrategy(tables *Tables) *IntentStrategy {
	if tables == nil {
		tables = DefaultTables()
	}
	return &IntentStrategy{tables: tables}
}

func (s *IntentStrategy) Name() string { return "intent" }

func (s *IntentStrategy) Attempts(ctx context.Context, query string, ingredients []string) []Intent {
	q := strings.ToLower(strings.TrimSpace(query))

	var intents []Intent
	keyword := false
	match := func(rules []Rule, kind Kind) {
		for _, r := range rules {
			if r.re != nil && r.re.MatchString(q) {
				intents = append(intents, Intent{Kind: kind, Term: r.Term, Confidence: r.Confidence})
				if kind != Random {
					keyword = true
				}
			}
		}
	}
	match(s.tables.Random, Random)
	match(s.tables.Dishes, ByName)
	match(s.tables.Categories, ByCategory)
	match(s.tables.Areas, ByArea)

	for _, ing := range ingredients {
		if ing = strings.TrimSpace(ing); ing != "" {
			intents = append(intents, Intent{Kind: ByIngredient, Term: ing, Confidence: ingredientConfidence})
		}
	}

	if !keyword && len(ingredients) == 0 {
		if rest := s.stripFillers(q); utf8.RuneCountInString(rest) >= minRemainderLength {
			intents = append(intents, Intent{Kind: ByName, Term: rest, Confidence: remainderConfidence})
		} else {
			intents = append(intents, Intent{Kind: Random, Term: string(Random), Confidence: randomConfidence})
		}
	}
	return intents
}

func (s *IntentStrategy) stripFillers(q string) string {
	words := strings.FieldsFunc(q, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?' || r == '\t' || r == '\n'
	})
	kept := words[:0]
	for _, w := range words {
		if !s.tables.fillers[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// Completer is a single-shot text completion against a model.
type Completer interface {
	Complete(ctx context.Context, instruction string) (string, error)
}

// LLMStrategy asks a model to translate and decompose the query into typed
// attempts. When the model call fails it defers to fallback.
type LLMStrategy struct {
	llm      Completer
	fallback Strategy
}

func NewLLMStrategy(llm Completer, fallback Strategy) *LLMStrategy {
	return &LLMStrategy{llm: llm, fallback: fallback}
}

func (s *LLMStrategy) Name() string { return "llm" }

func (s *LLMStrategy) Attempts(ctx context.Context, query string, ingredients []string) []Intent {
	text, err := s.llm.Complete(ctx, searchInstruction(query, ingredients))
	if err != nil {
		slog.Warn("RECIPE_WORKER: Model unavailable for search planning", "error", err)
		if s.fallback != nil {
			return s.fallback.Attempts(ctx, query, ingredients)
		}
		return defaultAttempts(query)
	}

	attempts, err := ParseAttempts(text)
	if err != nil || len(attempts) == 0 {
		slog.Warn("RECIPE_WORKER: Failed to parse search plan, using defaults", "error", err)
		return defaultAttempts(query)
	}
	slog.Info("RECIPE_WORKER: Generated search attempts", "attempts", attempts)
	return attempts
}

// ParseAttempts decodes a {"attempts":[{"type","term"}]} plan, tolerating a
// fenced code block around the JSON. Earlier attempts get higher confidence.
// Duplicates are dropped and at most maxPlanAttempts are kept.
func ParseAttempts(text string) ([]Intent, error) {
	text = strings.TrimSpace(text)
	if i, j := strings.Index(text, "{"), strings.LastIndex(text, "}"); i >= 0 && j > i {
		text = text[i : j+1]
	}

	var plan struct {
		Attempts []struct {
			Type string `json:"type"`
			Term string `json:"term"`
		} `json:"attempts"`
	}
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		return nil, fmt.Errorf("invalid search plan: %w", err)
	}

	var out []Intent
	for _, a := range plan.Attempts {
		kind, ok := ParseKind(a.Type)
		term := strings.TrimSpace(a.Term)
		if !ok || (term == "" && kind != Random) {
			continue
		}
		out = append(out, Intent{Kind: kind, Term: term})
	}
	out = Rank(out)
	if len(out) > maxPlanAttempts {
		out = out[:maxPlanAttempts]
	}
	for i := range out {
		out[i].Confidence = 1 - float64(i)/float64(len(out)+1)
	}
	return out, nil
}

func defaultAttempts(query string) []Intent {
	first := query
	if fields := strings.Fields(query); len(fields) > 0 {
		first = fields[0]
	}
	return []Intent{
		{Kind: ByName, Term: first, Confidence: 0.6},
		{Kind: ByIngredient, Term: fallbackIngredient, Confidence: 0.4},
	}
}

func searchInstruction(query string, ingredients []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a recipe search planner for TheMealDB.\n\nFind recipes matching the user's request: %q\n", query)
	if len(ingredients) > 0 {
		fmt.Fprintf(&b, "Ingredients the user has: %s\n", strings.Join(ingredients, ", "))
	}
	b.WriteString(`
Search types:
- name: search by dish name (e.g. "chicken curry", "pasta")
- ingredient: filter by main ingredient (e.g. "chicken", "beef")
- area: filter by cuisine (e.g. "Vietnamese", "Thai", "Italian")
- category: filter by category (e.g. "Seafood", "Vegetarian", "Dessert")

Rules:
1. The database only understands ENGLISH search terms. Translate non-English dish names to English.
2. Order attempts from the most specific to the most general.
3. Return 3 to 5 attempts.

Respond with JSON only, in this shape:
{"attempts": [{"type": "name", "term": "english term"}, {"type": "ingredient", "term": "main ingredient"}]}`)
	return b.String()
}
