// Package worker resolves free-text recipe requests, in any language, into
// matches from the recipe database. It tries ranked search attempts one at a
// time and stops at the first that returns anything.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"auraagent/kitchen"
	"auraagent/mealdb"
)

// ErrNoRecipes is returned when every attempt, including the random last
// resort, came back empty.
var ErrNoRecipes = errors.New("no recipes found")

const maxSuggestions = 5

var tracer = otel.Tracer("auraagent/worker")

// LookupClient is the recipe database surface the worker needs.
type LookupClient interface {
	SearchByName(ctx context.Context, term string) []mealdb.Meal
	FilterByIngredient(ctx context.Context, ingredient string) []mealdb.Meal
	FilterByCategory(ctx context.Context, category string) []mealdb.Meal
	FilterByArea(ctx context.Context, area string) []mealdb.Meal
	Random(ctx context.Context) []mealdb.Meal
	LookupByID(ctx context.Context, id string) *mealdb.Meal
}

// Suggestion is a match summary. SearchTitle is the database's own English
// title and must be used for any follow-up lookup, even after Title has been
// translated for display.
type Suggestion struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	SearchTitle string `json:"englishTitle"`
	Image       string `json:"image"`
	Category    string `json:"category,omitempty"`
	Area        string `json:"area,omitempty"`
}

// Result describes a successful search.
type Result struct {
	Suggestions  []Suggestion    `json:"suggestions"`
	TotalFound   int             `json:"totalFound"`
	Strategy     Kind            `json:"searchStrategy"`
	SearchTerm   string          `json:"searchTerm"`
	Query        string          `json:"userQuery"`
	IsExactMatch bool            `json:"isExactMatch"`
	IsFallback   bool            `json:"isFallback"`
	Note         string          `json:"note,omitempty"`
	Recipe       *kitchen.Recipe `json:"recipe,omitempty"`
	Attempts     []Intent        `json:"attempts"`
}

// Worker runs search attempts against the recipe database.
type Worker struct {
	client   LookupClient
	strategy Strategy
}

// New returns a Worker. A nil strategy uses the intent tables compiled into
// the binary.
func New(client LookupClient, strategy Strategy) *Worker {
	if strategy == nil {
		strategy = NewIntentStrategy(nil)
	}
	return &Worker{client: client, strategy: strategy}
}

// Search plans attempts for query and executes them in confidence order until
// one returns results. When all of them come back empty a random meal is
// fetched as a last resort.
func (w *Worker) Search(ctx context.Context, query string, ingredients []string) (Result, error) {
	ctx, span := tracer.Start(ctx, "Worker.Search", trace.WithAttributes(
		attribute.String("strategy", w.strategy.Name()),
		attribute.String("query", query),
	))
	defer span.End()

	attempts := Rank(w.strategy.Attempts(ctx, query, ingredients))
	slog.Info("RECIPE_WORKER: Starting search",
		"query", query,
		"strategy", w.strategy.Name(),
		"attempts", len(attempts))

	triedRandom := false
	for _, attempt := range attempts {
		if attempt.Kind == Random {
			triedRandom = true
		}
		meals := w.try(ctx, attempt)
		if len(meals) == 0 {
			slog.Info("RECIPE_WORKER: No results, trying next", "type", attempt.Kind, "term", attempt.Term)
			continue
		}
		return w.result(ctx, query, attempt, attempts, meals), nil
	}

	if !triedRandom {
		last := Intent{Kind: Random, Term: string(Random)}
		if meals := w.try(ctx, last); len(meals) > 0 {
			return w.result(ctx, query, last, attempts, meals), nil
		}
	}

	err := fmt.Errorf("%w for %q after %d attempts", ErrNoRecipes, query, len(attempts))
	span.SetStatus(codes.Error, "no recipes")
	span.RecordError(err)
	slog.Warn("RECIPE_WORKER: All attempts failed", "query", query)
	return Result{}, err
}

func (w *Worker) try(ctx context.Context, attempt Intent) []mealdb.Meal {
	ctx, span := tracer.Start(ctx, "Worker.Attempt", trace.WithAttributes(
		attribute.String("type", string(attempt.Kind)),
		attribute.String("term", attempt.Term),
		attribute.Float64("confidence", attempt.Confidence),
	))
	defer span.End()

	var meals []mealdb.Meal
	switch attempt.Kind {
	case ByName:
		meals = w.client.SearchByName(ctx, attempt.Term)
	case ByIngredient:
		meals = w.client.FilterByIngredient(ctx, attempt.Term)
	case ByCategory:
		meals = w.client.FilterByCategory(ctx, attempt.Term)
	case ByArea:
		meals = w.client.FilterByArea(ctx, attempt.Term)
	case Random:
		meals = w.client.Random(ctx)
	}
	span.SetAttributes(attribute.Int("results", len(meals)))
	return meals
}

func (w *Worker) result(ctx context.Context, query string, winner Intent, attempts []Intent, meals []mealdb.Meal) Result {
	n := min(len(meals), maxSuggestions)
	suggestions := make([]Suggestion, 0, n)
	for _, m := range meals[:n] {
		suggestions = append(suggestions, Suggestion{
			ID:          m.ID,
			Title:       m.Name,
			SearchTitle: m.Name,
			Image:       m.Thumbnail,
			Category:    m.Category,
			Area:        m.Area,
		})
	}

	res := Result{
		Suggestions:  suggestions,
		TotalFound:   len(meals),
		Strategy:     winner.Kind,
		SearchTerm:   winner.Term,
		Query:        query,
		IsExactMatch: winner.Kind == ByName,
		IsFallback:   winner.Kind == ByIngredient || winner.Kind == ByCategory || winner.Kind == ByArea,
		Attempts:     attempts,
	}

	switch {
	case res.IsFallback:
		res.Note = fmt.Sprintf("Could not find exact match for %q. Showing %s results for %q.", query, winner.Kind, winner.Term)
	case winner.Kind == Random && winner.Confidence < explicitRandomConfidence:
		res.IsFallback = true
		res.Note = fmt.Sprintf("Could not find a match for %q. Showing a random recipe instead.", query)
	case winner.Kind == Random:
		res.Note = "Showing a random recipe."
	}

	// Name and random searches return full records.
	if meals[0].HasDetails() {
		recipe := mealdb.ToRecipe(meals[0])
		res.Recipe = &recipe
	}

	slog.Info("RECIPE_WORKER: Search succeeded",
		"type", winner.Kind,
		"term", winner.Term,
		"total_found", res.TotalFound,
		"exact", res.IsExactMatch,
		"fallback", res.IsFallback)
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("winner.type", string(winner.Kind)),
		attribute.Int("total_found", res.TotalFound),
	)
	return res
}

// Details fetches the full recipe for a search-safe title, completing a
// summary record through lookup-by-id when it lacks instructions.
func (w *Worker) Details(ctx context.Context, searchTitle string) (kitchen.Recipe, error) {
	ctx, span := tracer.Start(ctx, "Worker.Details", trace.WithAttributes(
		attribute.String("title", searchTitle),
	))
	defer span.End()

	meals := w.client.SearchByName(ctx, searchTitle)
	if len(meals) == 0 {
		err := fmt.Errorf("%w: recipe %q not found", ErrNoRecipes, searchTitle)
		span.SetStatus(codes.Error, "not found")
		return kitchen.Recipe{}, err
	}

	meal := meals[0]
	if !meal.HasDetails() {
		if full := w.client.LookupByID(ctx, meal.ID); full != nil {
			meal = *full
		}
	}

	slog.Info("RECIPE_WORKER: Fetched details", "title", meal.Name, "id", meal.ID)
	return mealdb.ToRecipe(meal), nil
}
