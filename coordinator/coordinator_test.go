package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auraagent"
	"auraagent/grocery"
	"auraagent/kitchen"
	"auraagent/tools"
	"auraagent/worker"
)

type fakeLLM struct {
	responses []Response
	errs      []error
	prompts   []Prompt
}

func (f *fakeLLM) Invoke(_ context.Context, prompt Prompt) (Response, error) {
	i := len(f.prompts)
	prompt.Messages = append([]Message(nil), prompt.Messages...)
	f.prompts = append(f.prompts, prompt)

	if i < len(f.errs) && f.errs[i] != nil {
		return Response{}, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	if len(f.responses) > 0 {
		return f.responses[len(f.responses)-1], nil
	}
	return Response{}, errors.New("no scripted response")
}

type fakeSearcher struct {
	queries []string
	details []string
	recipe  kitchen.Recipe
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ []string) (worker.Result, error) {
	f.queries = append(f.queries, query)
	return worker.Result{
		Suggestions:  []worker.Suggestion{{ID: f.recipe.ID, Title: f.recipe.Title.EN, SearchTitle: f.recipe.Title.EN}},
		TotalFound:   1,
		Strategy:     worker.ByIngredient,
		SearchTerm:   query,
		Query:        query,
		IsFallback:   true,
		Note:         "fallback",
		Attempts:     []worker.Intent{},
		IsExactMatch: false,
	}, nil
}

func (f *fakeSearcher) Details(_ context.Context, title string) (kitchen.Recipe, error) {
	f.details = append(f.details, title)
	if title != f.recipe.Title.EN {
		return kitchen.Recipe{}, worker.ErrNoRecipes
	}
	return f.recipe, nil
}

type fakeFinder struct {
	requests []grocery.Request
}

func (f *fakeFinder) Find(req grocery.Request, _ *grocery.VirtualItems) grocery.Deals {
	f.requests = append(f.requests, req)
	return grocery.Deals{Items: []kitchen.GroceryItem{}, BestDeals: []kitchen.GroceryItem{}, TotalSavings: "0 ₫"}
}

type memoryLogger struct {
	iterations []auraagent.IterationLog
}

func (m *memoryLogger) LogIteration(it auraagent.IterationLog) error {
	m.iterations = append(m.iterations, it)
	return nil
}

var chickenRecipe = kitchen.Recipe{
	ID:       "52795",
	Title:    kitchen.Same("Chicken Handi"),
	Time:     kitchen.Text{EN: "45 mins", VI: "45 phút"},
	Calories: 500,
}

func newTestCoordinator(llm LLMClient, searcher *fakeSearcher, finder *fakeFinder, opts Options) *Coordinator {
	if opts.Backoff.Sleep == nil {
		opts.Backoff.Sleep = func(context.Context, time.Duration) error { return nil }
	}
	return NewCoordinator(llm, tools.NewRegistry(searcher, finder), opts)
}

func TestCoordinator_Run_Degraded(t *testing.T) {
	c := newTestCoordinator(nil, &fakeSearcher{}, &fakeFinder{}, Options{})

	reply, err := c.Run(context.Background(), Request{Message: "gà xào xả ớt", Language: kitchen.Vietnamese})

	require.NoError(t, err)
	assert.True(t, c.Degraded())
	assert.True(t, reply.Degraded)
	assert.Equal(t, configureReply.VI, reply.Reply)
	assert.Empty(t, reply.ToolCalls)
	assert.Nil(t, reply.Recipe)
	assert.NotEmpty(t, reply.TurnID)
}

func TestDegradedReply(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		lang     kitchen.Language
		expected string
	}{
		{name: "english greeting", message: "Hello there", lang: kitchen.English, expected: greetingReply.EN},
		{name: "vietnamese greeting", message: "Xin chào", lang: kitchen.Vietnamese, expected: greetingReply.VI},
		{name: "help", message: "can you help me?", lang: kitchen.English, expected: helpReply.EN},
		{name: "vietnamese help", message: "giúp tôi với", lang: kitchen.Vietnamese, expected: helpReply.VI},
		{name: "thanks", message: "thanks a lot", lang: kitchen.English, expected: thanksReply.EN},
		{name: "greeting must lead", message: "I said hi", lang: kitchen.English, expected: configureReply.EN},
		{name: "dish request", message: "suggest a chicken recipe", lang: kitchen.English, expected: configureReply.EN},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DegradedReply(tt.message, tt.lang))
		})
	}
}

func TestCoordinator_Run_ToolLoop(t *testing.T) {
	searcher := &fakeSearcher{recipe: chickenRecipe}
	llm := &fakeLLM{responses: []Response{
		{Content: "Let me look.", ToolCalls: []tools.Call{{Name: "suggest_recipes", Input: map[string]any{"query": "chicken"}}}},
		{ToolCalls: []tools.Call{{Name: "get_recipe_details", Input: map[string]any{"recipe_name": "Chicken Handi"}, ToolUseID: "tu-2"}}},
		{Content: "Try **Chicken Handi**!"},
	}}
	logger := &memoryLogger{}
	c := newTestCoordinator(llm, searcher, &fakeFinder{}, Options{Logger: logger})

	reply, err := c.Run(context.Background(), Request{Message: "suggest a chicken recipe", Language: kitchen.English})

	require.NoError(t, err)
	assert.Equal(t, "Try **Chicken Handi**!", reply.Reply)
	require.Len(t, reply.ToolCalls, 2)
	assert.Equal(t, tools.SuggestRecipes, reply.ToolCalls[0].Tool)
	assert.Equal(t, tools.GetRecipeDetails, reply.ToolCalls[1].Tool)
	assert.True(t, reply.ToolCalls[0].Success)
	require.NotNil(t, reply.Recipe)
	assert.Equal(t, chickenRecipe, *reply.Recipe)
	assert.Equal(t, []string{"chicken"}, searcher.queries)
	assert.Equal(t, []string{"Chicken Handi"}, searcher.details)
	assert.Len(t, llm.prompts, 3)
	assert.Len(t, logger.iterations, 3)

	// second prompt carries the assistant tool use and its result
	second := llm.prompts[1].Messages
	require.Len(t, second, 3)
	use := second[1].Content
	require.Len(t, use, 2)
	assert.Equal(t, PartText, use[0].Type)
	assert.Equal(t, PartToolUse, use[1].Type)
	assert.NotEmpty(t, use[1].ToolUseID)
	assert.Equal(t, "en", use[1].Data[tools.LanguageKey])

	result := second[2].Content
	require.Len(t, result, 1)
	assert.Equal(t, PartToolResult, result[0].Type)
	assert.Equal(t, use[1].ToolUseID, result[0].ToolUseID)
	assert.Equal(t, true, result[0].Data["success"])
	assert.Equal(t, true, result[0].Data["isFallback"])
	assert.False(t, result[0].IsError)
}

func TestCoordinator_Run_ToolFailureIsFedBack(t *testing.T) {
	llm := &fakeLLM{responses: []Response{
		{ToolCalls: []tools.Call{
			{Name: "get_recipe_details", Input: map[string]any{"recipe_name": "Gà Xào Xả Ớt"}, ToolUseID: "a"},
			{Name: "make_coffee", Input: map[string]any{}, ToolUseID: "b"},
		}},
		{Content: "Sorry, I could not find that dish."},
	}}
	c := newTestCoordinator(llm, &fakeSearcher{recipe: chickenRecipe}, &fakeFinder{}, Options{})

	reply, err := c.Run(context.Background(), Request{Message: "chi tiết món gà", Language: kitchen.Vietnamese})

	require.NoError(t, err)
	assert.Equal(t, "Sorry, I could not find that dish.", reply.Reply)
	require.Len(t, reply.ToolCalls, 2)
	for _, tc := range reply.ToolCalls {
		assert.False(t, tc.Success)
		assert.Nil(t, tc.Data)
		assert.NotEmpty(t, tc.Error)
	}
	assert.Nil(t, reply.Recipe)

	results := llm.prompts[1].Messages[2].Content
	require.Len(t, results, 2)
	assert.True(t, results[0].IsError)
	assert.True(t, results[1].IsError)
	assert.Equal(t, false, results[1].Data["success"])
}

func TestCoordinator_Run_RateLimited(t *testing.T) {
	tests := []struct {
		name          string
		errs          []error
		lang          kitchen.Language
		expectedCalls int
		expectedReply string
	}{
		{
			name:          "recovers after retries",
			errs:          []error{ErrRateLimited, ErrRateLimited, ErrRateLimited},
			lang:          kitchen.English,
			expectedCalls: 4,
			expectedReply: "done",
		},
		{
			name:          "busy after retries are exhausted",
			errs:          []error{ErrRateLimited, ErrRateLimited, ErrRateLimited, ErrRateLimited},
			lang:          kitchen.Vietnamese,
			expectedCalls: 4,
			expectedReply: busyReply.VI,
		},
		{
			name:          "other errors are not retried",
			errs:          []error{errors.New("connection reset")},
			lang:          kitchen.English,
			expectedCalls: 1,
			expectedReply: genericReply.EN,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeLLM{errs: tt.errs, responses: []Response{{}, {}, {}, {Content: "done"}}}
			sleeper := &recordingSleeper{}
			c := newTestCoordinator(llm, &fakeSearcher{}, &fakeFinder{}, Options{
				Backoff: Backoff{MaxRetries: 3, BaseDelay: time.Second, Sleep: sleeper.Sleep},
			})

			reply, err := c.Run(context.Background(), Request{Message: "hi", Language: tt.lang})

			require.NoError(t, err)
			assert.Equal(t, tt.expectedReply, reply.Reply)
			assert.Len(t, llm.prompts, tt.expectedCalls)
			assert.Len(t, sleeper.delays, min(tt.expectedCalls-1, 3))
		})
	}
}

func TestCoordinator_Run_IterationLimit(t *testing.T) {
	llm := &fakeLLM{responses: []Response{
		{ToolCalls: []tools.Call{{Name: "find_grocery_deals", Input: map[string]any{"items": []any{"rice"}}}}},
	}}
	finder := &fakeFinder{}
	c := newTestCoordinator(llm, &fakeSearcher{}, finder, Options{MaxIterations: 3})

	reply, err := c.Run(context.Background(), Request{Message: "cheap rice", Language: kitchen.English})

	require.NoError(t, err)
	assert.Equal(t, genericReply.EN, reply.Reply)
	assert.Len(t, llm.prompts, 3)
	assert.Len(t, reply.ToolCalls, 3)
	require.NotNil(t, reply.GroceryDeals)
	require.Len(t, finder.requests, 3)
	assert.Equal(t, []string{"rice"}, finder.requests[0].Items)
	assert.Equal(t, kitchen.English, finder.requests[0].Language)
}

func TestCoordinator_Run_Image(t *testing.T) {
	llm := &fakeLLM{responses: []Response{
		{ToolCalls: []tools.Call{{Name: "analyze_ingredients", Input: map[string]any{"text": "eggs, tomatoes"}}}},
		{Content: "You have eggs and tomatoes."},
	}}
	c := newTestCoordinator(llm, &fakeSearcher{}, &fakeFinder{}, Options{})

	img := &kitchen.Image{MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8}}
	reply, err := c.Run(context.Background(), Request{Message: "what can I cook?", Image: img, Language: kitchen.English})

	require.NoError(t, err)
	assert.Equal(t, []string{"eggs", "tomatoes"}, reply.Ingredients)

	first := llm.prompts[0].Messages
	require.Len(t, first, 1)
	require.Len(t, first[0].Content, 2)
	assert.Equal(t, PartImage, first[0].Content[0].Type)
	assert.Same(t, img, first[0].Content[0].Image)
	assert.Contains(t, first[0].Content[1].Text, "what can I cook?")
	assert.Contains(t, first[0].Content[1].Text, imageInstruction.EN)

	use := llm.prompts[1].Messages[1].Content[0]
	assert.Equal(t, true, use.Data[tools.FromImageKey])

	result := llm.prompts[1].Messages[2].Content[0]
	assert.Equal(t, 0.85, result.Data["confidence"])
}

func TestCoordinator_Run_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	llm := &fakeLLM{errs: []error{context.Canceled}}
	c := newTestCoordinator(llm, &fakeSearcher{}, &fakeFinder{}, Options{})

	_, err := c.Run(ctx, Request{Message: "hello", Language: kitchen.English})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReply_Turn(t *testing.T) {
	recipe := chickenRecipe
	r := Reply{
		Reply:     "Try this",
		Recipe:    &recipe,
		ToolCalls: []tools.Result{tools.Succeeded(tools.SuggestRecipes, nil)},
	}

	turn := r.Turn()

	assert.Equal(t, kitchen.RoleAssistant, turn.Role)
	assert.Equal(t, "Try this", turn.Content)
	assert.Equal(t, &recipe, turn.Recipe)
	assert.Equal(t, []string{"suggest_recipes"}, turn.ToolNames)
}
