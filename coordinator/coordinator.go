// Package coordinator runs one conversational turn: it seeds a dialogue with
// the model, dispatches the tools the model asks for, feeds their results back
// and assembles the final reply.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"auraagent"
	"auraagent/grocery"
	"auraagent/ingredient"
	"auraagent/kitchen"
	"auraagent/tools"
	"auraagent/worker"
)

const (
	defaultMaxIterations = 6
	defaultHistoryWindow = 10
)

// LLMClient is a chat backend able to call tools.
type LLMClient interface {
	Invoke(ctx context.Context, prompt Prompt) (Response, error)
}

type Options struct {
	MaxIterations int
	HistoryWindow int
	// Backoff governs rate-limit retries; MaxRetries 0 disables them.
	Backoff       Backoff
	Logger        auraagent.CoordinationLogger
}

// Coordinator is responsible for managing the interaction between the LLM and the tools.
type Coordinator struct {
	llm          LLMClient
	toolProvider auraagent.ToolProvider
	opts         Options
	tracer       trace.Tracer
	metrics      metrics
}

type metrics struct {
	turns        metric.Int64Counter
	toolCalls    metric.Int64Counter
	toolFailures metric.Int64Counter
	llmRetries   metric.Int64Counter
	llmLatency   metric.Float64Histogram
	toolLatency  metric.Float64Histogram
}

// NewCoordinator initializes a new coordinator. A nil llm runs every turn in
// degraded mode.
func NewCoordinator(llm LLMClient, toolProvider auraagent.ToolProvider, opts Options) *Coordinator {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = defaultMaxIterations
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = defaultHistoryWindow
	}
	if opts.Backoff.BaseDelay <= 0 {
		opts.Backoff.BaseDelay = DefaultBackoff().BaseDelay
	}
	if opts.Logger == nil {
		opts.Logger = &auraagent.NoOpCoordinationLogger{}
	}

	return &Coordinator{
		llm:          llm,
		toolProvider: toolProvider,
		opts:         opts,
		tracer:       otel.Tracer(auraagent.TracerNameCoordinator),
		metrics:      newMetrics(otel.Meter(auraagent.MeterNameCoordinator)),
	}
}

func newMetrics(meter metric.Meter) metrics {
	var m metrics
	m.turns, _ = meter.Int64Counter("coordinator_turns_total",
		metric.WithDescription("Total number of conversation turns handled"))
	m.toolCalls, _ = meter.Int64Counter("tool_calls_total",
		metric.WithDescription("Total number of tool calls executed"))
	m.toolFailures, _ = meter.Int64Counter("tool_calls_failed_total",
		metric.WithDescription("Total number of tool calls that failed"))
	m.llmRetries, _ = meter.Int64Counter("llm_retries_total",
		metric.WithDescription("Total number of rate-limited LLM calls that were retried"))
	m.llmLatency, _ = meter.Float64Histogram("llm_response_time_seconds",
		metric.WithDescription("Time taken for LLM to respond, retries included"),
		metric.WithUnit("s"))
	m.toolLatency, _ = meter.Float64Histogram("tool_execution_time_seconds",
		metric.WithDescription("Time taken to execute tools"),
		metric.WithUnit("s"))
	return m
}

// Degraded reports whether turns are answered without a model.
func (c *Coordinator) Degraded() bool {
	return c.llm == nil
}

// Run handles one user turn. Backend failures become a localized reply, not
// an error; only a cancelled context is returned as one.
func (c *Coordinator) Run(ctx context.Context, req Request) (Reply, error) {
	if req.Language == "" {
		req.Language = kitchen.English
	}
	reply := Reply{
		TurnID:    uuid.NewString(),
		ToolCalls: []tools.Result{},
		Language:  req.Language,
	}

	ctx, span := c.tracer.Start(ctx, "Coordinator.Run", trace.WithAttributes(
		attribute.String("turn.id", reply.TurnID),
		attribute.String("turn.language", string(req.Language)),
		attribute.Bool("turn.has_image", req.Image != nil),
		attribute.Int("turn.history_len", len(req.History)),
	))
	defer span.End()

	mode := "agent"
	if c.Degraded() {
		mode = "degraded"
	}
	c.metrics.turns.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))

	slog.Info("COORDINATOR: Starting turn",
		"turn_id", reply.TurnID,
		"mode", mode,
		"language", req.Language,
		"has_image", req.Image != nil,
		"history_len", len(req.History))

	if c.Degraded() {
		reply.Degraded = true
		reply.Reply = DegradedReply(req.Message, req.Language)
		span.SetAttributes(attribute.Bool("turn.degraded", true))
		return reply, nil
	}

	prompt := NewPrompt(req, c.toolProvider, c.opts.HistoryWindow)

	for iter := 0; iter < c.opts.MaxIterations; iter++ {
		iterLog := auraagent.IterationLog{
			TurnID:    reply.TurnID,
			Iteration: iter + 1,
			Timestamp: time.Now(),
			Language:  string(req.Language),
		}
		if b, err := json.Marshal(prompt); err == nil {
			iterLog.LLMInput = string(b)
		}

		slog.Info("COORDINATOR: Sending prompt to LLM",
			"iteration", iter+1,
			"messages_count", len(prompt.Messages),
			"tools_count", len(prompt.Tools))

		res, retries, err := c.invoke(ctx, prompt)
		iterLog.Retries = retries
		if err != nil {
			iterLog.Error = err.Error()
			c.logIteration(iterLog)

			span.RecordError(err)
			span.SetStatus(codes.Error, "LLM invocation failed")
			if ctxErr := ctx.Err(); ctxErr != nil {
				return reply, ctxErr
			}
			if errors.Is(err, ErrRateLimited) {
				slog.Warn("COORDINATOR: LLM still rate limited after retries", "retries", retries, "error", err)
				reply.Reply = busyReply.In(req.Language)
			} else {
				slog.Error("COORDINATOR: LLM invocation failed", "error", err)
				reply.Reply = genericReply.In(req.Language)
			}
			return reply, nil
		}
		iterLog.LLMOutput = res

		slog.Info("COORDINATOR: LLM response received",
			"iteration", iter+1,
			"content_length", len(res.Content),
			"tool_calls", len(res.ToolCalls))

		if len(res.ToolCalls) == 0 {
			reply.Reply = strings.TrimSpace(res.Content)
			if reply.Reply == "" {
				reply.Reply = emptyReply.In(req.Language)
			}
			c.logIteration(iterLog)

			span.SetAttributes(
				attribute.Int("turn.iterations", iter+1),
				attribute.Int("turn.tool_calls", len(reply.ToolCalls)))
			span.SetStatus(codes.Ok, "turn completed")
			slog.Info("RESULT: Turn completed",
				"turn_id", reply.TurnID,
				"iterations", iter+1,
				"tool_calls", len(reply.ToolCalls),
				"has_recipe", reply.Recipe != nil,
				"has_deals", reply.GroceryDeals != nil)
			return reply, nil
		}

		assistantMsg := Message{Role: RoleAssistant, Content: MessageParts{}}
		if text := strings.TrimSpace(res.Content); text != "" {
			assistantMsg.Content = append(assistantMsg.Content, MessagePart{Type: PartText, Text: text})
		}

		calls := make([]tools.Call, 0, len(res.ToolCalls))
		for _, call := range res.ToolCalls {
			if call.ToolUseID == "" {
				call.ToolUseID = "tooluse_" + uuid.NewString()
			}
			call.Input = toolInput(call, req)
			calls = append(calls, call)

			assistantMsg.Content = append(assistantMsg.Content, MessagePart{
				Type:      PartToolUse,
				ToolUseID: call.ToolUseID,
				ToolName:  call.Name,
				Data:      call.Input,
			})
		}
		prompt.Messages = append(prompt.Messages, assistantMsg)

		toolResults := make([]ToolResult, 0, len(calls))
		for _, call := range calls {
			result, tlog := c.executeTool(ctx, call)
			reply.ToolCalls = append(reply.ToolCalls, result)
			reply.capture(result)
			iterLog.ToolCalls = append(iterLog.ToolCalls, tlog)

			toolResults = append(toolResults, ToolResult{
				ToolUseID: call.ToolUseID,
				ToolName:  call.Name,
				Data:      result.Payload(),
				IsError:   !result.Success,
			})
		}
		prompt.Messages = append(prompt.Messages, NewToolResultMessage(toolResults))

		c.logIteration(iterLog)
	}

	slog.Warn("COORDINATOR: Iteration limit reached without a final answer", "max_iterations", c.opts.MaxIterations)
	span.SetStatus(codes.Error, "iteration limit reached")
	reply.Reply = genericReply.In(req.Language)
	return reply, nil
}

// invoke calls the model, retrying rate-limited attempts.
func (c *Coordinator) invoke(ctx context.Context, prompt Prompt) (Response, int, error) {
	b := c.opts.Backoff
	retries := 0
	onRetry := b.OnRetry
	b.OnRetry = func(attempt int, delay time.Duration, err error) {
		retries = attempt
		c.metrics.llmRetries.Add(ctx, 1)
		slog.Warn("COORDINATOR: LLM rate limited, backing off", "attempt", attempt, "delay", delay, "error", err)
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}
	}

	start := time.Now()
	res, err := Retry(ctx, b, func(ctx context.Context) (Response, error) {
		return c.llm.Invoke(ctx, prompt)
	})
	c.metrics.llmLatency.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.Bool("success", err == nil)))
	return res, retries, err
}

func (c *Coordinator) executeTool(ctx context.Context, call tools.Call) (tools.Result, auraagent.ToolCallLog) {
	ctx, span := c.tracer.Start(ctx, "tool."+call.Name, trace.WithAttributes(
		attribute.String("tool.name", call.Name),
		attribute.String("tool.use_id", call.ToolUseID),
	))
	defer span.End()

	slog.Info("COORDINATOR: Handling tool call", "name", call.Name, "tool_use_id", call.ToolUseID)

	start := time.Now()
	result := c.toolProvider.Execute(ctx, call)
	elapsed := time.Since(start)

	attrs := metric.WithAttributes(attribute.String("tool_name", call.Name))
	c.metrics.toolCalls.Add(ctx, 1, attrs)
	c.metrics.toolLatency.Record(ctx, elapsed.Seconds(), attrs)

	tlog := auraagent.ToolCallLog{
		Name:      call.Name,
		ToolUseID: call.ToolUseID,
		Input:     call.Input,
		Output:    result.Payload(),
		Duration:  elapsed,
	}
	if !result.Success {
		c.metrics.toolFailures.Add(ctx, 1, attrs)
		span.SetStatus(codes.Error, result.Error)
		tlog.Error = result.Error
	}
	return result, tlog
}

// toolInput copies the model's arguments, filling in the turn language and
// whether the turn carried a photo.
func toolInput(call tools.Call, req Request) map[string]any {
	input := make(map[string]any, len(call.Input)+2)
	for k, v := range call.Input {
		input[k] = v
	}
	if s, _ := input[tools.LanguageKey].(string); s == "" {
		input[tools.LanguageKey] = string(req.Language)
	}
	if call.Name == string(tools.AnalyzeIngredients) && req.Image != nil {
		if _, ok := input[tools.FromImageKey]; !ok {
			input[tools.FromImageKey] = true
		}
	}
	return input
}

// capture keeps the artifacts a successful tool produced.
func (r *Reply) capture(result tools.Result) {
	if !result.Success {
		return
	}
	switch result.Tool {
	case tools.AnalyzeIngredients:
		if a, ok := result.Data.(ingredient.Analysis); ok {
			r.Ingredients = a.Ingredients
		}
	case tools.SuggestRecipes:
		if s, ok := result.Data.(worker.Result); ok && s.Recipe != nil {
			r.Recipe = s.Recipe
		}
	case tools.GetRecipeDetails:
		if d, ok := result.Data.(tools.RecipeDetails); ok {
			recipe := d.Recipe
			r.Recipe = &recipe
		}
	case tools.FindGroceryDeals:
		if d, ok := result.Data.(grocery.Deals); ok {
			r.GroceryDeals = &d
		}
	}
}

func (c *Coordinator) logIteration(iter auraagent.IterationLog) {
	if err := c.opts.Logger.LogIteration(iter); err != nil {
		slog.Error("COORDINATOR: Failed to log coordination iteration", "error", err, "iteration", iter.Iteration)
	}
}
