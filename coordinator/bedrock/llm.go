// Package bedrock is the AWS Bedrock Converse backend for the coordinator.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"auraagent/coordinator"
	"auraagent/kitchen"
	"auraagent/tools"
)

const (
	// defaultModelID is the default model ID for Bedrock Claude.
	// It's an inference profile ID or ARN, not the foundation model's ID.
	// See https://docs.aws.amazon.com/bedrock/latest/userguide/inference-profiles.html.
	defaultModelID = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"

	// Controls the maximum number of tokens the model can generate in one response.
	defaultMaxTokens = 1024

	// Low temperature keeps tool arguments and search plans deterministic.
	defaultTemperature = 0.2

	defaultTopP = 0.9
)

// throttlingCodes are API error codes Bedrock uses for 429 responses.
var throttlingCodes = map[string]bool{
	"ThrottlingException":      true,
	"TooManyRequestsException": true,
}

type bedrockRuntimeClient interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type LLMOptions struct {
	ModelID     string
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type LLMClient struct {
	brc  bedrockRuntimeClient
	opts LLMOptions
}

func NewLLMClient(brc bedrockRuntimeClient, opts LLMOptions) *LLMClient {
	if opts.ModelID == "" {
		opts.ModelID = defaultModelID
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.TopP == 0 {
		opts.TopP = defaultTopP
	}
	return &LLMClient{
		brc:  brc,
		opts: opts,
	}
}

// Invoke sends the dialogue to the Converse API. Throttling errors are
// wrapped with coordinator.ErrRateLimited.
func (c *LLMClient) Invoke(ctx context.Context, prompt coordinator.Prompt) (coordinator.Response, error) {
	slog.Info("LLM_CLIENT: Invoked", "messages_len", len(prompt.Messages))

	var sys []types.SystemContentBlock
	if s := strings.TrimSpace(prompt.System); s != "" {
		sys = append(sys, &types.SystemContentBlockMemberText{Value: s})
	}

	msgs := make([]types.Message, 0, len(prompt.Messages))
	for _, m := range prompt.Messages {
		msg := types.Message{Role: types.ConversationRole(m.Role)}
		for _, part := range m.Content {
			if block := contentBlock(part); block != nil {
				msg.Content = append(msg.Content, block)
			}
		}
		if len(msg.Content) > 0 {
			msgs = append(msgs, msg)
		}
	}

	var specs []types.Tool
	for _, t := range prompt.Tools {
		spec, err := buildToolSpec(t)
		if err != nil {
			slog.Error("LLM_CLIENT: Failed to build tool spec", "error", err)
			continue
		}
		specs = append(specs, &types.ToolMemberToolSpec{Value: spec})
	}

	in := &bedrockruntime.ConverseInput{
		ModelId:         &c.opts.ModelID,
		System:          sys,
		Messages:        msgs,
		InferenceConfig: c.inferenceConfig(),
	}
	if len(specs) > 0 {
		in.ToolConfig = &types.ToolConfiguration{Tools: specs, ToolChoice: &types.ToolChoiceMemberAuto{}}
	}

	out, err := c.converse(ctx, in)
	if err != nil {
		return coordinator.Response{}, err
	}

	switch out.StopReason {
	case types.StopReasonToolUse:
		text, _ := textFromOutput(out)
		calls, err := toolCallsFromOutput(out)
		if err != nil {
			return coordinator.Response{}, fmt.Errorf("failed to parse tool calls: %w", err)
		}
		slog.Info("LLM_CLIENT: Extracted tool calls", "calls_len", len(calls))
		return coordinator.Response{Content: text, ToolCalls: calls}, nil

	case types.StopReasonEndTurn, types.StopReasonStopSequence:
		text, err := textFromOutput(out)
		if err != nil {
			return coordinator.Response{}, fmt.Errorf("failed to extract final text: %w", err)
		}
		slog.Info("LLM_CLIENT: Extracted final text", "text_len", len(text))
		return coordinator.Response{Content: text}, nil

	case types.StopReasonMaxTokens:
		slog.Warn("LLM_CLIENT: Model hit MaxTokens limit; consider increasing MaxTokens")
		return coordinator.Response{}, fmt.Errorf("model hit MaxTokens limit; consider increasing MaxTokens")

	case types.StopReasonGuardrailIntervened, types.StopReasonContentFiltered:
		slog.Warn("LLM_CLIENT: Model response blocked by Bedrock safety filters")
		return coordinator.Response{}, fmt.Errorf("model response blocked by Bedrock safety filters")

	default:
		text, err := textFromOutput(out)
		if err != nil {
			return coordinator.Response{}, fmt.Errorf("failed to extract text: %w", err)
		}
		calls, err := toolCallsFromOutput(out)
		if err != nil {
			return coordinator.Response{}, fmt.Errorf("failed to parse tool calls: %w", err)
		}
		return coordinator.Response{Content: text, ToolCalls: calls}, nil
	}
}

// Complete runs a single-shot instruction without tools. The recipe search
// worker uses it to plan search attempts.
func (c *LLMClient) Complete(ctx context.Context, instruction string) (string, error) {
	in := &bedrockruntime.ConverseInput{
		ModelId: &c.opts.ModelID,
		Messages: []types.Message{{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: instruction}},
		}},
		InferenceConfig: c.inferenceConfig(),
	}
	out, err := c.converse(ctx, in)
	if err != nil {
		return "", err
	}
	return textFromOutput(out)
}

func (c *LLMClient) inferenceConfig() *types.InferenceConfiguration {
	return &types.InferenceConfiguration{
		MaxTokens:   aws.Int32(c.opts.MaxTokens),
		Temperature: aws.Float32(c.opts.Temperature),
		TopP:        aws.Float32(c.opts.TopP),
	}
}

func (c *LLMClient) converse(ctx context.Context, in *bedrockruntime.ConverseInput) (*bedrockruntime.ConverseOutput, error) {
	out, err := c.brc.Converse(ctx, in)
	if err != nil {
		if isThrottled(err) {
			slog.Warn("LLM_CLIENT: Bedrock throttled the request", "error", err)
			return nil, fmt.Errorf("%w: %w", coordinator.ErrRateLimited, err)
		}
		slog.Error("LLM_CLIENT: Bedrock Claude invoke failed", "error", err, "messages_len", len(in.Messages))
		return nil, err
	}

	if out.Usage != nil && out.Metrics != nil {
		slog.Info("LLM_CLIENT: Bedrock Claude invoke succeeded",
			"stop_reason", out.StopReason,
			"latency_ms", aws.ToInt64(out.Metrics.LatencyMs),
			"input_tokens", aws.ToInt32(out.Usage.InputTokens),
			"output_tokens", aws.ToInt32(out.Usage.OutputTokens),
		)
	}
	return out, nil
}

func isThrottled(err error) bool {
	var te *types.ThrottlingException
	if errors.As(err, &te) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return throttlingCodes[apiErr.ErrorCode()]
	}
	return false
}

func contentBlock(part coordinator.MessagePart) types.ContentBlock {
	switch part.Type {
	case coordinator.PartText:
		if strings.TrimSpace(part.Text) == "" {
			return nil
		}
		return &types.ContentBlockMemberText{Value: part.Text}

	case coordinator.PartImage:
		if part.Image == nil || len(part.Image.Data) == 0 {
			return nil
		}
		return &types.ContentBlockMemberImage{Value: types.ImageBlock{
			Format: imageFormat(part.Image),
			Source: &types.ImageSourceMemberBytes{Value: part.Image.Data},
		}}

	case coordinator.PartToolUse:
		input := part.Data
		if input == nil {
			input = map[string]any{}
		}
		return &types.ContentBlockMemberToolUse{Value: types.ToolUseBlock{
			ToolUseId: aws.String(part.ToolUseID),
			Name:      aws.String(part.ToolName),
			Input:     document.NewLazyDocument(input),
		}}

	case coordinator.PartToolResult:
		result := part.Data
		if result == nil {
			result = map[string]any{}
		}
		status := types.ToolResultStatusSuccess
		if part.IsError {
			status = types.ToolResultStatusError
		}
		return &types.ContentBlockMemberToolResult{Value: types.ToolResultBlock{
			ToolUseId: aws.String(part.ToolUseID),
			Status:    status,
			Content: []types.ToolResultContentBlock{
				&types.ToolResultContentBlockMemberJson{Value: document.NewLazyDocument(result)},
			},
		}}

	default:
		slog.Warn("LLM_CLIENT: Skipping unknown message part", "type", part.Type)
		return nil
	}
}

func imageFormat(img *kitchen.Image) types.ImageFormat {
	switch strings.ToLower(strings.TrimPrefix(img.MIMEType, "image/")) {
	case "png":
		return types.ImageFormatPng
	case "gif":
		return types.ImageFormatGif
	case "webp":
		return types.ImageFormatWebp
	default:
		return types.ImageFormatJpeg
	}
}

// buildToolSpec constructs a ToolSpecification for a tool.
func buildToolSpec(t coordinator.ToolSpec) (types.ToolSpecification, error) {
	// Round-trip through JSON so the schema's own MarshalJSON decides the shape.
	schemaJSON, err := json.Marshal(t.InputSchema)
	if err != nil {
		return types.ToolSpecification{}, fmt.Errorf("failed to marshal tool schema for %s: %w", t.Name, err)
	}

	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return types.ToolSpecification{}, fmt.Errorf("failed to unmarshal tool schema for %s: %w", t.Name, err)
	}

	return types.ToolSpecification{
		Name:        aws.String(t.Name),
		Description: aws.String(t.Description),
		InputSchema: &types.ToolInputSchemaMemberJson{
			Value: document.NewLazyDocument(schemaMap),
		},
	}, nil
}

// textFromOutput joins the assistant's text blocks with '\n'.
func textFromOutput(out *bedrockruntime.ConverseOutput) (string, error) {
	if out == nil || out.Output == nil {
		return "", nil
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg == nil || len(msg.Value.Content) == 0 {
		return "", nil
	}

	texts := make([]string, 0, len(msg.Value.Content))
	for _, cb := range msg.Value.Content {
		if t, ok := cb.(*types.ContentBlockMemberText); ok && t != nil && strings.TrimSpace(t.Value) != "" {
			texts = append(texts, strings.TrimSpace(t.Value))
		}
	}
	return strings.Join(texts, "\n"), nil
}

// toolCallsFromOutput extracts tool uses emitted by the assistant.
func toolCallsFromOutput(out *bedrockruntime.ConverseOutput) ([]tools.Call, error) {
	var calls []tools.Call

	if out == nil {
		return calls, nil
	}
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg == nil || msg.Value.Content == nil {
		return calls, nil
	}

	for _, cb := range msg.Value.Content {
		tu, ok := cb.(*types.ContentBlockMemberToolUse)
		if !ok || tu == nil {
			continue
		}

		var input map[string]any
		if tu.Value.Input == nil || tu.Value.Input.UnmarshalSmithyDocument(&input) != nil || input == nil {
			input = map[string]any{}
		}

		calls = append(calls, tools.Call{
			Name:      aws.ToString(tu.Value.Name),
			Input:     normalizeInput(input).(map[string]any),
			ToolUseID: aws.ToString(tu.Value.ToolUseId),
		})
	}

	return calls, nil
}

// number is satisfied by document.Number and json.Number.
type number interface {
	Int64() (int64, error)
	Float64() (float64, error)
}

// normalizeInput recursively coerces types for safe downstream use.
func normalizeInput(val any) any {
	switch v := val.(type) {
	case float64:
		// Convert whole numbers like 2.0 → 2
		if v == float64(int(v)) {
			return int(v)
		}
		return v

	case number:
		// Converse tool input decodes numbers as document.Number.
		if i, err := v.Int64(); err == nil {
			return int(i)
		}
		if f, err := v.Float64(); err == nil {
			return normalizeInput(f)
		}
		return v

	case string:
		// Models sometimes send arrays as stringified JSON
		s := strings.TrimSpace(v)
		if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
			var decoded any
			if json.Unmarshal([]byte(s), &decoded) == nil {
				return normalizeInput(decoded)
			}
		}
		return v

	case []any:
		for i := range v {
			v[i] = normalizeInput(v[i])
		}
		return v

	case map[string]any:
		for key, val := range v {
			v[key] = normalizeInput(val)
		}
		return v

	default:
		return v
	}
}
