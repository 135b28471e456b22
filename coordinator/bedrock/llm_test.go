package bedrock

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
	smithydocument "github.com/aws/smithy-go/document"
	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auraagent/coordinator"
	"auraagent/grocery"
	"auraagent/kitchen"
	"auraagent/tools"
)

// mockBedrockClient implements bedrockRuntimeClient for testing
type mockBedrockClient struct {
	response *bedrockruntime.ConverseOutput
	err      error
	inputs   []*bedrockruntime.ConverseInput
}

func (m *mockBedrockClient) Converse(ctx context.Context, input *bedrockruntime.ConverseInput, opts ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	m.inputs = append(m.inputs, input)
	return m.response, m.err
}

func textOutput(stop types.StopReason, blocks ...types.ContentBlock) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		StopReason: stop,
		Output: &types.ConverseOutputMemberMessage{
			Value: types.Message{Role: types.ConversationRoleAssistant, Content: blocks},
		},
		Usage: &types.TokenUsage{
			InputTokens:  aws.Int32(10),
			OutputTokens: aws.Int32(20),
		},
		Metrics: &types.ConverseMetrics{
			LatencyMs: aws.Int64(100),
		},
	}
}

func userPrompt(text string) coordinator.Prompt {
	return coordinator.Prompt{
		Messages: []coordinator.Message{
			{Role: coordinator.RoleUser, Content: coordinator.MessageParts{{Type: coordinator.PartText, Text: text}}},
		},
	}
}

func TestNewLLMClient(t *testing.T) {
	tests := []struct {
		name     string
		input    LLMOptions
		expected LLMOptions
	}{
		{
			name:  "empty options uses defaults",
			input: LLMOptions{},
			expected: LLMOptions{
				ModelID:     defaultModelID,
				MaxTokens:   defaultMaxTokens,
				Temperature: defaultTemperature,
				TopP:        defaultTopP,
			},
		},
		{
			name: "custom options preserved",
			input: LLMOptions{
				ModelID:     "custom-model",
				MaxTokens:   2048,
				Temperature: 0.5,
				TopP:        0.8,
			},
			expected: LLMOptions{
				ModelID:     "custom-model",
				MaxTokens:   2048,
				Temperature: 0.5,
				TopP:        0.8,
			},
		},
		{
			name: "partial options with defaults",
			input: LLMOptions{
				ModelID:   "custom-model",
				MaxTokens: 2048,
			},
			expected: LLMOptions{
				ModelID:     "custom-model",
				MaxTokens:   2048,
				Temperature: defaultTemperature,
				TopP:        defaultTopP,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockClient := &mockBedrockClient{}
			client := NewLLMClient(mockClient, tt.input)

			assert.Equal(t, tt.expected, client.opts)
			assert.Equal(t, mockClient, client.brc)
		})
	}
}

func TestLLMClient_Invoke(t *testing.T) {
	tests := []struct {
		name          string
		mockResponse  *bedrockruntime.ConverseOutput
		mockError     error
		expectedResp  coordinator.Response
		expectedError string
		rateLimited   bool
	}{
		{
			name:         "successful text response",
			mockResponse: textOutput(types.StopReasonEndTurn, &types.ContentBlockMemberText{Value: "Try **Pho**!"}),
			expectedResp: coordinator.Response{Content: "Try **Pho**!"},
		},
		{
			name: "tool use response keeps preamble text",
			mockResponse: textOutput(types.StopReasonToolUse,
				&types.ContentBlockMemberText{Value: "Let me search."},
				&types.ContentBlockMemberToolUse{
					Value: types.ToolUseBlock{
						ToolUseId: aws.String("test-id"),
						Name:      aws.String("suggest_recipes"),
						Input:     document.NewLazyDocument(map[string]any{"query": "chicken"}),
					},
				},
			),
			expectedResp: coordinator.Response{
				Content: "Let me search.",
				ToolCalls: []tools.Call{
					{Name: "suggest_recipes", Input: map[string]any{"query": "chicken"}, ToolUseID: "test-id"},
				},
			},
		},
		{
			name:          "max tokens error",
			mockResponse:  textOutput(types.StopReasonMaxTokens),
			expectedError: "model hit MaxTokens limit",
		},
		{
			name:          "safety filter error",
			mockResponse:  textOutput(types.StopReasonContentFiltered),
			expectedError: "model response blocked by Bedrock safety filters",
		},
		{
			name:          "bedrock API error",
			mockError:     assert.AnError,
			expectedError: "assert.AnError general error for testing",
		},
		{
			name:          "throttling exception",
			mockError:     fmt.Errorf("operation error: %w", &types.ThrottlingException{Message: aws.String("slow down")}),
			expectedError: "rate limited",
			rateLimited:   true,
		},
		{
			name:          "throttling API error code",
			mockError:     &smithy.GenericAPIError{Code: "TooManyRequestsException", Message: "429"},
			expectedError: "rate limited",
			rateLimited:   true,
		},
		{
			name:          "validation API error is not throttling",
			mockError:     &smithy.GenericAPIError{Code: "ValidationException", Message: "bad input"},
			expectedError: "bad input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockClient := &mockBedrockClient{
				response: tt.mockResponse,
				err:      tt.mockError,
			}

			llmClient := NewLLMClient(mockClient, LLMOptions{})
			resp, err := llmClient.Invoke(context.Background(), userPrompt("Hello"))

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				if tt.rateLimited {
					assert.ErrorIs(t, err, coordinator.ErrRateLimited)
				} else {
					assert.NotErrorIs(t, err, coordinator.ErrRateLimited)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectedResp, resp)
		})
	}
}

func TestLLMClient_Invoke_BuildsRequest(t *testing.T) {
	mockClient := &mockBedrockClient{response: textOutput(types.StopReasonEndTurn, &types.ContentBlockMemberText{Value: "ok"})}
	client := NewLLMClient(mockClient, LLMOptions{ModelID: "test-model"})

	prompt := coordinator.Prompt{
		System: "be helpful",
		Messages: []coordinator.Message{
			{Role: coordinator.RoleUser, Content: coordinator.MessageParts{
				{Type: coordinator.PartImage, Image: &kitchen.Image{MIMEType: "image/png", Data: []byte{1, 2, 3}}},
				{Type: coordinator.PartText, Text: "what is this?"},
			}},
			{Role: coordinator.RoleAssistant, Content: coordinator.MessageParts{
				{Type: coordinator.PartToolUse, ToolUseID: "t1", ToolName: "analyze_ingredients", Data: map[string]any{"text": "eggs"}},
			}},
			coordinator.NewToolResultMessage([]coordinator.ToolResult{
				{ToolUseID: "t1", ToolName: "analyze_ingredients", Data: map[string]any{"success": false, "error": "boom"}, IsError: true},
			}),
		},
		Tools: []coordinator.ToolSpec{{
			Name:        "analyze_ingredients",
			Description: "split ingredients",
			InputSchema: &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{"text": {Type: "string"}}},
		}},
	}

	_, err := client.Invoke(context.Background(), prompt)
	require.NoError(t, err)
	require.Len(t, mockClient.inputs, 1)
	in := mockClient.inputs[0]

	assert.Equal(t, "test-model", aws.ToString(in.ModelId))
	require.Len(t, in.System, 1)
	assert.Equal(t, "be helpful", in.System[0].(*types.SystemContentBlockMemberText).Value)

	require.Len(t, in.Messages, 3)
	img, ok := in.Messages[0].Content[0].(*types.ContentBlockMemberImage)
	require.True(t, ok)
	assert.Equal(t, types.ImageFormatPng, img.Value.Format)
	assert.Equal(t, []byte{1, 2, 3}, img.Value.Source.(*types.ImageSourceMemberBytes).Value)

	use, ok := in.Messages[1].Content[0].(*types.ContentBlockMemberToolUse)
	require.True(t, ok)
	assert.Equal(t, "t1", aws.ToString(use.Value.ToolUseId))

	res, ok := in.Messages[2].Content[0].(*types.ContentBlockMemberToolResult)
	require.True(t, ok)
	assert.Equal(t, types.ToolResultStatusError, res.Value.Status)
	assert.Equal(t, types.ConversationRoleUser, in.Messages[2].Role)

	require.NotNil(t, in.ToolConfig)
	require.Len(t, in.ToolConfig.Tools, 1)
	spec := in.ToolConfig.Tools[0].(*types.ToolMemberToolSpec)
	assert.Equal(t, "analyze_ingredients", aws.ToString(spec.Value.Name))
}

func TestLLMClient_Complete(t *testing.T) {
	mockClient := &mockBedrockClient{response: textOutput(types.StopReasonEndTurn,
		&types.ContentBlockMemberText{Value: `{"attempts":[{"type":"name","term":"pho"}]}`})}
	client := NewLLMClient(mockClient, LLMOptions{})

	text, err := client.Complete(context.Background(), "plan a search for phở")

	require.NoError(t, err)
	assert.Equal(t, `{"attempts":[{"type":"name","term":"pho"}]}`, text)
	require.Len(t, mockClient.inputs, 1)
	assert.Nil(t, mockClient.inputs[0].ToolConfig)
	assert.Empty(t, mockClient.inputs[0].System)
}

func TestLLMClient_Complete_Throttled(t *testing.T) {
	client := NewLLMClient(&mockBedrockClient{err: &types.ThrottlingException{Message: aws.String("slow down")}}, LLMOptions{})

	_, err := client.Complete(context.Background(), "plan")

	assert.ErrorIs(t, err, coordinator.ErrRateLimited)
}

func TestImageFormat(t *testing.T) {
	tests := []struct {
		mime     string
		expected types.ImageFormat
	}{
		{"image/png", types.ImageFormatPng},
		{"image/gif", types.ImageFormatGif},
		{"image/webp", types.ImageFormatWebp},
		{"image/jpeg", types.ImageFormatJpeg},
		{"", types.ImageFormatJpeg},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			assert.Equal(t, tt.expected, imageFormat(&kitchen.Image{MIMEType: tt.mime}))
		})
	}
}

func TestTextFromOutput(t *testing.T) {
	tests := []struct {
		name     string
		output   *bedrockruntime.ConverseOutput
		expected string
	}{
		{
			name:     "nil output",
			output:   nil,
			expected: "",
		},
		{
			name:     "single text block",
			output:   textOutput(types.StopReasonEndTurn, &types.ContentBlockMemberText{Value: "Hello world"}),
			expected: "Hello world",
		},
		{
			name: "multiple text blocks",
			output: textOutput(types.StopReasonEndTurn,
				&types.ContentBlockMemberText{Value: "Hello"},
				&types.ContentBlockMemberText{Value: "world"},
			),
			expected: "Hello\nworld",
		},
		{
			name: "blank blocks skipped",
			output: textOutput(types.StopReasonEndTurn,
				&types.ContentBlockMemberText{Value: "  "},
				&types.ContentBlockMemberText{Value: "Xin chào"},
			),
			expected: "Xin chào",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := textFromOutput(tt.output)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestNormalizeInput(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected any
	}{
		{
			name:     "whole number float to int",
			input:    2.0,
			expected: 2,
		},
		{
			name:     "decimal float unchanged",
			input:    2.5,
			expected: 2.5,
		},
		{
			name:     "string unchanged",
			input:    "hello",
			expected: "hello",
		},
		{
			name:     "numeric string unchanged",
			input:    "42",
			expected: "42",
		},
		{
			name:     "stringified array decoded",
			input:    `["chicken", "rice"]`,
			expected: []any{"chicken", "rice"},
		},
		{
			name:     "document number decimal",
			input:    smithydocument.Number("1.5"),
			expected: 1.5,
		},
		{
			name:     "document number whole",
			input:    smithydocument.Number("3"),
			expected: 3,
		},
		{
			name:     "nested map",
			input:    map[string]any{"max_distance_km": 5.0, "items": []any{"gà"}},
			expected: map[string]any{"max_distance_km": 5, "items": []any{"gà"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := normalizeInput(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestToolCallsFromOutput(t *testing.T) {
	tests := []struct {
		name     string
		output   *bedrockruntime.ConverseOutput
		expected []tools.Call
	}{
		{
			name: "single tool call",
			output: textOutput(types.StopReasonToolUse, &types.ContentBlockMemberToolUse{
				Value: types.ToolUseBlock{
					ToolUseId: aws.String("test-id"),
					Name:      aws.String("find_grocery_deals"),
					Input:     document.NewLazyDocument(map[string]any{}),
				},
			}),
			expected: []tools.Call{
				{Name: "find_grocery_deals", Input: map[string]any{}, ToolUseID: "test-id"},
			},
		},
		{
			name: "multiple tool calls",
			output: textOutput(types.StopReasonToolUse,
				&types.ContentBlockMemberToolUse{
					Value: types.ToolUseBlock{
						ToolUseId: aws.String("id1"),
						Name:      aws.String("suggest_recipes"),
						Input:     document.NewLazyDocument(map[string]any{}),
					},
				},
				&types.ContentBlockMemberToolUse{
					Value: types.ToolUseBlock{
						ToolUseId: aws.String("id2"),
						Name:      aws.String("find_grocery_deals"),
						Input:     document.NewLazyDocument(map[string]any{}),
					},
				},
			),
			expected: []tools.Call{
				{Name: "suggest_recipes", Input: map[string]any{}, ToolUseID: "id1"},
				{Name: "find_grocery_deals", Input: map[string]any{}, ToolUseID: "id2"},
			},
		},
		{
			name:     "no tool calls",
			output:   textOutput(types.StopReasonEndTurn, &types.ContentBlockMemberText{Value: "hi"}),
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls, err := toolCallsFromOutput(tt.output)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, calls)
		})
	}
}

// cannedHTTPClient answers every request with the same Converse response body.
type cannedHTTPClient struct {
	body string
}

func (c cannedHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(c.body)),
		Request:    req,
	}, nil
}

type recordingFinder struct {
	req grocery.Request
}

func (f *recordingFinder) Find(req grocery.Request, virtual *grocery.VirtualItems) grocery.Deals {
	f.req = req
	return grocery.Deals{}
}

const toolUseResponse = `{
	"output": {"message": {"role": "assistant", "content": [
		{"toolUse": {"toolUseId": "tu-1", "name": "find_grocery_deals",
			"input": {"items": ["chicken", "lemongrass"], "max_distance_km": 1.5, "limit": 3}}}
	]}},
	"stopReason": "tool_use",
	"usage": {"inputTokens": 10, "outputTokens": 20, "totalTokens": 30},
	"metrics": {"latencyMs": 5}
}`

func TestLLMClient_Invoke_ToolInputNumbersFromWire(t *testing.T) {
	brc := bedrockruntime.New(bedrockruntime.Options{
		Region:           "us-east-1",
		BaseEndpoint:     aws.String("https://bedrock-runtime.test"),
		Credentials:      aws.AnonymousCredentials{},
		HTTPClient:       cannedHTTPClient{body: toolUseResponse},
		RetryMaxAttempts: 1,
	})
	client := NewLLMClient(brc, LLMOptions{ModelID: "test-model"})

	res, err := client.Invoke(context.Background(), coordinator.Prompt{
		Messages: []coordinator.Message{{
			Role:    coordinator.RoleUser,
			Content: coordinator.MessageParts{{Type: coordinator.PartText, Text: "deals within 1.5 km"}},
		}},
	})
	require.NoError(t, err)
	require.Len(t, res.ToolCalls, 1)

	input := res.ToolCalls[0].Input
	assert.Equal(t, 1.5, input["max_distance_km"])
	assert.Equal(t, 3, input["limit"])

	finder := &recordingFinder{}
	_, err = tools.NewFindGroceryDeals(finder).Run(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 1.5, finder.req.MaxDistanceKm)
	assert.Equal(t, []string{"chicken", "lemongrass"}, finder.req.Items)
}
