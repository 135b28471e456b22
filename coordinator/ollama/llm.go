// Package ollama is the local Ollama /api/chat backend for the coordinator.
package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"auraagent"
	"auraagent/coordinator"
	"auraagent/tools"
)

// doneReasonLength marks a response cut off by num_predict.
const doneReasonLength = "length"

type Client struct {
	endpoint   string
	model      string
	httpClient auraagent.HTTPClient
	options    options
}

type ClientOpts struct {
	BaseEndpoint string
	ModelID      string
	MaxTokens    int
	HTTPClient   auraagent.HTTPClient
}

func NewClient(opts ClientOpts) (*Client, error) {
	if strings.TrimSpace(opts.ModelID) == "" {
		return nil, fmt.Errorf("model id is required")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Client{
		model:      opts.ModelID,
		httpClient: opts.HTTPClient,
		endpoint:   strings.TrimRight(opts.BaseEndpoint, "/") + "/api/chat",
		options: options{
			Temperature:   0.2,
			TopP:          0.9,
			RepeatPenalty: 1.05,
			NumCtx:        16384, // safe default; raise if the machine can handle it
			NumPredict:    opts.MaxTokens,
		},
	}, nil
}

// Invoke sends the dialogue to Ollama's chat endpoint. HTTP 429 is wrapped
// with coordinator.ErrRateLimited.
func (c *Client) Invoke(ctx context.Context, prompt coordinator.Prompt) (coordinator.Response, error) {
	slog.Info("LLM_CLIENT: Invoked", "messages_len", len(prompt.Messages))

	wr, err := c.chat(ctx, wireRequest{
		Model:    c.model,
		Messages: buildMessages(prompt),
		Tools:    toolsFromSpecs(prompt.Tools),
		Stream:   false,
		Options:  c.options,
	})
	if err != nil {
		return coordinator.Response{}, err
	}

	if len(wr.Message.ToolCalls) > 0 {
		calls := make([]tools.Call, 0, len(wr.Message.ToolCalls))
		for _, call := range wr.Message.ToolCalls {
			input := call.Function.Arguments
			if input == nil {
				input = map[string]any{}
			}
			calls = append(calls, tools.Call{Name: call.Function.Name, Input: input})
		}
		slog.Info("LLM_CLIENT: Extracted tool calls", "calls_len", len(calls))
		return coordinator.Response{Content: wr.Message.Content, ToolCalls: calls}, nil
	}

	// Return the model's content verbatim; likely the final response.
	return coordinator.Response{Content: wr.Message.Content}, nil
}

// Complete runs a single-shot instruction in JSON mode. The recipe search
// worker uses it to plan search attempts.
func (c *Client) Complete(ctx context.Context, instruction string) (string, error) {
	wr, err := c.chat(ctx, wireRequest{
		Model:    c.model,
		Messages: []wireMessage{{Role: coordinator.RoleUser, Content: instruction}},
		Stream:   false,
		Format:   "json",
		Options:  c.options,
	})
	if err != nil {
		return "", err
	}
	return wr.Message.Content, nil
}

func (c *Client) chat(ctx context.Context, body wireRequest) (wireResponse, error) {
	reqBytes, err := json.Marshal(body)
	if err != nil {
		return wireResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(reqBytes))
	if err != nil {
		return wireResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wireResponse{}, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		slog.Warn("LLM_CLIENT: Ollama rate limited the request", "status", resp.Status)
		return wireResponse{}, fmt.Errorf("%w: %s: %s", coordinator.ErrRateLimited, resp.Status, string(respBody))
	case resp.StatusCode != http.StatusOK:
		return wireResponse{}, fmt.Errorf("LLM_CLIENT: %s: %s", resp.Status, string(respBody))
	}

	var wr wireResponse
	if err := json.Unmarshal(respBody, &wr); err != nil {
		return wireResponse{}, fmt.Errorf("decode chat response: %w", err)
	}
	if wr.DoneReason == doneReasonLength {
		slog.Warn("LLM_CLIENT: Ollama response hit the token limit", "done_reason", wr.DoneReason, "num_predict", c.options.NumPredict)
	}
	return wr, nil
}

// buildMessages converts the dialogue into Ollama chat messages.
// - Prepends the system instruction
// - Images travel base64-encoded on their message
// - Each tool result becomes its own role=tool message
func buildMessages(prompt coordinator.Prompt) []wireMessage {
	messages := make([]wireMessage, 0, len(prompt.Messages)+1)

	if sp := strings.TrimSpace(prompt.System); sp != "" {
		messages = append(messages, wireMessage{Role: "system", Content: sp})
	}

	for _, m := range prompt.Messages {
		msg := wireMessage{Role: m.Role}
		var results []wireMessage

		for _, part := range m.Content {
			switch part.Type {
			case coordinator.PartText:
				if msg.Content != "" {
					msg.Content += "\n"
				}
				msg.Content += part.Text

			case coordinator.PartImage:
				if part.Image != nil && len(part.Image.Data) > 0 {
					msg.Images = append(msg.Images, base64.StdEncoding.EncodeToString(part.Image.Data))
				}

			case coordinator.PartToolUse:
				var call wireToolCall
				call.Function.Name = part.ToolName
				call.Function.Arguments = part.Data
				msg.ToolCalls = append(msg.ToolCalls, call)

			case coordinator.PartToolResult:
				b, err := json.Marshal(part.Data)
				if err != nil {
					b = []byte(fmt.Sprintf(`{"success":false,"error":%q}`, err.Error()))
				}
				results = append(results, wireMessage{Role: "tool", Name: part.ToolName, Content: string(b)})

			default:
				slog.Warn("LLM_CLIENT: Skipping unknown message part", "type", part.Type)
			}
		}

		if msg.Content != "" || len(msg.Images) > 0 || len(msg.ToolCalls) > 0 {
			messages = append(messages, msg)
		}
		messages = append(messages, results...)
	}

	return messages
}
