package auraagent

import (
	"context"
	"net/http"

	"auraagent/tools"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type SlackClient interface {
	PostMessage(ctx context.Context, channel string, message string) error
}

type ToolProvider interface {
	GetTools() []tools.Tool
	GetTool(name string) (tools.Tool, error)
	Execute(ctx context.Context, call tools.Call) tools.Result
}
