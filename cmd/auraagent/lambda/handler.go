package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"auraagent/coordinator"
	"auraagent/grocery"
	"auraagent/kitchen"
)

type runner interface {
	Run(ctx context.Context, req coordinator.Request) (coordinator.Reply, error)
}

// Event is one chat turn. History is supplied by the caller since the
// function keeps no state between invocations.
type Event struct {
	SessionID string         `json:"session_id"`
	Message   string         `json:"message"`
	Image     string         `json:"image,omitempty"`
	ImageMIME string         `json:"image_mime,omitempty"`
	Language  string         `json:"language"`
	History   []kitchen.Turn `json:"history,omitempty"`
}

type handler struct {
	agent  runner
	tracer trace.Tracer
}

func (h *handler) handle(ctx context.Context, ev Event) (coordinator.Reply, error) {
	ctx, span := h.tracer.Start(ctx, "Invocation", trace.WithAttributes(
		attribute.String("session.id", ev.SessionID),
		attribute.Bool("request.has_image", ev.Image != ""),
	))
	defer span.End()

	req, err := ev.request()
	if err != nil {
		slog.Error("RESULT: Rejected event", "error", err)
		return coordinator.Reply{}, err
	}

	// Seeding from the session keeps synthesized prices stable across turns.
	ctx = grocery.WithVirtualItems(ctx, grocery.NewVirtualItems(sessionSeed(ev.SessionID)))

	reply, err := h.agent.Run(ctx, req)
	if err != nil {
		slog.Error("RESULT: Error handling turn", "error", err)
		return coordinator.Reply{}, err
	}
	slog.Info("RESULT: Turn complete", "turn_id", reply.TurnID, "tool_calls", len(reply.ToolCalls), "degraded", reply.Degraded)
	return reply, nil
}

func (ev Event) request() (coordinator.Request, error) {
	req := coordinator.Request{
		Message:  ev.Message,
		Language: kitchen.ParseLanguage(ev.Language),
		History:  ev.History,
	}
	if ev.Image == "" {
		if strings.TrimSpace(ev.Message) == "" {
			return coordinator.Request{}, fmt.Errorf("message or image is required")
		}
		return req, nil
	}

	data, err := decodeImage(ev.Image)
	if err != nil {
		return coordinator.Request{}, err
	}
	mime := ev.ImageMIME
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	req.Image = &kitchen.Image{MIMEType: mime, Data: data}
	return req, nil
}

// decodeImage accepts raw base64 or a data URL.
func decodeImage(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		if _, payload, ok := strings.Cut(s, ","); ok {
			s = payload
		}
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid image encoding: %w", err)
	}
	return data, nil
}

func sessionSeed(id string) int64 {
	h := fnv.New64a()
	h.Write([]byte(id)) // nolint: errcheck
	return int64(h.Sum64())
}
