package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"auraagent"
	"auraagent/kitchen"
	"auraagent/setup"
	"auraagent/slack"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var modelConfig auraagent.ModelConfig
	if err := envdecode.Decode(&modelConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	var agentConfig auraagent.AgentConfig
	if err := envdecode.Decode(&agentConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	var cliConfig auraagent.CLIConfig
	if err := envdecode.Decode(&cliConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	var otelConfig auraagent.OtelConfig
	if err := envdecode.Decode(&otelConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	if cliConfig.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	otelShutdown, err := auraagent.InitOtel(ctx, otelConfig)
	if err != nil {
		slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
		return
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	logger, cleanup, err := newCoordinationLogger(cliConfig.LogDir, modelConfig.ModelID)
	if err != nil {
		slog.Error("SETUP: Failed to create coordination logger", "error", err)
		return
	}
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("Failed to flush coordination log", "error", err)
		}
	}()

	agent, err := setup.NewCoordinator(ctx, modelConfig, agentConfig, setup.LocalSources(agentConfig), logger)
	if err != nil {
		slog.Error("SETUP: Failed to create coordinator", "error", err)
		return
	}

	ctx, span := otel.Tracer(auraagent.TracerNameCLI).Start(ctx, "Session", trace.WithAttributes(
		attribute.String("llm.backend", modelConfig.Backend),
		attribute.String("model.id", modelConfig.ModelID),
		attribute.Bool("agent.degraded", agent.Degraded()),
	))
	defer span.End()

	s := newSession(agent, os.Stdout, kitchen.ParseLanguage(cliConfig.Language))
	s.debug = cliConfig.Debug
	s.channel = cliConfig.SlackChannel
	if cliConfig.SlackWebhookURL != "" {
		s.slack = slack.NewClient(cliConfig.SlackWebhookURL, &http.Client{Timeout: 10 * time.Second})
	}

	// A message on the command line runs a single turn.
	if len(os.Args) > 1 {
		if err := s.turn(ctx, strings.Join(os.Args[1:], " ")); err != nil {
			slog.Error("RESULT: Error handling turn", "error", err)
			os.Exit(1)
		}
		return
	}

	if agent.Degraded() {
		fmt.Println("No LLM backend configured (LLM_BACKEND), replies are limited.")
	}
	fmt.Println("Aura AI is ready. Type /help for commands.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		more, err := s.handle(ctx, scanner.Text())
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			slog.Error("RESULT: Error handling turn", "error", err)
		}
		if !more {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		slog.Error("Failed to read input", "error", err)
	}
}

func newCoordinationLogger(dir, modelID string) (auraagent.CoordinationLogger, func() error, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, func() error { return err }, fmt.Errorf("failed to create log directory: %w", err)
	}
	logFilePath := auraagent.NewCoordinationLogFilePath(dir, modelID)
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, func() error { return err }, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := auraagent.NewFileCoordinationLogger(logFile)
	cleanup := func() error {
		return errors.Join(logger.Flush(), logFile.Close())
	}
	return logger, cleanup, nil
}
