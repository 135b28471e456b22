package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"
	"go.opentelemetry.io/otel"

	"auraagent"
	"auraagent/setup"
)

func main() {
	ctx := context.Background()

	var modelConfig auraagent.ModelConfig
	if err := envdecode.Decode(&modelConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	var agentConfig auraagent.AgentConfig
	if err := envdecode.Decode(&agentConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	var artifactsConfig auraagent.ArtifactsConfig
	if err := envdecode.Decode(&artifactsConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	var otelConfig auraagent.OtelConfig
	if err := envdecode.Decode(&otelConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	otelShutdown, err := auraagent.InitOtel(ctx, otelConfig)
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %s", err)
	}
	defer otelShutdown(ctx) // nolint: errcheck

	src := setup.S3Sources(nil, artifactsConfig)
	if artifactsConfig.Bucket != "" {
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			log.Fatalf("Failed to load AWS config: %s", err)
		}
		src = setup.S3Sources(s3.NewFromConfig(awsCfg), artifactsConfig)
		slog.Info("SETUP: Loading artifacts from S3", "bucket", artifactsConfig.Bucket)
	}

	agent, err := setup.NewCoordinator(ctx, modelConfig, agentConfig, src, auraagent.NewStdoutCoordinationLogger())
	if err != nil {
		log.Fatalf("Failed to create coordinator: %s", err)
	}

	h := &handler{
		agent:  agent,
		tracer: otel.Tracer(auraagent.TracerNameLambda),
	}
	lambda.Start(h.handle)
}
