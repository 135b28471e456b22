// Package setup assembles the agent from configuration: the LLM backend, the
// tool registry behind it and the coordinator that drives both.
package setup

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"auraagent"
	"auraagent/coordinator"
	"auraagent/coordinator/bedrock"
	"auraagent/coordinator/mock"
	"auraagent/coordinator/ollama"
	"auraagent/grocery"
	"auraagent/mealdb"
	"auraagent/storage"
	"auraagent/tools"
	"auraagent/worker"
)

// Backend is a model that can both drive the conversation and plan searches.
type Backend interface {
	coordinator.LLMClient
	worker.Completer
}

// Sources locates the artifacts the tools are built from.
type Sources struct {
	Catalog      storage.State
	IntentTables storage.State
}

// LocalSources reads artifacts from the paths in cfg, falling back to the
// embedded defaults for any path that is unset or unreadable.
func LocalSources(cfg auraagent.AgentConfig) Sources {
	src := Sources{
		Catalog:      grocery.DefaultCatalogState(),
		IntentTables: worker.DefaultTablesState(),
	}
	if cfg.CatalogPath != "" {
		src.Catalog = storage.Fallback{Name: "catalog", Primary: storage.NewFileState(cfg.CatalogPath), Secondary: src.Catalog}
	}
	if cfg.IntentTablesPath != "" {
		src.IntentTables = storage.Fallback{Name: "intent tables", Primary: storage.NewFileState(cfg.IntentTablesPath), Secondary: src.IntentTables}
	}
	return src
}

// S3Sources reads artifacts from the bucket in cfg. Without a bucket the
// embedded defaults are used.
func S3Sources(client storage.ObjectGetter, cfg auraagent.ArtifactsConfig) Sources {
	src := Sources{
		Catalog:      grocery.DefaultCatalogState(),
		IntentTables: worker.DefaultTablesState(),
	}
	if cfg.Bucket == "" || client == nil {
		return src
	}
	src.Catalog = storage.Fallback{
		Name:      "catalog",
		Primary:   storage.NewS3State(client, cfg.Bucket, cfg.CatalogKey),
		Secondary: src.Catalog,
	}
	src.IntentTables = storage.Fallback{
		Name:      "intent tables",
		Primary:   storage.NewS3State(client, cfg.Bucket, cfg.IntentTablesKey),
		Secondary: src.IntentTables,
	}
	return src
}

// NewBackend builds the model client named by cfg.Backend. It returns a nil
// Backend, and no error, when no backend is configured.
func NewBackend(ctx context.Context, cfg auraagent.ModelConfig, agentCfg auraagent.AgentConfig) (Backend, error) {
	if cfg.Degraded() {
		slog.Warn("SETUP: No LLM backend configured, running in degraded mode")
		return nil, nil
	}

	switch cfg.Backend {
	case auraagent.BackendBedrock:
		// Throttling is retried by the coordinator; the SDK makes a single attempt.
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(1))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return bedrock.NewLLMClient(bedrockruntime.NewFromConfig(awsCfg), bedrock.LLMOptions{
			ModelID:     cfg.ModelID,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
		}), nil
	case auraagent.BackendOllama:
		client, err := ollama.NewClient(ollama.ClientOpts{
			BaseEndpoint: agentCfg.BaseOllamaEndpoint,
			ModelID:      cfg.ModelID,
			MaxTokens:    int(cfg.MaxTokens),
			HTTPClient:   &http.Client{Timeout: 2 * time.Minute},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		return client, nil
	case auraagent.BackendMock:
		return mock.NewLLMClient(), nil
	default:
		return nil, fmt.Errorf("unknown LLM backend %q", cfg.Backend)
	}
}

// NewRegistry loads the artifacts and wires the recipe worker and deal finder
// into a tool registry. A nil completer plans searches from the intent tables
// alone.
func NewRegistry(ctx context.Context, cfg auraagent.AgentConfig, src Sources, completer worker.Completer) (*tools.Registry, error) {
	tables, err := worker.LoadTables(ctx, src.IntentTables)
	if err != nil {
		return nil, err
	}
	catalog, err := grocery.LoadCatalog(ctx, src.Catalog)
	if err != nil {
		return nil, err
	}
	slog.Info("SETUP: Artifacts loaded", "catalog_items", len(catalog.Items))

	client := mealdb.NewClient(mealdb.Options{
		BaseURL:           cfg.MealDBBaseURL,
		RequestsPerSecond: cfg.MealDBRequestsPerSecond,
		HTTPClient:        &http.Client{Timeout: 15 * time.Second},
	})

	var strategy worker.Strategy = worker.NewIntentStrategy(tables)
	if completer != nil {
		strategy = worker.NewLLMStrategy(completer, strategy)
	}

	return tools.NewRegistry(
		worker.New(client, strategy),
		grocery.NewFinder(catalog, cfg.DefaultMaxDistanceKm),
	), nil
}

// NewCoordinator builds the backend and registry and returns a coordinator
// over them.
func NewCoordinator(ctx context.Context, modelCfg auraagent.ModelConfig, agentCfg auraagent.AgentConfig, src Sources, logger auraagent.CoordinationLogger) (*coordinator.Coordinator, error) {
	backend, err := NewBackend(ctx, modelCfg, agentCfg)
	if err != nil {
		return nil, err
	}

	var (
		llm       coordinator.LLMClient
		completer worker.Completer
	)
	if backend != nil {
		llm, completer = backend, backend
	}

	registry, err := NewRegistry(ctx, agentCfg, src, completer)
	if err != nil {
		return nil, err
	}

	return coordinator.NewCoordinator(llm, registry, coordinator.Options{
		MaxIterations: agentCfg.MaxIterations,
		HistoryWindow: agentCfg.HistoryWindow,
		Backoff: coordinator.Backoff{
			MaxRetries: agentCfg.LLMMaxRetries,
			BaseDelay:  agentCfg.LLMRetryBaseDelay,
		},
		Logger: logger,
	}), nil
}
