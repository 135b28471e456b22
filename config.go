package auraagent

import "time"

// Supported LLM backends. An empty backend runs the agent in degraded mode.
const (
	BackendBedrock = "bedrock"
	BackendOllama  = "ollama"
	BackendMock    = "mock"
)

type ModelConfig struct {
	Backend     string  `env:"LLM_BACKEND"`
	ModelID     string  `env:"MODEL_ID"`
	MaxTokens   int32   `env:"MAX_TOKENS,default=1024"`
	Temperature float32 `env:"TEMPERATURE,default=0.2"`
	TopP        float32 `env:"TOP_P,default=0.9"`
}

// Degraded reports whether no LLM backend is configured.
func (c ModelConfig) Degraded() bool {
	return c.Backend == ""
}

type AgentConfig struct {
	MaxIterations           int           `env:"MAX_ITERATIONS,default=6"`
	HistoryWindow           int           `env:"HISTORY_WINDOW,default=10"`
	LLMMaxRetries           int           `env:"LLM_MAX_RETRIES,default=3"`
	LLMRetryBaseDelay       time.Duration `env:"LLM_RETRY_BASE_DELAY,default=1s"`
	BaseOllamaEndpoint      string        `env:"BASE_OLLAMA_ENDPOINT,default=http://localhost:11434"`
	MealDBBaseURL           string        `env:"MEALDB_BASE_URL,default=https://www.themealdb.com/api/json/v1/1"`
	MealDBRequestsPerSecond float64       `env:"MEALDB_REQUESTS_PER_SECOND,default=5"`
	DefaultMaxDistanceKm    float64       `env:"DEFAULT_MAX_DISTANCE_KM,default=10"`
	CatalogPath             string        `env:"CATALOG_PATH"`
	IntentTablesPath        string        `env:"INTENT_TABLES_PATH"`
}

// ArtifactsConfig locates the catalog and intent tables in S3. An empty
// bucket means the embedded defaults are used.
type ArtifactsConfig struct {
	Bucket          string `env:"ARTIFACTS_S3_BUCKET"`
	CatalogKey      string `env:"CATALOG_S3_KEY,default=catalog.json"`
	IntentTablesKey string `env:"INTENT_TABLES_S3_KEY,default=intents.yaml"`
}

type CLIConfig struct {
	SlackWebhookURL string `env:"SLACK_WEBHOOK_URL"`
	SlackChannel    string `env:"SLACK_CHANNEL,default=#groceries"`
	Debug           bool   `env:"AURA_DEBUG,default=false"`
	LogDir          string `env:"AURA_LOG_DIR,default=./logs"`
	Language        string `env:"AURA_LANGUAGE,default=en"`
}
