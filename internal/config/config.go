// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"8080"`

	// Understanding backend (OpenAI-compatible chat completion API).
	OpenAIAPIKey  string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	ChatModel     string        `env:"CHAT_MODEL" envDefault:"gpt-4o-mini"`
	AICallTimeout time.Duration `env:"AI_CALL_TIMEOUT" envDefault:"15s"`

	// Interview shape. Both are fixed at process start and read-only for the
	// core's lifetime.
	MaxQuestions      int      `env:"MAX_QUESTIONS" envDefault:"3"`
	JobDescriptionIDs []string `env:"JD_IDS" envSeparator:"," envDefault:"backend-engineer,frontend-engineer,data-analyst"`
	// JDSeedFile optionally points at a YAML file with JD content for the
	// static document store.
	JDSeedFile string `env:"JD_SEED_FILE"`
	// HistoryWindow caps how many transcript lines are sent to question
	// generation; HistoryTokenBudget additionally bounds the window by tokens.
	HistoryWindow      int `env:"HISTORY_WINDOW" envDefault:"6"`
	HistoryTokenBudget int `env:"HISTORY_TOKEN_BUDGET" envDefault:"1024"`

	// Session lifecycle.
	SessionIdleTTL  time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"5m"`

	// Optional infrastructure. Empty values select the in-process defaults:
	// static JD store, in-memory session store, no event publishing.
	DBURL        string   `env:"DB_URL"`
	RedisURL     string   `env:"REDIS_URL"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// Observability.
	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"ai-interview-screener"`

	// HTTP server.
	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"60"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

// Load parses environment variables into a Config and validates the settings
// the core cannot run without. Validation failure is fatal by design: a
// misconfigured process must refuse to serve traffic.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings required before serving traffic.
func (c Config) Validate() error {
	if c.MaxQuestions <= 0 {
		return fmt.Errorf("op=config.Validate: MAX_QUESTIONS must be positive, got %d", c.MaxQuestions)
	}
	if len(c.JobDescriptionIDs) == 0 {
		return fmt.Errorf("op=config.Validate: JD_IDS must list at least one job description")
	}
	for _, id := range c.JobDescriptionIDs {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("op=config.Validate: JD_IDS contains an empty id")
		}
	}
	// Dev runs against the canned understanding client without a key.
	if c.OpenAIAPIKey == "" && !c.IsDev() {
		return fmt.Errorf("op=config.Validate: OPENAI_API_KEY required outside dev")
	}
	return nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }
