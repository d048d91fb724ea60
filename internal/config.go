package internal

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/bookshelfai/bookshelfai/internal/domain"
)

// defaultProductMapping covers the two live storefront offers. Deployments
// override with PRODUCT_MAPPING when the catalog changes.
const defaultProductMapping = `{
	"bookshelfai-premium-monthly": {"tier": "premium", "credits": 500},
	"bookshelfai-enterprise":      {"tier": "enterprise"}
}`

type Config struct {
	Env         string
	Port        int
	LogLevel    string
	DatabaseUrl string

	// Payment webhook shared secret. Empty leaves the endpoint
	// unauthenticated (logged loudly at startup).
	WebhookToken string

	// Operator shared secret for /admin/reset. Empty disables the endpoint.
	AdminToken string

	// Master secret for encrypting stored provider API keys.
	CredentialMasterSecret string

	// Product mapping: payment provider product IDs -> tier grants.
	ProductMapping domain.ProductMapping

	// AI Provider Configuration
	AIProvider       string // "openai" or "mock"
	OpenAIBaseURL    string // override for tests / proxies; empty uses the default
	OpenAIModel      string
	AIMaxRetries     int
	AIRetryBaseDelay time.Duration
	AIRequestTimeout time.Duration

	// Monthly reset scheduler
	SchedulerEnabled  bool
	SchedulerInterval time.Duration

	// Rate limiting for the generation endpoint
	RateLimitMax    int
	RateLimitWindow time.Duration

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		WebhookToken:           getEnv("WEBHOOK_TOKEN", ""),
		AdminToken:             getEnv("ADMIN_TOKEN", ""),
		CredentialMasterSecret: getEnv("CREDENTIAL_MASTER_SECRET", ""),

		// AI provider defaults
		AIProvider:       getEnv("AI_PROVIDER", "mock"),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		AIMaxRetries:     getEnvInt("AI_MAX_RETRIES", 3),
		AIRetryBaseDelay: getEnvDuration("AI_RETRY_BASE_DELAY", 1*time.Second),
		AIRequestTimeout: getEnvDuration("AI_REQUEST_TIMEOUT", 60*time.Second),

		// Scheduler defaults: one sweep per day is plenty for a monthly
		// boundary, the job is idempotent either way.
		SchedulerEnabled:  getEnvBool("SCHEDULER_ENABLED", true),
		SchedulerInterval: getEnvDuration("SCHEDULER_INTERVAL", 24*time.Hour),

		// Rate limit defaults
		RateLimitMax:    getEnvInt("RATE_LIMIT_MAX", 30),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", 1*time.Minute),

		// Metrics authentication
		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	// Required
	cfg.DatabaseUrl = os.Getenv("DATABASE_URL")
	if cfg.DatabaseUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	// Parse the product mapping
	mappingJSON := getEnv("PRODUCT_MAPPING", defaultProductMapping)
	mapping, err := domain.ParseProductMapping([]byte(mappingJSON))
	if err != nil {
		return nil, fmt.Errorf("PRODUCT_MAPPING: %w", err)
	}
	cfg.ProductMapping = mapping

	// Validate AI provider configuration
	if cfg.AIProvider != "openai" && cfg.AIProvider != "mock" {
		return nil, fmt.Errorf("AI_PROVIDER must be either 'openai' or 'mock', got: %s", cfg.AIProvider)
	}

	// Credential encryption is required outside development: without it
	// users cannot store provider keys and every generation fails.
	if cfg.CredentialMasterSecret == "" && cfg.Env != "development" {
		return nil, fmt.Errorf("CREDENTIAL_MASTER_SECRET is required when ENV is %q", cfg.Env)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
