package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port int
	Env  string

	// CORS
	AllowedOrigins []string

	// Database URLs
	PostgresURL   string
	ClickHouseURL string // optional, analytics disabled when empty
	RedisURL      string // optional, in-process status/lock when empty

	// Messaging
	KafkaBrokers []string
	KafkaTopic   string

	// Completion API
	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	LLMMaxTokens   int
	LLMTimeout     time.Duration
	SynthesisModel string

	// Analysis
	AnalysisTimeout     time.Duration
	AnalysisMaxParallel int
	RunLockTTL          time.Duration
	StatusTTL           time.Duration
	StatusBroadcast     time.Duration

	// Worker pool
	WorkerCount   int
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration

	// Data sync
	FeedBaseURL string
	SyncTimeout time.Duration

	// Telemetry
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string
}

// Load loads configuration from environment variables.
// It returns an error if critical configuration is missing.
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnvInt("PORT", 8080),
		Env:  getEnv("ENV", "development"),

		ClickHouseURL: getEnv("CLICKHOUSE_URL", ""),
		RedisURL:      getEnv("REDIS_URL", ""),

		KafkaTopic: getEnv("KAFKA_TOPIC", "predictions"),

		LLMBaseURL:     getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMAPIKey:      getEnv("LLM_API_KEY", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 800),
		LLMTimeout:     getEnvDuration("LLM_TIMEOUT", 60*time.Second),
		SynthesisModel: getEnv("SYNTHESIS_MODEL", ""),

		AnalysisTimeout:     getEnvDuration("ANALYSIS_TIMEOUT", 3*time.Minute),
		AnalysisMaxParallel: getEnvInt("ANALYSIS_MAX_PARALLEL", 8),
		RunLockTTL:          getEnvDuration("RUN_LOCK_TTL", 5*time.Minute),
		StatusTTL:           getEnvDuration("AGENT_STATUS_TTL", 24*time.Hour),
		StatusBroadcast:     getEnvDuration("AGENT_STATUS_BROADCAST", 5*time.Second),

		WorkerCount:   getEnvInt("WORKER_COUNT", 2),
		QueueSize:     getEnvInt("QUEUE_SIZE", 10000),
		BatchSize:     getEnvInt("BATCH_SIZE", 200),
		FlushInterval: getEnvDuration("FLUSH_INTERVAL", 2*time.Second),

		FeedBaseURL: getEnv("FEED_BASE_URL", ""),
		SyncTimeout: getEnvDuration("SYNC_TIMEOUT", 2*time.Minute),

		OTELEndpoint: getEnv("OTEL_ENDPOINT", ""),
		OTELInsecure: getEnv("OTEL_INSECURE", "false") == "true",
		ServiceName:  getEnv("OTEL_SERVICE_NAME", "courtvision"),
	}

	// CORS
	origins := getEnv("ALLOWED_ORIGINS", "http://localhost:3000")
	cfg.AllowedOrigins = splitList(origins)
	cfg.KafkaBrokers = splitList(getEnv("KAFKA_BROKERS", ""))

	// Critical configuration - fail if missing
	var err error
	if cfg.PostgresURL, err = getEnvRequired("POSTGRES_URL"); err != nil {
		return nil, err
	}

	if cfg.AnalysisMaxParallel <= 0 {
		return nil, fmt.Errorf("ANALYSIS_MAX_PARALLEL must be positive, got %d", cfg.AnalysisMaxParallel)
	}
	if cfg.AnalysisTimeout <= 0 {
		return nil, fmt.Errorf("ANALYSIS_TIMEOUT must be positive, got %s", cfg.AnalysisTimeout)
	}
	// The run lock must outlive the longest possible run.
	if cfg.RunLockTTL <= cfg.AnalysisTimeout {
		return nil, fmt.Errorf("RUN_LOCK_TTL (%s) must exceed ANALYSIS_TIMEOUT (%s)", cfg.RunLockTTL, cfg.AnalysisTimeout)
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with production logging
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvRequired(key string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("missing required environment variable: %s", key)
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
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
