// Package config loads LinkForge configuration from the environment.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Embedding provider identifiers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config holds all configuration values. Queue policy (lease duration,
// retry ceiling) is explicit here and passed into constructors rather
// than read ambiently.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Embeddings
	EmbedProvider  string
	EmbedModel     string
	EmbedDimension int
	OllamaHost     string
	OpenAIAPIKey   string

	// Ingestion queue policy
	LeaseDuration time.Duration
	MaxAttempts   int

	// Worker loop
	WorkerConcurrency int
	PollInterval      time.Duration
	ReclaimInterval   time.Duration

	// HTTP API
	ListenAddr string

	// Content fetching
	FetchTimeout time.Duration

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "linkforge"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "links"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		EmbedProvider:  getEnv("LINKFORGE_EMBED_PROVIDER", ProviderOllama),
		EmbedModel:     getEnv("LINKFORGE_EMBED_MODEL", "all-minilm:l6-v2"),
		EmbedDimension: getEnvInt("LINKFORGE_EMBED_DIMENSION", 384),
		OllamaHost:     getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),

		LeaseDuration: getEnvDuration("LINKFORGE_LEASE_DURATION", 5*time.Minute),
		MaxAttempts:   getEnvInt("LINKFORGE_MAX_ATTEMPTS", 3),

		WorkerConcurrency: getEnvInt("LINKFORGE_WORKER_CONCURRENCY", 4),
		PollInterval:      getEnvDuration("LINKFORGE_POLL_INTERVAL", 2*time.Second),
		ReclaimInterval:   getEnvDuration("LINKFORGE_RECLAIM_INTERVAL", 30*time.Second),

		ListenAddr: getEnv("LINKFORGE_LISTEN_ADDR", ":8090"),

		FetchTimeout: getEnvDuration("LINKFORGE_FETCH_TIMEOUT", 30*time.Second),

		LogFile:  getEnv("LINKFORGE_LOG_FILE", "/tmp/linkforge.log"),
		LogLevel: parseLogLevel(getEnv("LINKFORGE_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
