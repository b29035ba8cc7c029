package config

import (
	"os"
	"strconv"
)

// Config is the environment-driven serving configuration.
type Config struct {
	// Server
	Host string
	Port string

	// Artifacts produced by the offline pipeline
	ArtifactsDir string

	// Embedding provider (OpenAI-compatible)
	EmbeddingBaseURL   string
	EmbeddingAPIKeyEnv string
	EmbeddingModel     string
	EmbeddingBatchSize int
	EmbeddingTimeout   int // seconds

	// LLM provider
	LLMProvider        string // openai | anthropic | dummy
	LLMModel           string
	LLMAPIKeyEnv       string
	LLMTemperature     float64
	LLMMaxTokens       int
	LLMReasoningEffort string
	LLMTimeout         int // seconds

	// Retrieval
	TopKDefault     int
	MaxContextChars int

	// NCBI Entrez (offline ingestion)
	EntrezEmail  string
	EntrezAPIKey string
}

// Load reads the configuration from the environment, applying defaults.
func Load() *Config {
	return &Config{
		Host: getEnv("HOST", "0.0.0.0"),
		Port: getEnv("PORT", "8080"),

		ArtifactsDir: getEnv("ARTIFACTS_DIR", "artifacts/index"),

		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "https://api.openai.com/v1"),
		EmbeddingAPIKeyEnv: getEnv("EMBEDDING_API_KEY_ENV", "OPENAI_API_KEY"),
		EmbeddingModel:     getEnv("EMBEDDING_MODEL_ID", "text-embedding-3-small"),
		EmbeddingBatchSize: getEnvInt("EMBEDDING_BATCH_SIZE", 64),
		EmbeddingTimeout:   getEnvInt("EMBEDDING_TIMEOUT_SECS", 30),

		LLMProvider:        getEnv("LLM_PROVIDER", "dummy"),
		LLMModel:           getEnv("LLM_MODEL_NAME", "gpt-4o-mini"),
		LLMAPIKeyEnv:       getEnv("LLM_API_KEY_ENV", ""),
		LLMTemperature:     getEnvFloat("LLM_TEMPERATURE", 0.0),
		LLMMaxTokens:       getEnvInt("LLM_MAX_TOKENS", 512),
		LLMReasoningEffort: getEnv("LLM_REASONING_EFFORT", ""),
		LLMTimeout:         getEnvInt("LLM_TIMEOUT_SECS", 60),

		TopKDefault:     getEnvInt("TOP_K", 5),
		MaxContextChars: getEnvInt("MAX_CONTEXT_CHARS", 12000),

		EntrezEmail:  getEnv("ENTREZ_EMAIL", ""),
		EntrezAPIKey: getEnv("ENTREZ_API_KEY", ""),
	}
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
