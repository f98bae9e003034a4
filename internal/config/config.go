package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Config holds the process-wide settings. Loaded once at startup and never
// mutated afterwards.
type Config struct {
	Env         string
	Port        string
	DatabaseURL string `validate:"required"`

	// Ollama embedding endpoint
	OllamaHost   string `validate:"required"`
	OllamaModel  string `validate:"required"`
	EmbeddingDim int    `validate:"gt=0"`

	// Google Gemini. Required for the interactive server, unused by the
	// batch ingest CLI.
	GoogleAPIKey    string `validate:"required"`
	GoogleModelName string `validate:"required"`
}

// Load reads the configuration from environment variables. Database and
// Ollama settings fall back to local defaults; the Gemini settings have no
// defaults and are checked by Validate.
func Load() *Config {
	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "movierag")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)

	dim, _ := strconv.Atoi(getEnv("EMBEDDING_DIM", "384"))

	return &Config{
		Env:             getEnv("APP_ENV", "development"),
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     dbURL,
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:     getEnv("OLLAMA_MODEL", "all-minilm"),
		EmbeddingDim:    dim,
		GoogleAPIKey:    os.Getenv("GOOGLE_API_KEY"),
		GoogleModelName: os.Getenv("GOOGLE_MODEL_NAME"),
	}
}

// Validate checks that every required setting is present. The server treats
// a validation failure as fatal at startup.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
