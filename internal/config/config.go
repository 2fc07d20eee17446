package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Vector store backend: "pinecone", "qdrant", or "memory".
	VectorBackend string

	// VectorIndexName names the Pinecone index or Qdrant collection.
	VectorIndexName string

	PineconeAPIKey      string
	PineconeEnvironment string

	QdrantURL string

	// VectorDimension must match the embedding model's output size.
	// For voyage-2 this is 1024. Changing it requires recreating the index.
	VectorDimension int

	VoyageAPIKey   string
	EmbeddingModel string

	AnthropicAPIKey string
	GenerationModel string

	// GoogleServiceAccount holds the service account key as a JSON string or a
	// path to a JSON file.
	GoogleServiceAccount string
	SimulationFolderID   string
	TechnicalFolderID    string
	GeneralFolderID      string

	DBPath  string
	APIPort string

	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or a parent directory, it is
// loaded first; environment variables already set take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	if wd, err := os.Getwd(); err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		VectorBackend:        getEnv("VECTOR_BACKEND", "pinecone"),
		PineconeAPIKey:       getEnv("PINECONE_API_KEY", ""),
		VectorIndexName:      getEnv("VECTOR_INDEX_NAME", getEnv("PINECONE_INDEX_NAME", "sales-simulator")),
		PineconeEnvironment:  getEnv("PINECONE_ENVIRONMENT", "us-east-1-aws"),
		QdrantURL:            getEnv("QDRANT_URL", "http://localhost:6333"),
		VoyageAPIKey:         getEnv("VOYAGE_API_KEY", ""),
		EmbeddingModel:       getEnv("EMBEDDING_MODEL", "voyage-2"),
		AnthropicAPIKey:      getEnv("ANTHROPIC_API_KEY", ""),
		GenerationModel:      getEnv("GENERATION_MODEL", "claude-3-7-sonnet-20250219"),
		GoogleServiceAccount: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		SimulationFolderID:   getEnv("SIMULATION_FOLDER_ID", ""),
		TechnicalFolderID:    getEnv("TECHNICAL_FOLDER_ID", ""),
		GeneralFolderID:      getEnv("GENERAL_FOLDER_ID", ""),
		DBPath:               getEnv("DB_PATH", "./data/salescoach.db"),
		APIPort:              getEnv("API_PORT", "8000"),
		LogFormat:            getEnv("LOG_FORMAT", "text"),
	}

	dimStr := getEnv("VECTOR_DIMENSION", "1024")
	dim, err := strconv.Atoi(dimStr)
	if err != nil {
		return nil, fmt.Errorf("VECTOR_DIMENSION must be a valid integer: %w", err)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("VECTOR_DIMENSION must be greater than 0")
	}
	cfg.VectorDimension = dim

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	switch cfg.VectorBackend {
	case "pinecone":
		if cfg.PineconeAPIKey == "" {
			return nil, fmt.Errorf("PINECONE_API_KEY is required when VECTOR_BACKEND=pinecone")
		}
	case "qdrant", "memory":
	default:
		return nil, fmt.Errorf("VECTOR_BACKEND must be one of pinecone, qdrant, memory (got %q)", cfg.VectorBackend)
	}

	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// FolderIDs returns the configured Drive folder IDs keyed by document category.
// Unset folders are omitted.
func (c *Config) FolderIDs() map[string]string {
	folders := make(map[string]string)
	if c.SimulationFolderID != "" {
		folders["simulation"] = c.SimulationFolderID
	}
	if c.TechnicalFolderID != "" {
		folders["technical"] = c.TechnicalFolderID
	}
	if c.GeneralFolderID != "" {
		folders["general"] = c.GeneralFolderID
	}
	return folders
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error (got %q)", s)
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
