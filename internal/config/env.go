package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Vector store: "memory" or "pgvector".
	VectorStore string
	DatabaseURL string

	// Providers: "llamacpp" or "gemini".
	LLMProvider   string
	EmbedProvider string
	LLMBaseURL    string
	AIAPIKey      string
	EmbedModel    string
	EmbedDim      int
	GenModel      string

	ChunkSize      int
	ChunkOverlap   int
	EmbedBatchSize int

	DocumentsDir string
	JWTSecret    string
}

// LoadConfig loads the environment variables and returns the config.
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8888"),
		VectorStore:    getEnv("VECTOR_STORE", "memory"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		LLMProvider:    getEnv("LLM_PROVIDER", "llamacpp"),
		EmbedProvider:  getEnv("EMBED_PROVIDER", "llamacpp"),
		LLMBaseURL:     getEnv("LLM_BASE_URL", "http://localhost:8080"),
		AIAPIKey:       getEnv("GEMINI_API_KEY", ""),
		EmbedModel:     getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:       getEnvInt("EMBED_DIM", 384),
		GenModel:       getEnv("GEN_MODEL", "gemini-1.5-flash"),
		ChunkSize:      getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:   getEnvInt("CHUNK_OVERLAP", 100),
		EmbedBatchSize: getEnvInt("EMBED_BATCH_SIZE", 16),
		DocumentsDir:   getEnv("DOCUMENTS_DIR", "documents"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
	}

	if cfg.VectorStore == "pgvector" && cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}
