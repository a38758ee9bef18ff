// Package config provides configuration management for the application.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application.
type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// Redis (conversation cache)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Vector store (Pinecone)
	PineconeAPIKey    string
	PineconeHost      string
	PineconeNamespace string
	PineconeDimension int

	// Generative reasoning (Anthropic)
	AnthropicAPIKey string
	AnthropicModel  string

	// Embeddings (OpenAI)
	OpenAIAPIKey         string
	OpenAIEmbeddingModel string

	// Feature flags
	EnableFixFinder      bool
	EnableRAGEligibility bool

	// Fix finder settings
	FixFinderMaxIterations  int
	IterationTimeoutSeconds int
	FinalTimeoutSeconds     int

	// Conforming loan limit (FHFA, high-cost area)
	HighCostLoanLimit float64

	// Application
	Stage    string
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	_ = godotenv.Load()

	cfg := &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBName:     getEnv("DB_NAME", "sage"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),

		// Redis
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		// Pinecone
		PineconeAPIKey:    getEnv("PINECONE_API_KEY", ""),
		PineconeHost:      getEnv("PINECONE_HOST", ""),
		PineconeNamespace: getEnv("PINECONE_NAMESPACE", "guides"),
		PineconeDimension: getEnvInt("PINECONE_DIMENSION", 1536),

		// Anthropic
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),

		// OpenAI
		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		OpenAIEmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),

		// Feature flags
		EnableFixFinder:      getEnvBool("ENABLE_FIX_FINDER", true),
		EnableRAGEligibility: getEnvBool("ENABLE_RAG_ELIGIBILITY", true),

		// Fix finder
		FixFinderMaxIterations:  getEnvInt("FIX_FINDER_MAX_ITERATIONS", 3),
		IterationTimeoutSeconds: getEnvInt("FIX_FINDER_ITERATION_TIMEOUT", 30),
		FinalTimeoutSeconds:     getEnvInt("FIX_FINDER_FINAL_TIMEOUT", 45),

		// Loan limits
		HighCostLoanLimit: getEnvFloat("HIGH_COST_LOAN_LIMIT", 1249125),

		// Application
		Stage:    getEnv("STAGE", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// DatabaseURL returns the PostgreSQL connection string.
func (c *Config) DatabaseURL() string {
	sslMode := "require"
	if c.DBHost == "localhost" || c.DBHost == "127.0.0.1" {
		sslMode = "disable" // Disable SSL for local development
	}
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + strconv.Itoa(c.DBPort) + "/" + c.DBName + "?sslmode=" + sslMode
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as int or returns a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat retrieves an environment variable as float64 or returns a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvBool retrieves an environment variable as bool or returns a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
