package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"taskgraph/domain/config"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion     string
	DynamoDBTable string
	NameIndexName string // GSI1 - name lookups within an entity kind
	TypeIndexName string // GSI2 - full scans of one entity kind
	EventBusName  string

	// Embeddings
	EmbeddingEndpoint     string // empty selects the local deterministic provider
	EmbeddingModelVersion string
	EmbeddingDim          int
	SimilarityThreshold   float64
	MaxSearchResults      int

	// Snapshot cache
	CacheTTL time.Duration

	// Logging
	LogLevel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Feature flags
	EnableMetrics bool
	EnableEvents  bool
	EnableCORS    bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		AWSRegion:     getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable: getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", "taskgraph")),
		NameIndexName: getEnv("NAME_INDEX_NAME", "NameIndex"), // GSI1
		TypeIndexName: getEnv("TYPE_INDEX_NAME", "TypeIndex"), // GSI2
		EventBusName:  getEnv("EVENT_BUS_NAME", "taskgraph-events"),

		// Embeddings
		EmbeddingEndpoint:     getEnv("EMBEDDING_ENDPOINT", ""),
		EmbeddingModelVersion: getEnv("EMBEDDING_MODEL_VERSION", "minilm-l6-v2"),
		EmbeddingDim:          getEnvInt("EMBEDDING_DIM", 384),
		SimilarityThreshold:   getEnvFloat("SIMILARITY_THRESHOLD", 0.4),
		MaxSearchResults:      getEnvInt("MAX_SEARCH_RESULTS", 3),

		// Snapshot cache
		CacheTTL: time.Duration(getEnvInt("CACHE_TTL_SECONDS", 30)) * time.Second,

		// Authentication
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "taskgraph"),

		// Logging and features
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", false),
		EnableEvents:  getEnvBool("ENABLE_EVENTS", false),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig for backwards compatibility
func Load() (*Config, error) {
	return LoadConfig()
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required")
		}
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("EMBEDDING_DIM must be positive")
	}
	if c.SimilarityThreshold < -1 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be within [-1, 1]")
	}

	return nil
}

// DomainConfig projects the environment configuration onto the domain's
// business rules, keeping defaults for everything not exposed as env vars.
func (c *Config) DomainConfig() *config.DomainConfig {
	dc := config.DefaultDomainConfig()
	dc.EmbeddingDim = c.EmbeddingDim
	dc.SimilarityThreshold = c.SimilarityThreshold
	dc.MaxSearchResults = c.MaxSearchResults
	return dc
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
