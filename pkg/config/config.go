// pkg/config/config.go
package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration.
type Config struct {
	// Database connection
	Postgres *PostgresConfig

	// HTTP server
	Server *ServerConfig

	// External collaborators
	OpenAI    *OpenAIConfig
	MLService *MLServiceConfig

	// Ingestion settings
	ChunkSize       int
	MaxUploadSizeMB int

	// Logging
	LogLevel  string
	LogFormat string
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// OpenAIConfig holds settings for the narrative-insight client.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// MLServiceConfig holds settings for the external forecasting service.
type MLServiceConfig struct {
	BaseURL string
	Timeout time.Duration
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		// Default values
		ChunkSize:       getEnvAsInt("CHUNK_SIZE", 100),
		MaxUploadSizeMB: getEnvAsInt("MAX_UPLOAD_SIZE_MB", 50),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
	}

	pgConfig, err := LoadPostgresConfig()
	if err != nil {
		return nil, errors.New("failed to load PostgreSQL configuration: " + err.Error())
	}
	cfg.Postgres = pgConfig

	cfg.Server = &ServerConfig{
		Host:            getEnv("SERVER_HOST", "0.0.0.0"),
		Port:            getEnvAsInt("SERVER_PORT", 8080),
		ReadTimeout:     time.Duration(getEnvAsInt("SERVER_READ_TIMEOUT_SECONDS", 60)) * time.Second,
		WriteTimeout:    time.Duration(getEnvAsInt("SERVER_WRITE_TIMEOUT_SECONDS", 60)) * time.Second,
		ShutdownTimeout: time.Duration(getEnvAsInt("SERVER_SHUTDOWN_TIMEOUT_SECONDS", 15)) * time.Second,
	}

	cfg.OpenAI = &OpenAIConfig{
		APIKey:  getEnv("OPENAI_API_KEY", ""),
		Model:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		Timeout: time.Duration(getEnvAsInt("OPENAI_TIMEOUT_SECONDS", 30)) * time.Second,
	}

	cfg.MLService = &MLServiceConfig{
		BaseURL: getEnv("ML_SERVICE_URL", ""),
		Timeout: time.Duration(getEnvAsInt("ML_SERVICE_TIMEOUT_SECONDS", 60)) * time.Second,
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid.
func (c *Config) Validate() error {
	if c.Postgres == nil {
		return errors.New("postgreSQL configuration is required")
	}

	if c.ChunkSize <= 0 {
		return errors.New("chunk size must be positive")
	}

	if c.MaxUploadSizeMB <= 0 {
		return errors.New("max upload size must be positive")
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
