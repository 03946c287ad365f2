// Package config provides configuration for the chat service.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Model backend
	OllamaURL    string
	DefaultModel string
	LLMTimeout   time.Duration

	// Storage paths
	UploadDir string
	ExportDir string

	// Conversation settings
	HistoryWindow     int
	StreamTimeout     time.Duration
	HeartbeatInterval time.Duration

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:          getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:       getEnv("DATABASE_URL", "file:chatd.db?cache=shared&mode=rwc"),
		OllamaURL:         getEnv("OLLAMA_URL", "http://localhost:11434"),
		DefaultModel:      getEnv("DEFAULT_MODEL", "llama3.2:3b"),
		LLMTimeout:        time.Duration(getEnvInt("LLM_TIMEOUT_MS", 120000)) * time.Millisecond,
		UploadDir:         getEnv("UPLOAD_DIR", "./uploads"),
		ExportDir:         getEnv("EXPORT_DIR", "./exports"),
		HistoryWindow:     getEnvInt("HISTORY_WINDOW", 10),
		StreamTimeout:     time.Duration(getEnvInt("STREAM_TIMEOUT_MS", 300000)) * time.Millisecond,
		HeartbeatInterval: time.Duration(getEnvInt("HEARTBEAT_INTERVAL_MS", 15000)) * time.Millisecond,
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
