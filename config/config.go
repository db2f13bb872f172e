// Package config provides configuration for the gptchat client.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds the client configuration.
type Config struct {
	// Backend
	BaseURL string

	// Identity
	UserID          string
	CredentialsPath string

	// Local cache
	CacheDBPath string

	// Timeouts
	HTTPTimeout   time.Duration
	StreamTimeout time.Duration

	// Mock backend
	MockAPIPort int

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	home, _ := os.UserHomeDir()
	cfg := &Config{
		BaseURL:         getEnv("OPENGPTS_URL", "http://localhost:8100"),
		UserID:          getEnv("OPENGPTS_USER_ID", ""),
		CredentialsPath: getEnv("OPENGPTS_CREDENTIALS", filepath.Join(home, ".config", "gptchat", "credentials.yaml")),
		CacheDBPath:     getEnv("OPENGPTS_CACHE_DB", filepath.Join(home, ".cache", "gptchat", "cache.db")),
		HTTPTimeout:     time.Duration(getEnvInt("HTTP_TIMEOUT_MS", 30000)) * time.Millisecond,
		StreamTimeout:   time.Duration(getEnvInt("STREAM_TIMEOUT_MS", 300000)) * time.Millisecond,
		MockAPIPort:     getEnvInt("MOCKAPI_PORT", 8100),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
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
