package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Host string
	Port string
	Env  string

	// LM Studio
	LMStudioURL     string
	ModelName       string
	LMStudioTimeout time.Duration

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string

	// Redis (optional exchange events)
	RedisURL      string
	EventsChannel string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Host:            getEnvOrDefault("HOST", "0.0.0.0"),
		Port:            getEnvOrDefault("PORT", "9000"),
		Env:             getEnvOrDefault("ENV", "development"),
		LMStudioURL:     getEnvOrDefault("LMSTUDIO_API_URL", "http://127.0.0.1:1234/v1/chat/completions"),
		ModelName:       getEnvOrDefault("MODEL_NAME", "humanizerai"),
		LMStudioTimeout: time.Duration(getEnvAsIntOrDefault("LMSTUDIO_TIMEOUT_SECONDS", 30)) * time.Second,
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       getEnvOrDefault("LOG_FORMAT", "logfmt"),
		LogFile:         getEnvOrDefault("LOG_FILE", ""),
		RedisURL:        getEnvOrDefault("REDIS_URL", ""),
		EventsChannel:   getEnvOrDefault("RELAY_EVENTS_CHANNEL", "relay_events"),
	}

	return cfg
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}
