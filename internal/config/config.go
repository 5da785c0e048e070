package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application
type Config struct {
	Port            string
	LogLevel        string
	Environment     string
	DataDir         string // local persistence directory (badger)
	SupabaseURL     string
	SupabaseAnonKey string
	RedisURL        string // change-notification feed; optional
	OpenAIAPIKey    string // question generator; optional
	RefreshInterval time.Duration
	CooldownWindow  time.Duration
}

// DefaultCooldownWindow is the fixed question-generation cooldown.
const DefaultCooldownWindow = 24 * time.Hour

// DefaultRefreshInterval is how often the aggregate cache is rebuilt
// wholesale from the remote store.
const DefaultRefreshInterval = 5 * time.Minute

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:            getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Environment:     getEnv("ENVIRONMENT", "production"),
		DataDir:         getEnv("DATA_DIR", ".half-data"),
		SupabaseURL:     getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey: getEnv("SUPABASE_ANON_KEY", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		RefreshInterval: getDurationEnv("REFRESH_INTERVAL", DefaultRefreshInterval),
		CooldownWindow:  getDurationEnv("GENERATION_COOLDOWN", DefaultCooldownWindow),
	}, nil
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
