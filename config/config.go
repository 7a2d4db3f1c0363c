package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all configuration fields for the application.
type Config struct {
	BackendBaseURL    string
	Port              string
	LogLevel          string
	LogFormat         string
	PollInterval      time.Duration
	HTTPTimeout       time.Duration
	StatsCacheTTL     time.Duration
	RabbitMQURL       string
	RabbitMQQueue     string
	RabbitQueuePrefix string
}

// LoadConfig loads configuration from environment variables.
// It attempts to load a .env file if present; real environment variables
// take precedence.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, relying on environment variables")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	cfg := &Config{
		BackendBaseURL:    os.Getenv("BACKEND_BASE_URL"),
		Port:              os.Getenv("PORT"),
		LogLevel:          os.Getenv("LOG_LEVEL"),
		LogFormat:         os.Getenv("LOG_FORMAT"),
		PollInterval:      durationFromEnv("POLL_INTERVAL_MS", time.Millisecond, 5000),
		HTTPTimeout:       durationFromEnv("HTTP_TIMEOUT_SECONDS", time.Second, 10),
		StatsCacheTTL:     durationFromEnv("STATS_CACHE_TTL_SECONDS", time.Second, 30),
		RabbitMQURL:       os.Getenv("RABBITMQ_URL"),
		RabbitMQQueue:     os.Getenv("RABBITMQ_QUEUE"),
		RabbitQueuePrefix: os.Getenv("RABBITMQ_QUEUE_PREFIX"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Info().Str("port", cfg.Port).Msg("PORT not set, using default")
	}
	if cfg.RabbitMQQueue == "" {
		cfg.RabbitMQQueue = "admin_events"
	}
	if cfg.RabbitQueuePrefix == "" {
		cfg.RabbitQueuePrefix = "travel_admin"
	}

	return cfg, nil
}

func durationFromEnv(key string, unit time.Duration, def int64) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return time.Duration(def) * unit
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		log.Warn().Str("key", key).Str("value", raw).Msg("Invalid duration value, using default")
		return time.Duration(def) * unit
	}
	return time.Duration(n) * unit
}
