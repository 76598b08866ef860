package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the companion chat service.
type Config struct {
	BindAddr           string
	ShutdownTimeout    time.Duration
	SessionIdleTimeout time.Duration
	JanitorInterval    time.Duration
	MetricsNamespace   string

	AllowAnyOrigin bool

	GeminiMode    string
	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModel   string

	GenerationTimeout     time.Duration
	GenerationMaxTokens   int
	GenerationTemperature float64

	DatabaseURL string
	SQLitePath  string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "halcyon"),
		AllowAnyOrigin:   false,
		GeminiMode:       envOrDefault("GEMINI_MODE", "auto"),
		GeminiAPIKey:     stringsTrimSpace("GEMINI_API_KEY"),
		GeminiBaseURL:    stringsTrimSpace("GEMINI_BASE_URL"),
		GeminiModel:      envOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		DatabaseURL:      stringsTrimSpace("DATABASE_URL"),
		SQLitePath:       envOrDefault("SQLITE_PATH", "halcyon.db"),

		ShutdownTimeout:       15 * time.Second,
		SessionIdleTimeout:    30 * time.Minute,
		JanitorInterval:       time.Minute,
		GenerationTimeout:     30 * time.Second,
		GenerationMaxTokens:   1024,
		GenerationTemperature: 0.7,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionIdleTimeout, err = durationFromEnv("APP_SESSION_IDLE_TIMEOUT", cfg.SessionIdleTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.JanitorInterval, err = durationFromEnv("APP_JANITOR_INTERVAL", cfg.JanitorInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.GenerationTimeout, err = durationFromEnv("GENERATION_TIMEOUT", cfg.GenerationTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.GenerationMaxTokens, err = intFromEnv("GENERATION_MAX_TOKENS", cfg.GenerationMaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.GenerationTemperature, err = floatFromEnv("GENERATION_TEMPERATURE", cfg.GenerationTemperature)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionIdleTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_IDLE_TIMEOUT must be at least 5s")
	}
	if cfg.GenerationTimeout <= 0 {
		return Config{}, fmt.Errorf("GENERATION_TIMEOUT must be positive")
	}
	if cfg.GenerationMaxTokens <= 0 {
		return Config{}, fmt.Errorf("GENERATION_MAX_TOKENS must be positive")
	}
	if cfg.GenerationTemperature < 0 || cfg.GenerationTemperature > 2 {
		return Config{}, fmt.Errorf("GENERATION_TEMPERATURE must be in [0, 2]")
	}
	switch cfg.GeminiMode {
	case "auto", "genai", "http", "mock":
	default:
		return Config{}, fmt.Errorf("GEMINI_MODE must be one of auto, genai, http, mock")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
