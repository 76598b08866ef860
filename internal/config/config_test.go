package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.MetricsNamespace != "halcyon" {
		t.Fatalf("MetricsNamespace = %q, want %q", cfg.MetricsNamespace, "halcyon")
	}
	if cfg.GeminiMode != "auto" {
		t.Fatalf("GeminiMode = %q, want %q", cfg.GeminiMode, "auto")
	}
	if cfg.GeminiModel != "gemini-2.0-flash" {
		t.Fatalf("GeminiModel = %q, want default model", cfg.GeminiModel)
	}
	if cfg.SessionIdleTimeout != 30*time.Minute {
		t.Fatalf("SessionIdleTimeout = %v, want 30m", cfg.SessionIdleTimeout)
	}
	if cfg.GenerationMaxTokens != 1024 {
		t.Fatalf("GenerationMaxTokens = %d, want 1024", cfg.GenerationMaxTokens)
	}
}

func TestLoadExplicitValues(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_BIND_ADDR", ":9090")
	t.Setenv("GEMINI_MODE", "mock")
	t.Setenv("GENERATION_TIMEOUT", "5s")
	t.Setenv("GENERATION_TEMPERATURE", "0.2")
	t.Setenv("APP_ALLOW_ANY_ORIGIN", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":9090" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":9090")
	}
	if cfg.GeminiMode != "mock" {
		t.Fatalf("GeminiMode = %q, want %q", cfg.GeminiMode, "mock")
	}
	if cfg.GenerationTimeout != 5*time.Second {
		t.Fatalf("GenerationTimeout = %v, want 5s", cfg.GenerationTimeout)
	}
	if cfg.GenerationTemperature != 0.2 {
		t.Fatalf("GenerationTemperature = %v, want 0.2", cfg.GenerationTemperature)
	}
	if !cfg.AllowAnyOrigin {
		t.Fatalf("AllowAnyOrigin = false, want true")
	}
}

func TestLoadRejectsInvalidMode(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("GEMINI_MODE", "psychic")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() error = nil, want error for invalid GEMINI_MODE")
	}
}

func TestLoadRejectsShortIdleTimeout(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_SESSION_IDLE_TIMEOUT", "1s")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() error = nil, want error for short idle timeout")
	}
}

func TestLoadRejectsBadTemperature(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("GENERATION_TEMPERATURE", "3.5")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() error = nil, want error for out-of-range temperature")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_SESSION_IDLE_TIMEOUT",
		"APP_JANITOR_INTERVAL",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"GEMINI_MODE",
		"GEMINI_API_KEY",
		"GEMINI_BASE_URL",
		"GEMINI_MODEL",
		"GENERATION_TIMEOUT",
		"GENERATION_MAX_TOKENS",
		"GENERATION_TEMPERATURE",
		"DATABASE_URL",
		"SQLITE_PATH",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
