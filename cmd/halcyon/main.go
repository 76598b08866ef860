package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/halcyon-app/halcyon/internal/chat"
	"github.com/halcyon-app/halcyon/internal/config"
	"github.com/halcyon-app/halcyon/internal/gemini"
	"github.com/halcyon-app/halcyon/internal/httpapi"
	"github.com/halcyon-app/halcyon/internal/observability"
	"github.com/halcyon-app/halcyon/internal/risk"
	"github.com/halcyon-app/halcyon/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := session.NewStore(ctx, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		log.Fatalf("session store init failed: %v", err)
	}
	defer store.Close()

	adapter, err := gemini.NewAdapter(gemini.Config{
		Mode:    cfg.GeminiMode,
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Timeout: cfg.GenerationTimeout,
	})
	if err != nil {
		log.Fatalf("gemini adapter init failed: %v", err)
	}

	classifier := risk.NewClassifier(adapter, cfg.GeminiModel)

	sessions := chat.NewManager(store, adapter, classifier, metrics, chat.GenerationConfig{
		Model:           cfg.GeminiModel,
		MaxOutputTokens: int32(cfg.GenerationMaxTokens),
		Temperature:     float32(cfg.GenerationTemperature),
		Timeout:         cfg.GenerationTimeout,
	}, cfg.SessionIdleTimeout)

	api := httpapi.New(cfg, sessions, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, cfg.JanitorInterval)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
