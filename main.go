package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stock-scout/chat"
	"stock-scout/config"
	"stock-scout/interpreter"
	"stock-scout/marketdata"
	"stock-scout/observability"
	"stock-scout/repository"
	"stock-scout/services"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		observability.Info("No .env file found, using environment variables")
	}

	observability.InitLogger(os.Getenv("ENV") == "production")
	observability.InitMetrics()

	cfg, err := config.Load()
	if err != nil {
		observability.Fatal("Invalid configuration", "error", err)
	}

	ctx := context.Background()

	// Initialize database (optional; the app degrades gracefully without it)
	var repo *repository.Repository
	if cfg.HasDatabase() {
		repo, err = repository.NewRepository(ctx, cfg.Database.URL)
		if err != nil {
			observability.Warn("Failed to initialize database, running without persistence", "error", err)
			repo = nil
		} else if err := repo.EnsureSchema(ctx); err != nil {
			observability.Warn("Failed to ensure database schema", "error", err)
		}
	} else {
		observability.Info("DATABASE_URL not set, chat history and build audit disabled")
	}

	// Select the language model backend
	var llm services.LLMService
	switch cfg.LLM.Backend {
	case "bedrock":
		if !cfg.HasBedrock() {
			observability.Fatal("LLM_BACKEND=bedrock requires AWS_REGION and BEDROCK_MODEL_ID")
		}
		llm, err = services.NewBedrockService(ctx, cfg.LLM.AWSRegion, cfg.LLM.BedrockModelID, cfg.LLM.MaxTokens)
		if err != nil {
			observability.Fatal("Failed to initialize Bedrock service", "error", err)
		}
	default:
		if !cfg.HasOpenAI() {
			observability.Warn("OPENAI_API_KEY not set, falling back to default screening for all queries")
		} else {
			llm, err = services.NewOpenAIService(cfg)
			if err != nil {
				observability.Fatal("Failed to initialize OpenAI service", "error", err)
			}
		}
	}

	// Market data sources and snapshot cache
	quotes := services.NewNSEService(cfg.MarketData.BaseURL, cfg.MarketData.APIKey)
	fundamentals := services.NewFundamentalsClient(cfg.Fundamentals.BaseURL, cfg.Fundamentals.APIKey)

	var auditor marketdata.BuildAuditor
	if repo != nil {
		auditor = repo
	}
	cache := marketdata.NewCache(cfg, quotes, fundamentals, auditor)

	scheduler, err := marketdata.NewScheduler(cfg, cache)
	if err != nil {
		observability.Fatal("Invalid refresh schedule", "error", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// Warm the cache in the background so the first request does not pay
	// the full build latency
	go func() {
		warmCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Cache.BuildTimeoutSec)*time.Second)
		defer cancel()
		if _, err := cache.Refresh(warmCtx); err != nil {
			observability.Warn("Initial snapshot build failed", "error", err)
		}
	}()

	// Conversational pipeline
	llmTimeout := time.Duration(cfg.LLM.TimeoutSeconds) * time.Second
	interp := interpreter.New(llm, llmTimeout)

	var history chat.HistoryStore
	if repo != nil {
		history = repo
	}
	orchestrator := chat.NewOrchestrator(interp, cache, llm, llmTimeout, history)

	var appRepo RepositoryInterface
	if repo != nil {
		appRepo = repo
	}
	app := NewApp(cfg, appRepo, orchestrator, interp, cache)
	handler := NewAPIHandler(app, cfg)

	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: NewRouter(handler, cfg),
	}

	go func() {
		observability.Info("HTTP server listening", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			observability.Fatal("HTTP server failed", "error", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	observability.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Error("HTTP server shutdown failed", "error", err)
	}
	app.Shutdown(shutdownCtx)
}
