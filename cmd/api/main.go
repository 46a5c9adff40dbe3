package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/carebridge/patient-assistant/internal/api/router"
	"github.com/carebridge/patient-assistant/internal/assistant"
	appconfig "github.com/carebridge/patient-assistant/internal/config"
	"github.com/carebridge/patient-assistant/internal/directory"
	"github.com/carebridge/patient-assistant/internal/observability/metrics"
	"github.com/carebridge/patient-assistant/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting patient-assistant API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
	)

	if cfg.PatientJWTSecret == "" {
		logger.Error("PATIENT_JWT_SECRET is required")
		os.Exit(1)
	}

	ctx := context.Background()

	// Directory: Postgres in production, seeded memory store for local work.
	var dir directory.Service
	if cfg.UseMemoryDirectory || cfg.DatabaseURL == "" {
		logger.Warn("running with in-memory directory; data will not persist")
		dir = seededMemoryDirectory()
	} else {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
		dir = directory.NewPostgresStore(db)
	}

	// Redis turn log. A missing Redis degrades the store instead of failing boot.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, conversation history disabled", "error", err)
		}
	}

	// Language model provider and the embedding-backed semantic index.
	var (
		llm         assistant.LLMClient
		index       assistant.VectorIndex
		openaiSDK   *openai.Client
		geminiToEnd *assistant.GeminiClient
	)
	if cfg.OpenAIAPIKey != "" {
		openaiSDK = openai.NewClient(cfg.OpenAIAPIKey)
	}
	switch cfg.LLMProvider {
	case "gemini":
		gc, err := assistant.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("failed to create gemini client", "error", err)
			os.Exit(1)
		}
		llm = gc
		geminiToEnd = gc
	default:
		if openaiSDK == nil {
			logger.Error("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
			os.Exit(1)
		}
		llm = assistant.NewOpenAIClient(openaiSDK, cfg.OpenAIModel)
	}
	if openaiSDK != nil {
		index = assistant.NewMemoryVectorIndex(openaiSDK, cfg.OpenAIEmbeddingModel, logger)
	} else {
		logger.Warn("no embedding client configured, semantic recall disabled")
	}

	// Pipeline wiring.
	chatMetrics := metrics.NewChatMetrics(nil)
	store := assistant.NewConversationStore(redisClient, index, logger.With("component", "store"))
	retriever := assistant.NewContextRetriever(store, dir, cfg.ContextTopK, cfg.ContextCharBudget, logger)
	prompts := assistant.NewPromptAssembler(cfg.HistoryWindow)
	gateway := assistant.NewGateway(llm, cfg.LLMTimeout, logger)
	interpreter := assistant.NewInterpreter(logger)
	dispatcher := assistant.NewDispatcher(dir, chatMetrics, logger)
	service := assistant.NewService(store, retriever, prompts, gateway, interpreter, dispatcher, chatMetrics, logger)
	history := assistant.NewHistoryProjector(store)
	chatHandler := assistant.NewHandler(service, history, store, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        chatHandler,
		MetricsHandler:     promhttp.Handler(),
		PatientJWTSecret:   cfg.PatientJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSec:    cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if geminiToEnd != nil {
		_ = geminiToEnd.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	logger.Info("server stopped")
}

// seededMemoryDirectory returns a directory with demo data so the chat flow
// works end to end without Postgres.
func seededMemoryDirectory() *directory.MemoryStore {
	store := directory.NewMemoryStore()
	store.SeedTherapists([]directory.Therapist{
		{ID: "t-001", FirstName: "Sarah", LastName: "Johnson", Specialization: "Cognitive Behavioral Therapy", Email: "sarah.johnson@example.com"},
		{ID: "t-002", FirstName: "Michael", LastName: "Chen", Specialization: "Family Therapy", Email: "michael.chen@example.com"},
	})
	store.SeedPatient(directory.Patient{
		ID:        "p-001",
		FirstName: "Alex",
		LastName:  "Rivera",
		Email:     "alex.rivera@example.com",
	})
	return store
}
