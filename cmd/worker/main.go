package main

import (
	"context"
	"os/signal"
	"syscall"

	"app/internal/ai"
	"app/internal/config"
	"app/internal/logger"
	"app/internal/pgmq"
	"app/internal/repository"
	"app/internal/service"
	"app/internal/worker"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	logger := logger.New()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	// Set up context with graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize DB connection
	pool, err := pgxpool.New(ctx, cfg.DBConnectionString)
	if err != nil {
		logger.Fatal().Msgf("Failed to open DB connection: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Msgf("Failed to ping DB: %v", err)
	}
	logger.Info().Msg("Database connection established")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		logger.Fatal().Msgf("Failed to run migrations: %v", err)
	}

	// Initialize PGMQ client
	queue := pgmq.New(pool)
	if err := queue.EnsureQueue(ctx, cfg.AIQueueName); err != nil {
		logger.Fatal().Msgf("Failed to create job queue: %v", err)
	}
	logger.Info().Str("queue", cfg.AIQueueName).Msg("PGMQ client initialized")

	// Resolve provider API keys and build the provider registry
	secrets, err := service.NewSecretsService(ctx, cfg)
	if err != nil {
		logger.Fatal().Msgf("Failed to initialize secrets service: %v", err)
	}

	providers := make(map[string]ai.Provider)
	if key, err := secrets.ProviderAPIKey(ctx, "openai"); err != nil {
		logger.Warn().Err(err).Msg("OpenAI API key unavailable, provider disabled")
	} else {
		providers["openai"] = ai.NewOpenAIProvider(key)
	}
	if key, err := secrets.ProviderAPIKey(ctx, "google"); err != nil {
		logger.Warn().Err(err).Msg("Gemini API key unavailable, provider disabled")
	} else {
		providers["google"] = ai.NewGeminiProvider(key)
	}

	fallback, ok := providers[cfg.AIDefaultProvider]
	if !ok {
		logger.Fatal().Msgf("Default provider %s has no API key configured", cfg.AIDefaultProvider)
	}
	registered := make([]ai.Provider, 0, len(providers))
	for _, p := range providers {
		registered = append(registered, p)
	}
	registry := ai.NewRegistry(fallback, registered...)

	jobRepo := repository.NewJobRepo(pool)

	w := worker.New(cfg, queue, jobRepo, registry, logger)
	if err := w.Run(ctx); err != nil {
		logger.Fatal().Msgf("Worker failed: %v", err)
	}
	logger.Info().Msg("Worker stopped gracefully")
}
