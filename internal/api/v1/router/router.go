package router

import (
	"app/internal/api/v1/handler"
	"app/internal/config"
	"app/internal/middleware"
	"app/internal/pgmq"
	"app/internal/repository"
	"app/internal/service"
	"context"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (http.Handler, *pgxpool.Pool, error) {
	logger.Info().Str("environment", cfg.Environment).Msg("Router initialized")

	// 1. Open DB connection (connection pooling)
	dsn := cfg.DBConnectionString
	// In a development environment, we want to ensure that SSL is disabled for
	// local testing. In production, the connection string should be provided
	// with the correct SSL settings.
	if cfg.Environment == "development" && !strings.Contains(dsn, "sslmode") {
		separator := " "
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			if strings.Contains(dsn, "?") {
				separator = "&"
			} else {
				separator = "?"
			}
		}
		dsn += separator + "sslmode=disable"
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open DB connection")
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to ping DB")
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	// 2. Apply schema migrations and ensure the job queue exists
	if err := repository.RunMigrations(ctx, pool); err != nil {
		logger.Error().Err(err).Msg("Failed to run migrations")
		return nil, nil, err
	}
	queue := pgmq.New(pool)
	if err := queue.EnsureQueue(ctx, cfg.AIQueueName); err != nil {
		logger.Error().Err(err).Msg("Failed to create job queue")
		return nil, nil, err
	}

	// 3. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 4. Initialize repositories & services & handlers
	jobRepo := repository.NewJobRepo(pool)
	usageRepo := repository.NewUsageRepo(pool)
	webhookRepo := repository.NewWebhookEventRepo(pool)
	subscriptionRepo := repository.NewSubscriptionRepo(pool)
	invoiceRepo := repository.NewInvoiceRepo(pool)

	jobSvc := service.NewJobService(cfg, jobRepo, usageRepo, queue, logger)
	reconciler := service.NewReconciler(subscriptionRepo, invoiceRepo, logger)
	webhookSvc := service.NewWebhookService(cfg, webhookRepo, reconciler, logger)

	aiHandler := handler.NewAIHandler(jobSvc, validate, logger)
	billingHandler := handler.NewBillingHandler(webhookSvc, logger)

	// 5. Initialize middleware
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret, logger)

	// 6. Create ServeMux router
	mux := http.NewServeMux()

	// Create a subrouter for API v1 with the /v1 prefix
	apiV1Mux := http.NewServeMux()
	aiHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	billingHandler.RegisterRoutes(apiV1Mux)

	// Mount the API v1 routes under /v1
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// 7. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(logger, c.Handler(mux)), pool, nil
}
