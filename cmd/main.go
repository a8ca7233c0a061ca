/**
 * @description
 * This is the main entry point for the generation-service.
 * It initializes and wires together all the components of the application:
 * configuration, database connection, provider clients, the billing-event
 * consumer, the cron scheduler, and the HTTP router. All dependencies are
 * constructed here and injected explicitly; no component reaches for global
 * client state.
 */
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/aihub/generation-service/internal/api"
	"github.com/aihub/generation-service/internal/app"
	"github.com/aihub/generation-service/internal/config"
	"github.com/aihub/generation-service/internal/store"
	"github.com/aihub/generation-service/pkg/geminiclient"
	"github.com/aihub/generation-service/pkg/rabbitmq"
	"github.com/aihub/generation-service/pkg/replicateclient"
	"github.com/aihub/generation-service/pkg/stabilityclient"
)

func main() {
	// Load .env file for local development.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load application configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Establish connection to the PostgreSQL database with connection pool configuration
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}

	poolCfg.MaxConns = 50
	poolCfg.MinConns = 5
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Use simple protocol so the service works behind PgBouncer transaction pooling
	poolCfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	// Provider clients. Each outbound call carries an explicit timeout; a
	// timeout surfaces as a provider failure, never as consumed quota.
	providerTimeout := time.Duration(cfg.ProviderTimeoutSeconds) * time.Second
	chatModel := geminiclient.NewClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiChatModel, providerTimeout)
	codeModel := geminiclient.NewClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiCodeModel, providerTimeout)
	codeModel.GenerationConfig = &geminiclient.GenerationConfig{
		Temperature:     0.7,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 2048,
	}
	imageClient := stabilityclient.NewClient(cfg.StabilityBaseURL, cfg.StabilityAPIKey, providerTimeout)
	replicateClient := replicateclient.NewClient(cfg.ReplicateBaseURL, cfg.ReplicateAPIToken)

	// Initialize application layers
	repository := store.NewRepository(dbpool)
	entitlements := app.NewEntitlements(repository, cfg.FreeLimit)
	service := app.NewService(entitlements, chatModel, codeModel, imageClient, replicateClient, replicateClient, logger)
	handler := api.NewHandler(service, logger)

	// Optional Redis-backed per-user rate limiter
	var limiter api.RequestLimiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		limiter = app.NewRedisRateLimiter(redisClient, "aihub:rate_limit")
		logger.Info("rate limiter enabled", "limit_per_minute", cfg.RateLimitPerMinute)
	}

	router := api.NewRouter(handler, api.RouterConfig{
		Auth: api.AuthConfig{
			JWKSURL:             cfg.ClerkJWKSURL,
			ExpectedIssuer:      cfg.ClerkIssuer,
			AllowHeaderFallback: cfg.AuthHeaderBypass,
		},
		Limiter:         limiter,
		RateLimit:       cfg.RateLimitPerMinute,
		RateLimitWindow: time.Minute,
		Logger:          logger,
	})

	// Billing lifecycle events keep the subscription rows current.
	if cfg.RabbitMQURL != "" {
		consumer, err := rabbitmq.NewConsumer(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Error("unable to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()

		billing := app.NewBillingEventConsumer(repository)
		err = consumer.Subscribe("billing.events", "generation-service.subscriptions", map[string]rabbitmq.Handler{
			"subscription.updated": billing.HandleSubscriptionUpdated,
			"subscription.deleted": billing.HandleSubscriptionDeleted,
		})
		if err != nil {
			logger.Error("unable to subscribe to billing events", "error", err)
			os.Exit(1)
		}
		logger.Info("billing event consumer started")
	}

	// Start the subscription lapse sweeper.
	jobs := app.NewJobs(repository, logger)
	scheduler := app.NewScheduler(jobs, logger, cfg.LapseJobSchedule)
	scheduler.Start()

	// Configure and start the HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for an OS signal
	<-sigCh
	logger.Info("shutdown signal received, gracefully shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	logger.Info("server stopped")
}
