package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookshelfai/bookshelfai/internal"
	"github.com/bookshelfai/bookshelfai/internal/ai"
	"github.com/bookshelfai/bookshelfai/internal/ai/mock"
	"github.com/bookshelfai/bookshelfai/internal/ai/openai"
	"github.com/bookshelfai/bookshelfai/internal/handler"
	"github.com/bookshelfai/bookshelfai/internal/metrics"
	"github.com/bookshelfai/bookshelfai/internal/middleware"
	"github.com/bookshelfai/bookshelfai/internal/scheduler"
	"github.com/bookshelfai/bookshelfai/internal/secretbox"
	"github.com/bookshelfai/bookshelfai/internal/service"
	"github.com/bookshelfai/bookshelfai/internal/store"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize store
	st := store.NewPostgres(db)

	// Credential encryption. In development an unset master secret falls
	// back to a fixed value so local setups work out of the box.
	masterSecret := cfg.CredentialMasterSecret
	if masterSecret == "" {
		masterSecret = "bookshelfai-dev-only-secret"
		logger.Warn("CREDENTIAL_MASTER_SECRET not set; using development fallback")
	}
	box, err := secretbox.New(masterSecret)
	if err != nil {
		return fmt.Errorf("secretbox initialization failed: %w", err)
	}

	// Initialize AI provider
	var provider ai.Provider
	switch cfg.AIProvider {
	case "openai":
		provider = openai.New(openai.Config{
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			ProviderConfig: ai.ProviderConfig{
				MaxRetries:     cfg.AIMaxRetries,
				RetryBaseDelay: cfg.AIRetryBaseDelay,
				RequestTimeout: cfg.AIRequestTimeout,
			},
		}, logger)
	default:
		provider = mock.New()
		logger.Warn("using mock AI provider; set AI_PROVIDER=openai for real generations")
	}

	// Initialize services
	accountService := service.NewAccountService(st, logger)
	ledgerService := service.NewLedgerService(st, logger)
	credentialService := service.NewCredentialService(st, box, logger)
	generationService := service.NewGenerationService(st, ledgerService, credentialService, provider, logger)
	webhookService := service.NewWebhookService(st, cfg.ProductMapping, logger)
	resetService := service.NewResetService(st, logger)

	// Initialize middleware
	authMw := middleware.NewAuthMiddleware(accountService, logger)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	metricsAuthMw := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow, logger)

	// Initialize handlers
	accountHandler := handler.NewAccountHandler(accountService, logger)
	generateHandler := handler.NewGenerateHandler(generationService, ledgerService, logger)
	settingsHandler := handler.NewSettingsHandler(credentialService, logger)
	webhookHandler := handler.NewWebhookHandler(webhookService, cfg.WebhookToken, logger)
	adminHandler := handler.NewAdminHandler(resetService, cfg.AdminToken, logger)
	healthHandler := handler.NewHealthHandler(func(r *http.Request) error {
		return db.PingContext(r.Context())
	}, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Health check and metrics
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.Handle("GET /metrics", metricsAuthMw.Handler(promhttp.Handler()))

	// Public endpoints
	mux.HandleFunc("POST /api/signup", accountHandler.Signup)
	mux.HandleFunc("POST /webhooks/payment", webhookHandler.HandlePaymentWebhook)
	mux.HandleFunc("POST /admin/reset", adminHandler.TriggerReset)

	// Authenticated API. The rate limiter sits inside auth so it keys on
	// account IDs rather than IPs.
	requireAccount := middleware.Stack(authMw.RequireAccount, rateLimiter.Handler)

	mux.Handle("POST /api/generate", requireAccount(http.HandlerFunc(generateHandler.Generate)))
	mux.Handle("GET /api/usage", requireAccount(http.HandlerFunc(generateHandler.Usage)))
	mux.Handle("POST /api/settings/ai", requireAccount(http.HandlerFunc(settingsHandler.SaveSettings)))
	mux.Handle("GET /api/settings/ai", requireAccount(http.HandlerFunc(settingsHandler.GetSettings)))

	// Outer middleware: metrics then request logging
	root := middleware.Stack(metrics.Middleware, loggingMw.Handler)(mux)

	// ==========================================================================
	// Start background scheduler
	// ==========================================================================

	var sched *scheduler.Scheduler
	if cfg.SchedulerEnabled {
		sched = scheduler.New(resetService, scheduler.Config{
			Interval: cfg.SchedulerInterval,
		}, logger)
		sched.Start(ctx)
	} else {
		logger.Info("scheduler disabled; rely on POST /admin/reset")
	}

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: root,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env, "ai_provider", cfg.AIProvider)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	if sched != nil {
		sched.Stop()
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
