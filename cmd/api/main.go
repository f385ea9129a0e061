package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payops-gateway/config"
	httpHandler "payops-gateway/internal/adapter/http/handler"
	"payops-gateway/internal/adapter/provider"
	pgStorage "payops-gateway/internal/adapter/storage/postgres"
	redisStorage "payops-gateway/internal/adapter/storage/redis"
	"payops-gateway/internal/core/ports"
	"payops-gateway/internal/service"
	"payops-gateway/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("payops-gateway", cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Payment Operations Gateway")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// Initialize repositories
	tenantRepo := pgStorage.NewTenantRepo(pool)
	sessionRepo := pgStorage.NewCheckoutSessionRepo(pool)
	paymentRepo := pgStorage.NewPaymentRepo(pool)
	refundRepo := pgStorage.NewRefundRepo(pool)
	idempotencyRepo := pgStorage.NewIdempotencyRepo(pool)
	providerEventRepo := pgStorage.NewProviderEventRepo(pool)
	apiKeyRepo := pgStorage.NewApiKeyRepo(pool)
	platformTokenRepo := pgStorage.NewPlatformTokenRepo(pool)
	replayRepo := pgStorage.NewReplayCacheRepo(pool)
	subscriptionRepo := pgStorage.NewWebhookSubscriptionRepo(pool)
	webhookEventRepo := pgStorage.NewWebhookEventRepo(pool)
	auditRepo := pgStorage.NewAuditRepository(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	encSvc, err := service.NewAESEncryptionService(cfg.AES.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	sigSvc := service.NewHMACSignatureService()
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)

	// Payment providers
	gateway := provider.NewGateway(tenantRepo,
		provider.NewStripeProvider(cfg.Providers.Stripe, log),
		provider.NewSandboxProvider(cfg.Providers.Sandbox.WebhookSecret),
	)

	// Step-up guard: external MFA service when configured, otherwise
	// allow-all (development only).
	var stepUp ports.StepUpGuard
	if cfg.StepUp.URL != "" {
		stepUp = service.NewHTTPStepUpGuard(cfg.StepUp.URL, cfg.StepUp.Timeout, log)
	} else {
		log.Warn().Msg("no step-up service configured, refunds will not require MFA")
		stepUp = service.AllowAllStepUpGuard{}
	}

	// Initialize business services
	auditSvc := service.NewAuditService(auditRepo, log)
	checkoutSvc := service.NewCheckoutService(
		sessionRepo, tenantRepo, idempotencyRepo, idempotencyCache,
		gateway, transactor, auditSvc, log,
	)
	refundSvc := service.NewRefundService(
		refundRepo, paymentRepo, gateway, stepUp, auditSvc, log,
	)
	webhookSvc := service.NewWebhookIngestService(
		gateway, providerEventRepo, sessionRepo, paymentRepo,
		subscriptionRepo, webhookEventRepo, transactor, auditSvc, log,
	)
	apiKeySvc := service.NewApiKeyService(apiKeyRepo, tenantRepo, hashSvc, auditSvc, log)
	platformAuthSvc := service.NewPlatformAuthService(platformTokenRepo, replayRepo, encSvc, sigSvc, log)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		CheckoutSvc:     checkoutSvc,
		RefundSvc:       refundSvc,
		WebhookSvc:      webhookSvc,
		ApiKeySvc:       apiKeySvc,
		PlatformAuthSvc: platformAuthSvc,
		TokenSvc:        tokenSvc,
		SessionRepo:     sessionRepo,
		PaymentRepo:     paymentRepo,
		ApiKeyRepo:      apiKeyRepo,
		RateLimitStore:  rateLimitStore,
		HealthCheckers:  []ports.HealthChecker{pgHealth, redisHealth},
		Logger:          log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Periodic cleanup of expired idempotency records
	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				if n, err := idempotencyRepo.DeleteExpired(cleanupCtx, time.Now().UTC()); err != nil {
					log.Warn().Err(err).Msg("idempotency cleanup failed")
				} else if n > 0 {
					log.Info().Int64("deleted", n).Msg("expired idempotency records removed")
				}
			}
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
