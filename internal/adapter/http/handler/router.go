package handler

import (
	"payops-gateway/internal/adapter/http/middleware"
	redisStore "payops-gateway/internal/adapter/storage/redis"
	"payops-gateway/internal/core/domain"
	"payops-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	CheckoutSvc     ports.CheckoutService
	RefundSvc       ports.RefundService
	WebhookSvc      ports.WebhookIngestService
	ApiKeySvc       ports.ApiKeyService
	PlatformAuthSvc ports.PlatformAuthService
	TokenSvc        ports.TokenService
	SessionRepo     ports.CheckoutSessionRepository
	PaymentRepo     ports.PaymentRepository
	ApiKeyRepo      ports.ApiKeyRepository
	RateLimitStore  *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers  []ports.HealthChecker
	Logger          zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Provider webhooks (provider signature verified in service) ---
	webhookHandler := NewWebhookHandler(deps.WebhookSvc)
	v1.POST("/webhooks/:provider", rl("webhooks"), webhookHandler.HandleProviderWebhook)

	// --- API-key-authenticated routes (merchant API) ---
	checkoutHandler := NewCheckoutHandler(deps.CheckoutSvc, deps.SessionRepo)
	checkouts := v1.Group("/checkouts",
		middleware.APIKeyOrJWTAuth(deps.ApiKeySvc, deps.TokenSvc, domain.PermissionPaymentsCreate, deps.Logger),
		middleware.TenantHeaderGuard())
	{
		checkouts.POST("", rl("checkouts"), checkoutHandler.CreateCheckout)
		checkouts.GET("/:id", rl("checkouts"), checkoutHandler.GetCheckout)
	}

	// --- Platform HMAC routes (external platform surface) ---
	apiKeyHandler := NewApiKeyHandler(deps.ApiKeySvc, deps.ApiKeyRepo)
	platform := v1.Group("/platform",
		middleware.PlatformHMAC(deps.PlatformAuthSvc, deps.Logger))
	{
		platform.POST("/api-keys", rl("keys"), apiKeyHandler.Create)
		platform.GET("/api-keys", rl("keys"), apiKeyHandler.List)
		platform.POST("/api-keys/:id/rotate", rl("keys"), apiKeyHandler.Rotate)
		platform.POST("/api-keys/:id/revoke", rl("keys"), apiKeyHandler.Revoke)
	}

	// --- JWT-authenticated routes (dashboard) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	refundHandler := NewRefundHandler(deps.RefundSvc, deps.PaymentRepo)

	refunds := v1.Group("/refunds", jwtAuth,
		middleware.RequirePermission(domain.PermissionRefundsCreate),
		middleware.TenantHeaderGuard())
	{
		refunds.POST("", rl("refunds"), refundHandler.CreateRefund)
	}

	payments := v1.Group("/payments", jwtAuth, middleware.TenantHeaderGuard())
	{
		payments.GET("/:id", rl("dashboard"), refundHandler.GetPayment)
	}

	apiKeys := v1.Group("/api-keys", jwtAuth,
		middleware.RequirePermission(domain.PermissionKeysManage))
	{
		apiKeys.POST("", rl("keys"), apiKeyHandler.Create)
		apiKeys.GET("", rl("dashboard"), apiKeyHandler.List)
		apiKeys.POST("/:id/rotate", rl("keys"), apiKeyHandler.Rotate)
		apiKeys.POST("/:id/revoke", rl("keys"), apiKeyHandler.Revoke)
	}

	return r
}
