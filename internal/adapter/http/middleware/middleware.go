package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"payops-gateway/internal/core/domain"
	"payops-gateway/internal/core/ports"
	"payops-gateway/pkg/apperror"
	"payops-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// Header names for platform HMAC authentication
	HeaderPlatformID = "X-Platform-ID"
	HeaderSignature  = "X-Signature"
	HeaderTimestamp  = "X-Timestamp"

	// Tenant scoping header for platform-surface calls
	HeaderTenantID = "X-Tenant-ID"

	// API key header for merchant-surface calls
	HeaderAPIKey = "X-Api-Key"

	// Context keys
	CtxTenantID   = "tenant_id"
	CtxPlatformID = "platform_id"
	CtxAPIKey     = "api_key"
	CtxClaims     = "claims"
)

// PlatformHMAC creates a middleware that authenticates external platform
// requests. The signature binds method, path, body and timestamp; all
// verification decisions live in the platform auth service.
func PlatformHMAC(authSvc ports.PlatformAuthService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		platformID := c.GetHeader(HeaderPlatformID)
		signature := c.GetHeader(HeaderSignature)
		timestamp := c.GetHeader(HeaderTimestamp)

		var body []byte
		if c.Request.Body != nil {
			var err error
			body, err = io.ReadAll(c.Request.Body)
			if err != nil {
				response.Error(c, apperror.Validation("cannot read request body"))
				c.Abort()
				return
			}
			c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
		}

		identity, err := authSvc.Verify(c.Request.Context(), ports.PlatformRequest{
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			Body:       body,
			PlatformID: platformID,
			Timestamp:  timestamp,
			Signature:  signature,
		})
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(CtxPlatformID, identity.PlatformID)
		c.Next()
	}
}

// APIKeyAuth creates a middleware that authenticates merchant API calls
// by API key secret. The key's tenant becomes the request tenant.
func APIKeyAuth(keySvc ports.ApiKeyService, requiredScope string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := c.GetHeader(HeaderAPIKey)
		if secret == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				secret = auth[7:]
			}
		}
		if secret == "" {
			response.Error(c, apperror.ErrInvalidAPIKey())
			c.Abort()
			return
		}

		key, err := keySvc.VerifySecret(c.Request.Context(), secret)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		if !key.AllowsIP(c.ClientIP()) {
			log.Warn().
				Str("key_id", key.ID.String()).
				Str("client_ip", c.ClientIP()).
				Msg("api key used from disallowed ip")
			response.Error(c, apperror.ErrIPNotAllowed())
			c.Abort()
			return
		}

		if requiredScope != "" && key.Scope != requiredScope {
			response.Error(c, apperror.ErrPermissionDenied(requiredScope))
			c.Abort()
			return
		}

		c.Set(CtxTenantID, key.TenantID)
		c.Set(CtxAPIKey, key)
		c.Next()
	}
}

// APIKeyOrJWTAuth authenticates a request with either an API key or a
// dashboard session token. X-Api-Key always wins; a Bearer credential
// is tried as a session token first and falls back to API key secret,
// so server-to-server callers can keep sending keys in the
// Authorization header.
func APIKeyOrJWTAuth(keySvc ports.ApiKeyService, tokenSvc ports.TokenService, requiredScope string, log zerolog.Logger) gin.HandlerFunc {
	keyAuth := APIKeyAuth(keySvc, requiredScope, log)
	return func(c *gin.Context) {
		if c.GetHeader(HeaderAPIKey) != "" {
			keyAuth(c)
			return
		}
		auth := c.GetHeader("Authorization")
		if strings.HasPrefix(auth, "Bearer ") {
			if claims, err := tokenSvc.Validate(auth[7:]); err == nil {
				if requiredScope != "" && !claims.HasPermission(requiredScope) {
					response.Error(c, apperror.ErrPermissionDenied(requiredScope))
					c.Abort()
					return
				}
				c.Set(CtxTenantID, claims.TenantID)
				c.Set(CtxClaims, claims)
				c.Next()
				return
			}
		}
		keyAuth(c)
	}
}

// TenantHeaderGuard rejects requests whose X-Tenant-ID header names a
// tenant other than the one the credential resolved to. The header is
// optional; the credential's tenant is always authoritative.
// Must run after an auth middleware.
func TenantHeaderGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(HeaderTenantID)
		if header == "" {
			c.Next()
			return
		}
		claimed, err := uuid.Parse(header)
		if err != nil {
			response.Error(c, apperror.Validation("invalid tenant id header"))
			c.Abort()
			return
		}
		tenantID, ok := TenantID(c)
		if !ok || claimed != tenantID {
			response.Error(c, apperror.ErrTenantMismatch())
			c.Abort()
			return
		}
		c.Next()
	}
}

// JWTAuth creates a middleware that validates session tokens for
// dashboard routes.
func JWTAuth(tokenSvc ports.TokenService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		claims, err := tokenSvc.Validate(authHeader[7:])
		if err != nil {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		c.Set(CtxTenantID, claims.TenantID)
		c.Set(CtxClaims, claims)
		c.Next()
	}
}

// RequirePermission gates a route on a session token permission.
// Must run after JWTAuth.
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := SessionClaims(c)
		if claims == nil || !claims.HasPermission(permission) {
			response.Error(c, apperror.ErrPermissionDenied(permission))
			c.Abort()
			return
		}
		c.Next()
	}
}

// TenantID extracts the request tenant set by an auth middleware.
func TenantID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(CtxTenantID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// SessionClaims extracts the dashboard session claims, if present.
func SessionClaims(c *gin.Context) *ports.TokenClaims {
	v, ok := c.Get(CtxClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*ports.TokenClaims)
	return claims
}

// APIKey extracts the authenticated API key, if present.
func APIKey(c *gin.Context) *domain.ApiKey {
	v, ok := c.Get(CtxAPIKey)
	if !ok {
		return nil
	}
	key, _ := v.(*domain.ApiKey)
	return key
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": "SYS_001",
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}
