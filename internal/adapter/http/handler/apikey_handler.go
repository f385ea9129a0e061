package handler

import (
	"time"

	"payops-gateway/internal/adapter/http/dto"
	"payops-gateway/internal/adapter/http/middleware"
	"payops-gateway/internal/core/domain"
	"payops-gateway/internal/core/ports"
	"payops-gateway/pkg/apperror"
	"payops-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ApiKeyHandler handles the credential lifecycle endpoints on both the
// platform HMAC surface and the dashboard session surface.
type ApiKeyHandler struct {
	keySvc  ports.ApiKeyService
	keyRepo ports.ApiKeyRepository
}

// NewApiKeyHandler creates a new ApiKeyHandler.
func NewApiKeyHandler(keySvc ports.ApiKeyService, keyRepo ports.ApiKeyRepository) *ApiKeyHandler {
	return &ApiKeyHandler{keySvc: keySvc, keyRepo: keyRepo}
}

// Create handles POST on the api-keys collection.
func (h *ApiKeyHandler) Create(c *gin.Context) {
	var req dto.CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	tenantID, err := h.resolveTenant(c, req.TenantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		parsed, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			response.Error(c, apperror.Validation("expires_at must be RFC 3339"))
			return
		}
		expiresAt = &parsed
	}

	created, err := h.keySvc.Create(c.Request.Context(), ports.CreateAPIKeyRequest{
		TenantID:    tenantID,
		Name:        req.Name,
		Scope:       req.Scope,
		Env:         domain.KeyEnv(req.Env),
		IPAllowlist: req.IPAllowlist,
		ExpiresAt:   expiresAt,
		Notes:       req.Notes,
		Actor:       h.actor(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.APIKeyCreatedResponse{
		APIKeyResponse: toAPIKeyResponse(created.Key),
		Secret:         created.Secret,
	})
}

// Rotate handles POST on api-keys/:id/rotate.
func (h *ApiKeyHandler) Rotate(c *gin.Context) {
	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid api key id"))
		return
	}

	key, err := h.lookupScoped(c, keyID)
	if err != nil {
		response.Error(c, err)
		return
	}

	rotated, err := h.keySvc.Rotate(c.Request.Context(), key.ID, h.actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.APIKeyCreatedResponse{
		APIKeyResponse: toAPIKeyResponse(rotated.Key),
		Secret:         rotated.Secret,
	})
}

// Revoke handles POST on api-keys/:id/revoke.
func (h *ApiKeyHandler) Revoke(c *gin.Context) {
	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid api key id"))
		return
	}

	key, err := h.lookupScoped(c, keyID)
	if err != nil {
		response.Error(c, err)
		return
	}

	revoked, err := h.keySvc.Revoke(c.Request.Context(), key.ID, h.actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toAPIKeyResponse(revoked))
}

// List handles GET on the api-keys collection. Secrets are never listed.
func (h *ApiKeyHandler) List(c *gin.Context) {
	tenantID, err := h.resolveTenant(c, c.Query("tenant_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	keys, err := h.keySvc.List(c.Request.Context(), tenantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.APIKeyResponse, 0, len(keys))
	for i := range keys {
		items = append(items, toAPIKeyResponse(&keys[i]))
	}

	response.OK(c, dto.APIKeyListResponse{Items: items, Total: len(items)})
}

// resolveTenant binds the operation to a tenant. Dashboard sessions are
// locked to their own tenant; platform callers name one explicitly.
func (h *ApiKeyHandler) resolveTenant(c *gin.Context, requested string) (uuid.UUID, error) {
	if claims := middleware.SessionClaims(c); claims != nil {
		if requested != "" && requested != claims.TenantID.String() {
			return uuid.Nil, apperror.ErrTenantMismatch()
		}
		return claims.TenantID, nil
	}

	if requested == "" {
		requested = c.GetHeader(middleware.HeaderTenantID)
	}
	if requested == "" {
		return uuid.Nil, apperror.Validation("tenant_id is required")
	}
	tenantID, err := uuid.Parse(requested)
	if err != nil {
		return uuid.Nil, apperror.Validation("invalid tenant_id")
	}
	return tenantID, nil
}

// lookupScoped fetches a key and enforces tenant scoping for dashboard
// callers. Platform callers operate across tenants. Cross-tenant reads
// look identical to missing keys.
func (h *ApiKeyHandler) lookupScoped(c *gin.Context, keyID uuid.UUID) (*domain.ApiKey, error) {
	key, err := h.keyRepo.GetByID(c.Request.Context(), keyID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if key == nil {
		return nil, apperror.ErrNotFound("api key")
	}
	if claims := middleware.SessionClaims(c); claims != nil && key.TenantID != claims.TenantID {
		return nil, apperror.ErrNotFound("api key")
	}
	return key, nil
}

func (h *ApiKeyHandler) actor(c *gin.Context) ports.Actor {
	actor := ports.Actor{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if claims := middleware.SessionClaims(c); claims != nil {
		actor.UserID = claims.UserID
	}
	if pid, ok := c.Get(middleware.CtxPlatformID); ok {
		if s, ok := pid.(string); ok {
			actor.PlatformID = s
		}
	}
	return actor
}

// toAPIKeyResponse converts domain.ApiKey to its masked DTO.
func toAPIKeyResponse(k *domain.ApiKey) dto.APIKeyResponse {
	resp := dto.APIKeyResponse{
		ID:          k.ID.String(),
		TenantID:    k.TenantID.String(),
		Name:        k.Name,
		Prefix:      k.Prefix,
		Scope:       k.Scope,
		Env:         string(k.Env),
		Status:      string(k.Status),
		IPAllowlist: k.IPAllowlist,
		CreatedAt:   k.CreatedAt.Format(time.RFC3339),
	}
	if k.ExpiresAt != nil {
		expires := k.ExpiresAt.Format(time.RFC3339)
		resp.ExpiresAt = &expires
	}
	if k.LastUsedAt != nil {
		used := k.LastUsedAt.Format(time.RFC3339)
		resp.LastUsedAt = &used
	}
	return resp
}
