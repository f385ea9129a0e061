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

// HeaderIdempotencyKey carries the caller-chosen retry key.
const HeaderIdempotencyKey = "Idempotency-Key"

// CheckoutHandler handles checkout session endpoints.
type CheckoutHandler struct {
	checkoutSvc ports.CheckoutService
	sessionRepo ports.CheckoutSessionRepository
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkoutSvc ports.CheckoutService, sessionRepo ports.CheckoutSessionRepository) *CheckoutHandler {
	return &CheckoutHandler{checkoutSvc: checkoutSvc, sessionRepo: sessionRepo}
}

// CreateCheckout handles POST /api/v1/checkouts.
func (h *CheckoutHandler) CreateCheckout(c *gin.Context) {
	tenantID, ok := middleware.TenantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidAPIKey())
		return
	}

	var req dto.CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	var idempotencyKey *string
	if key := c.GetHeader(HeaderIdempotencyKey); key != "" {
		idempotencyKey = &key
	}

	var actorID string
	if key := middleware.APIKey(c); key != nil {
		actorID = "api_key:" + key.Prefix
	} else if claims := middleware.SessionClaims(c); claims != nil {
		actorID = claims.UserID
	}

	session, err := h.checkoutSvc.CreateCheckout(c.Request.Context(), ports.CreateCheckoutRequest{
		TenantID:       tenantID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Reference:      req.Reference,
		MethodTypes:    req.MethodTypes,
		SuccessURL:     req.SuccessURL,
		CancelURL:      req.CancelURL,
		IdempotencyKey: idempotencyKey,
		ClientIP:       c.ClientIP(),
		UserAgent:      c.Request.UserAgent(),
		ActorID:        actorID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toCheckoutResponse(session))
}

// GetCheckout handles GET /api/v1/checkouts/:id.
func (h *CheckoutHandler) GetCheckout(c *gin.Context) {
	tenantID, ok := middleware.TenantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidAPIKey())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid checkout session id"))
		return
	}

	session, err := h.sessionRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}
	// Cross-tenant reads look identical to missing rows.
	if session == nil || session.TenantID != tenantID {
		response.Error(c, apperror.ErrNotFound("checkout session"))
		return
	}

	response.OK(c, toCheckoutResponse(session))
}

// toCheckoutResponse converts domain.CheckoutSession to DTO.
func toCheckoutResponse(s *domain.CheckoutSession) dto.CheckoutResponse {
	resp := dto.CheckoutResponse{
		ID:          s.ID.String(),
		Amount:      s.Amount,
		Currency:    s.Currency,
		Reference:   s.Reference,
		Provider:    s.Provider,
		RedirectURL: s.RedirectURL,
		QRImageURL:  s.QRImageURL,
		Status:      string(s.Status),
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
		MethodTypes: s.MethodTypes,
	}
	if s.ExpiresAt != nil {
		expires := s.ExpiresAt.Format(time.RFC3339)
		resp.ExpiresAt = &expires
	}
	return resp
}
