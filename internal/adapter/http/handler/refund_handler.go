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

// RefundHandler handles refund endpoints.
type RefundHandler struct {
	refundSvc   ports.RefundService
	paymentRepo ports.PaymentRepository
}

// NewRefundHandler creates a new RefundHandler.
func NewRefundHandler(refundSvc ports.RefundService, paymentRepo ports.PaymentRepository) *RefundHandler {
	return &RefundHandler{refundSvc: refundSvc, paymentRepo: paymentRepo}
}

// CreateRefund handles POST /api/v1/refunds.
func (h *RefundHandler) CreateRefund(c *gin.Context) {
	claims := middleware.SessionClaims(c)
	if claims == nil {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	paymentID, err := uuid.Parse(req.PaymentID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid payment id"))
		return
	}

	refund, err := h.refundSvc.CreateRefund(c.Request.Context(), ports.CreateRefundRequest{
		TenantID:  claims.TenantID,
		UserID:    claims.UserID,
		UserRole:  claims.Role,
		PaymentID: paymentID,
		Amount:    req.Amount,
		Reason:    req.Reason,
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toRefundResponse(refund))
}

// GetPayment handles GET /api/v1/payments/:id.
func (h *RefundHandler) GetPayment(c *gin.Context) {
	claims := middleware.SessionClaims(c)
	if claims == nil {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid payment id"))
		return
	}

	payment, err := h.paymentRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}
	if payment == nil || payment.TenantID != claims.TenantID {
		response.Error(c, apperror.ErrNotFound("payment"))
		return
	}

	response.OK(c, toPaymentResponse(payment))
}

func toRefundResponse(r *domain.Refund) dto.RefundResponse {
	return dto.RefundResponse{
		ID:               r.ID.String(),
		PaymentID:        r.PaymentID.String(),
		Amount:           r.Amount,
		Reason:           r.Reason,
		ProviderRefundID: r.ProviderRefundID,
		Status:           string(r.Status),
		CreatedAt:        r.CreatedAt.Format(time.RFC3339),
	}
}

func toPaymentResponse(p *domain.Payment) dto.PaymentResponse {
	resp := dto.PaymentResponse{
		ID:        p.ID.String(),
		Amount:    p.Amount,
		Currency:  p.Currency,
		Status:    string(p.Status),
		Provider:  p.Provider,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
	if p.CheckoutSessionID != nil {
		sid := p.CheckoutSessionID.String()
		resp.CheckoutSessionID = &sid
	}
	if p.PaidAt != nil {
		paid := p.PaidAt.Format(time.RFC3339)
		resp.PaidAt = &paid
	}
	return resp
}
