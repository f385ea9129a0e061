package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"payops-gateway/internal/core/domain"
	"payops-gateway/internal/core/ports"
	"payops-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RefundServiceImpl implements ports.RefundService.
type RefundServiceImpl struct {
	refundRepo  ports.RefundRepository
	paymentRepo ports.PaymentRepository
	gateway     ports.ProviderGateway
	stepUp      ports.StepUpGuard
	auditSvc    ports.AuditService
	log         zerolog.Logger
}

// NewRefundService creates a new RefundServiceImpl.
func NewRefundService(
	refundRepo ports.RefundRepository,
	paymentRepo ports.PaymentRepository,
	gateway ports.ProviderGateway,
	stepUp ports.StepUpGuard,
	auditSvc ports.AuditService,
	log zerolog.Logger,
) *RefundServiceImpl {
	return &RefundServiceImpl{
		refundRepo:  refundRepo,
		paymentRepo: paymentRepo,
		gateway:     gateway,
		stepUp:      stepUp,
		auditSvc:    auditSvc,
		log:         log,
	}
}

// CreateRefund refunds a succeeded payment. The refund row is written
// PENDING before the provider call so a crash mid-flight leaves a
// recoverable record instead of silent money movement.
func (s *RefundServiceImpl) CreateRefund(ctx context.Context, req ports.CreateRefundRequest) (*domain.Refund, error) {
	decision, err := s.stepUp.Check(ctx, ports.StepUpRequest{
		UserID:   req.UserID,
		TenantID: req.TenantID,
		Action:   "refund.create",
		UserRole: req.UserRole,
	})
	if err != nil {
		// An unreachable step-up service denies; refunds fail closed.
		s.log.Warn().Err(err).Str("user_id", req.UserID).Msg("step-up check failed, denying refund")
		return nil, apperror.ErrStepUpRequired()
	}
	if !decision.Allowed {
		s.log.Info().
			Str("user_id", req.UserID).
			Str("reason", decision.Reason).
			Msg("refund denied by step-up guard")
		return nil, apperror.ErrStepUpRequired()
	}

	payment, err := s.paymentRepo.GetByID(ctx, req.PaymentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch payment: %w", err))
	}
	if payment == nil {
		return nil, apperror.ErrNotFound("payment")
	}
	if payment.TenantID != req.TenantID {
		return nil, apperror.ErrTenantMismatch()
	}
	if !payment.IsRefundable() {
		return nil, apperror.ErrPaymentNotRefundable()
	}
	if payment.ProviderPaymentID == nil {
		return nil, apperror.InternalError(fmt.Errorf("payment %s has no provider payment id", payment.ID))
	}

	amount := payment.Amount
	if req.Amount != nil {
		amount = *req.Amount
	}
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if amount > payment.Amount {
		return nil, apperror.ErrRefundExceedsPayment()
	}

	provider, err := s.gateway.ByName(payment.Provider)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	refund := &domain.Refund{
		ID:        uuid.New(),
		PaymentID: payment.ID,
		TenantID:  req.TenantID,
		Amount:    amount,
		Reason:    req.Reason,
		Status:    domain.RefundStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.refundRepo.Create(ctx, refund); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create refund: %w", err))
	}

	reason := ""
	if req.Reason != nil {
		reason = *req.Reason
	}
	providerRefund, err := provider.Refund(ctx, *payment.ProviderPaymentID, amount, reason)
	if err != nil {
		refund.Status = domain.RefundStatusFailed
		refund.UpdatedAt = time.Now().UTC()
		if updErr := s.refundRepo.Update(ctx, refund); updErr != nil {
			s.log.Error().Err(updErr).Str("refund_id", refund.ID.String()).Msg("failed to mark refund as failed")
		}
		s.auditRefund(ctx, domain.AuditActionRefundFailed, req, refund)
		return nil, apperror.ErrProviderFailure(fmt.Errorf("provider refund: %w", err))
	}

	refund.ProviderRefundID = &providerRefund.RefundID
	refund.Status = refundStatusFromProvider(providerRefund.Status)
	refund.UpdatedAt = time.Now().UTC()
	if err := s.refundRepo.Update(ctx, refund); err != nil {
		// The provider accepted the refund; the local row stays PENDING
		// for reconciliation rather than being lost.
		s.log.Error().Err(err).Str("refund_id", refund.ID.String()).Msg("failed to finalize refund row")
		return nil, apperror.InternalError(fmt.Errorf("finalize refund: %w", err))
	}

	s.auditRefund(ctx, domain.AuditActionRefundCreated, req, refund)

	s.log.Info().
		Str("refund_id", refund.ID.String()).
		Str("payment_id", payment.ID.String()).
		Str("tenant_id", req.TenantID.String()).
		Int64("amount", amount).
		Msg("refund processed")

	return refund, nil
}

// refundStatusFromProvider maps the provider-reported refund state.
// Async providers report pending until their own webhook settles it; an
// empty status means the refund was accepted outright.
func refundStatusFromProvider(status string) domain.RefundStatus {
	switch strings.ToLower(status) {
	case "", "succeeded":
		return domain.RefundStatusSucceeded
	case "failed", "canceled":
		return domain.RefundStatusFailed
	default:
		return domain.RefundStatusPending
	}
}

func (s *RefundServiceImpl) auditRefund(ctx context.Context, action domain.AuditAction, req ports.CreateRefundRequest, refund *domain.Refund) {
	after, err := json.Marshal(refund)
	var afterSnap *string
	if err == nil {
		snap := string(after)
		afterSnap = &snap
	}
	s.auditSvc.Log(ctx, &domain.AuditLog{
		ID:          uuid.New(),
		TenantID:    &req.TenantID,
		ActorUserID: strPtrOrNil(req.UserID),
		Action:      action,
		Target:      "refund:" + refund.ID.String(),
		After:       afterSnap,
		IPAddress:   req.ClientIP,
		UserAgent:   req.UserAgent,
		CreatedAt:   time.Now().UTC(),
	})
}
