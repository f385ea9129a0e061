package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"payops-gateway/internal/core/domain"
	"payops-gateway/internal/core/ports"
	"payops-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Provider event types the ingestion pipeline acts on. Anything else is
// acknowledged and dropped.
const (
	eventCheckoutCompleted = "checkout.session.completed"
	eventCheckoutExpired   = "checkout.session.expired"
	eventPaymentCanceled   = "payment_intent.canceled"
	eventPaymentFailed     = "payment_intent.payment_failed"
)

// WebhookIngestServiceImpl implements ports.WebhookIngestService: the
// inbound webhook pipeline of verify, de-duplicate, transition, fan out.
type WebhookIngestServiceImpl struct {
	gateway     ports.ProviderGateway
	eventRepo   ports.ProviderEventRepository
	sessionRepo ports.CheckoutSessionRepository
	paymentRepo ports.PaymentRepository
	subRepo     ports.WebhookSubscriptionRepository
	queueRepo   ports.WebhookEventRepository
	transactor  ports.DBTransactor
	auditSvc    ports.AuditService
	log         zerolog.Logger
}

// NewWebhookIngestService creates a new WebhookIngestServiceImpl.
func NewWebhookIngestService(
	gateway ports.ProviderGateway,
	eventRepo ports.ProviderEventRepository,
	sessionRepo ports.CheckoutSessionRepository,
	paymentRepo ports.PaymentRepository,
	subRepo ports.WebhookSubscriptionRepository,
	queueRepo ports.WebhookEventRepository,
	transactor ports.DBTransactor,
	auditSvc ports.AuditService,
	log zerolog.Logger,
) *WebhookIngestServiceImpl {
	return &WebhookIngestServiceImpl{
		gateway:     gateway,
		eventRepo:   eventRepo,
		sessionRepo: sessionRepo,
		paymentRepo: paymentRepo,
		subRepo:     subRepo,
		queueRepo:   queueRepo,
		transactor:  transactor,
		auditSvc:    auditSvc,
		log:         log,
	}
}

// HandleEvent processes one inbound provider webhook delivery. A nil
// return acknowledges the delivery; only signature failures and internal
// errors propagate so the provider retries.
func (s *WebhookIngestServiceImpl) HandleEvent(ctx context.Context, providerName string, payload []byte, signatureHeader string) error {
	provider, err := s.gateway.ByName(providerName)
	if err != nil {
		return err
	}

	event, err := provider.ParseWebhookEvent(payload, signatureHeader)
	if err != nil {
		if errors.Is(err, ports.ErrInvalidProviderSignature) {
			s.log.Warn().Err(err).Str("provider", providerName).Msg("webhook signature verification failed")
			return apperror.ErrWebhookSignature()
		}
		// Validly signed but undecodable: the sender is authentic, the
		// payload is broken. Retrying the same bytes cannot succeed.
		s.log.Warn().Err(err).Str("provider", providerName).Msg("webhook payload rejected")
		return apperror.Validation("malformed webhook payload")
	}

	// De-duplication ledger insert is the sole concurrency gate: the
	// loser of a concurrent duplicate delivery stops here.
	inserted, err := s.eventRepo.Insert(ctx, &domain.ProviderEvent{
		EventID:    event.ID,
		Provider:   providerName,
		Type:       event.Type,
		Payload:    event.Raw,
		ReceivedAt: time.Now().UTC(),
	})
	if err != nil {
		return apperror.InternalError(fmt.Errorf("record provider event: %w", err))
	}
	if !inserted {
		s.log.Info().
			Str("provider", providerName).
			Str("event_id", event.ID).
			Msg("duplicate provider event acknowledged")
		return nil
	}

	targetStatus, ok := sessionStatusFor(event.Type)
	if !ok {
		s.log.Debug().
			Str("provider", providerName).
			Str("event_type", event.Type).
			Msg("ignoring unhandled provider event type")
		return nil
	}

	if event.ProviderSessionID == "" {
		s.log.Warn().
			Str("provider", providerName).
			Str("event_id", event.ID).
			Msg("provider event carries no session reference, acknowledged")
		return nil
	}

	session, err := s.sessionRepo.GetByProviderSessionID(ctx, providerName, event.ProviderSessionID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("fetch session: %w", err))
	}
	if session == nil {
		// Unknown session: acknowledge so the provider stops retrying,
		// but keep the ledger row for investigation.
		s.log.Warn().
			Str("provider", providerName).
			Str("provider_session_id", event.ProviderSessionID).
			Msg("provider event references unknown session, acknowledged")
		return nil
	}

	// Status transitions are monotonic; terminal sessions never move.
	if session.IsTerminal() {
		s.log.Info().
			Str("session_id", session.ID.String()).
			Str("status", string(session.Status)).
			Str("event_type", event.Type).
			Msg("session already terminal, event acknowledged")
		return nil
	}

	before, _ := json.Marshal(session)

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.sessionRepo.UpdateStatus(ctx, dbTx, session.ID, targetStatus); err != nil {
		return apperror.InternalError(fmt.Errorf("update session status: %w", err))
	}
	session.Status = targetStatus
	session.UpdatedAt = time.Now().UTC()

	payment, paymentBefore, err := s.upsertPayment(ctx, dbTx, session, event, targetStatus)
	if err != nil {
		return err
	}

	if err := s.fanOut(ctx, dbTx, session, payment, event); err != nil {
		return err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	// One audit entry per mutated record.
	after, _ := json.Marshal(session)
	s.auditSvc.Log(ctx, &domain.AuditLog{
		ID:        uuid.New(),
		TenantID:  &session.TenantID,
		Action:    domain.AuditActionSessionUpdated,
		Target:    "checkout_session:" + session.ID.String(),
		Before:    strPtr(string(before)),
		After:     strPtr(string(after)),
		CreatedAt: time.Now().UTC(),
	})
	if payment != nil {
		paymentAfter, _ := json.Marshal(payment)
		s.auditSvc.Log(ctx, &domain.AuditLog{
			ID:        uuid.New(),
			TenantID:  &session.TenantID,
			Action:    domain.AuditActionPaymentUpserted,
			Target:    "payment:" + payment.ID.String(),
			Before:    paymentBefore,
			After:     strPtr(string(paymentAfter)),
			CreatedAt: time.Now().UTC(),
		})
	}

	logEvt := s.log.Info().
		Str("session_id", session.ID.String()).
		Str("tenant_id", session.TenantID.String()).
		Str("event_type", event.Type).
		Str("status", string(targetStatus))
	if payment != nil {
		logEvt = logEvt.Str("payment_id", payment.ID.String())
	}
	logEvt.Msg("provider event processed")

	return nil
}

// upsertPayment creates or updates the payment row tied to the session.
// Expiry events carry no money movement and leave payments untouched.
// The returned before snapshot is nil for freshly created payments.
func (s *WebhookIngestServiceImpl) upsertPayment(ctx context.Context, tx pgx.Tx, session *domain.CheckoutSession, event *ports.ProviderWebhookEvent, sessionStatus domain.CheckoutStatus) (*domain.Payment, *string, error) {
	var paymentStatus domain.PaymentStatus
	switch sessionStatus {
	case domain.CheckoutStatusCompleted:
		paymentStatus = domain.PaymentStatusSucceeded
	case domain.CheckoutStatusFailed:
		paymentStatus = domain.PaymentStatusFailed
	default:
		return nil, nil, nil
	}

	now := time.Now().UTC()

	payment, err := s.paymentRepo.GetByCheckoutSessionID(ctx, session.ID)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("fetch payment: %w", err))
	}

	if payment == nil {
		amount := session.Amount
		currency := session.Currency
		if event.Amount > 0 {
			amount = event.Amount
		}
		if event.Currency != "" {
			currency = event.Currency
		}
		payment = &domain.Payment{
			ID:                uuid.New(),
			TenantID:          session.TenantID,
			CheckoutSessionID: &session.ID,
			Amount:            amount,
			Currency:          currency,
			Status:            paymentStatus,
			Provider:          session.Provider,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if event.ProviderPaymentID != "" {
			payment.ProviderPaymentID = &event.ProviderPaymentID
		}
		if paymentStatus == domain.PaymentStatusSucceeded {
			payment.PaidAt = &now
		}
		if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
			return nil, nil, apperror.InternalError(fmt.Errorf("create payment: %w", err))
		}
		return payment, nil, nil
	}

	beforeRaw, _ := json.Marshal(payment)
	payment.Status = paymentStatus
	if event.ProviderPaymentID != "" {
		payment.ProviderPaymentID = &event.ProviderPaymentID
	}
	if paymentStatus == domain.PaymentStatusSucceeded && payment.PaidAt == nil {
		payment.PaidAt = &now
	}
	payment.UpdatedAt = now
	if err := s.paymentRepo.Update(ctx, tx, payment); err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("update payment: %w", err))
	}
	return payment, strPtr(string(beforeRaw)), nil
}

// deliveryPayload is the self-contained record a queued delivery
// carries: the dispatcher consuming the queue must not need further
// reads to render the tenant-facing notification.
type deliveryPayload struct {
	EventType       string                  `json:"event_type"`
	Provider        string                  `json:"provider"`
	CheckoutSession *domain.CheckoutSession `json:"checkout_session"`
	Payment         *domain.Payment         `json:"payment,omitempty"`
	RawEvent        json.RawMessage         `json:"raw_event"`
}

// fanOut enqueues one delivery per matching tenant subscription, inside
// the same transaction as the state change.
func (s *WebhookIngestServiceImpl) fanOut(ctx context.Context, tx pgx.Tx, session *domain.CheckoutSession, payment *domain.Payment, event *ports.ProviderWebhookEvent) error {
	subs, err := s.subRepo.ListEnabledByTenant(ctx, session.TenantID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("list subscriptions: %w", err))
	}

	deliverable, err := json.Marshal(deliveryPayload{
		EventType:       event.Type,
		Provider:        session.Provider,
		CheckoutSession: session,
		Payment:         payment,
		RawEvent:        event.Raw,
	})
	if err != nil {
		return apperror.InternalError(fmt.Errorf("marshal delivery payload: %w", err))
	}

	now := time.Now().UTC()
	for _, sub := range subs {
		if !sub.Matches(event.Type) {
			continue
		}
		queued := &domain.WebhookEvent{
			ID:             uuid.New(),
			TenantID:       session.TenantID,
			SubscriptionID: sub.ID,
			EventType:      event.Type,
			Payload:        deliverable,
			Status:         domain.WebhookEventStatusQueued,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.queueRepo.Enqueue(ctx, tx, queued); err != nil {
			return apperror.InternalError(fmt.Errorf("enqueue webhook event: %w", err))
		}
	}
	return nil
}

// sessionStatusFor maps a provider event type to the session state it
// drives. Unknown types are ignored.
func sessionStatusFor(eventType string) (domain.CheckoutStatus, bool) {
	switch eventType {
	case eventCheckoutCompleted:
		return domain.CheckoutStatusCompleted, true
	case eventCheckoutExpired, eventPaymentCanceled:
		return domain.CheckoutStatusExpired, true
	case eventPaymentFailed:
		return domain.CheckoutStatusFailed, true
	default:
		return "", false
	}
}
