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

const idempotencyTTL = 24 * time.Hour

// CheckoutServiceImpl implements ports.CheckoutService.
type CheckoutServiceImpl struct {
	sessionRepo ports.CheckoutSessionRepository
	tenantRepo  ports.TenantRepository
	idempRepo   ports.IdempotencyRepository
	idempCache  ports.IdempotencyCache
	gateway     ports.ProviderGateway
	transactor  ports.DBTransactor
	auditSvc    ports.AuditService
	log         zerolog.Logger
}

// NewCheckoutService creates a new CheckoutServiceImpl.
func NewCheckoutService(
	sessionRepo ports.CheckoutSessionRepository,
	tenantRepo ports.TenantRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	gateway ports.ProviderGateway,
	transactor ports.DBTransactor,
	auditSvc ports.AuditService,
	log zerolog.Logger,
) *CheckoutServiceImpl {
	return &CheckoutServiceImpl{
		sessionRepo: sessionRepo,
		tenantRepo:  tenantRepo,
		idempRepo:   idempRepo,
		idempCache:  idempCache,
		gateway:     gateway,
		transactor:  transactor,
		auditSvc:    auditSvc,
		log:         log,
	}
}

// CreateCheckout creates a provider-hosted checkout session. Retries
// carrying the same idempotency key and payload replay the stored
// response; the same key with a different payload is a conflict.
func (s *CheckoutServiceImpl) CreateCheckout(ctx context.Context, req ports.CreateCheckoutRequest) (*domain.CheckoutSession, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	tenant, err := s.tenantRepo.GetByID(ctx, req.TenantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch tenant: %w", err))
	}
	if tenant == nil {
		return nil, apperror.ErrNotFound("tenant")
	}
	if !tenant.IsActive() {
		return nil, apperror.ErrTenantNotActive()
	}

	fingerprint := checkoutFingerprint(req)

	if req.IdempotencyKey != nil {
		// Layer 1: Redis idempotency check
		cacheKey := domain.BuildIdempotencyKey(req.TenantID, *req.IdempotencyKey)
		cached, err := s.idempCache.Get(ctx, cacheKey)
		if err != nil {
			s.log.Warn().Err(err).Str("key", cacheKey).Msg("redis idempotency check failed, falling through to DB")
		}
		if cached != nil {
			return s.replayStoredRecord(cached, fingerprint)
		}

		// Layer 2: DB idempotency check (authoritative)
		record, err := s.idempRepo.Get(ctx, req.TenantID, *req.IdempotencyKey)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
		}
		if record != nil && !record.IsExpired(time.Now().UTC()) {
			if record.RequestFingerprint != fingerprint {
				return nil, apperror.ErrIdempotencyConflict()
			}
			return s.unmarshalCachedSession(record.Response)
		}
	}

	// Side effect ordering: the provider call happens before any local
	// write, so a local failure after it must still surface the session.
	provider, err := s.gateway.ForTenant(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	params := ports.CheckoutParams{
		TenantID:    req.TenantID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		MethodTypes: req.MethodTypes,
	}
	if req.Reference != nil {
		params.Reference = *req.Reference
	}
	if req.SuccessURL != nil {
		params.SuccessURL = *req.SuccessURL
	}
	if req.CancelURL != nil {
		params.CancelURL = *req.CancelURL
	}
	providerSession, err := provider.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, apperror.ErrProviderFailure(fmt.Errorf("create provider session: %w", err))
	}

	now := time.Now().UTC()
	session := &domain.CheckoutSession{
		ID:                uuid.New(),
		TenantID:          req.TenantID,
		Amount:            req.Amount,
		Currency:          req.Currency,
		Reference:         req.Reference,
		MethodTypes:       req.MethodTypes,
		Provider:          provider.Name(),
		ProviderSessionID: providerSession.ID,
		RedirectURL:       providerSession.RedirectURL,
		QRImageURL:        providerSession.QRImageURL,
		ExpiresAt:         providerSession.ExpiresAt,
		Status:            sessionStatusFromProvider(providerSession.Status),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	respJSON, err := json.Marshal(session)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.sessionRepo.Create(ctx, dbTx, session); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create session: %w", err))
	}

	var record *domain.IdempotencyRecord
	if req.IdempotencyKey != nil {
		record = &domain.IdempotencyRecord{
			TenantID:           req.TenantID,
			Key:                *req.IdempotencyKey,
			RequestFingerprint: fingerprint,
			Response:           respJSON,
			ExpiresAt:          now.Add(idempotencyTTL),
			CreatedAt:          now,
		}
		if err := s.idempRepo.Create(ctx, dbTx, record); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("save idempotency record: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	// Post-process: cache in Redis (best-effort)
	if record != nil {
		recordJSON, err := json.Marshal(record)
		if err == nil {
			cacheKey := domain.BuildIdempotencyKey(req.TenantID, *req.IdempotencyKey)
			if err := s.idempCache.Set(ctx, cacheKey, recordJSON, idempotencyTTL); err != nil {
				s.log.Warn().Err(err).Str("key", cacheKey).Msg("failed to cache idempotency record in redis")
			}
		}
	}

	s.auditSvc.Log(ctx, &domain.AuditLog{
		ID:          uuid.New(),
		TenantID:    &req.TenantID,
		ActorUserID: strPtrOrNil(req.ActorID),
		Action:      domain.AuditActionCheckoutCreated,
		Target:      "checkout_session:" + session.ID.String(),
		After:       strPtr(string(respJSON)),
		IPAddress:   req.ClientIP,
		UserAgent:   req.UserAgent,
		CreatedAt:   now,
	})

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("tenant_id", req.TenantID.String()).
		Str("provider", session.Provider).
		Int64("amount", req.Amount).
		Msg("checkout session created")

	return session, nil
}

// replayStoredRecord replays a cached idempotency record, enforcing the
// payload fingerprint before returning the stored response.
func (s *CheckoutServiceImpl) replayStoredRecord(raw []byte, fingerprint string) (*domain.CheckoutSession, error) {
	var record domain.IdempotencyRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached record: %w", err))
	}
	if record.RequestFingerprint != fingerprint {
		return nil, apperror.ErrIdempotencyConflict()
	}
	return s.unmarshalCachedSession(record.Response)
}

func (s *CheckoutServiceImpl) unmarshalCachedSession(raw []byte) (*domain.CheckoutSession, error) {
	var session domain.CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached session: %w", err))
	}
	return &session, nil
}

// checkoutFingerprint hashes the semantically meaningful request fields
// so a reused idempotency key with a changed payload is detectable.
func checkoutFingerprint(req ports.CreateCheckoutRequest) string {
	canonical, _ := json.Marshal(struct {
		Amount      int64    `json:"amount"`
		Currency    string   `json:"currency"`
		Reference   *string  `json:"reference"`
		MethodTypes []string `json:"method_types"`
		SuccessURL  *string  `json:"success_url"`
		CancelURL   *string  `json:"cancel_url"`
	}{req.Amount, req.Currency, req.Reference, req.MethodTypes, req.SuccessURL, req.CancelURL})
	return domain.Fingerprint(canonical)
}

// sessionStatusFromProvider maps a provider-reported session state into
// the local vocabulary. Unknown or empty states stay PENDING until the
// webhook pipeline settles them.
func sessionStatusFromProvider(status string) domain.CheckoutStatus {
	switch strings.ToLower(status) {
	case "complete", "completed":
		return domain.CheckoutStatusCompleted
	case "expired":
		return domain.CheckoutStatusExpired
	case "failed", "canceled":
		return domain.CheckoutStatusFailed
	default:
		return domain.CheckoutStatusPending
	}
}

func strPtr(s string) *string { return &s }

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
