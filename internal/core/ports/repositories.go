package ports

import (
	"context"
	"time"

	"payops-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TenantRepository defines persistence operations for tenants.
type TenantRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
}

// CheckoutSessionRepository defines persistence for checkout sessions.
// Methods accepting pgx.Tx run inside transaction blocks so the session
// mutation, payment upsert and fan-out commit atomically.
type CheckoutSessionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, session *domain.CheckoutSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CheckoutSession, error)
	GetByProviderSessionID(ctx context.Context, provider, providerSessionID string) (*domain.CheckoutSession, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.CheckoutStatus) error
}

// PaymentRepository defines persistence for payments.
type PaymentRepository interface {
	Create(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error
	Update(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	GetByCheckoutSessionID(ctx context.Context, sessionID uuid.UUID) (*domain.Payment, error)
}

// RefundRepository defines persistence for refund attempts.
type RefundRepository interface {
	Create(ctx context.Context, refund *domain.Refund) error
	Update(ctx context.Context, refund *domain.Refund) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Refund, error)
}

// IdempotencyRepository is the authoritative idempotency store.
// Records are unique per (tenant_id, key) and read-only until expiry.
type IdempotencyRepository interface {
	Get(ctx context.Context, tenantID uuid.UUID, key string) (*domain.IdempotencyRecord, error)
	Create(ctx context.Context, tx pgx.Tx, record *domain.IdempotencyRecord) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ProviderEventRepository is the inbound webhook de-duplication ledger.
type ProviderEventRepository interface {
	// Insert appends the event. Returns false without error when the
	// (provider, event_id) pair already exists; concurrent deliveries of
	// the same event are serialized by the store's uniqueness constraint.
	Insert(ctx context.Context, event *domain.ProviderEvent) (bool, error)
}

// ApiKeyRepository defines persistence for tenant API keys.
type ApiKeyRepository interface {
	Create(ctx context.Context, key *domain.ApiKey) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ApiKey, error)
	GetByPrefix(ctx context.Context, prefix string) (*domain.ApiKey, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.ApiKey, error)
	Update(ctx context.Context, key *domain.ApiKey) error
}

// PlatformTokenRepository defines persistence for platform tokens.
type PlatformTokenRepository interface {
	GetByPlatformID(ctx context.Context, platformID string) (*domain.PlatformToken, error)
	UpdateLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
}

// ReplayCacheRepository is the durable replay guard for the HMAC boundary.
type ReplayCacheRepository interface {
	// Insert records an accepted signature hash. Returns false without
	// error when the hash is already present (replay).
	Insert(ctx context.Context, entry *domain.ReplayCacheEntry) (bool, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// WebhookSubscriptionRepository lists tenant fan-out targets.
type WebhookSubscriptionRepository interface {
	ListEnabledByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.WebhookSubscription, error)
}

// WebhookEventRepository is the outbound delivery queue.
type WebhookEventRepository interface {
	Enqueue(ctx context.Context, tx pgx.Tx, event *domain.WebhookEvent) error
}

// AuditRepository persists append-only audit entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
