package ports

import (
	"context"
	"time"

	"payops-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// EncryptionService handles AES-256-GCM encryption/decryption of
// secrets at rest.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SignatureService handles HMAC-SHA256 signing and verification for the
// platform trust boundary and outbound webhook payloads.
type SignatureService interface {
	// Sign computes HMAC-SHA256 and returns the base64-encoded MAC.
	Sign(secret string, payload string) string
	// Verify uses a constant-time comparison, never string equality.
	Verify(secret string, payload string, signature string) bool
	// BuildCanonicalString formats METHOD|PATH|BODY|TIMESTAMP.
	// Body is empty for GET/HEAD so the signature binds the exact request.
	BuildCanonicalString(method, path, body, timestamp string) string
}

// HashService handles one-way hashing of API key secrets (Argon2id).
type HashService interface {
	Hash(secret string) (string, error)
	Verify(secret string, hash string) (bool, error)
}

// TokenService handles dashboard session JWT operations.
type TokenService interface {
	Generate(tenantID uuid.UUID, userID string, role string, permissions []string, ttl time.Duration) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed session token claims.
type TokenClaims struct {
	TenantID    uuid.UUID
	UserID      string
	Role        string
	Permissions []string
}

// HasPermission reports whether the token carries the permission.
func (c *TokenClaims) HasPermission(p string) bool {
	for _, perm := range c.Permissions {
		if perm == p {
			return true
		}
	}
	return false
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
// The Postgres record remains authoritative.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // nil, nil on miss
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// StepUpGuard is the injected step-up MFA decision capability.
type StepUpGuard interface {
	Check(ctx context.Context, req StepUpRequest) (*StepUpDecision, error)
}

// StepUpRequest identifies the actor and the sensitive action.
type StepUpRequest struct {
	UserID   string
	TenantID uuid.UUID
	Action   string
	UserRole string
}

// StepUpDecision is the allow/deny outcome of the MFA service.
type StepUpDecision struct {
	Allowed bool
	Reason  string
}

// --- Service ports (business logic) ---

// CheckoutService orchestrates checkout session creation.
type CheckoutService interface {
	CreateCheckout(ctx context.Context, req CreateCheckoutRequest) (*domain.CheckoutSession, error)
}

// CreateCheckoutRequest holds validated input for checkout creation.
// IdempotencyKey nil means no idempotency guarantee is offered.
type CreateCheckoutRequest struct {
	TenantID       uuid.UUID
	Amount         int64
	Currency       string
	Reference      *string
	MethodTypes    []string
	SuccessURL     *string
	CancelURL      *string
	IdempotencyKey *string
	ClientIP       string
	UserAgent      string
	ActorID        string
}

// RefundService orchestrates refund creation against the provider.
type RefundService interface {
	CreateRefund(ctx context.Context, req CreateRefundRequest) (*domain.Refund, error)
}

// CreateRefundRequest holds validated input for refund processing.
// Amount nil means a full refund.
type CreateRefundRequest struct {
	TenantID  uuid.UUID
	UserID    string
	UserRole  string
	PaymentID uuid.UUID
	Amount    *int64
	Reason    *string
	ClientIP  string
	UserAgent string
}

// WebhookIngestService processes inbound provider webhooks: signature
// verification, de-duplication, state transition, audit, fan-out.
type WebhookIngestService interface {
	HandleEvent(ctx context.Context, provider string, payload []byte, signatureHeader string) error
}

// ApiKeyService is the credential lifecycle manager.
type ApiKeyService interface {
	Create(ctx context.Context, req CreateAPIKeyRequest) (*APIKeyWithSecret, error)
	Rotate(ctx context.Context, keyID uuid.UUID, actor Actor) (*APIKeyWithSecret, error)
	Revoke(ctx context.Context, keyID uuid.UUID, actor Actor) (*domain.ApiKey, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]domain.ApiKey, error)
	// VerifySecret authenticates a presented API key secret and bumps
	// usage metadata. Used by the request middleware.
	VerifySecret(ctx context.Context, secret string) (*domain.ApiKey, error)
}

// CreateAPIKeyRequest holds input for API key provisioning.
type CreateAPIKeyRequest struct {
	TenantID    uuid.UUID
	Name        string
	Scope       string
	Env         domain.KeyEnv
	IPAllowlist []string
	ExpiresAt   *time.Time
	Notes       string
	Actor       Actor
}

// Actor identifies who performed a lifecycle transition: a dashboard
// user or an external platform.
type Actor struct {
	UserID     string
	PlatformID string
	IP         string
	UserAgent  string
}

// ID returns the audit identity: user id, else platform id.
func (a Actor) ID() string {
	if a.UserID != "" {
		return a.UserID
	}
	return a.PlatformID
}

// APIKeyWithSecret pairs a persisted key with its plaintext secret.
// The secret is returned exactly once and never retrievable afterward.
type APIKeyWithSecret struct {
	Key    *domain.ApiKey
	Secret string
}

// PlatformAuthService verifies signed platform requests (HMAC boundary).
type PlatformAuthService interface {
	// Verify authenticates the exact request: method, path, body, time.
	Verify(ctx context.Context, req PlatformRequest) (*PlatformIdentity, error)
}

// PlatformRequest carries the raw material for HMAC verification.
type PlatformRequest struct {
	Method     string
	Path       string
	Body       []byte
	PlatformID string
	Timestamp  string // ISO-8601 as sent by the caller
	Signature  string // base64 HMAC-SHA256
}

// PlatformIdentity is the authenticated platform.
type PlatformIdentity struct {
	PlatformID   string
	PlatformName string
}

// AuditService records audit entries (fire-and-forget).
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
