package ports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidProviderSignature marks a webhook delivery whose signature
// check failed. Adapters wrap it so ingestion can tell a forged request
// from a merely malformed one.
var ErrInvalidProviderSignature = errors.New("provider signature verification failed")

// CheckoutParams is the provider-agnostic input for a hosted checkout.
type CheckoutParams struct {
	TenantID    uuid.UUID
	Amount      int64 // minor units
	Currency    string
	Reference   string
	MethodTypes []string
	SuccessURL  string
	CancelURL   string
}

// ProviderSession is the provider's view of a created checkout session.
type ProviderSession struct {
	ID          string
	RedirectURL *string
	QRImageURL  *string
	ExpiresAt   *time.Time
	Status      string // empty means pending
}

// ProviderRefund is the provider's view of a refund request.
type ProviderRefund struct {
	RefundID string
	Status   string
}

// ProviderWebhookEvent is a verified, normalized inbound provider event.
type ProviderWebhookEvent struct {
	ID                string
	Type              string
	TenantID          string // from event metadata; empty if unattributable
	ProviderSessionID string
	ProviderPaymentID string
	Amount            int64
	Currency          string
	Raw               []byte
}

// PaymentProvider is the opaque external payment capability. The core
// depends only on these operations; concrete SDK integrations live in
// adapter/provider.
type PaymentProvider interface {
	Name() string
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*ProviderSession, error)
	Refund(ctx context.Context, providerPaymentID string, amount int64, reason string) (*ProviderRefund, error)
	// ParseWebhookEvent verifies the provider signature over the raw
	// payload and normalizes the event. A verification failure must be
	// distinguishable from a malformed payload.
	ParseWebhookEvent(payload []byte, signatureHeader string) (*ProviderWebhookEvent, error)
}

// ProviderGateway resolves the active provider for a tenant and by name.
type ProviderGateway interface {
	ForTenant(ctx context.Context, tenantID uuid.UUID) (PaymentProvider, error)
	ByName(name string) (PaymentProvider, error)
}
