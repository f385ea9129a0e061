package domain

import (
	"time"

	"github.com/google/uuid"
)

// CheckoutStatus represents the lifecycle state of a checkout session.
type CheckoutStatus string

const (
	CheckoutStatusPending   CheckoutStatus = "PENDING"
	CheckoutStatusCompleted CheckoutStatus = "COMPLETED"
	CheckoutStatusExpired   CheckoutStatus = "EXPIRED"
	CheckoutStatusFailed    CheckoutStatus = "FAILED"
)

// CheckoutSession tracks a provider-hosted payment attempt until it
// reaches a terminal state. Created by the checkout orchestrator; mutated
// only by the webhook ingestion pipeline.
type CheckoutSession struct {
	ID                uuid.UUID      `json:"id"`
	TenantID          uuid.UUID      `json:"tenant_id"`
	Amount            int64          `json:"amount"` // minor units
	Currency          string         `json:"currency"`
	Reference         *string        `json:"reference,omitempty"`
	MethodTypes       []string       `json:"method_types"`
	Provider          string         `json:"provider"`
	ProviderSessionID string         `json:"provider_session_id"`
	RedirectURL       *string        `json:"redirect_url,omitempty"`
	QRImageURL        *string        `json:"qr_image_url,omitempty"`
	ExpiresAt         *time.Time     `json:"expires_at,omitempty"`
	Status            CheckoutStatus `json:"status"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// IsTerminal returns true if the session is in a final state.
// Status transitions are monotonic: a terminal session never changes again.
func (s *CheckoutSession) IsTerminal() bool {
	return s.Status == CheckoutStatusCompleted ||
		s.Status == CheckoutStatusExpired ||
		s.Status == CheckoutStatusFailed
}
