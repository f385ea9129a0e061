package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSucceeded PaymentStatus = "SUCCEEDED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// Payment is money collected through a provider. Created on the first
// webhook event for a checkout session (or directly, e.g. withdrawals).
// One payment maps to at most one checkout session.
type Payment struct {
	ID                uuid.UUID         `json:"id"`
	TenantID          uuid.UUID         `json:"tenant_id"`
	CheckoutSessionID *uuid.UUID        `json:"checkout_session_id,omitempty"`
	Amount            int64             `json:"amount"`
	Currency          string            `json:"currency"`
	Status            PaymentStatus     `json:"status"`
	Provider          string            `json:"provider"`
	ProviderPaymentID *string           `json:"provider_payment_id,omitempty"`
	PaidAt            *time.Time        `json:"paid_at,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// IsRefundable returns true if this payment can be refunded.
func (p *Payment) IsRefundable() bool {
	return p.Status == PaymentStatusSucceeded
}
