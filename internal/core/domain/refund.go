package domain

import (
	"time"

	"github.com/google/uuid"
)

// RefundStatus represents the lifecycle state of a refund attempt.
// State machine: PENDING -> {SUCCEEDED, FAILED} (terminal).
type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "PENDING"
	RefundStatusSucceeded RefundStatus = "SUCCEEDED"
	RefundStatusFailed    RefundStatus = "FAILED"
)

// Refund is a refund attempt immutably tied to one payment. Rows are
// created PENDING before the provider call and never deleted, so a crash
// mid-flight leaves a recoverable record rather than silent loss.
type Refund struct {
	ID               uuid.UUID    `json:"id"`
	PaymentID        uuid.UUID    `json:"payment_id"`
	TenantID         uuid.UUID    `json:"tenant_id"`
	Amount           int64        `json:"amount"`
	Reason           *string      `json:"reason,omitempty"`
	ProviderRefundID *string      `json:"provider_refund_id,omitempty"`
	Status           RefundStatus `json:"status"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}
