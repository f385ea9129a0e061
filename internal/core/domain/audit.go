package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionCheckoutCreated  AuditAction = "CHECKOUT_CREATED"
	AuditActionSessionUpdated   AuditAction = "SESSION_UPDATED"
	AuditActionPaymentUpserted  AuditAction = "PAYMENT_UPSERTED"
	AuditActionRefundCreated    AuditAction = "REFUND_CREATED"
	AuditActionRefundFailed     AuditAction = "REFUND_FAILED"
	AuditActionAPIKeyCreated    AuditAction = "APIKEY_CREATED"
	AuditActionAPIKeyRotated    AuditAction = "APIKEY_ROTATED"
	AuditActionAPIKeyRevoked    AuditAction = "APIKEY_REVOKED"
	AuditActionWebhookProcessed AuditAction = "WEBHOOK_PROCESSED"
)

// AuditLog records a single audited action, including failed attempts.
// Append-only; Before/After hold JSON snapshots of the mutated record.
type AuditLog struct {
	ID          uuid.UUID   `json:"id"`
	TenantID    *uuid.UUID  `json:"tenant_id,omitempty"`
	ActorUserID *string     `json:"actor_user_id,omitempty"` // platform id for external callers
	Action      AuditAction `json:"action"`
	Target      string      `json:"target"`
	Before      *string     `json:"before,omitempty"` // JSON snapshot
	After       *string     `json:"after,omitempty"`  // JSON snapshot
	IPAddress   string      `json:"ip_address"`
	UserAgent   string      `json:"user_agent,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}
