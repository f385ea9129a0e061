package domain

import (
	"time"

	"github.com/google/uuid"
)

// WebhookSubscription is a tenant-owned fan-out target for internal
// webhook events.
type WebhookSubscription struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	URL       string    `json:"url"`
	Secret    string    `json:"-"`
	Events    []string  `json:"events"` // empty = all event types
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Matches reports whether the subscription wants the given event type.
func (s *WebhookSubscription) Matches(eventType string) bool {
	if !s.Enabled {
		return false
	}
	if len(s.Events) == 0 {
		return true
	}
	for _, e := range s.Events {
		if e == eventType {
			return true
		}
	}
	return false
}

// WebhookEventStatus represents the delivery state of a queued event.
type WebhookEventStatus string

const (
	WebhookEventStatusQueued    WebhookEventStatus = "QUEUED"
	WebhookEventStatusDelivered WebhookEventStatus = "DELIVERED"
	WebhookEventStatusFailed    WebhookEventStatus = "FAILED"
)

// WebhookEvent is one queued delivery to a tenant subscriber. The
// ingestion pipeline enqueues; a separate dispatcher consumes the queue.
type WebhookEvent struct {
	ID             uuid.UUID          `json:"id"`
	TenantID       uuid.UUID          `json:"tenant_id"`
	SubscriptionID uuid.UUID          `json:"subscription_id"`
	EventType      string             `json:"event_type"`
	Payload        []byte             `json:"payload"`
	Status         WebhookEventStatus `json:"status"`
	Attempts       int                `json:"attempts"`
	NextRetryAt    *time.Time         `json:"next_retry_at,omitempty"`
	LastError      *string            `json:"last_error,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}
