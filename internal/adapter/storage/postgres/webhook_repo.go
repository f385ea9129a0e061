package postgres

import (
	"context"
	"fmt"

	"payops-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WebhookSubscriptionRepo implements ports.WebhookSubscriptionRepository.
type WebhookSubscriptionRepo struct {
	pool Pool
}

// NewWebhookSubscriptionRepo creates a new WebhookSubscriptionRepo.
func NewWebhookSubscriptionRepo(pool Pool) *WebhookSubscriptionRepo {
	return &WebhookSubscriptionRepo{pool: pool}
}

// ListEnabledByTenant returns the tenant's enabled fan-out targets.
func (r *WebhookSubscriptionRepo) ListEnabledByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.WebhookSubscription, error) {
	query := `SELECT id, tenant_id, url, secret, events, enabled, created_at, updated_at
		FROM webhook_subscriptions WHERE tenant_id = $1 AND enabled = TRUE`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list webhook subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []domain.WebhookSubscription
	for rows.Next() {
		var s domain.WebhookSubscription
		if err := rows.Scan(
			&s.ID, &s.TenantID, &s.URL, &s.Secret, &s.Events,
			&s.Enabled, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan webhook subscription: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhook subscriptions: %w", err)
	}
	return subs, nil
}

// WebhookEventRepo implements ports.WebhookEventRepository, the outbound
// delivery queue.
type WebhookEventRepo struct {
	pool Pool
}

// NewWebhookEventRepo creates a new WebhookEventRepo.
func NewWebhookEventRepo(pool Pool) *WebhookEventRepo {
	return &WebhookEventRepo{pool: pool}
}

// Enqueue inserts a queued delivery within a database transaction, so the
// fan-out commits atomically with the state change that caused it.
func (r *WebhookEventRepo) Enqueue(ctx context.Context, tx pgx.Tx, event *domain.WebhookEvent) error {
	query := `INSERT INTO webhook_events (id, tenant_id, subscription_id, event_type, payload, status, attempts, next_retry_at, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		event.ID, event.TenantID, event.SubscriptionID, event.EventType, event.Payload,
		event.Status, event.Attempts, event.NextRetryAt, event.LastError,
		event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("enqueue webhook event: %w", err)
	}
	return nil
}
