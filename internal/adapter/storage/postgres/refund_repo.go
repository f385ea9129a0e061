package postgres

import (
	"context"
	"errors"
	"fmt"

	"payops-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RefundRepo implements ports.RefundRepository.
type RefundRepo struct {
	pool Pool
}

// NewRefundRepo creates a new RefundRepo.
func NewRefundRepo(pool Pool) *RefundRepo {
	return &RefundRepo{pool: pool}
}

// Create inserts a refund row. Called before the provider call so the
// attempt is durable even if the process dies mid-flight.
func (r *RefundRepo) Create(ctx context.Context, refund *domain.Refund) error {
	query := `INSERT INTO refunds (id, payment_id, tenant_id, amount, reason, provider_refund_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		refund.ID, refund.PaymentID, refund.TenantID, refund.Amount, refund.Reason,
		refund.ProviderRefundID, refund.Status, refund.CreatedAt, refund.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert refund: %w", err)
	}
	return nil
}

// Update finalizes a refund row after the provider call.
func (r *RefundRepo) Update(ctx context.Context, refund *domain.Refund) error {
	query := `UPDATE refunds SET status = $1, provider_refund_id = $2, updated_at = $3 WHERE id = $4`

	tag, err := r.pool.Exec(ctx, query,
		refund.Status, refund.ProviderRefundID, refund.UpdatedAt, refund.ID,
	)
	if err != nil {
		return fmt.Errorf("update refund: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("refund not found: %s", refund.ID)
	}
	return nil
}

// GetByID fetches a refund by its UUID.
func (r *RefundRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Refund, error) {
	query := `SELECT id, payment_id, tenant_id, amount, reason, provider_refund_id, status, created_at, updated_at
		FROM refunds WHERE id = $1`

	refund := &domain.Refund{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&refund.ID, &refund.PaymentID, &refund.TenantID, &refund.Amount, &refund.Reason,
		&refund.ProviderRefundID, &refund.Status, &refund.CreatedAt, &refund.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get refund by id: %w", err)
	}
	return refund, nil
}
