package postgres

import (
	"context"
	"errors"
	"fmt"

	"payops-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PaymentRepo implements ports.PaymentRepository.
type PaymentRepo struct {
	pool Pool
}

// NewPaymentRepo creates a new PaymentRepo.
func NewPaymentRepo(pool Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

const paymentColumns = `id, tenant_id, checkout_session_id, amount, currency, status,
		provider, provider_payment_id, paid_at, metadata, created_at, updated_at`

// Create inserts a payment within a database transaction.
func (r *PaymentRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Payment) error {
	query := `INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := tx.Exec(ctx, query,
		p.ID, p.TenantID, p.CheckoutSessionID, p.Amount, p.Currency, p.Status,
		p.Provider, p.ProviderPaymentID, p.PaidAt, p.Metadata, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// Update rewrites the mutable payment fields within a transaction.
func (r *PaymentRepo) Update(ctx context.Context, tx pgx.Tx, p *domain.Payment) error {
	query := `UPDATE payments SET status = $1, provider_payment_id = $2, paid_at = $3,
		metadata = $4, updated_at = $5 WHERE id = $6`

	tag, err := tx.Exec(ctx, query,
		p.Status, p.ProviderPaymentID, p.PaidAt, p.Metadata, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payment not found: %s", p.ID)
	}
	return nil
}

// GetByID fetches a payment by its UUID.
func (r *PaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetByCheckoutSessionID fetches the payment tied to a checkout session.
func (r *PaymentRepo) GetByCheckoutSessionID(ctx context.Context, sessionID uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE checkout_session_id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, sessionID))
}

func (r *PaymentRepo) scanOne(row pgx.Row) (*domain.Payment, error) {
	p := &domain.Payment{}
	err := row.Scan(
		&p.ID, &p.TenantID, &p.CheckoutSessionID, &p.Amount, &p.Currency, &p.Status,
		&p.Provider, &p.ProviderPaymentID, &p.PaidAt, &p.Metadata, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}
