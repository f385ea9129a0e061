package postgres

import (
	"context"
	"errors"
	"fmt"

	"payops-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CheckoutSessionRepo implements ports.CheckoutSessionRepository.
type CheckoutSessionRepo struct {
	pool Pool
}

// NewCheckoutSessionRepo creates a new CheckoutSessionRepo.
func NewCheckoutSessionRepo(pool Pool) *CheckoutSessionRepo {
	return &CheckoutSessionRepo{pool: pool}
}

const checkoutSessionColumns = `id, tenant_id, amount, currency, reference, method_types,
		provider, provider_session_id, redirect_url, qr_image_url, expires_at, status, created_at, updated_at`

// Create inserts a checkout session within a database transaction.
func (r *CheckoutSessionRepo) Create(ctx context.Context, tx pgx.Tx, s *domain.CheckoutSession) error {
	query := `INSERT INTO checkout_sessions (` + checkoutSessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := tx.Exec(ctx, query,
		s.ID, s.TenantID, s.Amount, s.Currency, s.Reference, s.MethodTypes,
		s.Provider, s.ProviderSessionID, s.RedirectURL, s.QRImageURL,
		s.ExpiresAt, s.Status, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert checkout session: %w", err)
	}
	return nil
}

// GetByID fetches a checkout session by its UUID.
func (r *CheckoutSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.CheckoutSession, error) {
	query := `SELECT ` + checkoutSessionColumns + ` FROM checkout_sessions WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetByProviderSessionID fetches a session by provider and provider-side id.
func (r *CheckoutSessionRepo) GetByProviderSessionID(ctx context.Context, provider, providerSessionID string) (*domain.CheckoutSession, error) {
	query := `SELECT ` + checkoutSessionColumns + ` FROM checkout_sessions
		WHERE provider = $1 AND provider_session_id = $2`
	return r.scanOne(r.pool.QueryRow(ctx, query, provider, providerSessionID))
}

// UpdateStatus moves a session to a new status within a transaction.
// Terminal sessions are never rewritten; the WHERE clause enforces the
// monotonic transition even under concurrent writers.
func (r *CheckoutSessionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.CheckoutStatus) error {
	query := `UPDATE checkout_sessions SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`

	tag, err := tx.Exec(ctx, query, status, id, domain.CheckoutStatusPending)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session not pending: %s", id)
	}
	return nil
}

func (r *CheckoutSessionRepo) scanOne(row pgx.Row) (*domain.CheckoutSession, error) {
	s := &domain.CheckoutSession{}
	err := row.Scan(
		&s.ID, &s.TenantID, &s.Amount, &s.Currency, &s.Reference, &s.MethodTypes,
		&s.Provider, &s.ProviderSessionID, &s.RedirectURL, &s.QRImageURL,
		&s.ExpiresAt, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get checkout session: %w", err)
	}
	return s, nil
}
