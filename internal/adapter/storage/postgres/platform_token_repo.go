package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payops-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PlatformTokenRepo implements ports.PlatformTokenRepository.
type PlatformTokenRepo struct {
	pool Pool
}

// NewPlatformTokenRepo creates a new PlatformTokenRepo.
func NewPlatformTokenRepo(pool Pool) *PlatformTokenRepo {
	return &PlatformTokenRepo{pool: pool}
}

// GetByPlatformID fetches a platform token by its external identifier.
func (r *PlatformTokenRepo) GetByPlatformID(ctx context.Context, platformID string) (*domain.PlatformToken, error) {
	query := `SELECT id, platform_id, platform_name, secret_enc, status, last_used_at, created_at, updated_at
		FROM platform_tokens WHERE platform_id = $1`

	t := &domain.PlatformToken{}
	err := r.pool.QueryRow(ctx, query, platformID).Scan(
		&t.ID, &t.PlatformID, &t.PlatformName, &t.SecretEnc,
		&t.Status, &t.LastUsedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get platform token: %w", err)
	}
	return t, nil
}

// UpdateLastUsed stamps the token's last successful verification.
func (r *PlatformTokenRepo) UpdateLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE platform_tokens SET last_used_at = $1, updated_at = $1 WHERE id = $2`

	_, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("update platform token last_used_at: %w", err)
	}
	return nil
}
