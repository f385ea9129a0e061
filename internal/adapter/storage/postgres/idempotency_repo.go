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

// IdempotencyRepo implements ports.IdempotencyRepository, the
// authoritative idempotency store behind the Redis fast path.
type IdempotencyRepo struct {
	pool Pool
}

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(pool Pool) *IdempotencyRepo {
	return &IdempotencyRepo{pool: pool}
}

// Create inserts an idempotency record within a database transaction.
func (r *IdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, record *domain.IdempotencyRecord) error {
	query := `INSERT INTO idempotency_records (tenant_id, key, request_fingerprint, response, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query,
		record.TenantID, record.Key, record.RequestFingerprint,
		record.Response, record.ExpiresAt, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert idempotency record: %w", err)
	}
	return nil
}

// Get fetches an idempotency record by tenant and key.
func (r *IdempotencyRepo) Get(ctx context.Context, tenantID uuid.UUID, key string) (*domain.IdempotencyRecord, error) {
	query := `SELECT tenant_id, key, request_fingerprint, response, expires_at, created_at
		FROM idempotency_records WHERE tenant_id = $1 AND key = $2`

	record := &domain.IdempotencyRecord{}
	err := r.pool.QueryRow(ctx, query, tenantID, key).Scan(
		&record.TenantID, &record.Key, &record.RequestFingerprint,
		&record.Response, &record.ExpiresAt, &record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}
	return record, nil
}

// DeleteExpired removes records past their TTL. Run periodically.
func (r *IdempotencyRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM idempotency_records WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired idempotency records: %w", err)
	}
	return tag.RowsAffected(), nil
}
