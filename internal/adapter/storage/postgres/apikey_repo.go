package postgres

import (
	"context"
	"errors"
	"fmt"

	"payops-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ApiKeyRepo implements ports.ApiKeyRepository.
type ApiKeyRepo struct {
	pool Pool
}

// NewApiKeyRepo creates a new ApiKeyRepo.
func NewApiKeyRepo(pool Pool) *ApiKeyRepo {
	return &ApiKeyRepo{pool: pool}
}

const apiKeyColumns = `id, tenant_id, name, prefix, hashed_secret, scope, env, status,
		ip_allowlist, expires_at, notes, last_used_at, created_at, updated_at`

// Create inserts a new API key.
func (r *ApiKeyRepo) Create(ctx context.Context, key *domain.ApiKey) error {
	query := `INSERT INTO api_keys (` + apiKeyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.pool.Exec(ctx, query,
		key.ID, key.TenantID, key.Name, key.Prefix, key.HashedSecret, key.Scope,
		key.Env, key.Status, key.IPAllowlist, key.ExpiresAt, key.Notes,
		key.LastUsedAt, key.CreatedAt, key.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// GetByID fetches an API key by its UUID.
func (r *ApiKeyRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ApiKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetByPrefix fetches an API key by its non-secret prefix.
func (r *ApiKeyRepo) GetByPrefix(ctx context.Context, prefix string) (*domain.ApiKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE prefix = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, prefix))
}

// ListByTenant returns all keys of a tenant, newest first.
func (r *ApiKeyRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.ApiKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE tenant_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []domain.ApiKey
	for rows.Next() {
		var k domain.ApiKey
		if err := rows.Scan(
			&k.ID, &k.TenantID, &k.Name, &k.Prefix, &k.HashedSecret, &k.Scope,
			&k.Env, &k.Status, &k.IPAllowlist, &k.ExpiresAt, &k.Notes,
			&k.LastUsedAt, &k.CreatedAt, &k.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate api keys: %w", err)
	}
	return keys, nil
}

// Update rewrites the mutable fields of an API key.
func (r *ApiKeyRepo) Update(ctx context.Context, key *domain.ApiKey) error {
	query := `UPDATE api_keys SET hashed_secret = $1, status = $2, notes = $3,
		last_used_at = $4, updated_at = $5 WHERE id = $6`

	tag, err := r.pool.Exec(ctx, query,
		key.HashedSecret, key.Status, key.Notes, key.LastUsedAt, key.UpdatedAt, key.ID,
	)
	if err != nil {
		return fmt.Errorf("update api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("api key not found: %s", key.ID)
	}
	return nil
}

func (r *ApiKeyRepo) scanOne(row pgx.Row) (*domain.ApiKey, error) {
	k := &domain.ApiKey{}
	err := row.Scan(
		&k.ID, &k.TenantID, &k.Name, &k.Prefix, &k.HashedSecret, &k.Scope,
		&k.Env, &k.Status, &k.IPAllowlist, &k.ExpiresAt, &k.Notes,
		&k.LastUsedAt, &k.CreatedAt, &k.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get api key: %w", err)
	}
	return k, nil
}
