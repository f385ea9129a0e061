package postgres

import (
	"context"
	"fmt"
	"time"

	"payops-gateway/internal/core/domain"
)

// ReplayCacheRepo implements ports.ReplayCacheRepository. The table
// carries UNIQUE (signature_hash); the constraint is the replay gate.
type ReplayCacheRepo struct {
	pool Pool
}

// NewReplayCacheRepo creates a new ReplayCacheRepo.
func NewReplayCacheRepo(pool Pool) *ReplayCacheRepo {
	return &ReplayCacheRepo{pool: pool}
}

// Insert records an accepted signature hash. Returns false without error
// when the hash is already present, which marks a replay.
func (r *ReplayCacheRepo) Insert(ctx context.Context, entry *domain.ReplayCacheEntry) (bool, error) {
	query := `INSERT INTO replay_cache (signature_hash, platform_id, ts)
		VALUES ($1, $2, $3)`

	_, err := r.pool.Exec(ctx, query, entry.SignatureHash, entry.PlatformID, entry.Timestamp)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert replay entry: %w", err)
	}
	return true, nil
}

// PruneBefore drops entries older than the drift window. Entries outside
// the window are already rejected by the timestamp check, so dropping
// them never opens a replay hole.
func (r *ReplayCacheRepo) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM replay_cache WHERE ts < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune replay cache: %w", err)
	}
	return tag.RowsAffected(), nil
}
