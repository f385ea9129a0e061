package postgres

import (
	"context"
	"fmt"

	"payops-gateway/internal/core/domain"
)

// ProviderEventRepo implements ports.ProviderEventRepository. The table
// carries UNIQUE (provider, event_id); the constraint, not application
// logic, serializes concurrent duplicate deliveries.
type ProviderEventRepo struct {
	pool Pool
}

// NewProviderEventRepo creates a new ProviderEventRepo.
func NewProviderEventRepo(pool Pool) *ProviderEventRepo {
	return &ProviderEventRepo{pool: pool}
}

// Insert appends the event to the ledger. Returns false without error
// when the (provider, event_id) pair already exists.
func (r *ProviderEventRepo) Insert(ctx context.Context, event *domain.ProviderEvent) (bool, error) {
	query := `INSERT INTO provider_events (provider, event_id, type, payload, received_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query,
		event.Provider, event.EventID, event.Type, event.Payload, event.ReceivedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert provider event: %w", err)
	}
	return true, nil
}
