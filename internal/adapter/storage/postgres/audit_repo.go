package postgres

import (
	"context"

	"payops-gateway/internal/core/domain"
	"payops-gateway/internal/core/ports"
)

type auditRepo struct {
	pool Pool
}

// NewAuditRepository creates a PostgreSQL-backed AuditRepository.
func NewAuditRepository(pool Pool) ports.AuditRepository {
	return &auditRepo{pool: pool}
}

func (r *auditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs (id, tenant_id, actor_user_id, action, target, before, after, ip_address, user_agent, created_at)
 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		log.ID, log.TenantID, log.ActorUserID, string(log.Action), log.Target,
		log.Before, log.After, log.IPAddress, log.UserAgent, log.CreatedAt,
	)
	return err
}
