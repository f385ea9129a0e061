package service

import (
	"context"

	"payops-gateway/internal/core/domain"
	"payops-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService creates a new audit service.
// If repo is nil, audit entries are only written to the logger.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Log records an audit entry asynchronously (fire-and-forget).
// Failures are logged, never propagated: an audit hiccup must not fail
// the financial operation it describes.
func (s *auditService) Log(ctx context.Context, entry *domain.AuditLog) {
	go func() {
		event := s.log.Info().
			Str("action", string(entry.Action)).
			Str("target", entry.Target).
			Str("ip", entry.IPAddress)
		if entry.TenantID != nil {
			event = event.Str("tenant_id", entry.TenantID.String())
		}
		if entry.ActorUserID != nil {
			event = event.Str("actor", *entry.ActorUserID)
		}
		event.Msg("audit")

		if s.repo != nil {
			if err := s.repo.Create(context.Background(), entry); err != nil {
				s.log.Warn().Err(err).Str("action", string(entry.Action)).Msg("failed to persist audit log")
			}
		}
	}()
}
