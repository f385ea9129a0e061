package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"payops-gateway/internal/core/domain"
	"payops-gateway/internal/core/ports"
	"payops-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

// maxTimestampDrift is the clock-skew/replay bound for platform requests.
const maxTimestampDrift = 5 * time.Minute

// PlatformAuthServiceImpl implements ports.PlatformAuthService.
// It authenticates the exact request (method, path, body, time), so a
// captured signature cannot be reused against a different endpoint,
// after the drift window, or even against the same endpoint twice.
type PlatformAuthServiceImpl struct {
	tokenRepo  ports.PlatformTokenRepository
	replayRepo ports.ReplayCacheRepository
	encSvc     ports.EncryptionService
	sigSvc     ports.SignatureService
	now        func() time.Time
	log        zerolog.Logger
}

// NewPlatformAuthService creates a new PlatformAuthServiceImpl.
func NewPlatformAuthService(
	tokenRepo ports.PlatformTokenRepository,
	replayRepo ports.ReplayCacheRepository,
	encSvc ports.EncryptionService,
	sigSvc ports.SignatureService,
	log zerolog.Logger,
) *PlatformAuthServiceImpl {
	return &PlatformAuthServiceImpl{
		tokenRepo:  tokenRepo,
		replayRepo: replayRepo,
		encSvc:     encSvc,
		sigSvc:     sigSvc,
		now:        time.Now,
		log:        log,
	}
}

// Verify authenticates a signed platform request.
func (s *PlatformAuthServiceImpl) Verify(ctx context.Context, req ports.PlatformRequest) (*ports.PlatformIdentity, error) {
	if req.PlatformID == "" || req.Timestamp == "" || req.Signature == "" {
		return nil, apperror.ErrMissingAuthHeaders()
	}

	ts, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		return nil, apperror.ErrTimestampOutOfRange()
	}
	now := s.now().UTC()
	drift := now.Sub(ts.UTC())
	if drift < 0 {
		drift = -drift
	}
	if drift > maxTimestampDrift {
		return nil, apperror.ErrTimestampOutOfRange()
	}

	token, err := s.tokenRepo.GetByPlatformID(ctx, req.PlatformID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch platform token: %w", err))
	}
	if token == nil || !token.IsActive() {
		return nil, apperror.ErrUnknownPlatform()
	}

	secret, err := s.encSvc.Decrypt(token.SecretEnc)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("decrypt platform secret: %w", err))
	}

	canonical := s.sigSvc.BuildCanonicalString(req.Method, req.Path, string(req.Body), req.Timestamp)
	if !s.sigSvc.Verify(secret, canonical, req.Signature) {
		return nil, apperror.ErrInvalidSignature()
	}

	// Replay gate: the signature hash insert races on the store's
	// uniqueness constraint; the loser is rejected.
	sigHash := sha256.Sum256([]byte(req.Signature))
	inserted, err := s.replayRepo.Insert(ctx, &domain.ReplayCacheEntry{
		SignatureHash: hex.EncodeToString(sigHash[:]),
		PlatformID:    req.PlatformID,
		Timestamp:     ts.UTC(),
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("replay cache insert: %w", err))
	}
	if !inserted {
		return nil, apperror.ErrSignatureReplayed()
	}

	if err := s.tokenRepo.UpdateLastUsed(ctx, token.ID, now); err != nil {
		s.log.Warn().Err(err).Str("platform_id", req.PlatformID).Msg("failed to update token last_used_at")
	}

	// Opportunistic prune of entries past the drift window.
	if pruned, err := s.replayRepo.PruneBefore(ctx, now.Add(-maxTimestampDrift)); err != nil {
		s.log.Warn().Err(err).Msg("replay cache prune failed")
	} else if pruned > 0 {
		s.log.Debug().Int64("pruned", pruned).Msg("replay cache pruned")
	}

	return &ports.PlatformIdentity{
		PlatformID:   token.PlatformID,
		PlatformName: token.PlatformName,
	}, nil
}
