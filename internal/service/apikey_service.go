package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"payops-gateway/internal/core/domain"
	"payops-gateway/internal/core/ports"
	"payops-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const apiKeySecretLen = 40 // URL-safe random characters after the prefix

// ApiKeyServiceImpl implements ports.ApiKeyService, the credential
// lifecycle manager. It is reached only through the platform HMAC trust
// boundary or an authenticated dashboard session.
type ApiKeyServiceImpl struct {
	keyRepo    ports.ApiKeyRepository
	tenantRepo ports.TenantRepository
	hashSvc    ports.HashService
	auditSvc   ports.AuditService
	log        zerolog.Logger
}

// NewApiKeyService creates a new ApiKeyServiceImpl.
func NewApiKeyService(
	keyRepo ports.ApiKeyRepository,
	tenantRepo ports.TenantRepository,
	hashSvc ports.HashService,
	auditSvc ports.AuditService,
	log zerolog.Logger,
) *ApiKeyServiceImpl {
	return &ApiKeyServiceImpl{
		keyRepo:    keyRepo,
		tenantRepo: tenantRepo,
		hashSvc:    hashSvc,
		auditSvc:   auditSvc,
		log:        log,
	}
}

// Create provisions a new API key for an active tenant. The plaintext
// secret is returned exactly once and never stored.
func (s *ApiKeyServiceImpl) Create(ctx context.Context, req ports.CreateAPIKeyRequest) (*ports.APIKeyWithSecret, error) {
	tenant, err := s.tenantRepo.GetByID(ctx, req.TenantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch tenant: %w", err))
	}
	if tenant == nil {
		return nil, apperror.ErrNotFound("tenant")
	}
	if !tenant.IsActive() {
		return nil, apperror.ErrTenantNotActive()
	}

	prefix, err := generateKeyPrefix()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate prefix: %w", err))
	}
	secret, err := buildSecret(prefix, req.Env)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate secret: %w", err))
	}
	hashed, err := s.hashSvc.Hash(secret)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash secret: %w", err))
	}

	now := time.Now().UTC()
	key := &domain.ApiKey{
		ID:           uuid.New(),
		TenantID:     req.TenantID,
		Name:         req.Name,
		Prefix:       prefix,
		HashedSecret: hashed,
		Scope:        req.Scope,
		Env:          req.Env,
		Status:       domain.KeyStatusActive,
		IPAllowlist:  req.IPAllowlist,
		ExpiresAt:    req.ExpiresAt,
		Notes:        req.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.keyRepo.Create(ctx, key); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create api key: %w", err))
	}

	s.auditKeyChange(ctx, domain.AuditActionAPIKeyCreated, req.Actor, nil, key)

	return &ports.APIKeyWithSecret{Key: key, Secret: secret}, nil
}

// Rotate replaces the secret of an active key and resets usage metadata.
// History is appended in notes, not overwritten.
func (s *ApiKeyServiceImpl) Rotate(ctx context.Context, keyID uuid.UUID, actor ports.Actor) (*ports.APIKeyWithSecret, error) {
	key, err := s.keyRepo.GetByID(ctx, keyID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch api key: %w", err))
	}
	if key == nil {
		return nil, apperror.ErrNotFound("api key")
	}
	if key.Status == domain.KeyStatusRevoked {
		return nil, apperror.ErrKeyRevoked()
	}

	before := snapshotKey(key)

	secret, err := buildSecret(key.Prefix, key.Env)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate secret: %w", err))
	}
	hashed, err := s.hashSvc.Hash(secret)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash secret: %w", err))
	}

	now := time.Now().UTC()
	key.HashedSecret = hashed
	key.LastUsedAt = nil
	note := fmt.Sprintf("rotated %s by %s", now.Format(time.RFC3339), actor.ID())
	if key.Notes != "" {
		key.Notes = key.Notes + "; " + note
	} else {
		key.Notes = note
	}
	key.UpdatedAt = now

	if err := s.keyRepo.Update(ctx, key); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update api key: %w", err))
	}

	s.auditKeyChange(ctx, domain.AuditActionAPIKeyRotated, actor, before, key)

	return &ports.APIKeyWithSecret{Key: key, Secret: secret}, nil
}

// Revoke terminates a key. Revoking twice returns an explicit
// "already revoked" error so callers can detect stale state.
func (s *ApiKeyServiceImpl) Revoke(ctx context.Context, keyID uuid.UUID, actor ports.Actor) (*domain.ApiKey, error) {
	key, err := s.keyRepo.GetByID(ctx, keyID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch api key: %w", err))
	}
	if key == nil {
		return nil, apperror.ErrNotFound("api key")
	}
	if key.Status == domain.KeyStatusRevoked {
		return nil, apperror.ErrKeyAlreadyRevoked()
	}

	before := snapshotKey(key)

	key.Status = domain.KeyStatusRevoked
	key.UpdatedAt = time.Now().UTC()

	if err := s.keyRepo.Update(ctx, key); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update api key: %w", err))
	}

	s.auditKeyChange(ctx, domain.AuditActionAPIKeyRevoked, actor, before, key)

	return key, nil
}

// List returns the tenant's keys. Secrets are never part of the model.
func (s *ApiKeyServiceImpl) List(ctx context.Context, tenantID uuid.UUID) ([]domain.ApiKey, error) {
	keys, err := s.keyRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list api keys: %w", err))
	}
	return keys, nil
}

// VerifySecret authenticates a presented API key secret.
func (s *ApiKeyServiceImpl) VerifySecret(ctx context.Context, secret string) (*domain.ApiKey, error) {
	prefix, ok := splitPrefix(secret)
	if !ok {
		return nil, apperror.ErrInvalidAPIKey()
	}

	key, err := s.keyRepo.GetByPrefix(ctx, prefix)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch api key: %w", err))
	}
	if key == nil || !key.IsUsable(time.Now().UTC()) {
		return nil, apperror.ErrInvalidAPIKey()
	}

	valid, err := s.hashSvc.Verify(secret, key.HashedSecret)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("verify secret: %w", err))
	}
	if !valid {
		return nil, apperror.ErrInvalidAPIKey()
	}

	now := time.Now().UTC()
	key.LastUsedAt = &now
	key.UpdatedAt = now
	if err := s.keyRepo.Update(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key_id", key.ID.String()).Msg("failed to update key last_used_at")
	}

	return key, nil
}

func (s *ApiKeyServiceImpl) auditKeyChange(ctx context.Context, action domain.AuditAction, actor ports.Actor, before *string, key *domain.ApiKey) {
	after := snapshotKey(key)
	actorID := actor.ID()
	entry := &domain.AuditLog{
		ID:          uuid.New(),
		TenantID:    &key.TenantID,
		ActorUserID: &actorID,
		Action:      action,
		Target:      "api_key:" + key.ID.String(),
		Before:      before,
		After:       after,
		IPAddress:   actor.IP,
		UserAgent:   actor.UserAgent,
		CreatedAt:   time.Now().UTC(),
	}
	s.auditSvc.Log(ctx, entry)
}

// snapshotKey renders a masked JSON view of the key for audit trails.
func snapshotKey(key *domain.ApiKey) *string {
	view := map[string]interface{}{
		"id":     key.ID.String(),
		"name":   key.Name,
		"prefix": key.Prefix,
		"scope":  key.Scope,
		"env":    key.Env,
		"status": key.Status,
	}
	data, err := json.Marshal(view)
	if err != nil {
		return nil
	}
	snap := string(data)
	return &snap
}

// generateKeyPrefix returns a short non-secret identifier, e.g. "ak3f9c2a".
func generateKeyPrefix() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "ak" + hex.EncodeToString(b), nil
}

// buildSecret assembles "<prefix>_<env>_" + 40 URL-safe random characters.
func buildSecret(prefix string, env domain.KeyEnv) (string, error) {
	b := make([]byte, 30)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	random := base64.RawURLEncoding.EncodeToString(b)
	if len(random) > apiKeySecretLen {
		random = random[:apiKeySecretLen]
	}
	return fmt.Sprintf("%s_%s_%s", prefix, env, random), nil
}

// splitPrefix extracts the lookup prefix from a presented secret.
func splitPrefix(secret string) (string, bool) {
	parts := strings.SplitN(secret, "_", 3)
	if len(parts) != 3 || parts[0] == "" {
		return "", false
	}
	return parts[0], true
}
