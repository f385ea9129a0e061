package service

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"payops-gateway/internal/core/domain"
	"payops-gateway/internal/core/ports"
	"payops-gateway/internal/core/ports/mocks"
	"payops-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type apiKeyTestDeps struct {
	ctrl       *gomock.Controller
	keyRepo    *mocks.MockApiKeyRepository
	tenantRepo *mocks.MockTenantRepository
	hashSvc    *mocks.MockHashService
	auditSvc   *mocks.MockAuditService
}

func setupApiKeyService(t *testing.T) (*ApiKeyServiceImpl, *apiKeyTestDeps) {
	ctrl := gomock.NewController(t)
	d := &apiKeyTestDeps{
		ctrl:       ctrl,
		keyRepo:    mocks.NewMockApiKeyRepository(ctrl),
		tenantRepo: mocks.NewMockTenantRepository(ctrl),
		hashSvc:    mocks.NewMockHashService(ctrl),
		auditSvc:   mocks.NewMockAuditService(ctrl),
	}
	svc := NewApiKeyService(d.keyRepo, d.tenantRepo, d.hashSvc, d.auditSvc, zerolog.Nop())
	return svc, d
}

var secretPattern = regexp.MustCompile(`^ak[0-9a-f]{6}_(sandbox|production)_[A-Za-z0-9_-]{40}$`)

func activeKey(tenantID uuid.UUID) *domain.ApiKey {
	return &domain.ApiKey{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Name:         "Checkout integration",
		Prefix:       "ak1a2b3c",
		HashedSecret: "argon2id$old",
		Scope:        domain.PermissionPaymentsCreate,
		Env:          domain.KeyEnvSandbox,
		Status:       domain.KeyStatusActive,
	}
}

func TestApiKeyCreate_Success(t *testing.T) {
	svc, d := setupApiKeyService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	var hashedSecret string
	d.tenantRepo.EXPECT().GetByID(ctx, tenantID).Return(activeTenant(tenantID), nil)
	d.hashSvc.EXPECT().Hash(gomock.Any()).DoAndReturn(func(secret string) (string, error) {
		hashedSecret = secret
		return "argon2id$hashed", nil
	})
	d.keyRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, key *domain.ApiKey) error {
		assert.Equal(t, domain.KeyStatusActive, key.Status)
		assert.Equal(t, "argon2id$hashed", key.HashedSecret)
		return nil
	})
	d.auditSvc.EXPECT().Log(ctx, gomock.Any()).Do(func(_ context.Context, entry *domain.AuditLog) {
		assert.Equal(t, domain.AuditActionAPIKeyCreated, entry.Action)
		assert.Nil(t, entry.Before)
		require.NotNil(t, entry.After)
		assert.NotContains(t, *entry.After, hashedSecret)
	})

	result, err := svc.Create(ctx, ports.CreateAPIKeyRequest{
		TenantID: tenantID,
		Name:     "Checkout integration",
		Scope:    domain.PermissionPaymentsCreate,
		Env:      domain.KeyEnvSandbox,
		Actor:    ports.Actor{UserID: "user-1"},
	})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Regexp(t, secretPattern, result.Secret)
	assert.True(t, strings.HasPrefix(result.Secret, result.Key.Prefix+"_sandbox_"))
	assert.Equal(t, "argon2id$hashed", result.Key.HashedSecret)
}

func TestApiKeyCreate_SuspendedTenant(t *testing.T) {
	svc, d := setupApiKeyService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	d.tenantRepo.EXPECT().GetByID(ctx, tenantID).Return(&domain.Tenant{
		ID:     tenantID,
		Status: domain.TenantStatusSuspended,
	}, nil)

	result, err := svc.Create(ctx, ports.CreateAPIKeyRequest{TenantID: tenantID, Name: "k", Env: domain.KeyEnvSandbox})

	require.Error(t, err)
	assert.Nil(t, result)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrTenantNotActive().Code, appErr.Code)
}

func TestApiKeyRotate_Success(t *testing.T) {
	svc, d := setupApiKeyService(t)
	ctx := context.Background()
	key := activeKey(uuid.New())
	lastUsed := time.Now().UTC().Add(-time.Hour)
	key.LastUsedAt = &lastUsed

	d.keyRepo.EXPECT().GetByID(ctx, key.ID).Return(key, nil)
	d.hashSvc.EXPECT().Hash(gomock.Any()).Return("argon2id$rotated", nil)
	d.keyRepo.EXPECT().Update(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, updated *domain.ApiKey) error {
		assert.Equal(t, "argon2id$rotated", updated.HashedSecret)
		assert.Nil(t, updated.LastUsedAt)
		assert.Contains(t, updated.Notes, "rotated ")
		assert.Contains(t, updated.Notes, "by user-1")
		return nil
	})
	d.auditSvc.EXPECT().Log(ctx, gomock.Any()).Do(func(_ context.Context, entry *domain.AuditLog) {
		assert.Equal(t, domain.AuditActionAPIKeyRotated, entry.Action)
		assert.NotNil(t, entry.Before)
	})

	result, err := svc.Rotate(ctx, key.ID, ports.Actor{UserID: "user-1"})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.Secret, key.Prefix+"_sandbox_"))
	assert.Regexp(t, secretPattern, result.Secret)
}

func TestApiKeyRotate_AppendsRotationHistory(t *testing.T) {
	svc, d := setupApiKeyService(t)
	ctx := context.Background()
	key := activeKey(uuid.New())
	key.Notes = "rotated 2026-01-10T00:00:00Z by user-0"

	d.keyRepo.EXPECT().GetByID(ctx, key.ID).Return(key, nil)
	d.hashSvc.EXPECT().Hash(gomock.Any()).Return("argon2id$rotated", nil)
	d.keyRepo.EXPECT().Update(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, updated *domain.ApiKey) error {
		assert.Contains(t, updated.Notes, "rotated 2026-01-10T00:00:00Z by user-0; rotated ")
		return nil
	})
	d.auditSvc.EXPECT().Log(ctx, gomock.Any())

	_, err := svc.Rotate(ctx, key.ID, ports.Actor{PlatformID: "platform-7"})

	require.NoError(t, err)
}

func TestApiKeyRotate_RevokedKey(t *testing.T) {
	svc, d := setupApiKeyService(t)
	ctx := context.Background()
	key := activeKey(uuid.New())
	key.Status = domain.KeyStatusRevoked

	d.keyRepo.EXPECT().GetByID(ctx, key.ID).Return(key, nil)

	result, err := svc.Rotate(ctx, key.ID, ports.Actor{UserID: "user-1"})

	require.Error(t, err)
	assert.Nil(t, result)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrKeyRevoked().Code, appErr.Code)
}

func TestApiKeyRevoke_Success(t *testing.T) {
	svc, d := setupApiKeyService(t)
	ctx := context.Background()
	key := activeKey(uuid.New())

	d.keyRepo.EXPECT().GetByID(ctx, key.ID).Return(key, nil)
	d.keyRepo.EXPECT().Update(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, updated *domain.ApiKey) error {
		assert.Equal(t, domain.KeyStatusRevoked, updated.Status)
		return nil
	})
	d.auditSvc.EXPECT().Log(ctx, gomock.Any()).Do(func(_ context.Context, entry *domain.AuditLog) {
		assert.Equal(t, domain.AuditActionAPIKeyRevoked, entry.Action)
	})

	revoked, err := svc.Revoke(ctx, key.ID, ports.Actor{UserID: "user-1"})

	require.NoError(t, err)
	assert.Equal(t, domain.KeyStatusRevoked, revoked.Status)
}

func TestApiKeyRevoke_AlreadyRevoked(t *testing.T) {
	svc, d := setupApiKeyService(t)
	ctx := context.Background()
	key := activeKey(uuid.New())
	key.Status = domain.KeyStatusRevoked

	d.keyRepo.EXPECT().GetByID(ctx, key.ID).Return(key, nil)

	revoked, err := svc.Revoke(ctx, key.ID, ports.Actor{UserID: "user-1"})

	require.Error(t, err)
	assert.Nil(t, revoked)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrKeyAlreadyRevoked().Code, appErr.Code)
}

func TestApiKeyRevoke_NotFound(t *testing.T) {
	svc, d := setupApiKeyService(t)
	ctx := context.Background()
	keyID := uuid.New()

	d.keyRepo.EXPECT().GetByID(ctx, keyID).Return(nil, nil)

	revoked, err := svc.Revoke(ctx, keyID, ports.Actor{UserID: "user-1"})

	require.Error(t, err)
	assert.Nil(t, revoked)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrNotFound("api key").Code, appErr.Code)
}

func TestVerifySecret_Success(t *testing.T) {
	svc, d := setupApiKeyService(t)
	ctx := context.Background()
	key := activeKey(uuid.New())
	secret := key.Prefix + "_sandbox_" + strings.Repeat("x", 40)

	d.keyRepo.EXPECT().GetByPrefix(ctx, key.Prefix).Return(key, nil)
	d.hashSvc.EXPECT().Verify(secret, key.HashedSecret).Return(true, nil)
	d.keyRepo.EXPECT().Update(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, updated *domain.ApiKey) error {
		assert.NotNil(t, updated.LastUsedAt)
		return nil
	})

	verified, err := svc.VerifySecret(ctx, secret)

	require.NoError(t, err)
	assert.Equal(t, key.ID, verified.ID)
}

func TestVerifySecret_MalformedSecret(t *testing.T) {
	svc, _ := setupApiKeyService(t)

	verified, err := svc.VerifySecret(context.Background(), "not-a-key")

	require.Error(t, err)
	assert.Nil(t, verified)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrInvalidAPIKey().Code, appErr.Code)
}

func TestVerifySecret_RevokedKey(t *testing.T) {
	svc, d := setupApiKeyService(t)
	ctx := context.Background()
	key := activeKey(uuid.New())
	key.Status = domain.KeyStatusRevoked
	secret := key.Prefix + "_sandbox_" + strings.Repeat("x", 40)

	d.keyRepo.EXPECT().GetByPrefix(ctx, key.Prefix).Return(key, nil)

	verified, err := svc.VerifySecret(ctx, secret)

	require.Error(t, err)
	assert.Nil(t, verified)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrInvalidAPIKey().Code, appErr.Code)
}

func TestVerifySecret_ExpiredKey(t *testing.T) {
	svc, d := setupApiKeyService(t)
	ctx := context.Background()
	key := activeKey(uuid.New())
	expired := time.Now().UTC().Add(-time.Minute)
	key.ExpiresAt = &expired
	secret := key.Prefix + "_sandbox_" + strings.Repeat("x", 40)

	d.keyRepo.EXPECT().GetByPrefix(ctx, key.Prefix).Return(key, nil)

	verified, err := svc.VerifySecret(ctx, secret)

	require.Error(t, err)
	assert.Nil(t, verified)
}

func TestVerifySecret_WrongSecret(t *testing.T) {
	svc, d := setupApiKeyService(t)
	ctx := context.Background()
	key := activeKey(uuid.New())
	secret := key.Prefix + "_sandbox_" + strings.Repeat("y", 40)

	d.keyRepo.EXPECT().GetByPrefix(ctx, key.Prefix).Return(key, nil)
	d.hashSvc.EXPECT().Verify(secret, key.HashedSecret).Return(false, nil)

	verified, err := svc.VerifySecret(ctx, secret)

	require.Error(t, err)
	assert.Nil(t, verified)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrInvalidAPIKey().Code, appErr.Code)
}
