package service

import (
	"context"
	"errors"
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

type platformAuthTestDeps struct {
	ctrl       *gomock.Controller
	tokenRepo  *mocks.MockPlatformTokenRepository
	replayRepo *mocks.MockReplayCacheRepository
	encSvc     *mocks.MockEncryptionService
}

func setupPlatformAuthService(t *testing.T, now time.Time) (*PlatformAuthServiceImpl, *platformAuthTestDeps) {
	ctrl := gomock.NewController(t)
	d := &platformAuthTestDeps{
		ctrl:       ctrl,
		tokenRepo:  mocks.NewMockPlatformTokenRepository(ctrl),
		replayRepo: mocks.NewMockReplayCacheRepository(ctrl),
		encSvc:     mocks.NewMockEncryptionService(ctrl),
	}
	svc := NewPlatformAuthService(d.tokenRepo, d.replayRepo, d.encSvc, NewHMACSignatureService(), zerolog.Nop())
	svc.now = func() time.Time { return now }
	return svc, d
}

func activePlatformToken(platformID string) *domain.PlatformToken {
	return &domain.PlatformToken{
		ID:           uuid.New(),
		PlatformID:   platformID,
		PlatformName: "Acme Marketplace",
		SecretEnc:    "enc:blob",
		Status:       domain.KeyStatusActive,
	}
}

func signedPlatformRequest(secret string, now time.Time) ports.PlatformRequest {
	sig := NewHMACSignatureService()
	ts := now.Format(time.RFC3339)
	body := []byte(`{"name":"Checkout integration"}`)
	canonical := sig.BuildCanonicalString("POST", "/api/v1/platform/api-keys", string(body), ts)
	return ports.PlatformRequest{
		Method:     "POST",
		Path:       "/api/v1/platform/api-keys",
		Body:       body,
		PlatformID: "platform-7",
		Timestamp:  ts,
		Signature:  sig.Sign(secret, canonical),
	}
}

func TestPlatformVerify_Success(t *testing.T) {
	now := time.Now().UTC()
	svc, d := setupPlatformAuthService(t, now)
	ctx := context.Background()
	req := signedPlatformRequest("shared-secret", now)
	token := activePlatformToken(req.PlatformID)

	d.tokenRepo.EXPECT().GetByPlatformID(ctx, "platform-7").Return(token, nil)
	d.encSvc.EXPECT().Decrypt("enc:blob").Return("shared-secret", nil)
	d.replayRepo.EXPECT().Insert(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *domain.ReplayCacheEntry) (bool, error) {
			assert.Equal(t, "platform-7", entry.PlatformID)
			assert.Len(t, entry.SignatureHash, 64)
			return true, nil
		})
	d.tokenRepo.EXPECT().UpdateLastUsed(ctx, token.ID, gomock.Any()).Return(nil)
	d.replayRepo.EXPECT().PruneBefore(ctx, gomock.Any()).Return(int64(0), nil)

	identity, err := svc.Verify(ctx, req)

	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, "platform-7", identity.PlatformID)
	assert.Equal(t, "Acme Marketplace", identity.PlatformName)
}

func TestPlatformVerify_MissingHeaders(t *testing.T) {
	now := time.Now().UTC()
	svc, _ := setupPlatformAuthService(t, now)

	identity, err := svc.Verify(context.Background(), ports.PlatformRequest{Method: "POST", Path: "/x"})

	require.Error(t, err)
	assert.Nil(t, identity)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrMissingAuthHeaders().Code, appErr.Code)
}

func TestPlatformVerify_StaleTimestamp(t *testing.T) {
	now := time.Now().UTC()
	svc, _ := setupPlatformAuthService(t, now)
	req := signedPlatformRequest("shared-secret", now.Add(-10*time.Minute))

	identity, err := svc.Verify(context.Background(), req)

	require.Error(t, err)
	assert.Nil(t, identity)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrTimestampOutOfRange().Code, appErr.Code)
}

func TestPlatformVerify_FutureTimestampRejected(t *testing.T) {
	now := time.Now().UTC()
	svc, _ := setupPlatformAuthService(t, now)
	req := signedPlatformRequest("shared-secret", now.Add(10*time.Minute))

	_, err := svc.Verify(context.Background(), req)

	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrTimestampOutOfRange().Code, appErr.Code)
}

func TestPlatformVerify_UnknownPlatform(t *testing.T) {
	now := time.Now().UTC()
	svc, d := setupPlatformAuthService(t, now)
	ctx := context.Background()
	req := signedPlatformRequest("shared-secret", now)

	d.tokenRepo.EXPECT().GetByPlatformID(ctx, "platform-7").Return(nil, nil)

	identity, err := svc.Verify(ctx, req)

	require.Error(t, err)
	assert.Nil(t, identity)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrUnknownPlatform().Code, appErr.Code)
}

func TestPlatformVerify_RevokedPlatform(t *testing.T) {
	now := time.Now().UTC()
	svc, d := setupPlatformAuthService(t, now)
	ctx := context.Background()
	req := signedPlatformRequest("shared-secret", now)
	token := activePlatformToken(req.PlatformID)
	token.Status = domain.KeyStatusRevoked

	d.tokenRepo.EXPECT().GetByPlatformID(ctx, "platform-7").Return(token, nil)

	_, err := svc.Verify(ctx, req)

	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrUnknownPlatform().Code, appErr.Code)
}

func TestPlatformVerify_WrongSecret(t *testing.T) {
	now := time.Now().UTC()
	svc, d := setupPlatformAuthService(t, now)
	ctx := context.Background()
	req := signedPlatformRequest("attacker-secret", now)
	token := activePlatformToken(req.PlatformID)

	d.tokenRepo.EXPECT().GetByPlatformID(ctx, "platform-7").Return(token, nil)
	d.encSvc.EXPECT().Decrypt("enc:blob").Return("shared-secret", nil)

	identity, err := svc.Verify(ctx, req)

	require.Error(t, err)
	assert.Nil(t, identity)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrInvalidSignature().Code, appErr.Code)
}

func TestPlatformVerify_TamperedBody(t *testing.T) {
	now := time.Now().UTC()
	svc, d := setupPlatformAuthService(t, now)
	ctx := context.Background()
	req := signedPlatformRequest("shared-secret", now)
	req.Body = []byte(`{"name":"tampered"}`)
	token := activePlatformToken(req.PlatformID)

	d.tokenRepo.EXPECT().GetByPlatformID(ctx, "platform-7").Return(token, nil)
	d.encSvc.EXPECT().Decrypt("enc:blob").Return("shared-secret", nil)

	_, err := svc.Verify(ctx, req)

	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrInvalidSignature().Code, appErr.Code)
}

func TestPlatformVerify_ReplayedSignature(t *testing.T) {
	now := time.Now().UTC()
	svc, d := setupPlatformAuthService(t, now)
	ctx := context.Background()
	req := signedPlatformRequest("shared-secret", now)
	token := activePlatformToken(req.PlatformID)

	d.tokenRepo.EXPECT().GetByPlatformID(ctx, "platform-7").Return(token, nil)
	d.encSvc.EXPECT().Decrypt("enc:blob").Return("shared-secret", nil)
	d.replayRepo.EXPECT().Insert(ctx, gomock.Any()).Return(false, nil)

	identity, err := svc.Verify(ctx, req)

	require.Error(t, err)
	assert.Nil(t, identity)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrSignatureReplayed().Code, appErr.Code)
}

func TestPlatformVerify_LastUsedFailureIsNonFatal(t *testing.T) {
	now := time.Now().UTC()
	svc, d := setupPlatformAuthService(t, now)
	ctx := context.Background()
	req := signedPlatformRequest("shared-secret", now)
	token := activePlatformToken(req.PlatformID)

	d.tokenRepo.EXPECT().GetByPlatformID(ctx, "platform-7").Return(token, nil)
	d.encSvc.EXPECT().Decrypt("enc:blob").Return("shared-secret", nil)
	d.replayRepo.EXPECT().Insert(ctx, gomock.Any()).Return(true, nil)
	d.tokenRepo.EXPECT().UpdateLastUsed(ctx, token.ID, gomock.Any()).Return(errors.New("write timeout"))
	d.replayRepo.EXPECT().PruneBefore(ctx, gomock.Any()).Return(int64(0), errors.New("write timeout"))

	identity, err := svc.Verify(ctx, req)

	require.NoError(t, err)
	assert.Equal(t, "platform-7", identity.PlatformID)
}
