package postgres

import (
	"context"
	"testing"
	"time"

	"payops-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)
	record := &domain.IdempotencyRecord{
		TenantID:           uuid.New(),
		Key:                "idem-123",
		RequestFingerprint: "fp",
		Response:           []byte(`{"status":"PENDING"}`),
		ExpiresAt:          now.Add(24 * time.Hour),
		CreatedAt:          now,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO idempotency_records").
		WithArgs(record.TenantID, record.Key, record.RequestFingerprint,
			record.Response, record.ExpiresAt, record.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, record)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)
	tenantID := uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT .+ FROM idempotency_records WHERE tenant_id").
		WithArgs(tenantID, "idem-123").
		WillReturnRows(pgxmock.NewRows([]string{"tenant_id", "key", "request_fingerprint", "response", "expires_at", "created_at"}).
			AddRow(tenantID, "idem-123", "fp", []byte(`{"status":"PENDING"}`), now.Add(time.Hour), now))

	record, err := repo.Get(context.Background(), tenantID, "idem-123")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "fp", record.RequestFingerprint)
	assert.Equal(t, []byte(`{"status":"PENDING"}`), record.Response)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepo_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)
	tenantID := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM idempotency_records WHERE tenant_id").
		WithArgs(tenantID, "nonexistent").
		WillReturnRows(pgxmock.NewRows([]string{"tenant_id", "key", "request_fingerprint", "response", "expires_at", "created_at"}))

	record, err := repo.Get(context.Background(), tenantID, "nonexistent")
	assert.NoError(t, err)
	assert.Nil(t, record)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepo_DeleteExpired(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewIdempotencyRepo(mock)
	now := time.Now().UTC()

	mock.ExpectExec("DELETE FROM idempotency_records WHERE expires_at").
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	deleted, err := repo.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
