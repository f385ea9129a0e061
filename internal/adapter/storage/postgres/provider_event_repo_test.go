package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"payops-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderEventRepo_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProviderEventRepo(mock)
	event := &domain.ProviderEvent{
		Provider:   "stripe",
		EventID:    "evt_1",
		Type:       "checkout.session.completed",
		Payload:    []byte(`{"id":"evt_1"}`),
		ReceivedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	mock.ExpectExec("INSERT INTO provider_events").
		WithArgs(event.Provider, event.EventID, event.Type, event.Payload, event.ReceivedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	inserted, err := repo.Insert(context.Background(), event)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProviderEventRepo_Insert_DuplicateReturnsFalse(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProviderEventRepo(mock)
	event := &domain.ProviderEvent{
		Provider:   "stripe",
		EventID:    "evt_1",
		Type:       "checkout.session.completed",
		Payload:    []byte(`{"id":"evt_1"}`),
		ReceivedAt: time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO provider_events").
		WithArgs(event.Provider, event.EventID, event.Type, event.Payload, event.ReceivedAt).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "provider_events_provider_event_id_key"})

	inserted, err := repo.Insert(context.Background(), event)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProviderEventRepo_Insert_OtherErrorPropagates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProviderEventRepo(mock)
	event := &domain.ProviderEvent{
		Provider:   "stripe",
		EventID:    "evt_1",
		Type:       "checkout.session.completed",
		ReceivedAt: time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO provider_events").
		WithArgs(event.Provider, event.EventID, event.Type, event.Payload, event.ReceivedAt).
		WillReturnError(errors.New("connection reset"))

	inserted, err := repo.Insert(context.Background(), event)
	assert.Error(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
