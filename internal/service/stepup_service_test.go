package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"payops-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStepUpGuard_Allowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var wire stepUpWire
		require.NoError(t, json.NewDecoder(r.Body).Decode(&wire))
		assert.Equal(t, "refund.create", wire.Action)
		assert.Equal(t, "user-42", wire.UserID)
		json.NewEncoder(w).Encode(stepUpDecisionWire{Allowed: true}) //nolint:errcheck
	}))
	defer srv.Close()

	guard := NewHTTPStepUpGuard(srv.URL, time.Second, zerolog.Nop())
	decision, err := guard.Check(context.Background(), ports.StepUpRequest{
		UserID:   "user-42",
		TenantID: uuid.New(),
		Action:   "refund.create",
		UserRole: "admin",
	})

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestHTTPStepUpGuard_Denied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(stepUpDecisionWire{Allowed: false, Reason: "mfa required"}) //nolint:errcheck
	}))
	defer srv.Close()

	guard := NewHTTPStepUpGuard(srv.URL, time.Second, zerolog.Nop())
	decision, err := guard.Check(context.Background(), ports.StepUpRequest{UserID: "user-42"})

	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "mfa required", decision.Reason)
}

func TestHTTPStepUpGuard_UnreachableDenies(t *testing.T) {
	guard := NewHTTPStepUpGuard("http://127.0.0.1:1", 200*time.Millisecond, zerolog.Nop())

	decision, err := guard.Check(context.Background(), ports.StepUpRequest{UserID: "user-42"})

	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestHTTPStepUpGuard_Non200Denies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	guard := NewHTTPStepUpGuard(srv.URL, time.Second, zerolog.Nop())
	decision, err := guard.Check(context.Background(), ports.StepUpRequest{UserID: "user-42"})

	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestAllowAllStepUpGuard(t *testing.T) {
	decision, err := AllowAllStepUpGuard{}.Check(context.Background(), ports.StepUpRequest{})

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}
