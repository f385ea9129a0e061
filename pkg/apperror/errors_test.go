package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("PAY_001", "Invalid amount", http.StatusBadRequest),
			expected: "[PAY_001] Invalid amount",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New("PAY_001", "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestSecurityErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"MissingAuthHeaders", ErrMissingAuthHeaders(), "SEC_001", 401},
		{"TimestampOutOfRange", ErrTimestampOutOfRange(), "SEC_002", 401},
		{"UnknownPlatform", ErrUnknownPlatform(), "SEC_003", 401},
		{"InvalidSignature", ErrInvalidSignature(), "SEC_004", 401},
		{"SignatureReplayed", ErrSignatureReplayed(), "SEC_005", 401},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestAuthErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InvalidToken", ErrInvalidToken(), "AUTH_001", 401},
		{"InvalidAPIKey", ErrInvalidAPIKey(), "AUTH_002", 401},
		{"PermissionDenied", ErrPermissionDenied("refunds:create"), "AUTH_003", 403},
		{"TenantMismatch", ErrTenantMismatch(), "AUTH_004", 403},
		{"StepUpRequired", ErrStepUpRequired(), "AUTH_005", 401},
		{"IPNotAllowed", ErrIPNotAllowed(), "AUTH_006", 403},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestPaymentErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InvalidAmount", ErrInvalidAmount(), "PAY_001", 400},
		{"NotFound", ErrNotFound("Payment"), "PAY_002", 404},
		{"IdempotencyConflict", ErrIdempotencyConflict(), "PAY_003", 409},
		{"PaymentNotRefundable", ErrPaymentNotRefundable(), "PAY_004", 400},
		{"RefundExceedsPayment", ErrRefundExceedsPayment(), "PAY_005", 400},
		{"ProviderFailure", ErrProviderFailure(nil), "PAY_006", 502},
		{"UnsupportedProvider", ErrUnsupportedProvider("paypal"), "PAY_007", 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestKeyErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"TenantNotActive", ErrTenantNotActive(), "KEY_001", 400},
		{"KeyAlreadyRevoked", ErrKeyAlreadyRevoked(), "KEY_002", 409},
		{"KeyRevoked", ErrKeyRevoked(), "KEY_003", 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestStepUpRequired_SetsMFAFlag(t *testing.T) {
	err := ErrStepUpRequired()
	assert.True(t, err.RequiresMFA)

	plain := ErrInvalidToken()
	assert.False(t, plain.RequiresMFA)
}

func TestWebhookError(t *testing.T) {
	err := ErrWebhookSignature()
	assert.Equal(t, "HOOK_001", err.Code)
	assert.Equal(t, 401, err.HTTPStatus)
}

func TestRateLimitError(t *testing.T) {
	err := ErrRateLimitExceeded()
	assert.Equal(t, "RATE_001", err.Code)
	assert.Equal(t, 429, err.HTTPStatus)
}

func TestSystemErrors(t *testing.T) {
	inner := fmt.Errorf("pg: connection closed")
	sysErr := InternalError(inner)
	assert.Equal(t, "SYS_001", sysErr.Code)
	assert.Equal(t, 500, sysErr.HTTPStatus)
	assert.True(t, errors.Is(sysErr, inner))

	valErr := Validation("amount must be positive")
	assert.Equal(t, "VAL_001", valErr.Code)
	assert.Equal(t, 400, valErr.HTTPStatus)
}

func TestNotFoundEntity(t *testing.T) {
	err := ErrNotFound("Checkout session")
	assert.Contains(t, err.Message, "Checkout session")
	assert.Equal(t, "PAY_002", err.Code)
}
