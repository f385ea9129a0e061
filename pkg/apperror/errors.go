package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
// Internal detail stays in Err and is logged, never returned to callers.
type AppError struct {
	Code        string `json:"error_code"`
	Message     string `json:"message"`
	HTTPStatus  int    `json:"-"`
	RequiresMFA bool   `json:"-"` // signals a step-up condition, not a plain auth failure
	Err         error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Platform HMAC trust boundary (SEC) ----

func ErrMissingAuthHeaders() *AppError {
	return New("SEC_001", "Missing authentication headers", http.StatusUnauthorized)
}

func ErrTimestampOutOfRange() *AppError {
	return New("SEC_002", "Request timestamp outside allowed window", http.StatusUnauthorized)
}

func ErrUnknownPlatform() *AppError {
	return New("SEC_003", "Unknown or revoked platform", http.StatusUnauthorized)
}

func ErrInvalidSignature() *AppError {
	return New("SEC_004", "Invalid signature", http.StatusUnauthorized)
}

func ErrSignatureReplayed() *AppError {
	return New("SEC_005", "Signature has already been used", http.StatusUnauthorized)
}

// ---- Session / API key callers (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrInvalidAPIKey() *AppError {
	return New("AUTH_002", "Invalid API key", http.StatusUnauthorized)
}

func ErrPermissionDenied(permission string) *AppError {
	return New("AUTH_003", fmt.Sprintf("Missing permission: %s", permission), http.StatusForbidden)
}

func ErrTenantMismatch() *AppError {
	return New("AUTH_004", "Credential is not valid for this tenant", http.StatusForbidden)
}

func ErrStepUpRequired() *AppError {
	e := New("AUTH_005", "Step-up confirmation required", http.StatusUnauthorized)
	e.RequiresMFA = true
	return e
}

func ErrIPNotAllowed() *AppError {
	return New("AUTH_006", "Request origin not in key allowlist", http.StatusForbidden)
}

// ---- Checkout & refund business logic (PAY) ----

func ErrInvalidAmount() *AppError {
	return New("PAY_001", "Invalid amount", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("PAY_002", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrIdempotencyConflict() *AppError {
	return New("PAY_003", "Idempotency key reused with a different payload", http.StatusConflict)
}

func ErrPaymentNotRefundable() *AppError {
	return New("PAY_004", "Payment is not in a refundable state", http.StatusBadRequest)
}

func ErrRefundExceedsPayment() *AppError {
	return New("PAY_005", "Refund amount exceeds payment amount", http.StatusBadRequest)
}

func ErrProviderFailure(err error) *AppError {
	return Wrap("PAY_006", "Payment provider request failed", http.StatusBadGateway, err)
}

func ErrUnsupportedProvider(name string) *AppError {
	return New("PAY_007", fmt.Sprintf("Unsupported payment provider: %s", name), http.StatusBadRequest)
}

// ---- Credential lifecycle (KEY) ----

func ErrTenantNotActive() *AppError {
	return New("KEY_001", "Tenant is not active", http.StatusBadRequest)
}

func ErrKeyAlreadyRevoked() *AppError {
	return New("KEY_002", "API key already revoked", http.StatusConflict)
}

func ErrKeyRevoked() *AppError {
	return New("KEY_003", "API key is revoked", http.StatusBadRequest)
}

// ---- Webhook ingestion (HOOK) ----

func ErrWebhookSignature() *AppError {
	return New("HOOK_001", "Webhook signature verification failed", http.StatusUnauthorized)
}

// ---- Rate limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a 400 validation error with a caller-visible message.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
