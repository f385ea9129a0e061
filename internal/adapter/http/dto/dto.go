package dto

// CreateCheckoutRequest is the request body for checkout session creation.
type CreateCheckoutRequest struct {
	Amount      int64    `json:"amount" binding:"required,gt=0"`
	Currency    string   `json:"currency" binding:"required,len=3"`
	Reference   *string  `json:"reference,omitempty" binding:"omitempty,max=100,safe_id"`
	MethodTypes []string `json:"method_types,omitempty" binding:"omitempty,max=8,dive,safe_id"`
	SuccessURL  *string  `json:"success_url,omitempty" binding:"omitempty,safe_url"`
	CancelURL   *string  `json:"cancel_url,omitempty" binding:"omitempty,safe_url"`
}

// CheckoutResponse is the response body for checkout session results.
type CheckoutResponse struct {
	ID          string   `json:"id"`
	Amount      int64    `json:"amount"`
	Currency    string   `json:"currency"`
	Reference   *string  `json:"reference,omitempty"`
	Provider    string   `json:"provider"`
	RedirectURL *string  `json:"redirect_url,omitempty"`
	QRImageURL  *string  `json:"qr_image_url,omitempty"`
	ExpiresAt   *string  `json:"expires_at,omitempty"`
	Status      string   `json:"status"`
	CreatedAt   string   `json:"created_at"`
	MethodTypes []string `json:"method_types,omitempty"`
}

// CreateRefundRequest is the request body for refund processing.
// Amount omitted means a full refund.
type CreateRefundRequest struct {
	PaymentID string  `json:"payment_id" binding:"required,uuid"`
	Amount    *int64  `json:"amount,omitempty" binding:"omitempty,gt=0"`
	Reason    *string `json:"reason,omitempty" binding:"omitempty,max=500"`
}

// RefundResponse is the response body for refund results.
type RefundResponse struct {
	ID               string  `json:"id"`
	PaymentID        string  `json:"payment_id"`
	Amount           int64   `json:"amount"`
	Reason           *string `json:"reason,omitempty"`
	ProviderRefundID *string `json:"provider_refund_id,omitempty"`
	Status           string  `json:"status"`
	CreatedAt        string  `json:"created_at"`
}

// PaymentResponse is the response body for payment queries.
type PaymentResponse struct {
	ID                string  `json:"id"`
	CheckoutSessionID *string `json:"checkout_session_id,omitempty"`
	Amount            int64   `json:"amount"`
	Currency          string  `json:"currency"`
	Status            string  `json:"status"`
	Provider          string  `json:"provider"`
	PaidAt            *string `json:"paid_at,omitempty"`
	CreatedAt         string  `json:"created_at"`
}

// CreateAPIKeyRequest is the request body for API key provisioning.
// TenantID is required on the platform surface; dashboard callers are
// bound to their session tenant and must omit it.
type CreateAPIKeyRequest struct {
	TenantID    string   `json:"tenant_id,omitempty" binding:"omitempty,uuid"`
	Name        string   `json:"name" binding:"required,min=1,max=100"`
	Scope       string   `json:"scope" binding:"required,oneof=payments:create refunds:create keys:manage"`
	Env         string   `json:"env" binding:"required,oneof=sandbox production"`
	IPAllowlist []string `json:"ip_allowlist,omitempty" binding:"omitempty,max=32,dive,ip"`
	ExpiresAt   *string  `json:"expires_at,omitempty"` // RFC 3339
	Notes       string   `json:"notes,omitempty" binding:"omitempty,max=500"`
}

// APIKeyResponse is the masked view of an API key. The plaintext secret
// never appears here.
type APIKeyResponse struct {
	ID          string   `json:"id"`
	TenantID    string   `json:"tenant_id"`
	Name        string   `json:"name"`
	Prefix      string   `json:"prefix"`
	Scope       string   `json:"scope"`
	Env         string   `json:"env"`
	Status      string   `json:"status"`
	IPAllowlist []string `json:"ip_allowlist,omitempty"`
	ExpiresAt   *string  `json:"expires_at,omitempty"`
	LastUsedAt  *string  `json:"last_used_at,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

// APIKeyCreatedResponse carries the plaintext secret exactly once, at
// creation or rotation time.
type APIKeyCreatedResponse struct {
	APIKeyResponse
	Secret string `json:"secret"`
}

// APIKeyListResponse wraps a tenant's keys.
type APIKeyListResponse struct {
	Items []APIKeyResponse `json:"items"`
	Total int              `json:"total"`
}
