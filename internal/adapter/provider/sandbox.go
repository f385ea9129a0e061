package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"payops-gateway/internal/core/ports"

	"github.com/google/uuid"
)

// SandboxProvider implements ports.PaymentProvider without any external
// dependency. Sessions and refunds succeed immediately; webhooks are
// signed with a shared HMAC secret so the full ingestion pipeline can be
// exercised in development and tests.
type SandboxProvider struct {
	webhookSecret string
	now           func() time.Time
}

// NewSandboxProvider creates a new SandboxProvider.
func NewSandboxProvider(webhookSecret string) *SandboxProvider {
	return &SandboxProvider{
		webhookSecret: webhookSecret,
		now:           time.Now,
	}
}

// Name returns the provider identifier.
func (p *SandboxProvider) Name() string {
	return "sandbox"
}

// CreateCheckoutSession fabricates a hosted session.
func (p *SandboxProvider) CreateCheckoutSession(ctx context.Context, params ports.CheckoutParams) (*ports.ProviderSession, error) {
	id := "sbx_sess_" + uuid.NewString()
	redirect := "https://sandbox.payops.local/checkout/" + id
	qr := "https://sandbox.payops.local/qr/" + id + ".png"
	expires := p.now().UTC().Add(30 * time.Minute)

	return &ports.ProviderSession{
		ID:          id,
		RedirectURL: &redirect,
		QRImageURL:  &qr,
		ExpiresAt:   &expires,
	}, nil
}

// Refund always succeeds.
func (p *SandboxProvider) Refund(ctx context.Context, providerPaymentID string, amount int64, reason string) (*ports.ProviderRefund, error) {
	return &ports.ProviderRefund{
		RefundID: "sbx_re_" + uuid.NewString(),
		Status:   "succeeded",
	}, nil
}

// sandboxEvent is the wire format of sandbox webhook payloads.
type sandboxEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		SessionID string `json:"session_id"`
		PaymentID string `json:"payment_id"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		TenantID  string `json:"tenant_id"`
	} `json:"data"`
}

// ParseWebhookEvent verifies the hex HMAC-SHA256 signature over the raw
// payload, then decodes it.
func (p *SandboxProvider) ParseWebhookEvent(payload []byte, signatureHeader string) (*ports.ProviderWebhookEvent, error) {
	mac := hmac.New(sha256.New, []byte(p.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signatureHeader)) {
		return nil, fmt.Errorf("sandbox webhook: %w", ports.ErrInvalidProviderSignature)
	}

	var event sandboxEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("parse sandbox event: %w", err)
	}
	if event.ID == "" || event.Type == "" {
		return nil, fmt.Errorf("sandbox event missing id or type")
	}

	return &ports.ProviderWebhookEvent{
		ID:                event.ID,
		Type:              event.Type,
		TenantID:          event.Data.TenantID,
		ProviderSessionID: event.Data.SessionID,
		ProviderPaymentID: event.Data.PaymentID,
		Amount:            event.Data.Amount,
		Currency:          event.Data.Currency,
		Raw:               payload,
	}, nil
}

// SignWebhookPayload computes the signature a sandbox delivery carries.
// Exported for tests and local tooling.
func (p *SandboxProvider) SignWebhookPayload(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(p.webhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
