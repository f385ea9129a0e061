package provider

import (
	"context"
	"errors"
	"testing"

	"payops-gateway/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSandboxParseWebhookEvent_Valid(t *testing.T) {
	p := NewSandboxProvider("whsec_sandbox")
	payload := []byte(`{"id":"evt_sbx_1","type":"checkout.session.completed","data":{"session_id":"sbx_sess_1","payment_id":"sbx_pay_1","amount":4200,"currency":"usd"}}`)

	event, err := p.ParseWebhookEvent(payload, p.SignWebhookPayload(payload))

	require.NoError(t, err)
	assert.Equal(t, "evt_sbx_1", event.ID)
	assert.Equal(t, "checkout.session.completed", event.Type)
	assert.Equal(t, "sbx_sess_1", event.ProviderSessionID)
	assert.Equal(t, int64(4200), event.Amount)
}

func TestSandboxParseWebhookEvent_BadSignature(t *testing.T) {
	p := NewSandboxProvider("whsec_sandbox")
	payload := []byte(`{"id":"evt_sbx_1","type":"checkout.session.completed"}`)

	event, err := p.ParseWebhookEvent(payload, "deadbeef")

	require.Error(t, err)
	assert.Nil(t, event)
	assert.True(t, errors.Is(err, ports.ErrInvalidProviderSignature))
}

func TestSandboxParseWebhookEvent_MalformedPayload(t *testing.T) {
	p := NewSandboxProvider("whsec_sandbox")
	payload := []byte(`not-json`)

	event, err := p.ParseWebhookEvent(payload, p.SignWebhookPayload(payload))

	require.Error(t, err)
	assert.Nil(t, event)
	assert.False(t, errors.Is(err, ports.ErrInvalidProviderSignature))
}

func TestSandboxCreateCheckoutSession(t *testing.T) {
	p := NewSandboxProvider("whsec_sandbox")

	session, err := p.CreateCheckoutSession(context.Background(), ports.CheckoutParams{
		Amount:   4200,
		Currency: "usd",
	})

	require.NoError(t, err)
	require.NotNil(t, session.RedirectURL)
	require.NotNil(t, session.ExpiresAt)
	assert.NotEmpty(t, session.ID)
}
