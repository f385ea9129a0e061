package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"payops-gateway/config"
	"payops-gateway/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v79"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/refund"
	"github.com/stripe/stripe-go/v79/webhook"
)

// StripeProvider implements ports.PaymentProvider against the Stripe API.
type StripeProvider struct {
	webhookSecret string
	log           zerolog.Logger
}

// NewStripeProvider configures the Stripe SDK and returns the provider.
func NewStripeProvider(cfg config.StripeConfig, log zerolog.Logger) *StripeProvider {
	stripe.Key = cfg.SecretKey
	return &StripeProvider{
		webhookSecret: cfg.WebhookSecret,
		log:           log,
	}
}

// Name returns the provider identifier.
func (p *StripeProvider) Name() string {
	return "stripe"
}

// CreateCheckoutSession creates a Stripe-hosted checkout session.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, params ports.CheckoutParams) (*ports.ProviderSession, error) {
	methodTypes := params.MethodTypes
	if len(methodTypes) == 0 {
		methodTypes = []string{"card"}
	}

	productName := params.Reference
	if productName == "" {
		productName = "Checkout"
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Params:             stripe.Params{Context: ctx},
		PaymentMethodTypes: stripe.StringSlice(methodTypes),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(params.Currency),
					UnitAmount: stripe.Int64(params.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(productName),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
	}
	if params.SuccessURL != "" {
		sessionParams.SuccessURL = stripe.String(params.SuccessURL)
	}
	if params.CancelURL != "" {
		sessionParams.CancelURL = stripe.String(params.CancelURL)
	}
	sessionParams.AddMetadata("tenant_id", params.TenantID.String())
	if params.Reference != "" {
		sessionParams.AddMetadata("reference", params.Reference)
	}

	s, err := checkoutsession.New(sessionParams)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}

	session := &ports.ProviderSession{
		ID:     s.ID,
		Status: string(s.Status),
	}
	if s.URL != "" {
		session.RedirectURL = stripe.String(s.URL)
	}
	if s.ExpiresAt > 0 {
		expires := time.Unix(s.ExpiresAt, 0).UTC()
		session.ExpiresAt = &expires
	}
	return session, nil
}

// Refund issues a refund against a payment intent.
func (p *StripeProvider) Refund(ctx context.Context, providerPaymentID string, amount int64, reason string) (*ports.ProviderRefund, error) {
	refundParams := &stripe.RefundParams{
		Params:        stripe.Params{Context: ctx},
		PaymentIntent: stripe.String(providerPaymentID),
		Amount:        stripe.Int64(amount),
	}
	// Stripe only accepts its own reason enum; anything else rides along
	// as metadata.
	switch reason {
	case string(stripe.RefundReasonDuplicate),
		string(stripe.RefundReasonFraudulent),
		string(stripe.RefundReasonRequestedByCustomer):
		refundParams.Reason = stripe.String(reason)
	case "":
	default:
		refundParams.AddMetadata("reason", reason)
	}

	re, err := refund.New(refundParams)
	if err != nil {
		return nil, fmt.Errorf("stripe refund: %w", err)
	}

	return &ports.ProviderRefund{
		RefundID: re.ID,
		Status:   string(re.Status),
	}, nil
}

// ParseWebhookEvent verifies the Stripe-Signature header over the raw
// payload and normalizes the event.
func (p *StripeProvider) ParseWebhookEvent(payload []byte, signatureHeader string) (*ports.ProviderWebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(
		payload,
		signatureHeader,
		p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		if errors.Is(err, webhook.ErrNotSigned) ||
			errors.Is(err, webhook.ErrInvalidHeader) ||
			errors.Is(err, webhook.ErrTooOld) ||
			errors.Is(err, webhook.ErrNoValidSignature) {
			return nil, fmt.Errorf("%w: %v", ports.ErrInvalidProviderSignature, err)
		}
		return nil, fmt.Errorf("stripe webhook payload: %w", err)
	}

	normalized := &ports.ProviderWebhookEvent{
		ID:   event.ID,
		Type: string(event.Type),
		Raw:  payload,
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionExpired:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("parse checkout session event: %w", err)
		}
		normalized.ProviderSessionID = session.ID
		normalized.Amount = session.AmountTotal
		normalized.Currency = string(session.Currency)
		normalized.TenantID = session.Metadata["tenant_id"]
		if session.PaymentIntent != nil {
			normalized.ProviderPaymentID = session.PaymentIntent.ID
		}
	case stripe.EventTypePaymentIntentPaymentFailed, stripe.EventTypePaymentIntentCanceled:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, fmt.Errorf("parse payment intent event: %w", err)
		}
		normalized.ProviderPaymentID = intent.ID
		normalized.Amount = intent.Amount
		normalized.Currency = string(intent.Currency)
		normalized.TenantID = intent.Metadata["tenant_id"]
		normalized.ProviderSessionID = intent.Metadata["checkout_session_id"]
	default:
		p.log.Debug().Str("event_type", string(event.Type)).Msg("unmapped stripe event type")
	}

	return normalized, nil
}
