package handler

import (
	"io"
	"net/http"

	"payops-gateway/internal/core/ports"
	"payops-gateway/pkg/apperror"
	"payops-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// Provider signature header names. Stripe sends its own; the sandbox
// provider uses a generic header.
const (
	HeaderStripeSignature  = "Stripe-Signature"
	HeaderWebhookSignature = "X-Webhook-Signature"
)

// WebhookHandler handles inbound provider webhook deliveries.
type WebhookHandler struct {
	ingestSvc ports.WebhookIngestService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(ingestSvc ports.WebhookIngestService) *WebhookHandler {
	return &WebhookHandler{ingestSvc: ingestSvc}
}

// HandleProviderWebhook handles POST /api/v1/webhooks/:provider. The raw
// body is passed through untouched: provider signatures bind the exact
// bytes on the wire.
func (h *WebhookHandler) HandleProviderWebhook(c *gin.Context) {
	provider := c.Param("provider")

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, apperror.Validation("cannot read request body"))
		return
	}

	signature := c.GetHeader(HeaderStripeSignature)
	if signature == "" {
		signature = c.GetHeader(HeaderWebhookSignature)
	}

	if err := h.ingestSvc.HandleEvent(c.Request.Context(), provider, payload, signature); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
