package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"payops-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

// HTTPStepUpGuard implements ports.StepUpGuard against the external MFA
// decision service. The service is consumed as a single allow/deny call.
type HTTPStepUpGuard struct {
	url        string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewHTTPStepUpGuard creates a step-up guard calling the given endpoint.
func NewHTTPStepUpGuard(url string, timeout time.Duration, log zerolog.Logger) *HTTPStepUpGuard {
	return &HTTPStepUpGuard{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

type stepUpWire struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Action   string `json:"action"`
	UserRole string `json:"user_role"`
}

type stepUpDecisionWire struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// Check asks the MFA service whether the action may proceed.
// Transport failures deny: a sensitive action must not slip through
// because the decision service was unreachable.
func (g *HTTPStepUpGuard) Check(ctx context.Context, req ports.StepUpRequest) (*ports.StepUpDecision, error) {
	body, err := json.Marshal(stepUpWire{
		UserID:   req.UserID,
		TenantID: req.TenantID.String(),
		Action:   req.Action,
		UserRole: req.UserRole,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal step-up request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build step-up request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		g.log.Warn().Err(err).Msg("step-up service unreachable, denying")
		return &ports.StepUpDecision{Allowed: false, Reason: "step-up service unavailable"}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ports.StepUpDecision{Allowed: false, Reason: fmt.Sprintf("step-up service returned %d", resp.StatusCode)}, nil
	}

	var decision stepUpDecisionWire
	if err := json.NewDecoder(resp.Body).Decode(&decision); err != nil {
		return nil, fmt.Errorf("decode step-up decision: %w", err)
	}

	return &ports.StepUpDecision{Allowed: decision.Allowed, Reason: decision.Reason}, nil
}

// AllowAllStepUpGuard approves every request. Development and test use.
type AllowAllStepUpGuard struct{}

// Check always allows.
func (AllowAllStepUpGuard) Check(_ context.Context, _ ports.StepUpRequest) (*ports.StepUpDecision, error) {
	return &ports.StepUpDecision{Allowed: true}, nil
}
