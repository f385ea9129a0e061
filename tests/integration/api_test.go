package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpHandler "payops-gateway/internal/adapter/http/handler"
	"payops-gateway/internal/adapter/provider"
	redisStorage "payops-gateway/internal/adapter/storage/redis"
	"payops-gateway/internal/core/domain"
	"payops-gateway/internal/core/ports"
	"payops-gateway/internal/service"
	"payops-gateway/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp builds the full application stack against in-memory storage:
// miniredis for the cache layer, mutex-map repos for Postgres. The real
// HTTP layer, middleware, handlers, services and providers run end-to-end.

const (
	testEncryptionKey  = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	testJWTSecret      = "test-jwt-secret-key-32bytes!!!!!"
	testPlatformID     = "pf_test_shop"
	testPlatformSecret = "pf-secret-0123456789abcdef"
	testWebhookSecret  = "whsec_sandbox_test"
)

type testApp struct {
	server   *httptest.Server
	redis    *miniredis.Miniredis
	tenantID uuid.UUID

	sessions *inMemoryCheckoutSessionRepo
	payments *inMemoryPaymentRepo
	queue    *inMemoryWebhookEventRepo

	sigSvc   ports.SignatureService
	tokenSvc ports.TokenService
	sandbox  *provider.SandboxProvider
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	// Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Crypto services with real implementations
	encSvc, err := service.NewAESEncryptionService(testEncryptionKey)
	require.NoError(t, err)
	sigSvc := service.NewHMACSignatureService()
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(testJWTSecret, "payops-test")

	// In-memory repos
	tenantRepo := newInMemoryTenantRepo()
	sessionRepo := newInMemoryCheckoutSessionRepo()
	paymentRepo := newInMemoryPaymentRepo()
	refundRepo := newInMemoryRefundRepo()
	idempotencyRepo := newInMemoryIdempotencyRepo()
	providerEventRepo := newInMemoryProviderEventRepo()
	keyRepo := newInMemoryApiKeyRepo()
	platformTokenRepo := newInMemoryPlatformTokenRepo()
	replayRepo := newInMemoryReplayCacheRepo()
	subRepo := newInMemoryWebhookSubscriptionRepo()
	queueRepo := newInMemoryWebhookEventRepo()
	auditRepo := newInMemoryAuditRepo()
	transactor := newInMemoryTransactor()

	// Seed one active tenant on the sandbox provider.
	tenantID := uuid.New()
	now := time.Now().UTC()
	tenantRepo.put(&domain.Tenant{
		ID:        tenantID,
		Name:      "Test Tenant",
		Status:    domain.TenantStatusActive,
		Provider:  "sandbox",
		CreatedAt: now,
		UpdatedAt: now,
	})

	// Seed the platform token. The stored secret is AES-encrypted; HMAC
	// verification decrypts it on every request.
	secretEnc, err := encSvc.Encrypt(testPlatformSecret)
	require.NoError(t, err)
	platformTokenRepo.put(&domain.PlatformToken{
		ID:           uuid.New(),
		PlatformID:   testPlatformID,
		PlatformName: "Test Shop Platform",
		SecretEnc:    secretEnc,
		Status:       domain.KeyStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})

	// One enabled catch-all subscription so ingestion exercises fan-out.
	subRepo.put(&domain.WebhookSubscription{
		ID:        uuid.New(),
		TenantID:  tenantID,
		URL:       "https://merchant.example.com/hooks",
		Secret:    "sub-secret",
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	})

	sandbox := provider.NewSandboxProvider(testWebhookSecret)
	gateway := provider.NewGateway(tenantRepo, sandbox)

	log := logger.New("payops-gateway-test", "error", false)

	auditSvc := service.NewAuditService(auditRepo, log)
	checkoutSvc := service.NewCheckoutService(sessionRepo, tenantRepo, idempotencyRepo, idempotencyCache, gateway, transactor, auditSvc, log)
	refundSvc := service.NewRefundService(refundRepo, paymentRepo, gateway, service.AllowAllStepUpGuard{}, auditSvc, log)
	apiKeySvc := service.NewApiKeyService(keyRepo, tenantRepo, hashSvc, auditSvc, log)
	platformAuthSvc := service.NewPlatformAuthService(platformTokenRepo, replayRepo, encSvc, sigSvc, log)
	webhookSvc := service.NewWebhookIngestService(gateway, providerEventRepo, sessionRepo, paymentRepo, subRepo, queueRepo, transactor, auditSvc, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		CheckoutSvc:     checkoutSvc,
		RefundSvc:       refundSvc,
		WebhookSvc:      webhookSvc,
		ApiKeySvc:       apiKeySvc,
		PlatformAuthSvc: platformAuthSvc,
		TokenSvc:        tokenSvc,
		SessionRepo:     sessionRepo,
		PaymentRepo:     paymentRepo,
		ApiKeyRepo:      keyRepo,
		RateLimitStore:  rateLimitStore,
		HealthCheckers:  []ports.HealthChecker{redisStorage.NewHealthCheck(rdb)},
		Logger:          log,
	})

	server := httptest.NewServer(router)

	return &testApp{
		server:   server,
		redis:    mr,
		tenantID: tenantID,
		sessions: sessionRepo,
		payments: paymentRepo,
		queue:    queueRepo,
		sigSvc:   sigSvc,
		tokenSvc: tokenSvc,
		sandbox:  sandbox,
	}
}

func (a *testApp) close() {
	a.server.Close()
	a.redis.Close()
}

// platformRequest builds a signed request for the platform HMAC surface.
func (a *testApp) platformRequest(t *testing.T, method, path string, body []byte) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, a.server.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	ts := time.Now().UTC().Format(time.RFC3339)
	canonical := a.sigSvc.BuildCanonicalString(method, path, string(body), ts)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Platform-ID", testPlatformID)
	req.Header.Set("X-Timestamp", ts)
	req.Header.Set("X-Signature", a.sigSvc.Sign(testPlatformSecret, canonical))
	return req
}

// createAPIKey provisions a key through the platform surface and returns
// its id and the one-time plaintext secret.
func (a *testApp) createAPIKey(t *testing.T, scope string) (string, string) {
	t.Helper()
	body, _ := json.Marshal(map[string]interface{}{
		"tenant_id": a.tenantID.String(),
		"name":      "integration key",
		"scope":     scope,
		"env":       "sandbox",
	})
	resp, err := http.DefaultClient.Do(a.platformRequest(t, http.MethodPost, "/api/v1/platform/api-keys", body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	data := decodeData(t, resp)
	id, _ := data["id"].(string)
	secret, _ := data["secret"].(string)
	require.NotEmpty(t, id)
	require.NotEmpty(t, secret)
	return id, secret
}

// dashboardToken mints a session token the way the dashboard backend would.
func (a *testApp) dashboardToken(t *testing.T, permissions ...string) string {
	t.Helper()
	token, _, err := a.tokenSvc.Generate(a.tenantID, "user-1", "admin", permissions, time.Hour)
	require.NoError(t, err)
	return token
}

// createCheckout posts a checkout with the given API key and idempotency key.
func (a *testApp) createCheckout(t *testing.T, apiKey, idemKey string, payload map[string]interface{}) *http.Response {
	t.Helper()
	body, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPost, a.server.URL+"/api/v1/checkouts", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", apiKey)
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// sandboxEventPayload builds a signed sandbox webhook delivery.
func (a *testApp) sandboxEventPayload(eventID, eventType, providerSessionID string, amount int64) ([]byte, string) {
	payload := []byte(fmt.Sprintf(
		`{"id":%q,"type":%q,"data":{"session_id":%q,"payment_id":"sbx_pay_%s","amount":%d,"currency":"usd","tenant_id":%q}}`,
		eventID, eventType, providerSessionID, eventID, amount, a.tenantID.String(),
	))
	return payload, a.sandbox.SignWebhookPayload(payload)
}

func (a *testApp) deliverWebhook(t *testing.T, payload []byte, signature string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, a.server.URL+"/api/v1/webhooks/sandbox", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", signature)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeData(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var envelope map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	data, ok := envelope["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object")
	return data
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var envelope map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	code, _ := envelope["error_code"].(string)
	return code
}

// --- Integration Tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	deps := body["dependencies"].(map[string]interface{})
	redisDep := deps["redis"].(map[string]interface{})
	assert.Equal(t, "healthy", redisDep["status"])
}

func TestIntegration_CheckoutRequiresAPIKey(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	body, _ := json.Marshal(map[string]interface{}{"amount": 5000, "currency": "usd"})
	resp, err := http.Post(app.server.URL+"/api/v1/checkouts", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIntegration_CheckoutWithDashboardToken(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	token := app.dashboardToken(t, domain.PermissionPaymentsCreate)
	body, _ := json.Marshal(map[string]interface{}{"amount": 3500, "currency": "usd"})
	req, err := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/checkouts", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := decodeData(t, resp)
	assert.Equal(t, "PENDING", data["status"])
}

func TestIntegration_CheckoutDashboardTokenNeedsPermission(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	token := app.dashboardToken(t, domain.PermissionRefundsCreate)
	body, _ := json.Marshal(map[string]interface{}{"amount": 3500, "currency": "usd"})
	req, err := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/checkouts", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "AUTH_003", errorCode(t, resp))
}

func TestIntegration_CheckoutTenantHeaderMismatch(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	_, secret := app.createAPIKey(t, domain.PermissionPaymentsCreate)
	body, _ := json.Marshal(map[string]interface{}{"amount": 3500, "currency": "usd"})
	req, err := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/checkouts", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", secret)
	req.Header.Set("X-Tenant-ID", uuid.NewString())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "AUTH_004", errorCode(t, resp))
}

func TestIntegration_CheckoutIdempotentRetry(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	_, secret := app.createAPIKey(t, "payments:create")
	payload := map[string]interface{}{
		"amount":    5000,
		"currency":  "usd",
		"reference": "ORD-1001",
	}

	resp := app.createCheckout(t, secret, "idem-retry-1", payload)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Limit"))
	first := decodeData(t, resp)
	assert.NotEmpty(t, first["id"])
	assert.NotEmpty(t, first["redirect_url"])
	assert.Equal(t, "PENDING", first["status"])

	// Same key, same payload: the stored session replays, nothing new
	// is created at the provider.
	resp2 := app.createCheckout(t, secret, "idem-retry-1", payload)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusCreated, resp2.StatusCode)
	second := decodeData(t, resp2)
	assert.Equal(t, first["id"], second["id"])
	assert.Equal(t, first["provider"], second["provider"])
}

func TestIntegration_CheckoutIdempotencyConflict(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	_, secret := app.createAPIKey(t, "payments:create")

	resp := app.createCheckout(t, secret, "idem-conflict-1", map[string]interface{}{
		"amount": 5000, "currency": "usd",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Same key, different amount: conflict, not replay.
	resp2 := app.createCheckout(t, secret, "idem-conflict-1", map[string]interface{}{
		"amount": 9999, "currency": "usd",
	})
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusConflict, resp2.StatusCode)
	assert.Equal(t, "PAY_003", errorCode(t, resp2))
}

func TestIntegration_WebhookCompletesCheckout(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	_, secret := app.createAPIKey(t, "payments:create")
	resp := app.createCheckout(t, secret, "", map[string]interface{}{
		"amount": 7500, "currency": "usd",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := decodeData(t, resp)
	resp.Body.Close()

	sessionID := uuid.MustParse(data["id"].(string))
	session, err := app.sessions.GetByID(context.Background(), sessionID)
	require.NoError(t, err)
	require.NotNil(t, session)

	payload, sig := app.sandboxEventPayload("evt_complete_1", "checkout.session.completed", session.ProviderSessionID, 7500)
	whResp := app.deliverWebhook(t, payload, sig)
	whResp.Body.Close()
	assert.Equal(t, http.StatusOK, whResp.StatusCode)

	session, err = app.sessions.GetByID(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusCompleted, session.Status)

	payment, err := app.payments.GetByCheckoutSessionID(context.Background(), sessionID)
	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.Equal(t, domain.PaymentStatusSucceeded, payment.Status)
	assert.Equal(t, int64(7500), payment.Amount)
	assert.NotNil(t, payment.PaidAt)
	assert.Equal(t, 1, app.queue.count(), "fan-out enqueued one delivery")

	// Redelivery of the same event id is acknowledged without reprocessing.
	dupResp := app.deliverWebhook(t, payload, sig)
	dupResp.Body.Close()
	assert.Equal(t, http.StatusOK, dupResp.StatusCode)
	assert.Equal(t, 1, app.payments.count())
	assert.Equal(t, 1, app.queue.count())
}

func TestIntegration_WebhookBadSignature(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	payload, _ := app.sandboxEventPayload("evt_forged_1", "checkout.session.completed", "sbx_sess_x", 100)
	resp := app.deliverWebhook(t, payload, "deadbeef")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "HOOK_001", errorCode(t, resp))
}

func TestIntegration_WebhookUnknownSessionAcknowledged(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	payload, sig := app.sandboxEventPayload("evt_orphan_1", "checkout.session.completed", "sbx_sess_unknown", 100)
	resp := app.deliverWebhook(t, payload, sig)
	defer resp.Body.Close()

	// Acknowledged so the provider stops retrying; no payment appears.
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, app.payments.count())
}

func TestIntegration_PlatformMissingHeaders(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	body, _ := json.Marshal(map[string]interface{}{
		"tenant_id": app.tenantID.String(),
		"name":      "no auth", "scope": "payments:create", "env": "sandbox",
	})
	resp, err := http.Post(app.server.URL+"/api/v1/platform/api-keys", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "SEC_001", errorCode(t, resp))
}

func TestIntegration_PlatformReplayedSignature(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	body, _ := json.Marshal(map[string]interface{}{
		"tenant_id": app.tenantID.String(),
		"name":      "replay check", "scope": "payments:create", "env": "sandbox",
	})
	req := app.platformRequest(t, http.MethodPost, "/api/v1/platform/api-keys", body)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Identical headers and body: the signature hash is already spent.
	replay := app.platformRequest(t, http.MethodPost, "/api/v1/platform/api-keys", body)
	replay.Header.Set("X-Timestamp", req.Header.Get("X-Timestamp"))
	replay.Header.Set("X-Signature", req.Header.Get("X-Signature"))
	resp2, err := http.DefaultClient.Do(replay)
	require.NoError(t, err)
	defer resp2.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
	assert.Equal(t, "SEC_005", errorCode(t, resp2))
}

func TestIntegration_PlatformStaleTimestamp(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	body, _ := json.Marshal(map[string]interface{}{
		"tenant_id": app.tenantID.String(),
		"name":      "stale", "scope": "payments:create", "env": "sandbox",
	})
	path := "/api/v1/platform/api-keys"
	ts := time.Now().UTC().Add(-10 * time.Minute).Format(time.RFC3339)
	canonical := app.sigSvc.BuildCanonicalString(http.MethodPost, path, string(body), ts)

	req, err := http.NewRequest(http.MethodPost, app.server.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Platform-ID", testPlatformID)
	req.Header.Set("X-Timestamp", ts)
	req.Header.Set("X-Signature", app.sigSvc.Sign(testPlatformSecret, canonical))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "SEC_002", errorCode(t, resp))
}

func TestIntegration_APIKeyLifecycle(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	keyID, secret := app.createAPIKey(t, "payments:create")
	checkoutBody := map[string]interface{}{"amount": 1000, "currency": "usd"}

	// The fresh secret authenticates.
	resp := app.createCheckout(t, secret, "", checkoutBody)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Rotate: old secret dies, the new one takes over.
	rotResp, err := http.DefaultClient.Do(app.platformRequest(t, http.MethodPost, "/api/v1/platform/api-keys/"+keyID+"/rotate", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rotResp.StatusCode)
	rotated := decodeData(t, rotResp)
	rotResp.Body.Close()
	newSecret := rotated["secret"].(string)
	require.NotEmpty(t, newSecret)
	require.NotEqual(t, secret, newSecret)

	resp = app.createCheckout(t, secret, "", checkoutBody)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = app.createCheckout(t, newSecret, "", checkoutBody)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// Listing never exposes secrets, only the prefix.
	listResp, err := http.DefaultClient.Do(app.platformRequest(t, http.MethodGet, "/api/v1/platform/api-keys?tenant_id="+app.tenantID.String(), nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	listData := decodeData(t, listResp)
	listResp.Body.Close()
	items := listData["items"].([]interface{})
	require.NotEmpty(t, items)
	for _, item := range items {
		key := item.(map[string]interface{})
		assert.NotEmpty(t, key["prefix"])
		_, hasSecret := key["secret"]
		assert.False(t, hasSecret)
	}

	// Revoke is terminal.
	revResp, err := http.DefaultClient.Do(app.platformRequest(t, http.MethodPost, "/api/v1/platform/api-keys/"+keyID+"/revoke", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, revResp.StatusCode)
	revoked := decodeData(t, revResp)
	revResp.Body.Close()
	assert.Equal(t, "REVOKED", revoked["status"])

	resp = app.createCheckout(t, newSecret, "", checkoutBody)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIntegration_RefundEndToEnd(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	// Checkout, then complete it through the webhook pipeline.
	_, secret := app.createAPIKey(t, "payments:create")
	resp := app.createCheckout(t, secret, "", map[string]interface{}{
		"amount": 12000, "currency": "usd",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := decodeData(t, resp)
	resp.Body.Close()

	sessionID := uuid.MustParse(data["id"].(string))
	session, err := app.sessions.GetByID(context.Background(), sessionID)
	require.NoError(t, err)

	payload, sig := app.sandboxEventPayload("evt_refund_flow", "checkout.session.completed", session.ProviderSessionID, 12000)
	whResp := app.deliverWebhook(t, payload, sig)
	whResp.Body.Close()
	require.Equal(t, http.StatusOK, whResp.StatusCode)

	payment, err := app.payments.GetByCheckoutSessionID(context.Background(), sessionID)
	require.NoError(t, err)
	require.NotNil(t, payment)

	// Refund from the dashboard surface.
	token := app.dashboardToken(t, domain.PermissionRefundsCreate)
	refundBody, _ := json.Marshal(map[string]interface{}{
		"payment_id": payment.ID.String(),
		"reason":     "customer request",
	})
	req, err := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/refunds", bytes.NewReader(refundBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	refResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, refResp.StatusCode)
	refund := decodeData(t, refResp)
	refResp.Body.Close()
	assert.Equal(t, "SUCCEEDED", refund["status"])
	assert.Equal(t, float64(12000), refund["amount"])
	assert.NotEmpty(t, refund["provider_refund_id"])

	// The payment is still readable from the dashboard.
	getReq, err := http.NewRequest(http.MethodGet, app.server.URL+"/api/v1/payments/"+payment.ID.String(), nil)
	require.NoError(t, err)
	getReq.Header.Set("Authorization", "Bearer "+token)
	getResp, err := http.DefaultClient.Do(getReq)
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
}

func TestIntegration_RefundRequiresPermission(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	// A valid session without refunds:create cannot reach the handler.
	token := app.dashboardToken(t, domain.PermissionKeysManage)
	body, _ := json.Marshal(map[string]interface{}{"payment_id": uuid.NewString()})
	req, err := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/refunds", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "AUTH_003", errorCode(t, resp))
}
