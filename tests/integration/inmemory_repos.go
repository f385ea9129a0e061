package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"payops-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Tenant Repo ---

type inMemoryTenantRepo struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]*domain.Tenant
}

func newInMemoryTenantRepo() *inMemoryTenantRepo {
	return &inMemoryTenantRepo{tenants: make(map[uuid.UUID]*domain.Tenant)}
}

func (r *inMemoryTenantRepo) put(t *domain.Tenant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants[t.ID] = t
}

func (r *inMemoryTenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, nil
	}
	return t, nil
}

// --- In-Memory Checkout Session Repo ---

type inMemoryCheckoutSessionRepo struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*domain.CheckoutSession
}

func newInMemoryCheckoutSessionRepo() *inMemoryCheckoutSessionRepo {
	return &inMemoryCheckoutSessionRepo{sessions: make(map[uuid.UUID]*domain.CheckoutSession)}
}

func (r *inMemoryCheckoutSessionRepo) Create(ctx context.Context, tx pgx.Tx, s *domain.CheckoutSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	return nil
}

func (r *inMemoryCheckoutSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.CheckoutSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	return s, nil
}

func (r *inMemoryCheckoutSessionRepo) GetByProviderSessionID(ctx context.Context, provider, providerSessionID string) (*domain.CheckoutSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.Provider == provider && s.ProviderSessionID == providerSessionID {
			return s, nil
		}
	}
	return nil, nil
}

func (r *inMemoryCheckoutSessionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.CheckoutStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("session not found")
	}
	s.Status = status
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// --- In-Memory Payment Repo ---

type inMemoryPaymentRepo struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]*domain.Payment
}

func newInMemoryPaymentRepo() *inMemoryPaymentRepo {
	return &inMemoryPaymentRepo{payments: make(map[uuid.UUID]*domain.Payment)}
}

func (r *inMemoryPaymentRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments[p.ID] = p
	return nil
}

func (r *inMemoryPaymentRepo) Update(ctx context.Context, tx pgx.Tx, p *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[p.ID]; !ok {
		return fmt.Errorf("payment not found")
	}
	r.payments[p.ID] = p
	return nil
}

func (r *inMemoryPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, nil
	}
	return p, nil
}

func (r *inMemoryPaymentRepo) GetByCheckoutSessionID(ctx context.Context, sessionID uuid.UUID) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.payments {
		if p.CheckoutSessionID != nil && *p.CheckoutSessionID == sessionID {
			return p, nil
		}
	}
	return nil, nil
}

func (r *inMemoryPaymentRepo) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.payments)
}

// --- In-Memory Refund Repo ---

type inMemoryRefundRepo struct {
	mu      sync.RWMutex
	refunds map[uuid.UUID]*domain.Refund
}

func newInMemoryRefundRepo() *inMemoryRefundRepo {
	return &inMemoryRefundRepo{refunds: make(map[uuid.UUID]*domain.Refund)}
}

func (r *inMemoryRefundRepo) Create(ctx context.Context, refund *domain.Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refunds[refund.ID] = refund
	return nil
}

func (r *inMemoryRefundRepo) Update(ctx context.Context, refund *domain.Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.refunds[refund.ID]; !ok {
		return fmt.Errorf("refund not found")
	}
	r.refunds[refund.ID] = refund
	return nil
}

func (r *inMemoryRefundRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Refund, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	re, ok := r.refunds[id]
	if !ok {
		return nil, nil
	}
	return re, nil
}

// --- In-Memory Idempotency Repo ---

// inMemoryIdempotencyRepo enforces the (tenant_id, key) uniqueness the
// real store guarantees with a constraint, so concurrent writers race
// the same way they do against Postgres.
type inMemoryIdempotencyRepo struct {
	mu      sync.RWMutex
	records map[string]*domain.IdempotencyRecord
}

func newInMemoryIdempotencyRepo() *inMemoryIdempotencyRepo {
	return &inMemoryIdempotencyRepo{records: make(map[string]*domain.IdempotencyRecord)}
}

func (r *inMemoryIdempotencyRepo) Get(ctx context.Context, tenantID uuid.UUID, key string) (*domain.IdempotencyRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[domain.BuildIdempotencyKey(tenantID, key)]
	if !ok {
		return nil, nil
	}
	return rec, nil
}

func (r *inMemoryIdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, record *domain.IdempotencyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := domain.BuildIdempotencyKey(record.TenantID, record.Key)
	if _, exists := r.records[k]; exists {
		return fmt.Errorf("duplicate idempotency key %s", k)
	}
	r.records[k] = record
	return nil
}

func (r *inMemoryIdempotencyRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for k, rec := range r.records {
		if rec.IsExpired(now) {
			delete(r.records, k)
			deleted++
		}
	}
	return deleted, nil
}

// --- In-Memory Provider Event Repo ---

type inMemoryProviderEventRepo struct {
	mu     sync.Mutex
	events map[string]*domain.ProviderEvent
}

func newInMemoryProviderEventRepo() *inMemoryProviderEventRepo {
	return &inMemoryProviderEventRepo{events: make(map[string]*domain.ProviderEvent)}
}

func (r *inMemoryProviderEventRepo) Insert(ctx context.Context, event *domain.ProviderEvent) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := event.Provider + ":" + event.EventID
	if _, exists := r.events[k]; exists {
		return false, nil
	}
	r.events[k] = event
	return true, nil
}

// --- In-Memory API Key Repo ---

type inMemoryApiKeyRepo struct {
	mu   sync.RWMutex
	keys map[uuid.UUID]*domain.ApiKey
}

func newInMemoryApiKeyRepo() *inMemoryApiKeyRepo {
	return &inMemoryApiKeyRepo{keys: make(map[uuid.UUID]*domain.ApiKey)}
}

func (r *inMemoryApiKeyRepo) Create(ctx context.Context, key *domain.ApiKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.keys {
		if existing.Prefix == key.Prefix {
			return fmt.Errorf("prefix already exists")
		}
	}
	r.keys[key.ID] = key
	return nil
}

func (r *inMemoryApiKeyRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ApiKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.keys[id]
	if !ok {
		return nil, nil
	}
	return k, nil
}

func (r *inMemoryApiKeyRepo) GetByPrefix(ctx context.Context, prefix string) (*domain.ApiKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, k := range r.keys {
		if k.Prefix == prefix {
			return k, nil
		}
	}
	return nil, nil
}

func (r *inMemoryApiKeyRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.ApiKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.ApiKey
	for _, k := range r.keys {
		if k.TenantID == tenantID {
			result = append(result, *k)
		}
	}
	return result, nil
}

func (r *inMemoryApiKeyRepo) Update(ctx context.Context, key *domain.ApiKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[key.ID]; !ok {
		return fmt.Errorf("api key not found")
	}
	r.keys[key.ID] = key
	return nil
}

// --- In-Memory Platform Token Repo ---

type inMemoryPlatformTokenRepo struct {
	mu     sync.RWMutex
	tokens map[string]*domain.PlatformToken
}

func newInMemoryPlatformTokenRepo() *inMemoryPlatformTokenRepo {
	return &inMemoryPlatformTokenRepo{tokens: make(map[string]*domain.PlatformToken)}
}

func (r *inMemoryPlatformTokenRepo) put(t *domain.PlatformToken) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[t.PlatformID] = t
}

func (r *inMemoryPlatformTokenRepo) GetByPlatformID(ctx context.Context, platformID string) (*domain.PlatformToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[platformID]
	if !ok {
		return nil, nil
	}
	return t, nil
}

func (r *inMemoryPlatformTokenRepo) UpdateLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.ID == id {
			t.LastUsedAt = &at
			return nil
		}
	}
	return fmt.Errorf("platform token not found")
}

// --- In-Memory Replay Cache Repo ---

type inMemoryReplayCacheRepo struct {
	mu      sync.Mutex
	entries map[string]*domain.ReplayCacheEntry
}

func newInMemoryReplayCacheRepo() *inMemoryReplayCacheRepo {
	return &inMemoryReplayCacheRepo{entries: make(map[string]*domain.ReplayCacheEntry)}
}

func (r *inMemoryReplayCacheRepo) Insert(ctx context.Context, entry *domain.ReplayCacheEntry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[entry.SignatureHash]; exists {
		return false, nil
	}
	r.entries[entry.SignatureHash] = entry
	return true, nil
}

func (r *inMemoryReplayCacheRepo) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pruned int64
	for k, e := range r.entries {
		if e.Timestamp.Before(cutoff) {
			delete(r.entries, k)
			pruned++
		}
	}
	return pruned, nil
}

// --- In-Memory Webhook Subscription Repo ---

type inMemoryWebhookSubscriptionRepo struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]*domain.WebhookSubscription
}

func newInMemoryWebhookSubscriptionRepo() *inMemoryWebhookSubscriptionRepo {
	return &inMemoryWebhookSubscriptionRepo{subs: make(map[uuid.UUID]*domain.WebhookSubscription)}
}

func (r *inMemoryWebhookSubscriptionRepo) put(s *domain.WebhookSubscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[s.ID] = s
}

func (r *inMemoryWebhookSubscriptionRepo) ListEnabledByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.WebhookSubscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.WebhookSubscription
	for _, s := range r.subs {
		if s.TenantID == tenantID && s.Enabled {
			result = append(result, *s)
		}
	}
	return result, nil
}

// --- In-Memory Webhook Event Queue ---

type inMemoryWebhookEventRepo struct {
	mu     sync.RWMutex
	queued []*domain.WebhookEvent
}

func newInMemoryWebhookEventRepo() *inMemoryWebhookEventRepo {
	return &inMemoryWebhookEventRepo{}
}

func (r *inMemoryWebhookEventRepo) Enqueue(ctx context.Context, tx pgx.Tx, event *domain.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queued = append(r.queued, event)
	return nil
}

func (r *inMemoryWebhookEventRepo) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.queued)
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu      sync.RWMutex
	entries []*domain.AuditLog
}

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

// --- In-Memory Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
