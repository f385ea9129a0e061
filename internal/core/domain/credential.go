package domain

import (
	"time"

	"github.com/google/uuid"
)

// Permissions carried by dashboard session tokens.
const (
	PermissionPaymentsCreate = "payments:create"
	PermissionRefundsCreate  = "refunds:create"
	PermissionKeysManage     = "keys:manage"
)

// KeyStatus represents the state of an API key or platform token.
// Revocation is terminal.
type KeyStatus string

const (
	KeyStatusActive  KeyStatus = "ACTIVE"
	KeyStatusRevoked KeyStatus = "REVOKED"
)

// KeyEnv scopes an API key to an environment.
type KeyEnv string

const (
	KeyEnvSandbox    KeyEnv = "sandbox"
	KeyEnvProduction KeyEnv = "production"
)

// ApiKey is a tenant-scoped API credential. The secret is shown to the
// caller exactly once at creation or rotation; only an Argon2id hash and
// a short non-secret prefix persist.
type ApiKey struct {
	ID           uuid.UUID  `json:"id"`
	TenantID     uuid.UUID  `json:"tenant_id"`
	Name         string     `json:"name"`
	Prefix       string     `json:"prefix"`
	HashedSecret string     `json:"-"`
	Scope        string     `json:"scope"`
	Env          KeyEnv     `json:"env"`
	Status       KeyStatus  `json:"status"`
	IPAllowlist  []string   `json:"ip_allowlist,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsUsable reports whether the key can authenticate a request right now.
func (k *ApiKey) IsUsable(now time.Time) bool {
	if k.Status != KeyStatusActive {
		return false
	}
	if k.ExpiresAt != nil && now.After(*k.ExpiresAt) {
		return false
	}
	return true
}

// AllowsIP checks the optional IP allowlist. An empty list allows all.
func (k *ApiKey) AllowsIP(ip string) bool {
	if len(k.IPAllowlist) == 0 {
		return true
	}
	for _, allowed := range k.IPAllowlist {
		if allowed == ip {
			return true
		}
	}
	return false
}

// PlatformToken authenticates an external platform against the HMAC
// trust boundary. The signing secret is stored AES-256-GCM encrypted:
// HMAC verification needs the recoverable secret, so a one-way hash
// cannot serve here.
type PlatformToken struct {
	ID           uuid.UUID  `json:"id"`
	PlatformID   string     `json:"platform_id"`
	PlatformName string     `json:"platform_name"`
	SecretEnc    string     `json:"-"`
	Status       KeyStatus  `json:"status"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsActive returns true if the token may sign requests.
func (t *PlatformToken) IsActive() bool {
	return t.Status == KeyStatusActive
}

// MaskSecret renders a secret for audit trails: prefix plus last four
// characters, everything else redacted.
func MaskSecret(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****" + secret[len(secret)-4:]
}
