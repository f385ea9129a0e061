package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// IdempotencyRecord caches a previously produced response so a retried
// request does not duplicate side effects. Unique per (tenant_id, key);
// never updated once written.
type IdempotencyRecord struct {
	TenantID           uuid.UUID `json:"tenant_id"`
	Key                string    `json:"key"`
	RequestFingerprint string    `json:"request_fingerprint"`
	Response           []byte    `json:"response"`
	ExpiresAt          time.Time `json:"expires_at"`
	CreatedAt          time.Time `json:"created_at"`
}

// IsExpired reports whether the record is past its TTL at the given time.
func (r *IdempotencyRecord) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// BuildIdempotencyKey constructs the tenant-scoped cache key.
func BuildIdempotencyKey(tenantID uuid.UUID, key string) string {
	return tenantID.String() + ":" + key
}

// Fingerprint hashes a canonical request body. A key reuse with a
// different fingerprint is a conflict, not a cache hit.
func Fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
