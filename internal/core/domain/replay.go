package domain

import "time"

// ReplayCacheEntry records an accepted request signature so the exact
// signed request cannot be accepted twice. Durable rows with a uniqueness
// constraint, not an in-memory cache, so the guarantee holds across
// handler instances. Entries older than the drift window are pruned.
type ReplayCacheEntry struct {
	SignatureHash string    `json:"signature_hash"`
	PlatformID    string    `json:"platform_id"`
	Timestamp     time.Time `json:"timestamp"`
}
