package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// HMACSignatureService implements ports.SignatureService using HMAC-SHA256.
type HMACSignatureService struct{}

// NewHMACSignatureService creates a new HMAC-SHA256 signature service.
func NewHMACSignatureService() *HMACSignatureService {
	return &HMACSignatureService{}
}

// Sign computes HMAC-SHA256 of payload using secret.
// Returns the base64-encoded MAC.
func (s *HMACSignatureService) Sign(secret string, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify checks if signature matches HMAC-SHA256(secret, payload).
// Uses constant-time comparison to prevent timing attacks.
func (s *HMACSignatureService) Verify(secret string, payload string, signature string) bool {
	supplied, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hmac.Equal(mac.Sum(nil), supplied)
}

// BuildCanonicalString constructs the canonical payload for signing.
// Format: METHOD|PATH|BODY|TIMESTAMP. Body is empty for GET/HEAD so a
// captured signature cannot be replayed against a different request.
func (s *HMACSignatureService) BuildCanonicalString(method, path, body, timestamp string) string {
	if method == "GET" || method == "HEAD" {
		body = ""
	}
	return fmt.Sprintf("%s|%s|%s|%s", method, path, body, timestamp)
}
