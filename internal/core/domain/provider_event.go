package domain

import "time"

// ProviderEvent is the append-only de-duplication ledger for inbound
// provider webhooks. Unique per (provider, event_id); the insert happens
// before any mutation and acts as the sole concurrency gate.
type ProviderEvent struct {
	EventID    string    `json:"event_id"`
	Provider   string    `json:"provider"`
	Type       string    `json:"type"`
	Payload    []byte    `json:"payload"`
	ReceivedAt time.Time `json:"received_at"`
}
