package domain

import (
	"time"

	"github.com/google/uuid"
)

// TenantStatus represents the state of a tenant organization.
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "ACTIVE"
	TenantStatusSuspended TenantStatus = "SUSPENDED"
)

// Tenant is an isolated customer organization. All financial records are
// scoped to exactly one tenant.
type Tenant struct {
	ID        uuid.UUID    `json:"id"`
	Name      string       `json:"name"`
	Status    TenantStatus `json:"status"`
	Provider  string       `json:"provider"` // active payment provider, e.g. "stripe"
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// IsActive returns true if the tenant account is active.
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}
