package provider

import (
	"context"
	"fmt"

	"payops-gateway/internal/core/ports"
	"payops-gateway/pkg/apperror"

	"github.com/google/uuid"
)

// Gateway implements ports.ProviderGateway over a fixed provider registry.
type Gateway struct {
	tenantRepo ports.TenantRepository
	providers  map[string]ports.PaymentProvider
}

// NewGateway builds the registry from the given providers.
func NewGateway(tenantRepo ports.TenantRepository, providers ...ports.PaymentProvider) *Gateway {
	registry := make(map[string]ports.PaymentProvider, len(providers))
	for _, p := range providers {
		registry[p.Name()] = p
	}
	return &Gateway{
		tenantRepo: tenantRepo,
		providers:  registry,
	}
}

// ForTenant resolves the tenant's configured provider.
func (g *Gateway) ForTenant(ctx context.Context, tenantID uuid.UUID) (ports.PaymentProvider, error) {
	tenant, err := g.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch tenant: %w", err))
	}
	if tenant == nil {
		return nil, apperror.ErrNotFound("tenant")
	}
	return g.ByName(tenant.Provider)
}

// ByName resolves a provider by its registry name.
func (g *Gateway) ByName(name string) (ports.PaymentProvider, error) {
	p, ok := g.providers[name]
	if !ok {
		return nil, apperror.ErrUnsupportedProvider(name)
	}
	return p, nil
}
