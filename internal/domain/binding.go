package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DomainBinding maps one routable hostname to exactly one tenant.
// Hostname uniqueness is global, including the platform's own reserved
// hostnames. Exactly one binding per tenant is primary; the primary
// hostname is canonical for redirects.
type DomainBinding struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Hostname  string
	IsPrimary bool
	CreatedAt time.Time
}

type DomainBindingRepository interface {
	Create(ctx context.Context, b *DomainBinding) error
	GetByHostname(ctx context.Context, hostname string) (*DomainBinding, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*DomainBinding, error)
	// SetPrimary marks the binding primary and demotes the tenant's
	// previous primary in the same transaction.
	SetPrimary(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, hostname string) error
	DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error
}
