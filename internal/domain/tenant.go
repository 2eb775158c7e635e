package domain

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// TenantStatus is the lifecycle state of a tenant.
type TenantStatus string

const (
	TenantStatusProvisioning TenantStatus = "provisioning"
	TenantStatusActive       TenantStatus = "active"
	TenantStatusTrial        TenantStatus = "trial"
	TenantStatusSuspended    TenantStatus = "suspended"
	TenantStatusDeleted      TenantStatus = "deleted"
)

// ValidTransition reports whether moving from s to next is allowed.
// Deleted is terminal; a deleted schema name is never reassigned.
func (s TenantStatus) ValidTransition(next TenantStatus) bool {
	switch s {
	case TenantStatusProvisioning:
		return next == TenantStatusActive || next == TenantStatusTrial || next == TenantStatusDeleted
	case TenantStatusActive:
		return next == TenantStatusSuspended || next == TenantStatusDeleted
	case TenantStatusTrial:
		return next == TenantStatusActive || next == TenantStatusSuspended || next == TenantStatusDeleted
	case TenantStatusSuspended:
		return next == TenantStatusActive || next == TenantStatusTrial || next == TenantStatusDeleted
	default:
		return false
	}
}

// Routable reports whether requests resolved to this status may touch
// tenant data. Suspended and deleted tenants still resolve (so the edge
// can render an informative page) but must not be bound.
func (s TenantStatus) Routable() bool {
	return s == TenantStatusActive || s == TenantStatusTrial || s == TenantStatusProvisioning
}

// Plan tiers carried over from the subscription model.
const (
	PlanBasic        = "basic"
	PlanProfessional = "professional"
	PlanEnterprise   = "enterprise"
)

// Tenant is one isolated customer namespace. SchemaName identifies the
// Postgres schema holding the tenant's rows; it is immutable once any
// migration has run against it and is tombstoned on delete so it can
// never be reassigned to a different organization.
type Tenant struct {
	ID           uuid.UUID
	Name         string
	SchemaName   string
	Status       TenantStatus
	Plan         string
	MaxUsers     int
	MaxStorageMB int
	ContactEmail string
	TrialEndsAt  *time.Time // nullable
	PurgeAfter   *time.Time // set when status is deleted; schema dropped past this instant
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Deleted reports whether the tenant row is a tombstone.
func (t *Tenant) Deleted() bool {
	return t.Status == TenantStatusDeleted
}

// schemaNameRe matches Postgres-safe schema identifiers: lowercase,
// starts with a letter, 63 bytes max (Postgres identifier limit).
var schemaNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// ValidSchemaName reports whether s is usable as a tenant schema name.
func ValidSchemaName(s string) bool {
	return schemaNameRe.MatchString(s)
}

type TenantRepository interface {
	Create(ctx context.Context, t *Tenant) error
	// CreateWithBinding inserts the tenant row and its primary domain
	// binding atomically. A duplicate schema name or hostname reports
	// ErrIdentifierConflict / ErrConflict respectively.
	CreateWithBinding(ctx context.Context, t *Tenant, b *DomainBinding) error
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	GetBySchemaName(ctx context.Context, schema string) (*Tenant, error)
	Update(ctx context.Context, t *Tenant) error
	// Delete removes a tenant row entirely. Only valid for rows that never
	// completed provisioning; completed tenants are tombstoned via Update.
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*Tenant, error)
	// ListByStatus returns tenants whose status is one of the given set.
	ListByStatus(ctx context.Context, statuses ...TenantStatus) ([]*Tenant, error)
	// ListPurgeable returns deleted tenants whose grace period elapsed
	// before the given instant and whose schema still exists.
	ListPurgeable(ctx context.Context, now time.Time) ([]*Tenant, error)
}
