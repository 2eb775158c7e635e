package v1

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gurukulhq/gurukul/internal/domain"
	"github.com/gurukulhq/gurukul/internal/lifecycle"
	"github.com/gurukulhq/gurukul/internal/migrate"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store satisfies this interface.
type DataStore interface {
	Tenants() domain.TenantRepository
	Bindings() domain.DomainBindingRepository
	Operators() domain.OperatorRepository
}

// AuthService abstracts operator authentication for handler testing.
// *auth.Service satisfies this interface.
type AuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// Lifecycle abstracts the orchestrator for handler testing.
// *lifecycle.Orchestrator satisfies this interface.
type Lifecycle interface {
	Provision(ctx context.Context, in lifecycle.ProvisionInput) (*domain.Tenant, error)
	Rename(ctx context.Context, tenantID uuid.UUID, newSchema string) (*domain.Tenant, error)
	Clone(ctx context.Context, sourceID uuid.UUID, name, newSchema string) (*domain.Tenant, error)
	Suspend(ctx context.Context, tenantID uuid.UUID) error
	Reactivate(ctx context.Context, tenantID uuid.UUID) error
	Delete(ctx context.Context, tenantID uuid.UUID, grace time.Duration) error
	AddDomain(ctx context.Context, tenantID uuid.UUID, hostname string, primary bool) (*domain.DomainBinding, error)
	RevokeDomain(ctx context.Context, hostname string) error
	MigrateAll(ctx context.Context) (*migrate.Report, error)
	MigrateSchemas(ctx context.Context, schemas []string) *migrate.Report
	MigrationStatus(ctx context.Context) ([]migrate.SchemaStatus, error)
	Reconcile(ctx context.Context) (*lifecycle.ReconcileReport, error)
}
