package v1_test

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gurukulhq/gurukul/internal/domain"
	"github.com/gurukulhq/gurukul/internal/lifecycle"
	"github.com/gurukulhq/gurukul/internal/migrate"
	"github.com/gurukulhq/gurukul/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Context helpers — inject operator capabilities for DoCtx requests.
// ---------------------------------------------------------------------------

func operatorCtx(caps ...string) context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, middleware.ContextKeyOperatorID, uuid.New())
	ctx = context.WithValue(ctx, middleware.ContextKeyCapabilities, caps)
	return ctx
}

func adminCtx() context.Context {
	return operatorCtx(middleware.CapTenantsRead, middleware.CapTenantsWrite, middleware.CapMigrationsRun)
}

func readOnlyCtx() context.Context {
	return operatorCtx(middleware.CapTenantsRead)
}

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	tenants   domain.TenantRepository
	bindings  domain.DomainBindingRepository
	operators domain.OperatorRepository
}

func (m *mockDataStore) Tenants() domain.TenantRepository         { return m.tenants }
func (m *mockDataStore) Bindings() domain.DomainBindingRepository { return m.bindings }
func (m *mockDataStore) Operators() domain.OperatorRepository     { return m.operators }

// ---------------------------------------------------------------------------
// Mock TenantRepository
// ---------------------------------------------------------------------------

type mockTenantRepo struct {
	getByIDFunc func(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	listFunc    func(ctx context.Context) ([]*domain.Tenant, error)
}

func (m *mockTenantRepo) Create(context.Context, *domain.Tenant) error { return nil }

func (m *mockTenantRepo) CreateWithBinding(context.Context, *domain.Tenant, *domain.DomainBinding) error {
	return nil
}

func (m *mockTenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockTenantRepo) GetBySchemaName(context.Context, string) (*domain.Tenant, error) {
	return nil, domain.ErrNotFound
}

func (m *mockTenantRepo) Update(context.Context, *domain.Tenant) error { return nil }

func (m *mockTenantRepo) Delete(context.Context, uuid.UUID) error { return nil }

func (m *mockTenantRepo) List(ctx context.Context) ([]*domain.Tenant, error) {
	return m.listFunc(ctx)
}

func (m *mockTenantRepo) ListByStatus(context.Context, ...domain.TenantStatus) ([]*domain.Tenant, error) {
	return nil, nil
}

func (m *mockTenantRepo) ListPurgeable(context.Context, time.Time) ([]*domain.Tenant, error) {
	return nil, nil
}

// ---------------------------------------------------------------------------
// Mock DomainBindingRepository
// ---------------------------------------------------------------------------

type mockBindingRepo struct {
	listByTenantFunc func(ctx context.Context, tenantID uuid.UUID) ([]*domain.DomainBinding, error)
}

func (m *mockBindingRepo) Create(context.Context, *domain.DomainBinding) error { return nil }

func (m *mockBindingRepo) GetByHostname(context.Context, string) (*domain.DomainBinding, error) {
	return nil, domain.ErrNotFound
}

func (m *mockBindingRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.DomainBinding, error) {
	return m.listByTenantFunc(ctx, tenantID)
}

func (m *mockBindingRepo) SetPrimary(context.Context, uuid.UUID) error { return nil }

func (m *mockBindingRepo) Delete(context.Context, string) error { return nil }

func (m *mockBindingRepo) DeleteByTenant(context.Context, uuid.UUID) error { return nil }

// ---------------------------------------------------------------------------
// Mock Lifecycle
// ---------------------------------------------------------------------------

type mockLifecycle struct {
	provisionFunc       func(ctx context.Context, in lifecycle.ProvisionInput) (*domain.Tenant, error)
	renameFunc          func(ctx context.Context, tenantID uuid.UUID, newSchema string) (*domain.Tenant, error)
	cloneFunc           func(ctx context.Context, sourceID uuid.UUID, name, newSchema string) (*domain.Tenant, error)
	suspendFunc         func(ctx context.Context, tenantID uuid.UUID) error
	reactivateFunc      func(ctx context.Context, tenantID uuid.UUID) error
	deleteFunc          func(ctx context.Context, tenantID uuid.UUID, grace time.Duration) error
	addDomainFunc       func(ctx context.Context, tenantID uuid.UUID, hostname string, primary bool) (*domain.DomainBinding, error)
	revokeDomainFunc    func(ctx context.Context, hostname string) error
	migrateAllFunc      func(ctx context.Context) (*migrate.Report, error)
	migrateSchemasFunc  func(ctx context.Context, schemas []string) *migrate.Report
	migrationStatusFunc func(ctx context.Context) ([]migrate.SchemaStatus, error)
	reconcileFunc       func(ctx context.Context) (*lifecycle.ReconcileReport, error)
}

func (m *mockLifecycle) Provision(ctx context.Context, in lifecycle.ProvisionInput) (*domain.Tenant, error) {
	return m.provisionFunc(ctx, in)
}

func (m *mockLifecycle) Rename(ctx context.Context, tenantID uuid.UUID, newSchema string) (*domain.Tenant, error) {
	return m.renameFunc(ctx, tenantID, newSchema)
}

func (m *mockLifecycle) Clone(ctx context.Context, sourceID uuid.UUID, name, newSchema string) (*domain.Tenant, error) {
	return m.cloneFunc(ctx, sourceID, name, newSchema)
}

func (m *mockLifecycle) Suspend(ctx context.Context, tenantID uuid.UUID) error {
	return m.suspendFunc(ctx, tenantID)
}

func (m *mockLifecycle) Reactivate(ctx context.Context, tenantID uuid.UUID) error {
	return m.reactivateFunc(ctx, tenantID)
}

func (m *mockLifecycle) Delete(ctx context.Context, tenantID uuid.UUID, grace time.Duration) error {
	return m.deleteFunc(ctx, tenantID, grace)
}

func (m *mockLifecycle) AddDomain(ctx context.Context, tenantID uuid.UUID, hostname string, primary bool) (*domain.DomainBinding, error) {
	return m.addDomainFunc(ctx, tenantID, hostname, primary)
}

func (m *mockLifecycle) RevokeDomain(ctx context.Context, hostname string) error {
	return m.revokeDomainFunc(ctx, hostname)
}

func (m *mockLifecycle) MigrateAll(ctx context.Context) (*migrate.Report, error) {
	return m.migrateAllFunc(ctx)
}

func (m *mockLifecycle) MigrateSchemas(ctx context.Context, schemas []string) *migrate.Report {
	return m.migrateSchemasFunc(ctx, schemas)
}

func (m *mockLifecycle) MigrationStatus(ctx context.Context) ([]migrate.SchemaStatus, error) {
	return m.migrationStatusFunc(ctx)
}

func (m *mockLifecycle) Reconcile(ctx context.Context) (*lifecycle.ReconcileReport, error) {
	return m.reconcileFunc(ctx)
}
