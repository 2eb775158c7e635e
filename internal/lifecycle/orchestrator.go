package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"

	"github.com/gurukulhq/gurukul/internal/domain"
	"github.com/gurukulhq/gurukul/internal/migrate"
	"github.com/gurukulhq/gurukul/internal/tenancy"
)

// SchemaManager is the physical namespace surface the orchestrator
// drives. Implemented by the postgres store; faked in tests.
type SchemaManager interface {
	SupportsRename() bool
	CreateSchema(ctx context.Context, name string) error
	DropSchema(ctx context.Context, name string) error
	RenameSchema(ctx context.Context, from, to string) error
	SchemaExists(ctx context.Context, name string) (bool, error)
	ListSchemas(ctx context.Context) ([]string, error)
	CopyData(ctx context.Context, src, dst string) error
	CreateAdminUser(ctx context.Context, schema string, u *domain.User) error
}

// Migrator applies the versioned migration history.
type Migrator interface {
	ApplySchema(ctx context.Context, schema string) (applied, skipped int, err error)
	FanOut(ctx context.Context, schemas []string) *migrate.Report
	Status(ctx context.Context, schemas []string) []migrate.SchemaStatus
}

// Invalidator pushes resolver cache invalidations, locally and to peer
// instances.
type Invalidator interface {
	InvalidateHost(ctx context.Context, host string) error
	InvalidateAll(ctx context.Context) error
}

// Hasher derives a password hash for the initial tenant admin account.
type Hasher func(password string) (string, error)

// Orchestrator is the single writer for tenant and binding state. Every
// catalog mutation flows through here so the Namespace Store and the
// physical schema set move together.
type Orchestrator struct {
	tenants        domain.TenantRepository
	bindings       domain.DomainBindingRepository
	schemas        SchemaManager
	migrator       Migrator
	invalidator    Invalidator
	hash           Hasher
	clock          clock.Clock
	platformDomain string
	deleteGrace    time.Duration
}

// Options configures an Orchestrator.
type Options struct {
	PlatformDomain string
	DeleteGrace    time.Duration
	Clock          clock.Clock // nil for wall clock
}

func NewOrchestrator(
	tenants domain.TenantRepository,
	bindings domain.DomainBindingRepository,
	schemas SchemaManager,
	migrator Migrator,
	invalidator Invalidator,
	hash Hasher,
	opts Options,
) *Orchestrator {
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}

	return &Orchestrator{
		tenants:        tenants,
		bindings:       bindings,
		schemas:        schemas,
		migrator:       migrator,
		invalidator:    invalidator,
		hash:           hash,
		clock:          clk,
		platformDomain: strings.ToLower(opts.PlatformDomain),
		deleteGrace:    opts.DeleteGrace,
	}
}

// ProvisionInput describes a new tenant.
type ProvisionInput struct {
	Name          string
	SchemaName    string
	Hostname      string // optional; defaults to <schema>.<platform domain>
	Plan          string
	ContactEmail  string
	Trial         bool
	TrialDays     int
	AdminEmail    string
	AdminPassword string
}

// Provision creates a tenant end to end: catalog row in provisioning
// state, physical schema, full migration history, primary domain binding,
// and the initial admin account, then flips the status to active (or
// trial). Any step failure rolls the partial namespace back so the
// catalog and the physical schema set never disagree.
func (o *Orchestrator) Provision(ctx context.Context, in ProvisionInput) (*domain.Tenant, error) {
	if !domain.ValidSchemaName(in.SchemaName) || in.SchemaName == tenancy.PlatformSchemaName {
		return nil, fmt.Errorf("lifecycle.Provision: schema %q: %w", in.SchemaName, domain.ErrIdentifierConflict)
	}

	hostname := strings.ToLower(in.Hostname)
	if hostname == "" {
		hostname = in.SchemaName + "." + o.platformDomain
	}
	plan := in.Plan
	if plan == "" {
		plan = domain.PlanBasic
	}

	now := o.clock.Now()
	t := &domain.Tenant{
		ID:           uuid.New(),
		Name:         in.Name,
		SchemaName:   in.SchemaName,
		Status:       domain.TenantStatusProvisioning,
		Plan:         plan,
		MaxUsers:     10,
		MaxStorageMB: 1024,
		ContactEmail: in.ContactEmail,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Trial {
		days := in.TrialDays
		if days <= 0 {
			days = 30
		}
		ends := now.AddDate(0, 0, days)
		t.TrialEndsAt = &ends
	}

	b := &domain.DomainBinding{
		ID:        uuid.New(),
		TenantID:  t.ID,
		Hostname:  hostname,
		IsPrimary: true,
		CreatedAt: now,
	}

	// Catalog row first: the unique index on schema_name is what makes
	// identifier conflicts (tombstones included) fail fast, before any
	// physical work.
	err := o.tenants.CreateWithBinding(ctx, t, b)
	if err != nil {
		if errors.Is(err, domain.ErrIdentifierConflict) || errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("lifecycle.Provision: %w", err)
		}
		return nil, fmt.Errorf("lifecycle.Provision: catalog: %w", err)
	}

	err = o.schemas.CreateSchema(ctx, t.SchemaName)
	if err != nil {
		o.rollbackProvision(ctx, t, false)
		return nil, fmt.Errorf("lifecycle.Provision: create schema: %w: %w", domain.ErrProvisionFailed, err)
	}

	_, _, err = o.migrator.ApplySchema(ctx, t.SchemaName)
	if err != nil {
		o.rollbackProvision(ctx, t, true)
		return nil, fmt.Errorf("lifecycle.Provision: migrate: %w: %w", domain.ErrProvisionFailed, err)
	}

	hash, err := o.hash(in.AdminPassword)
	if err == nil {
		admin := &domain.User{
			ID:           uuid.New(),
			Email:        in.AdminEmail,
			PasswordHash: hash,
			Name:         in.Name + " Admin",
			Role:         "admin",
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		err = o.schemas.CreateAdminUser(ctx, t.SchemaName, admin)
	}
	if err != nil {
		o.rollbackProvision(ctx, t, true)
		return nil, fmt.Errorf("lifecycle.Provision: admin account: %w: %w", domain.ErrProvisionFailed, err)
	}

	if in.Trial {
		t.Status = domain.TenantStatusTrial
	} else {
		t.Status = domain.TenantStatusActive
	}
	err = o.tenants.Update(ctx, t)
	if err != nil {
		o.rollbackProvision(ctx, t, true)
		return nil, fmt.Errorf("lifecycle.Provision: activate: %w: %w", domain.ErrProvisionFailed, err)
	}

	o.invalidateHost(ctx, hostname)
	log.Info().Str("schema", t.SchemaName).Str("hostname", hostname).Str("status", string(t.Status)).
		Msg("tenant provisioned")

	return t, nil
}

// rollbackProvision undoes a half-built namespace. The catalog row goes
// too: a tenant that never finished provisioning has no data under its
// identifier, so the identifier stays reusable.
func (o *Orchestrator) rollbackProvision(ctx context.Context, t *domain.Tenant, dropSchema bool) {
	if dropSchema {
		err := o.schemas.DropSchema(ctx, t.SchemaName)
		if err != nil {
			log.Error().Err(err).Str("schema", t.SchemaName).
				Msg("provision rollback: drop schema failed, reconciliation will flag it")
		}
	}

	err := o.tenants.Delete(ctx, t.ID)
	if err != nil {
		log.Error().Err(err).Str("schema", t.SchemaName).Msg("provision rollback: catalog delete failed")
	}
}

// Rename changes a tenant's schema identifier in place. Only available
// when the storage engine can rename without data loss; otherwise the
// caller must Clone and Delete.
func (o *Orchestrator) Rename(ctx context.Context, tenantID uuid.UUID, newSchema string) (*domain.Tenant, error) {
	if !o.schemas.SupportsRename() {
		return nil, fmt.Errorf("lifecycle.Rename: %w", domain.ErrRenameUnsupported)
	}
	if !domain.ValidSchemaName(newSchema) || newSchema == tenancy.PlatformSchemaName {
		return nil, fmt.Errorf("lifecycle.Rename: schema %q: %w", newSchema, domain.ErrIdentifierConflict)
	}

	t, err := o.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("lifecycle.Rename: %w", err)
	}
	if t.Deleted() {
		return nil, fmt.Errorf("lifecycle.Rename: tenant deleted: %w", domain.ErrConflict)
	}

	_, err = o.tenants.GetBySchemaName(ctx, newSchema)
	if err == nil {
		return nil, fmt.Errorf("lifecycle.Rename: %w", domain.ErrIdentifierConflict)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lifecycle.Rename: %w", err)
	}

	oldSchema := t.SchemaName
	err = o.schemas.RenameSchema(ctx, oldSchema, newSchema)
	if err != nil {
		return nil, fmt.Errorf("lifecycle.Rename: %w", err)
	}

	t.SchemaName = newSchema
	err = o.tenants.Update(ctx, t)
	if err != nil {
		// Physical rename succeeded but the catalog did not follow; put
		// the schema back so the two stay in agreement.
		if undoErr := o.schemas.RenameSchema(ctx, newSchema, oldSchema); undoErr != nil {
			log.Error().Err(undoErr).Str("schema", newSchema).
				Msg("rename undo failed, reconciliation will flag it")
		}
		return nil, fmt.Errorf("lifecycle.Rename: catalog: %w", err)
	}

	o.invalidateAll(ctx)
	log.Info().Str("from", oldSchema).Str("to", newSchema).Msg("tenant renamed")

	return t, nil
}

// Clone copies a tenant's full namespace contents into a new tenant.
// The copy shares no storage with the source; it is a fresh schema
// migrated to head and bulk-loaded from the source's rows.
func (o *Orchestrator) Clone(ctx context.Context, sourceID uuid.UUID, name, newSchema string) (*domain.Tenant, error) {
	if !domain.ValidSchemaName(newSchema) || newSchema == tenancy.PlatformSchemaName {
		return nil, fmt.Errorf("lifecycle.Clone: schema %q: %w", newSchema, domain.ErrIdentifierConflict)
	}

	src, err := o.tenants.GetByID(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("lifecycle.Clone: %w", err)
	}
	if src.Deleted() {
		return nil, fmt.Errorf("lifecycle.Clone: source deleted: %w", domain.ErrConflict)
	}

	now := o.clock.Now()
	t := &domain.Tenant{
		ID:           uuid.New(),
		Name:         name,
		SchemaName:   newSchema,
		Status:       domain.TenantStatusProvisioning,
		Plan:         src.Plan,
		MaxUsers:     src.MaxUsers,
		MaxStorageMB: src.MaxStorageMB,
		ContactEmail: src.ContactEmail,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	b := &domain.DomainBinding{
		ID:        uuid.New(),
		TenantID:  t.ID,
		Hostname:  newSchema + "." + o.platformDomain,
		IsPrimary: true,
		CreatedAt: now,
	}

	err = o.tenants.CreateWithBinding(ctx, t, b)
	if err != nil {
		if errors.Is(err, domain.ErrIdentifierConflict) || errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("lifecycle.Clone: %w", err)
		}
		return nil, fmt.Errorf("lifecycle.Clone: catalog: %w", err)
	}

	err = o.schemas.CreateSchema(ctx, newSchema)
	if err != nil {
		o.rollbackProvision(ctx, t, false)
		return nil, fmt.Errorf("lifecycle.Clone: create schema: %w: %w", domain.ErrProvisionFailed, err)
	}

	_, _, err = o.migrator.ApplySchema(ctx, newSchema)
	if err != nil {
		o.rollbackProvision(ctx, t, true)
		return nil, fmt.Errorf("lifecycle.Clone: migrate: %w: %w", domain.ErrProvisionFailed, err)
	}

	err = o.schemas.CopyData(ctx, src.SchemaName, newSchema)
	if err != nil {
		o.rollbackProvision(ctx, t, true)
		return nil, fmt.Errorf("lifecycle.Clone: copy: %w: %w", domain.ErrProvisionFailed, err)
	}

	t.Status = domain.TenantStatusActive
	err = o.tenants.Update(ctx, t)
	if err != nil {
		o.rollbackProvision(ctx, t, true)
		return nil, fmt.Errorf("lifecycle.Clone: activate: %w: %w", domain.ErrProvisionFailed, err)
	}

	o.invalidateHost(ctx, b.Hostname)
	log.Info().Str("source", src.SchemaName).Str("schema", newSchema).Msg("tenant cloned")

	return t, nil
}

// AddDomain binds an extra hostname to a tenant, optionally promoting it
// to primary.
func (o *Orchestrator) AddDomain(ctx context.Context, tenantID uuid.UUID, hostname string, primary bool) (*domain.DomainBinding, error) {
	t, err := o.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("lifecycle.AddDomain: %w", err)
	}
	if t.Deleted() {
		return nil, fmt.Errorf("lifecycle.AddDomain: tenant deleted: %w", domain.ErrConflict)
	}

	b := &domain.DomainBinding{
		ID:        uuid.New(),
		TenantID:  t.ID,
		Hostname:  strings.ToLower(hostname),
		CreatedAt: o.clock.Now(),
	}

	err = o.bindings.Create(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("lifecycle.AddDomain: %w", err)
	}

	if primary {
		err = o.bindings.SetPrimary(ctx, b.ID)
		if err != nil {
			return nil, fmt.Errorf("lifecycle.AddDomain: %w", err)
		}
		b.IsPrimary = true
	}

	o.invalidateHost(ctx, b.Hostname)
	return b, nil
}

// RevokeDomain removes one hostname binding.
func (o *Orchestrator) RevokeDomain(ctx context.Context, hostname string) error {
	hostname = strings.ToLower(hostname)

	err := o.bindings.Delete(ctx, hostname)
	if err != nil {
		return fmt.Errorf("lifecycle.RevokeDomain: %w", err)
	}

	o.invalidateHost(ctx, hostname)
	return nil
}

// Suspend toggles the tenant to suspended. Data and bindings stay put;
// the binder refuses access on its next status check.
func (o *Orchestrator) Suspend(ctx context.Context, tenantID uuid.UUID) error {
	return o.setStatus(ctx, tenantID, domain.TenantStatusSuspended, "tenant suspended")
}

// Reactivate reverses a suspension. A tenant suspended mid-trial goes
// back to trial, not straight to a paying status.
func (o *Orchestrator) Reactivate(ctx context.Context, tenantID uuid.UUID) error {
	t, err := o.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("lifecycle.Reactivate: %w", err)
	}

	next := domain.TenantStatusActive
	if t.TrialEndsAt != nil && t.TrialEndsAt.After(o.clock.Now()) {
		next = domain.TenantStatusTrial
	}

	return o.setStatus(ctx, tenantID, next, "tenant reactivated")
}

func (o *Orchestrator) setStatus(ctx context.Context, tenantID uuid.UUID, next domain.TenantStatus, msg string) error {
	t, err := o.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("lifecycle.setStatus: %w", err)
	}
	if !t.Status.ValidTransition(next) {
		return fmt.Errorf("lifecycle.setStatus: %s -> %s: %w", t.Status, next, domain.ErrConflict)
	}

	t.Status = next
	t.UpdatedAt = o.clock.Now()
	err = o.tenants.Update(ctx, t)
	if err != nil {
		return fmt.Errorf("lifecycle.setStatus: %w", err)
	}

	o.invalidateAll(ctx)
	log.Info().Str("schema", t.SchemaName).Msg(msg)

	return nil
}

// Delete tombstones the tenant immediately and schedules the physical
// drop after the grace period. grace < 0 uses the configured default;
// grace 0 purges synchronously. Irreversible deletion is never immediate
// by default so an accidental delete stays recoverable.
func (o *Orchestrator) Delete(ctx context.Context, tenantID uuid.UUID, grace time.Duration) error {
	t, err := o.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("lifecycle.Delete: %w", err)
	}
	if t.SchemaName == tenancy.PlatformSchemaName {
		return fmt.Errorf("lifecycle.Delete: refusing platform tenant: %w", domain.ErrConflict)
	}
	if !t.Status.ValidTransition(domain.TenantStatusDeleted) {
		return fmt.Errorf("lifecycle.Delete: %s -> deleted: %w", t.Status, domain.ErrConflict)
	}

	if grace < 0 {
		grace = o.deleteGrace
	}

	purgeAt := o.clock.Now().Add(grace)
	t.Status = domain.TenantStatusDeleted
	t.PurgeAfter = &purgeAt
	err = o.tenants.Update(ctx, t)
	if err != nil {
		return fmt.Errorf("lifecycle.Delete: %w", err)
	}

	o.invalidateAll(ctx)
	log.Info().Str("schema", t.SchemaName).Time("purge_after", purgeAt).Msg("tenant deleted")

	if grace == 0 {
		err = o.Purge(ctx, t)
		if err != nil {
			return fmt.Errorf("lifecycle.Delete: %w", err)
		}
	}

	return nil
}

// Purge physically drops a tombstoned tenant's schema and bindings. The
// tenant row stays behind as a tombstone so the identifier is never
// reassigned.
func (o *Orchestrator) Purge(ctx context.Context, t *domain.Tenant) error {
	if !t.Deleted() {
		return fmt.Errorf("lifecycle.Purge: tenant %q not deleted: %w", t.SchemaName, domain.ErrConflict)
	}

	err := o.schemas.DropSchema(ctx, t.SchemaName)
	if err != nil {
		return fmt.Errorf("lifecycle.Purge: %w", err)
	}

	err = o.bindings.DeleteByTenant(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("lifecycle.Purge: bindings: %w", err)
	}

	t.PurgeAfter = nil
	err = o.tenants.Update(ctx, t)
	if err != nil {
		return fmt.Errorf("lifecycle.Purge: tombstone: %w", err)
	}

	o.invalidateAll(ctx)
	log.Info().Str("schema", t.SchemaName).Msg("tenant schema purged")

	return nil
}

// MigrateAll fans the pending migration history out across every tenant
// whose status allows it. Suspended tenants still receive migrations so
// reactivation never lands on a stale schema.
func (o *Orchestrator) MigrateAll(ctx context.Context) (*migrate.Report, error) {
	tenants, err := o.tenants.ListByStatus(ctx,
		domain.TenantStatusActive, domain.TenantStatusTrial, domain.TenantStatusSuspended)
	if err != nil {
		return nil, fmt.Errorf("lifecycle.MigrateAll: %w", err)
	}

	schemas := make([]string, 0, len(tenants))
	for _, t := range tenants {
		if t.SchemaName == tenancy.PlatformSchemaName {
			continue
		}
		schemas = append(schemas, t.SchemaName)
	}

	return o.migrator.FanOut(ctx, schemas), nil
}

// MigrationStatus reports each live tenant schema's recorded migration
// version against the registered head, without applying anything.
func (o *Orchestrator) MigrationStatus(ctx context.Context) ([]migrate.SchemaStatus, error) {
	tenants, err := o.tenants.ListByStatus(ctx,
		domain.TenantStatusActive, domain.TenantStatusTrial, domain.TenantStatusSuspended)
	if err != nil {
		return nil, fmt.Errorf("lifecycle.MigrationStatus: %w", err)
	}

	schemas := make([]string, 0, len(tenants))
	for _, t := range tenants {
		if t.SchemaName == tenancy.PlatformSchemaName {
			continue
		}
		schemas = append(schemas, t.SchemaName)
	}

	return o.migrator.Status(ctx, schemas), nil
}

// MigrateSchemas re-targets the fan-out at an explicit schema list,
// typically the failures from a previous report.
func (o *Orchestrator) MigrateSchemas(ctx context.Context, schemas []string) *migrate.Report {
	return o.migrator.FanOut(ctx, schemas)
}

// ReconcileReport lists disagreements between the catalog and the
// physical schema set.
type ReconcileReport struct {
	// Missing schemas have a live catalog row but no physical schema.
	Missing []string `json:"missing"`
	// Orphaned schemas exist physically with no live catalog row.
	Orphaned []string `json:"orphaned"`
}

// Reconcile compares the catalog against the physical schema list. A
// mismatch is reported, never repaired: auto-dropping an orphan or
// re-creating a missing schema both risk data loss, so the resolution is
// an operator's call.
func (o *Orchestrator) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	tenants, err := o.tenants.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("lifecycle.Reconcile: %w", err)
	}

	expected := make(map[string]bool, len(tenants))
	for _, t := range tenants {
		if t.SchemaName == tenancy.PlatformSchemaName {
			continue
		}
		// Deleted tenants keep their schema until purged.
		if t.Deleted() && t.PurgeAfter == nil {
			continue
		}
		expected[t.SchemaName] = true
	}

	actual, err := o.schemas.ListSchemas(ctx)
	if err != nil {
		return nil, fmt.Errorf("lifecycle.Reconcile: %w", err)
	}

	report := &ReconcileReport{}
	actualSet := make(map[string]bool, len(actual))
	for _, s := range actual {
		actualSet[s] = true
		if !expected[s] {
			report.Orphaned = append(report.Orphaned, s)
		}
	}
	for s := range expected {
		if !actualSet[s] {
			report.Missing = append(report.Missing, s)
		}
	}

	if len(report.Missing) > 0 || len(report.Orphaned) > 0 {
		log.Error().Strs("missing", report.Missing).Strs("orphaned", report.Orphaned).
			Msg("reconciliation mismatch")
		return report, fmt.Errorf("lifecycle.Reconcile: %w", domain.ErrReconciliationMismatch)
	}

	return report, nil
}

// ReapExpired purges every tombstoned tenant whose grace period has
// elapsed. Per-tenant failures are aggregated, not fatal to the sweep.
func (o *Orchestrator) ReapExpired(ctx context.Context) error {
	tenants, err := o.tenants.ListPurgeable(ctx, o.clock.Now())
	if err != nil {
		return fmt.Errorf("lifecycle.ReapExpired: %w", err)
	}

	var errs *multierror.Error
	for _, t := range tenants {
		err = o.Purge(ctx, t)
		if err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	return errs.ErrorOrNil()
}

func (o *Orchestrator) invalidateHost(ctx context.Context, host string) {
	if o.invalidator == nil {
		return
	}
	if err := o.invalidator.InvalidateHost(ctx, host); err != nil {
		log.Warn().Err(err).Str("host", host).Msg("cache invalidation failed")
	}
}

func (o *Orchestrator) invalidateAll(ctx context.Context) {
	if o.invalidator == nil {
		return
	}
	if err := o.invalidator.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("cache invalidation failed")
	}
}
