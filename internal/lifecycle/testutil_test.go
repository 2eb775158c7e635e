package lifecycle_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gurukulhq/gurukul/internal/domain"
	"github.com/gurukulhq/gurukul/internal/migrate"
)

// ---------------------------------------------------------------------------
// In-memory catalog fakes. CreateWithBinding enforces the same uniqueness
// the real catalog does, tombstones included.
// ---------------------------------------------------------------------------

type memTenantRepo struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*domain.Tenant
	bindings *memBindingRepo
}

func newMemTenantRepo(bindings *memBindingRepo, tenants ...*domain.Tenant) *memTenantRepo {
	m := &memTenantRepo{byID: make(map[uuid.UUID]*domain.Tenant), bindings: bindings}
	for _, t := range tenants {
		m.byID[t.ID] = t
	}
	return m
}

func (m *memTenantRepo) Create(_ context.Context, t *domain.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.byID {
		if other.SchemaName == t.SchemaName {
			return domain.ErrIdentifierConflict
		}
	}
	cp := *t
	m.byID[t.ID] = &cp
	return nil
}

func (m *memTenantRepo) CreateWithBinding(ctx context.Context, t *domain.Tenant, b *domain.DomainBinding) error {
	if err := m.Create(ctx, t); err != nil {
		return err
	}
	if err := m.bindings.Create(ctx, b); err != nil {
		m.mu.Lock()
		delete(m.byID, t.ID)
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memTenantRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTenantRepo) GetBySchemaName(_ context.Context, schema string) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.byID {
		if t.SchemaName == schema {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memTenantRepo) Update(_ context.Context, t *domain.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[t.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *t
	m.byID[t.ID] = &cp
	return nil
}

func (m *memTenantRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memTenantRepo) List(_ context.Context) ([]*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Tenant, 0, len(m.byID))
	for _, t := range m.byID {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memTenantRepo) ListByStatus(_ context.Context, statuses ...domain.TenantStatus) ([]*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Tenant
	for _, t := range m.byID {
		for _, s := range statuses {
			if t.Status == s {
				cp := *t
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

func (m *memTenantRepo) ListPurgeable(_ context.Context, now time.Time) ([]*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Tenant
	for _, t := range m.byID {
		if t.Status == domain.TenantStatusDeleted && t.PurgeAfter != nil && t.PurgeAfter.Before(now) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memBindingRepo struct {
	mu     sync.Mutex
	byHost map[string]*domain.DomainBinding
}

func newMemBindingRepo() *memBindingRepo {
	return &memBindingRepo{byHost: make(map[string]*domain.DomainBinding)}
}

func (m *memBindingRepo) Create(_ context.Context, b *domain.DomainBinding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	host := strings.ToLower(b.Hostname)
	if _, ok := m.byHost[host]; ok {
		return domain.ErrConflict
	}
	cp := *b
	m.byHost[host] = &cp
	return nil
}

func (m *memBindingRepo) GetByHostname(_ context.Context, hostname string) (*domain.DomainBinding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.byHost[strings.ToLower(hostname)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memBindingRepo) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]*domain.DomainBinding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.DomainBinding
	for _, b := range m.byHost {
		if b.TenantID == tenantID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memBindingRepo) SetPrimary(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var target *domain.DomainBinding
	for _, b := range m.byHost {
		if b.ID == id {
			target = b
			break
		}
	}
	if target == nil {
		return domain.ErrNotFound
	}
	for _, b := range m.byHost {
		if b.TenantID == target.TenantID {
			b.IsPrimary = b.ID == id
		}
	}
	return nil
}

func (m *memBindingRepo) Delete(_ context.Context, hostname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	host := strings.ToLower(hostname)
	if _, ok := m.byHost[host]; !ok {
		return domain.ErrNotFound
	}
	delete(m.byHost, host)
	return nil
}

func (m *memBindingRepo) DeleteByTenant(_ context.Context, tenantID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for host, b := range m.byHost {
		if b.TenantID == tenantID {
			delete(m.byHost, host)
		}
	}
	return nil
}

func (m *memBindingRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byHost)
}

// ---------------------------------------------------------------------------
// Fake physical schema manager.
// ---------------------------------------------------------------------------

type fakeSchemaManager struct {
	mu         sync.Mutex
	schemas    map[string]bool
	admins     map[string]string // schema -> admin email
	copies     [][2]string       // src, dst pairs
	renameable bool
	failCreate bool
	failCopy   bool
	failDrop   map[string]bool
}

func newFakeSchemaManager(existing ...string) *fakeSchemaManager {
	m := &fakeSchemaManager{
		schemas:    make(map[string]bool),
		admins:     make(map[string]string),
		renameable: true,
		failDrop:   make(map[string]bool),
	}
	for _, s := range existing {
		m.schemas[s] = true
	}
	return m
}

func (f *fakeSchemaManager) SupportsRename() bool { return f.renameable }

func (f *fakeSchemaManager) CreateSchema(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return errors.New("permission denied for database")
	}
	if f.schemas[name] {
		return fmt.Errorf("schema %q exists", name)
	}
	f.schemas[name] = true
	return nil
}

func (f *fakeSchemaManager) DropSchema(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDrop[name] {
		return errors.New("schema busy")
	}
	delete(f.schemas, name)
	delete(f.admins, name)
	return nil
}

func (f *fakeSchemaManager) RenameSchema(_ context.Context, from, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.schemas[from] {
		return fmt.Errorf("schema %q missing", from)
	}
	if f.schemas[to] {
		return fmt.Errorf("schema %q exists", to)
	}
	delete(f.schemas, from)
	f.schemas[to] = true
	f.admins[to] = f.admins[from]
	delete(f.admins, from)
	return nil
}

func (f *fakeSchemaManager) SchemaExists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.schemas[name], nil
}

func (f *fakeSchemaManager) ListSchemas(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.schemas))
	for s := range f.schemas {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSchemaManager) CopyData(_ context.Context, src, dst string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCopy {
		return errors.New("deadlock detected")
	}
	if !f.schemas[src] || !f.schemas[dst] {
		return fmt.Errorf("copy %s -> %s: schema missing", src, dst)
	}
	f.copies = append(f.copies, [2]string{src, dst})
	return nil
}

func (f *fakeSchemaManager) CreateAdminUser(_ context.Context, schema string, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.schemas[schema] {
		return fmt.Errorf("schema %q missing", schema)
	}
	f.admins[schema] = u.Email
	return nil
}

func (f *fakeSchemaManager) exists(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.schemas[name]
}

// ---------------------------------------------------------------------------
// Fake migrator and invalidator.
// ---------------------------------------------------------------------------

type fakeMigrator struct {
	mu      sync.Mutex
	applied []string
	fanOuts [][]string
	failOn  map[string]bool
}

func newFakeMigrator() *fakeMigrator {
	return &fakeMigrator{failOn: make(map[string]bool)}
}

func (f *fakeMigrator) ApplySchema(_ context.Context, schema string) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[schema] {
		return 0, 0, errors.New("relation already exists")
	}
	f.applied = append(f.applied, schema)
	return 1, 0, nil
}

func (f *fakeMigrator) FanOut(_ context.Context, schemas []string) *migrate.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fanOuts = append(f.fanOuts, schemas)
	report := &migrate.Report{}
	for _, s := range schemas {
		report.Results = append(report.Results, migrate.SchemaResult{Schema: s, Applied: 1})
		report.Applied++
	}
	return report
}

func (f *fakeMigrator) Status(_ context.Context, schemas []string) []migrate.SchemaStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	statuses := make([]migrate.SchemaStatus, 0, len(schemas))
	for _, s := range schemas {
		statuses = append(statuses, migrate.SchemaStatus{Schema: s, Version: len(f.applied)})
	}
	return statuses
}

type fakeInvalidator struct {
	mu    sync.Mutex
	hosts []string
	alls  int
}

func (f *fakeInvalidator) InvalidateHost(_ context.Context, host string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hosts = append(f.hosts, host)
	return nil
}

func (f *fakeInvalidator) InvalidateAll(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alls++
	return nil
}

func hashOK(password string) (string, error) {
	return "hashed:" + password, nil
}
