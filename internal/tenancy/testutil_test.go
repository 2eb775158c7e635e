package tenancy_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gurukulhq/gurukul/internal/domain"
)

// ---------------------------------------------------------------------------
// In-memory catalog fakes backing resolver tests.
// ---------------------------------------------------------------------------

type memTenantRepo struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*domain.Tenant
	lookups int // store round trips, for cache purity assertions
}

func newMemTenantRepo(tenants ...*domain.Tenant) *memTenantRepo {
	m := &memTenantRepo{byID: make(map[uuid.UUID]*domain.Tenant)}
	for _, t := range tenants {
		m.byID[t.ID] = t
	}
	return m
}

func (m *memTenantRepo) Lookups() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookups
}

func (m *memTenantRepo) Create(_ context.Context, t *domain.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[t.ID] = t
	return nil
}

func (m *memTenantRepo) CreateWithBinding(ctx context.Context, t *domain.Tenant, _ *domain.DomainBinding) error {
	return m.Create(ctx, t)
}

func (m *memTenantRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	t, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

func (m *memTenantRepo) GetBySchemaName(_ context.Context, schema string) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	for _, t := range m.byID {
		if t.SchemaName == schema {
			return t, nil
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
	m.byID[t.ID] = t
	return nil
}

func (m *memTenantRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

func (m *memTenantRepo) List(_ context.Context) ([]*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Tenant, 0, len(m.byID))
	for _, t := range m.byID {
		out = append(out, t)
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
				out = append(out, t)
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
			out = append(out, t)
		}
	}
	return out, nil
}

type memBindingRepo struct {
	mu     sync.Mutex
	byHost map[string]*domain.DomainBinding
}

func newMemBindingRepo(bindings ...*domain.DomainBinding) *memBindingRepo {
	m := &memBindingRepo{byHost: make(map[string]*domain.DomainBinding)}
	for _, b := range bindings {
		m.byHost[strings.ToLower(b.Hostname)] = b
	}
	return m
}

func (m *memBindingRepo) Create(_ context.Context, b *domain.DomainBinding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	host := strings.ToLower(b.Hostname)
	if _, ok := m.byHost[host]; ok {
		return domain.ErrConflict
	}
	m.byHost[host] = b
	return nil
}

func (m *memBindingRepo) GetByHostname(_ context.Context, hostname string) (*domain.DomainBinding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.byHost[strings.ToLower(hostname)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

func (m *memBindingRepo) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]*domain.DomainBinding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.DomainBinding
	for _, b := range m.byHost {
		if b.TenantID == tenantID {
			out = append(out, b)
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
