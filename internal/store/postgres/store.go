package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gurukulhq/gurukul/internal/domain"
	"github.com/gurukulhq/gurukul/internal/tenancy"
)

// Store wraps the shared connection pool and the catalog repositories.
// Catalog rows (tenants, domain bindings, operators) live in the
// platform's reserved "public" schema; tenant data lives in per-tenant
// schemas reached through the Binder.
type Store struct {
	pool      *pgxpool.Pool
	tenants   *TenantRepo
	bindings  *DomainBindingRepo
	operators *OperatorRepo
	schemas   *SchemaManager
	binder    *Binder
	migrator  *Migrator
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	tenants := NewTenantRepo(pool)

	return &Store{
		pool:      pool,
		tenants:   tenants,
		bindings:  NewDomainBindingRepo(pool),
		operators: NewOperatorRepo(pool),
		schemas:   NewSchemaManager(pool),
		binder:    NewBinder(pool, tenants),
		migrator:  NewMigrator(pool),
	}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Tenants() domain.TenantRepository          { return s.tenants }
func (s *Store) Bindings() domain.DomainBindingRepository  { return s.bindings }
func (s *Store) Operators() domain.OperatorRepository      { return s.operators }
func (s *Store) Schemas() *SchemaManager                   { return s.schemas }
func (s *Store) Binder() *Binder                           { return s.binder }
func (s *Store) Migrator() *Migrator                       { return s.migrator }

// Bootstrap creates the catalog tables and the platform's own tenant row.
// Idempotent; runs at every startup before the server accepts traffic.
func (s *Store) Bootstrap(ctx context.Context, platformDomain string) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tenants (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			schema_name TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL,
			plan TEXT NOT NULL DEFAULT 'basic',
			max_users INT NOT NULL DEFAULT 10,
			max_storage_mb INT NOT NULL DEFAULT 1024,
			contact_email TEXT NOT NULL DEFAULT '',
			trial_ends_at TIMESTAMPTZ,
			purge_after TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tenant_domains (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
			hostname TEXT NOT NULL UNIQUE,
			is_primary BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS tenant_domains_primary_idx
			ON tenant_domains (tenant_id) WHERE is_primary;

		CREATE TABLE IF NOT EXISTS operators (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			name TEXT NOT NULL,
			capabilities TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("postgres.Bootstrap: catalog DDL: %w", err)
	}

	// The platform itself is tenant zero: it owns the bare platform
	// domain and the reserved "public" schema.
	now := time.Now()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO tenants (id, name, schema_name, status, plan, created_at, updated_at)
		VALUES ($1, 'Platform', $2, $3, 'enterprise', $4, $4)
		ON CONFLICT (schema_name) DO NOTHING`,
		uuid.New(), tenancy.PlatformSchemaName, domain.TenantStatusActive, now,
	)
	if err != nil {
		return fmt.Errorf("postgres.Bootstrap: platform tenant: %w", err)
	}

	platform, err := s.tenants.GetBySchemaName(ctx, tenancy.PlatformSchemaName)
	if err != nil {
		return fmt.Errorf("postgres.Bootstrap: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO tenant_domains (id, tenant_id, hostname, is_primary, created_at)
		VALUES ($1, $2, $3, true, $4)
		ON CONFLICT (hostname) DO NOTHING`,
		uuid.New(), platform.ID, platformDomain, now,
	)
	if err != nil {
		return fmt.Errorf("postgres.Bootstrap: platform binding: %w", err)
	}

	return nil
}
