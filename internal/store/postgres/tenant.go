package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gurukulhq/gurukul/internal/domain"
)

const tenantColumns = `id, name, schema_name, status, plan, max_users, max_storage_mb,
	contact_email, trial_ends_at, purge_after, created_at, updated_at`

type TenantRepo struct {
	pool *pgxpool.Pool
}

func NewTenantRepo(pool *pgxpool.Pool) *TenantRepo {
	return &TenantRepo{pool: pool}
}

func (r *TenantRepo) Create(ctx context.Context, t *domain.Tenant) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tenants (`+tenantColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.Name, t.SchemaName, t.Status, t.Plan, t.MaxUsers, t.MaxStorageMB,
		t.ContactEmail, t.TrialEndsAt, t.PurgeAfter, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("tenantRepo.Create: %w", mapConflict(err))
	}

	return nil
}

// CreateWithBinding inserts the tenant row and its primary binding in one
// transaction so the catalog never holds one without the other.
func (r *TenantRepo) CreateWithBinding(ctx context.Context, t *domain.Tenant, b *domain.DomainBinding) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("tenantRepo.CreateWithBinding: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	_, err = tx.Exec(ctx,
		`INSERT INTO tenants (`+tenantColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.Name, t.SchemaName, t.Status, t.Plan, t.MaxUsers, t.MaxStorageMB,
		t.ContactEmail, t.TrialEndsAt, t.PurgeAfter, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("tenantRepo.CreateWithBinding: tenant: %w", mapConflict(err))
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO tenant_domains (id, tenant_id, hostname, is_primary, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		b.ID, b.TenantID, b.Hostname, b.IsPrimary, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("tenantRepo.CreateWithBinding: binding: %w", mapConflict(err))
	}

	err = tx.Commit(ctx)
	if err != nil {
		return fmt.Errorf("tenantRepo.CreateWithBinding: commit: %w", err)
	}

	return nil
}

func (r *TenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	t, err := r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("tenantRepo.GetByID: %w", err)
	}
	return t, nil
}

func (r *TenantRepo) GetBySchemaName(ctx context.Context, schema string) (*domain.Tenant, error) {
	t, err := r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE schema_name = $1`, schema))
	if err != nil {
		return nil, fmt.Errorf("tenantRepo.GetBySchemaName: %w", err)
	}
	return t, nil
}

func (r *TenantRepo) Update(ctx context.Context, t *domain.Tenant) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tenants
		 SET name = $1, schema_name = $2, status = $3, plan = $4, max_users = $5,
		     max_storage_mb = $6, contact_email = $7, trial_ends_at = $8,
		     purge_after = $9, updated_at = now()
		 WHERE id = $10`,
		t.Name, t.SchemaName, t.Status, t.Plan, t.MaxUsers,
		t.MaxStorageMB, t.ContactEmail, t.TrialEndsAt, t.PurgeAfter, t.ID,
	)
	if err != nil {
		return fmt.Errorf("tenantRepo.Update: %w", mapConflict(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("tenantRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *TenantRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("tenantRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("tenantRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *TenantRepo) List(ctx context.Context) ([]*domain.Tenant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenants ORDER BY created_at LIMIT 500`)
	if err != nil {
		return nil, fmt.Errorf("tenantRepo.List: %w", err)
	}
	return r.scanAll(rows, "tenantRepo.List")
}

func (r *TenantRepo) ListByStatus(ctx context.Context, statuses ...domain.TenantStatus) ([]*domain.Tenant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE status = ANY($1) ORDER BY created_at`,
		statuses,
	)
	if err != nil {
		return nil, fmt.Errorf("tenantRepo.ListByStatus: %w", err)
	}
	return r.scanAll(rows, "tenantRepo.ListByStatus")
}

func (r *TenantRepo) ListPurgeable(ctx context.Context, now time.Time) ([]*domain.Tenant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenants
		 WHERE status = $1 AND purge_after IS NOT NULL AND purge_after <= $2
		 ORDER BY purge_after`,
		domain.TenantStatusDeleted, now,
	)
	if err != nil {
		return nil, fmt.Errorf("tenantRepo.ListPurgeable: %w", err)
	}
	return r.scanAll(rows, "tenantRepo.ListPurgeable")
}

func (r *TenantRepo) scanOne(row pgx.Row) (*domain.Tenant, error) {
	var t domain.Tenant

	err := row.Scan(&t.ID, &t.Name, &t.SchemaName, &t.Status, &t.Plan, &t.MaxUsers,
		&t.MaxStorageMB, &t.ContactEmail, &t.TrialEndsAt, &t.PurgeAfter,
		&t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (r *TenantRepo) scanAll(rows pgx.Rows, op string) ([]*domain.Tenant, error) {
	defer rows.Close()

	var tenants []*domain.Tenant
	for rows.Next() {
		t, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		tenants = append(tenants, t)
	}
	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return tenants, nil
}

// mapConflict translates unique-violation errors into domain sentinels.
// A duplicate schema name is an identifier conflict (tombstones included,
// since deleted tenant rows are retained); a duplicate hostname is a
// plain conflict.
func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}

	switch pgErr.ConstraintName {
	case "tenants_schema_name_key":
		return domain.ErrIdentifierConflict
	default:
		return domain.ErrConflict
	}
}
