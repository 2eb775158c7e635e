package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gurukulhq/gurukul/internal/domain"
)

type DomainBindingRepo struct {
	pool *pgxpool.Pool
}

func NewDomainBindingRepo(pool *pgxpool.Pool) *DomainBindingRepo {
	return &DomainBindingRepo{pool: pool}
}

func (r *DomainBindingRepo) Create(ctx context.Context, b *domain.DomainBinding) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tenant_domains (id, tenant_id, hostname, is_primary, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		b.ID, b.TenantID, b.Hostname, b.IsPrimary, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("bindingRepo.Create: %w", mapConflict(err))
	}

	return nil
}

func (r *DomainBindingRepo) GetByHostname(ctx context.Context, hostname string) (*domain.DomainBinding, error) {
	var b domain.DomainBinding

	err := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, hostname, is_primary, created_at
		 FROM tenant_domains WHERE hostname = $1`,
		hostname,
	).Scan(&b.ID, &b.TenantID, &b.Hostname, &b.IsPrimary, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("bindingRepo.GetByHostname: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("bindingRepo.GetByHostname: %w", err)
	}

	return &b, nil
}

func (r *DomainBindingRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.DomainBinding, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, hostname, is_primary, created_at
		 FROM tenant_domains WHERE tenant_id = $1 ORDER BY created_at`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("bindingRepo.ListByTenant: %w", err)
	}
	defer rows.Close()

	var bindings []*domain.DomainBinding
	for rows.Next() {
		var b domain.DomainBinding

		err = rows.Scan(&b.ID, &b.TenantID, &b.Hostname, &b.IsPrimary, &b.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("bindingRepo.ListByTenant: scan: %w", err)
		}

		bindings = append(bindings, &b)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("bindingRepo.ListByTenant: rows: %w", err)
	}

	return bindings, nil
}

// SetPrimary promotes one binding and demotes the tenant's previous
// primary in the same transaction, preserving the one-primary invariant.
func (r *DomainBindingRepo) SetPrimary(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("bindingRepo.SetPrimary: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	_, err = tx.Exec(ctx,
		`UPDATE tenant_domains SET is_primary = false
		 WHERE tenant_id = (SELECT tenant_id FROM tenant_domains WHERE id = $1) AND is_primary`,
		id,
	)
	if err != nil {
		return fmt.Errorf("bindingRepo.SetPrimary: demote: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE tenant_domains SET is_primary = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("bindingRepo.SetPrimary: promote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bindingRepo.SetPrimary: %w", domain.ErrNotFound)
	}

	err = tx.Commit(ctx)
	if err != nil {
		return fmt.Errorf("bindingRepo.SetPrimary: commit: %w", err)
	}

	return nil
}

func (r *DomainBindingRepo) Delete(ctx context.Context, hostname string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tenant_domains WHERE hostname = $1`, hostname)
	if err != nil {
		return fmt.Errorf("bindingRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bindingRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *DomainBindingRepo) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tenant_domains WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return fmt.Errorf("bindingRepo.DeleteByTenant: %w", err)
	}

	return nil
}
