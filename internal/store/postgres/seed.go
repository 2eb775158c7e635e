package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gurukulhq/gurukul/internal/domain"
)

// CreateAdminUser inserts the initial privileged account into a freshly
// migrated tenant schema. Accounts are tenant-isolated: the row exists
// only under the given schema and is invisible to every other tenant.
func (m *SchemaManager) CreateAdminUser(ctx context.Context, schema string, u *domain.User) error {
	if !domain.ValidSchemaName(schema) {
		return fmt.Errorf("schemaManager.CreateAdminUser: invalid schema %q", schema)
	}

	_, err := m.pool.Exec(ctx,
		`INSERT INTO `+pgx.Identifier{schema, "users"}.Sanitize()+`
		 (id, email, password_hash, name, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, 'admin', $5, $6)`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("schemaManager.CreateAdminUser: %w", err)
	}

	return nil
}
