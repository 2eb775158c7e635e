package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gurukulhq/gurukul/internal/domain"
)

// SchemaManager performs the physical DDL side of the namespace
// lifecycle: create, drop, rename, clone, and listing for reconciliation.
// Catalog bookkeeping is the orchestrator's job; these operations touch
// only the schemas themselves.
type SchemaManager struct {
	pool *pgxpool.Pool
}

func NewSchemaManager(pool *pgxpool.Pool) *SchemaManager {
	return &SchemaManager{pool: pool}
}

// SupportsRename reports whether the engine can rename a schema without
// data loss. Postgres can; callers on other engines must clone+delete.
func (m *SchemaManager) SupportsRename() bool { return true }

func (m *SchemaManager) CreateSchema(ctx context.Context, name string) error {
	if !domain.ValidSchemaName(name) {
		return fmt.Errorf("schemaManager.CreateSchema: invalid name %q: %w", name, domain.ErrIdentifierConflict)
	}

	_, err := m.pool.Exec(ctx, "CREATE SCHEMA "+pgx.Identifier{name}.Sanitize())
	if err != nil {
		return fmt.Errorf("schemaManager.CreateSchema: %w", err)
	}

	return nil
}

// DropSchema removes the schema and everything in it. Irreversible; only
// the reaper and provisioning rollback call this.
func (m *SchemaManager) DropSchema(ctx context.Context, name string) error {
	if !domain.ValidSchemaName(name) {
		return fmt.Errorf("schemaManager.DropSchema: invalid name %q", name)
	}

	_, err := m.pool.Exec(ctx, "DROP SCHEMA IF EXISTS "+pgx.Identifier{name}.Sanitize()+" CASCADE")
	if err != nil {
		return fmt.Errorf("schemaManager.DropSchema: %w", err)
	}

	return nil
}

func (m *SchemaManager) RenameSchema(ctx context.Context, from, to string) error {
	if !domain.ValidSchemaName(from) || !domain.ValidSchemaName(to) {
		return fmt.Errorf("schemaManager.RenameSchema: invalid name")
	}

	_, err := m.pool.Exec(ctx,
		"ALTER SCHEMA "+pgx.Identifier{from}.Sanitize()+" RENAME TO "+pgx.Identifier{to}.Sanitize())
	if err != nil {
		return fmt.Errorf("schemaManager.RenameSchema: %w", err)
	}

	return nil
}

func (m *SchemaManager) SchemaExists(ctx context.Context, name string) (bool, error) {
	var exists bool

	err := m.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)`,
		name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("schemaManager.SchemaExists: %w", err)
	}

	return exists, nil
}

// ListSchemas returns every tenant-shaped schema physically present,
// excluding the platform catalog and Postgres internals. Input to the
// reconciliation check.
func (m *SchemaManager) ListSchemas(ctx context.Context) ([]string, error) {
	rows, err := m.pool.Query(ctx,
		`SELECT schema_name FROM information_schema.schemata
		 WHERE schema_name NOT IN ('public', 'information_schema')
		   AND schema_name NOT LIKE 'pg\_%'
		 ORDER BY schema_name`)
	if err != nil {
		return nil, fmt.Errorf("schemaManager.ListSchemas: %w", err)
	}
	defer rows.Close()

	var schemas []string
	for rows.Next() {
		var name string
		err = rows.Scan(&name)
		if err != nil {
			return nil, fmt.Errorf("schemaManager.ListSchemas: scan: %w", err)
		}
		schemas = append(schemas, name)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("schemaManager.ListSchemas: rows: %w", err)
	}

	return schemas, nil
}

// CopyData copies every base table's rows from src to dst. Both schemas
// must already have identical structure (the orchestrator migrates dst
// first). FK checks are deferred with session_replication_role so copy
// order does not matter; the result shares no storage with src.
func (m *SchemaManager) CopyData(ctx context.Context, src, dst string) error {
	if !domain.ValidSchemaName(src) || !domain.ValidSchemaName(dst) {
		return fmt.Errorf("schemaManager.CopyData: invalid name")
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("schemaManager.CopyData: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	_, err = tx.Exec(ctx, "SET LOCAL session_replication_role = replica")
	if err != nil {
		return fmt.Errorf("schemaManager.CopyData: %w", err)
	}

	rows, err := tx.Query(ctx,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		   AND table_name <> 'schema_migrations'
		 ORDER BY table_name`,
		src,
	)
	if err != nil {
		return fmt.Errorf("schemaManager.CopyData: list tables: %w", err)
	}

	var tables []string
	for rows.Next() {
		var name string
		if scanErr := rows.Scan(&name); scanErr != nil {
			rows.Close()
			return fmt.Errorf("schemaManager.CopyData: scan: %w", scanErr)
		}
		tables = append(tables, name)
	}
	rows.Close()
	err = rows.Err()
	if err != nil {
		return fmt.Errorf("schemaManager.CopyData: rows: %w", err)
	}

	for _, table := range tables {
		ident := pgx.Identifier{table}.Sanitize()
		_, err = tx.Exec(ctx, fmt.Sprintf("INSERT INTO %s.%s SELECT * FROM %s.%s",
			pgx.Identifier{dst}.Sanitize(), ident,
			pgx.Identifier{src}.Sanitize(), ident,
		))
		if err != nil {
			return fmt.Errorf("schemaManager.CopyData: table %s: %w", table, err)
		}
	}

	err = tx.Commit(ctx)
	if err != nil {
		return fmt.Errorf("schemaManager.CopyData: commit: %w", err)
	}

	return nil
}
