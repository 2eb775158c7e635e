package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gurukulhq/gurukul/internal/migrate"
)

// Migrator implements migrate.Executor on Postgres. Every tenant schema
// carries its own schema_migrations table, so a schema is self-describing
// about its version wherever it is dumped or restored.
type Migrator struct {
	pool *pgxpool.Pool
}

func NewMigrator(pool *pgxpool.Pool) *Migrator {
	return &Migrator{pool: pool}
}

func (m *Migrator) AppliedVersions(ctx context.Context, schema string) ([]int, error) {
	ident := pgx.Identifier{schema, "schema_migrations"}.Sanitize()

	_, err := m.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+ident+` (
		version INT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return nil, fmt.Errorf("migrator.AppliedVersions: ensure table: %w", err)
	}

	rows, err := m.pool.Query(ctx, `SELECT version FROM `+ident+` ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("migrator.AppliedVersions: %w", err)
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		err = rows.Scan(&v)
		if err != nil {
			return nil, fmt.Errorf("migrator.AppliedVersions: scan: %w", err)
		}
		versions = append(versions, v)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("migrator.AppliedVersions: rows: %w", err)
	}

	return versions, nil
}

// Apply runs one migration inside a transaction with search_path pinned
// to the target schema, recording it in schema_migrations. The DDL and
// the record commit together or not at all.
func (m *Migrator) Apply(ctx context.Context, schema string, mig migrate.Migration) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("migrator.Apply: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	_, err = tx.Exec(ctx, "SET LOCAL search_path TO "+pgx.Identifier{schema}.Sanitize())
	if err != nil {
		return fmt.Errorf("migrator.Apply: search_path: %w", err)
	}

	_, err = tx.Exec(ctx, mig.SQL)
	if err != nil {
		return fmt.Errorf("migrator.Apply: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
		mig.Version, mig.Name,
	)
	if err != nil {
		return fmt.Errorf("migrator.Apply: record: %w", err)
	}

	err = tx.Commit(ctx)
	if err != nil {
		return fmt.Errorf("migrator.Apply: commit: %w", err)
	}

	return nil
}

// Lock takes a session-level advisory lock keyed by schema name so two
// fan-out runs never race on one schema. The lock lives on a dedicated
// connection held until release.
func (m *Migrator) Lock(ctx context.Context, schema string) (func(), error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrator.Lock: acquire: %w", err)
	}

	_, err = conn.Exec(ctx, `SELECT pg_advisory_lock(hashtext('migrate:' || $1))`, schema)
	if err != nil {
		conn.Release()
		return nil, fmt.Errorf("migrator.Lock: %w", err)
	}

	release := func() {
		// Unlock on a background context: release must happen even when
		// the run's context is already cancelled.
		_, unlockErr := conn.Exec(context.Background(),
			`SELECT pg_advisory_unlock(hashtext('migrate:' || $1))`, schema)
		if unlockErr != nil {
			// The session still holds the lock; closing the connection
			// releases it server-side.
			conn.Conn().Close(context.Background()) //nolint:errcheck
		}
		conn.Release()
	}

	return release, nil
}
