package migrate

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/gurukulhq/gurukul/internal/domain"
)

// Executor runs migration statements against one schema. Implemented by
// the postgres store; faked in tests.
type Executor interface {
	// AppliedVersions returns the versions recorded in the schema's
	// schema_migrations table, ascending. Each tenant schema is
	// self-describing about its own version.
	AppliedVersions(ctx context.Context, schema string) ([]int, error)
	// Apply runs the migration and records it in schema_migrations,
	// atomically: either both happen or neither.
	Apply(ctx context.Context, schema string, m Migration) error
	// Lock serializes migration runs against one schema. The returned
	// release func must be called on all exit paths.
	Lock(ctx context.Context, schema string) (release func(), err error)
}

// SchemaResult is the outcome of one schema in a fan-out run.
type SchemaResult struct {
	Schema  string `json:"schema"`
	Applied int    `json:"applied"`
	Skipped int    `json:"skipped"`
	Error   string `json:"error,omitempty"`
}

// Report summarizes a fan-out run. Failed schemas are listed with causes
// so operators can re-target the engine at just the failures.
type Report struct {
	Applied int            `json:"applied"`
	Skipped int            `json:"skipped"`
	Failed  int            `json:"failed"`
	Results []SchemaResult `json:"results"`

	errs *multierror.Error
}

// Err returns the aggregated failure, or nil when every schema succeeded.
func (r *Report) Err() error {
	return r.errs.ErrorOrNil()
}

// SchemaStatus reports where one schema sits relative to the registered
// migration history.
type SchemaStatus struct {
	Schema  string `json:"schema"`
	Version int    `json:"version"`
	Pending int    `json:"pending"`
	Error   string `json:"error,omitempty"`
}

// Engine applies the versioned migration history across tenant schemas.
// Each schema is processed independently: one broken tenant never blocks
// the rest of the platform from receiving a migration.
type Engine struct {
	exec       Executor
	migrations []Migration
	workers    int
}

// NewEngine creates an Engine. workers bounds fan-out concurrency; the
// migration list must be contiguous from version 1.
func NewEngine(exec Executor, migrations []Migration, workers int) (*Engine, error) {
	if !Validate(migrations) {
		return nil, fmt.Errorf("migrate.NewEngine: migration versions must be contiguous from 1")
	}
	if workers < 1 {
		workers = 1
	}
	return &Engine{exec: exec, migrations: migrations, workers: workers}, nil
}

// Head returns the newest registered migration version.
func (e *Engine) Head() int {
	return len(e.migrations)
}

// Status reads each schema's recorded version without taking locks or
// applying anything. A schema whose state cannot be read is reported
// with the cause instead of failing the whole listing.
func (e *Engine) Status(ctx context.Context, schemas []string) []SchemaStatus {
	statuses := make([]SchemaStatus, 0, len(schemas))
	for _, schema := range schemas {
		st := SchemaStatus{Schema: schema}

		versions, err := e.exec.AppliedVersions(ctx, schema)
		if err != nil {
			st.Error = err.Error()
			statuses = append(statuses, st)
			continue
		}

		st.Version = len(versions)
		if pending := e.Head() - st.Version; pending > 0 {
			st.Pending = pending
		}
		statuses = append(statuses, st)
	}

	return statuses
}

// ApplySchema brings one schema up to the latest version. Already-applied
// versions are skipped, so re-runs are idempotent. A gap in the applied
// sequence reports domain.ErrMigrationBlocked: migrations only ever apply
// in strict order.
func (e *Engine) ApplySchema(ctx context.Context, schema string) (applied, skipped int, err error) {
	release, err := e.exec.Lock(ctx, schema)
	if err != nil {
		return 0, 0, fmt.Errorf("engine.ApplySchema: lock %s: %w", schema, err)
	}
	defer release()

	versions, err := e.exec.AppliedVersions(ctx, schema)
	if err != nil {
		return 0, 0, fmt.Errorf("engine.ApplySchema: load state for %s: %w", schema, err)
	}

	sort.Ints(versions)
	for i, v := range versions {
		if v != i+1 {
			return 0, 0, fmt.Errorf("engine.ApplySchema: %s has version %d without %d: %w",
				schema, v, i+1, domain.ErrMigrationBlocked)
		}
	}

	for _, m := range e.migrations {
		if m.Version <= len(versions) {
			skipped++
			continue
		}

		err = e.exec.Apply(ctx, schema, m)
		if err != nil {
			return applied, skipped, fmt.Errorf("engine.ApplySchema: %s migration %d (%s): %w",
				schema, m.Version, m.Name, err)
		}

		log.Debug().Str("schema", schema).Int("version", m.Version).Str("name", m.Name).Msg("migration applied")
		applied++
	}

	return applied, skipped, nil
}

// FanOut applies pending migrations to every given schema with a bounded
// worker pool. Per-schema failures are collected into the report instead
// of aborting the run.
func (e *Engine) FanOut(ctx context.Context, schemas []string) *Report {
	report := &Report{Results: make([]SchemaResult, 0, len(schemas))}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, schema := range schemas {
		g.Go(func() error {
			applied, skipped, err := e.ApplySchema(gctx, schema)

			mu.Lock()
			defer mu.Unlock()

			result := SchemaResult{Schema: schema, Applied: applied, Skipped: skipped}
			if err != nil {
				result.Error = err.Error()
				report.Failed++
				report.errs = multierror.Append(report.errs, err)
				log.Error().Err(err).Str("schema", schema).Msg("migration failed")
			} else if applied > 0 {
				report.Applied++
			} else {
				report.Skipped++
			}
			report.Results = append(report.Results, result)

			// Failures stay in the report; returning nil keeps the
			// group running for the remaining schemas.
			return nil
		})
	}

	_ = g.Wait()

	log.Info().
		Int("applied", report.Applied).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("migration fan-out complete")

	return report
}
