package v1_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gurukulhq/gurukul/internal/api/v1"
	"github.com/gurukulhq/gurukul/internal/domain"
	"github.com/gurukulhq/gurukul/internal/lifecycle"
	"github.com/gurukulhq/gurukul/internal/migrate"
)

// ---------------------------------------------------------------------------
// POST /migrations/run
// ---------------------------------------------------------------------------

func TestRunMigrations(t *testing.T) {
	t.Parallel()

	t.Run("empty_body_runs_everything", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		orch := &mockLifecycle{
			migrateAllFunc: func(context.Context) (*migrate.Report, error) {
				return &migrate.Report{
					Applied: 2,
					Results: []migrate.SchemaResult{
						{Schema: "alpha", Applied: 1},
						{Schema: "beta", Applied: 1},
					},
				}, nil
			},
		}
		v1.RegisterMigrationRoutes(api, orch)

		resp := api.PostCtx(adminCtx(), "/migrations/run", map[string]any{})
		require.Equal(t, http.StatusOK, resp.Code)

		var report migrate.Report
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
		assert.Equal(t, 2, report.Applied)
		assert.Len(t, report.Results, 2)
	})

	t.Run("explicit_schema_list_retargets", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		var got []string
		orch := &mockLifecycle{
			migrateSchemasFunc: func(_ context.Context, schemas []string) *migrate.Report {
				got = schemas
				return &migrate.Report{Applied: 1, Results: []migrate.SchemaResult{{Schema: "beta", Applied: 1}}}
			},
		}
		v1.RegisterMigrationRoutes(api, orch)

		resp := api.PostCtx(adminCtx(), "/migrations/run", map[string]any{
			"schemas": []string{"beta"},
		})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, []string{"beta"}, got)
	})

	t.Run("partial_failure_still_200_with_report", func(t *testing.T) {
		t.Parallel()

		// A schema failure is data in the report, not a transport error;
		// the operator re-targets the failures from the result list.
		_, api := humatest.New(t)
		orch := &mockLifecycle{
			migrateAllFunc: func(context.Context) (*migrate.Report, error) {
				return &migrate.Report{
					Applied: 1,
					Failed:  1,
					Results: []migrate.SchemaResult{
						{Schema: "alpha", Applied: 1},
						{Schema: "beta", Error: "syntax error"},
					},
				}, nil
			},
		}
		v1.RegisterMigrationRoutes(api, orch)

		resp := api.PostCtx(adminCtx(), "/migrations/run", map[string]any{})
		require.Equal(t, http.StatusOK, resp.Code)

		var report migrate.Report
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
		assert.Equal(t, 1, report.Failed)
	})

	t.Run("requires_migrations_run_capability", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterMigrationRoutes(api, &mockLifecycle{})

		resp := api.PostCtx(readOnlyCtx(), "/migrations/run", map[string]any{})
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("listing_failure_500", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		orch := &mockLifecycle{
			migrateAllFunc: func(context.Context) (*migrate.Report, error) {
				return nil, errors.New("connection refused")
			},
		}
		v1.RegisterMigrationRoutes(api, orch)

		resp := api.PostCtx(adminCtx(), "/migrations/run", map[string]any{})
		assert.Equal(t, http.StatusInternalServerError, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// GET /migrations/status
// ---------------------------------------------------------------------------

func TestMigrationStatus(t *testing.T) {
	t.Parallel()

	t.Run("reports_per_schema_versions", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		orch := &mockLifecycle{
			migrationStatusFunc: func(context.Context) ([]migrate.SchemaStatus, error) {
				return []migrate.SchemaStatus{
					{Schema: "alpha", Version: 6},
					{Schema: "beta", Version: 4, Pending: 2},
				}, nil
			},
		}
		v1.RegisterMigrationRoutes(api, orch)

		resp := api.GetCtx(readOnlyCtx(), "/migrations/status")
		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			Schemas []migrate.SchemaStatus `json:"schemas"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body.Schemas, 2)
		assert.Equal(t, 2, body.Schemas[1].Pending)
	})

	t.Run("no_tenants_empty_list", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		orch := &mockLifecycle{
			migrationStatusFunc: func(context.Context) ([]migrate.SchemaStatus, error) {
				return nil, nil
			},
		}
		v1.RegisterMigrationRoutes(api, orch)

		resp := api.GetCtx(readOnlyCtx(), "/migrations/status")
		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			Schemas []migrate.SchemaStatus `json:"schemas"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.NotNil(t, body.Schemas)
		assert.Empty(t, body.Schemas)
	})

	t.Run("requires_capability", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterMigrationRoutes(api, &mockLifecycle{})

		resp := api.GetCtx(operatorCtx(), "/migrations/status")
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// POST /reconcile
// ---------------------------------------------------------------------------

func TestReconcile(t *testing.T) {
	t.Parallel()

	t.Run("clean_catalog", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		orch := &mockLifecycle{
			reconcileFunc: func(context.Context) (*lifecycle.ReconcileReport, error) {
				return &lifecycle.ReconcileReport{}, nil
			},
		}
		v1.RegisterMigrationRoutes(api, orch)

		resp := api.PostCtx(readOnlyCtx(), "/reconcile", map[string]any{})
		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			Missing  []string `json:"missing"`
			Orphaned []string `json:"orphaned"`
			Clean    bool     `json:"clean"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.True(t, body.Clean)
		assert.Empty(t, body.Missing)
		assert.Empty(t, body.Orphaned)
	})

	t.Run("mismatch_reported_as_data", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		orch := &mockLifecycle{
			reconcileFunc: func(context.Context) (*lifecycle.ReconcileReport, error) {
				return &lifecycle.ReconcileReport{
						Missing:  []string{"alpha"},
						Orphaned: []string{"stray"},
					}, fmt.Errorf("lifecycle.Reconcile: %w", domain.ErrReconciliationMismatch)
			},
		}
		v1.RegisterMigrationRoutes(api, orch)

		resp := api.PostCtx(readOnlyCtx(), "/reconcile", map[string]any{})
		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			Missing  []string `json:"missing"`
			Orphaned []string `json:"orphaned"`
			Clean    bool     `json:"clean"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.False(t, body.Clean)
		assert.Equal(t, []string{"alpha"}, body.Missing)
		assert.Equal(t, []string{"stray"}, body.Orphaned)
	})

	t.Run("store_failure_500", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		orch := &mockLifecycle{
			reconcileFunc: func(context.Context) (*lifecycle.ReconcileReport, error) {
				return nil, errors.New("connection refused")
			},
		}
		v1.RegisterMigrationRoutes(api, orch)

		resp := api.PostCtx(readOnlyCtx(), "/reconcile", map[string]any{})
		assert.Equal(t, http.StatusInternalServerError, resp.Code)
	})

	t.Run("requires_capability", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterMigrationRoutes(api, &mockLifecycle{})

		resp := api.PostCtx(operatorCtx(), "/reconcile", map[string]any{})
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})
}
