package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gurukulhq/gurukul/internal/migrate"
	"github.com/gurukulhq/gurukul/internal/server/middleware"
)

type RunMigrationsInput struct {
	Body struct {
		Schemas []string `json:"schemas,omitempty" doc:"Namespaces to migrate; empty runs against every live tenant"`
	}
}

type MigrationReportOutput struct {
	Body *migrate.Report
}

type MigrationStatusOutput struct {
	Body struct {
		Schemas []migrate.SchemaStatus `json:"schemas"`
	}
}

type ReconcileOutput struct {
	Body struct {
		Missing  []string `json:"missing" doc:"Catalog rows whose physical namespace does not exist"`
		Orphaned []string `json:"orphaned" doc:"Physical namespaces with no catalog row"`
		Clean    bool     `json:"clean"`
	}
}

func RegisterMigrationRoutes(api huma.API, orchestrator Lifecycle) {
	huma.Register(api, huma.Operation{
		OperationID: "run-migrations",
		Method:      http.MethodPost,
		Path:        "/migrations/run",
		Summary:     "Apply pending migrations across tenant namespaces",
		Description: "Fans out over tenant namespaces concurrently. A failure in one namespace never blocks the others; per-namespace outcomes are reported individually.",
		Tags:        []string{"Migrations"},
	}, func(ctx context.Context, input *RunMigrationsInput) (*MigrationReportOutput, error) {
		if !middleware.HasCapability(ctx, middleware.CapMigrationsRun) {
			return nil, huma.Error403Forbidden("migrations:run capability required")
		}

		if len(input.Body.Schemas) > 0 {
			report := orchestrator.MigrateSchemas(ctx, input.Body.Schemas)
			return &MigrationReportOutput{Body: report}, nil
		}

		report, err := orchestrator.MigrateAll(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("migration run failed", err)
		}

		return &MigrationReportOutput{Body: report}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "migration-status",
		Method:      http.MethodGet,
		Path:        "/migrations/status",
		Summary:     "Report each tenant namespace's migration version",
		Tags:        []string{"Migrations"},
	}, func(ctx context.Context, _ *struct{}) (*MigrationStatusOutput, error) {
		if !middleware.HasCapability(ctx, middleware.CapTenantsRead) {
			return nil, huma.Error403Forbidden("tenants:read capability required")
		}

		statuses, err := orchestrator.MigrationStatus(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("migration status failed", err)
		}

		out := &MigrationStatusOutput{}
		out.Body.Schemas = statuses
		if out.Body.Schemas == nil {
			out.Body.Schemas = []migrate.SchemaStatus{}
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reconcile-tenants",
		Method:      http.MethodPost,
		Path:        "/reconcile",
		Summary:     "Compare the tenant catalog against physical namespaces",
		Description: "Reports catalog rows without a backing namespace and namespaces without a catalog row. Mismatches are never auto-resolved; an operator must act on the report.",
		Tags:        []string{"Migrations"},
	}, func(ctx context.Context, _ *struct{}) (*ReconcileOutput, error) {
		if !middleware.HasCapability(ctx, middleware.CapTenantsRead) {
			return nil, huma.Error403Forbidden("tenants:read capability required")
		}

		report, err := orchestrator.Reconcile(ctx)
		if report == nil && err != nil {
			return nil, huma.Error500InternalServerError("reconciliation failed", err)
		}

		out := &ReconcileOutput{}
		out.Body.Missing = report.Missing
		out.Body.Orphaned = report.Orphaned
		out.Body.Clean = len(report.Missing) == 0 && len(report.Orphaned) == 0
		if out.Body.Missing == nil {
			out.Body.Missing = []string{}
		}
		if out.Body.Orphaned == nil {
			out.Body.Orphaned = []string{}
		}
		return out, nil
	})
}
