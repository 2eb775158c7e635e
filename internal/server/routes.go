package server

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gurukulhq/gurukul/internal/api/v1"
	"github.com/gurukulhq/gurukul/internal/auth"
	"github.com/gurukulhq/gurukul/internal/domain"
	"github.com/gurukulhq/gurukul/internal/lifecycle"
	"github.com/gurukulhq/gurukul/internal/store/postgres"
)

func newAPI(r chi.Router, title string) huma.API {
	cfg := huma.DefaultConfig(title, "1.0.0")
	cfg.Servers = []*huma.Server{
		{URL: "/api/v1"},
	}
	return humachi.New(r, cfg)
}

func registerAuthRoutes(api huma.API, authSvc *auth.Service) {
	v1.RegisterAuthRoutes(api, authSvc)
}

func registerAdminRoutes(api huma.API, store *postgres.Store, orchestrator *lifecycle.Orchestrator) {
	v1.RegisterTenantRoutes(api, store, orchestrator)
	v1.RegisterMigrationRoutes(api, orchestrator)
}

func registerSiteRoutes(api huma.API, store *postgres.Store) {
	bind := func(ctx context.Context, t *domain.Tenant) (v1.TenantConn, error) {
		sc, err := store.Binder().Bind(ctx, t)
		if err != nil {
			return nil, err
		}
		return sc, nil
	}
	v1.RegisterSiteRoutes(api, bind)
}
