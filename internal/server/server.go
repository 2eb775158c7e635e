package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/gurukulhq/gurukul/internal/auth"
	"github.com/gurukulhq/gurukul/internal/config"
	"github.com/gurukulhq/gurukul/internal/lifecycle"
	"github.com/gurukulhq/gurukul/internal/server/middleware"
	"github.com/gurukulhq/gurukul/internal/store/postgres"
	"github.com/gurukulhq/gurukul/internal/tenancy"
)

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	cfg        *config.Config
}

// New creates a Server with all routes wired. The context bounds the
// lifetime of background middleware goroutines (rate limiter cleanup).
//
// Two surfaces share the listener:
//   - the operator admin API, authenticated by Bearer token and scoped
//     by capability set
//   - the tenant-facing API, where the request host picks the tenant and
//     every data read goes through a namespace-scoped connection
func New(ctx context.Context, cfg *config.Config, store *postgres.Store, resolver *tenancy.Resolver, authSvc *auth.Service, orchestrator *lifecycle.Orchestrator) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Tenant-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	s := &Server{
		router: router,
		cfg:    cfg,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	router.Route("/api/v1", func(r chi.Router) {
		// Operator login (unauthenticated, per-IP throttled).
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(ctx, 5, 10))
			registerAuthRoutes(newAPI(r, "Gurukul Auth API"), authSvc)
		})

		// Operator admin surface: tenant lifecycle, domains, migrations.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT.Secret))
			registerAdminRoutes(newAPI(r, "Gurukul Admin API"), store, orchestrator)
		})

		// Tenant-facing surface. The request host resolves the tenant,
		// non-routable tenants are refused, and rate limits apply per
		// tenant rather than per client.
		r.Group(func(r chi.Router) {
			r.Use(middleware.ResolveTenant(resolver))
			r.Use(middleware.RequireActiveTenant())
			r.Use(middleware.RateLimit(ctx, 50, 100))
			registerSiteRoutes(newAPI(r, "Gurukul Site API"), store)
		})
	})

	// Health check (unauthenticated).
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return s
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
