package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gurukulhq/gurukul/internal/auth"
	"github.com/gurukulhq/gurukul/internal/config"
	"github.com/gurukulhq/gurukul/internal/lifecycle"
	"github.com/gurukulhq/gurukul/internal/migrate"
	"github.com/gurukulhq/gurukul/internal/server"
	"github.com/gurukulhq/gurukul/internal/store/postgres"
	redisstore "github.com/gurukulhq/gurukul/internal/store/redis"
	"github.com/gurukulhq/gurukul/internal/tenancy"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("GURUKUL_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("GURUKUL_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	// Connect to PostgreSQL and ensure the platform catalog exists.
	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return err
	}
	defer store.Close()

	if err = store.Bootstrap(ctx, cfg.Tenancy.PlatformDomain); err != nil {
		return err
	}

	// Connect to Redis for cross-instance resolver invalidation.
	invalidation, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer func() { _ = invalidation.Close() }()

	// Host resolver with a bounded TTL cache.
	resolver := tenancy.NewResolver(store.Tenants(), store.Bindings(), tenancy.ResolverOptions{
		PlatformDomain:     cfg.Tenancy.PlatformDomain,
		ReservedSubdomains: cfg.Tenancy.ReservedSubdomains,
		CacheTTL:           cfg.Tenancy.CacheTTL,
		CacheSize:          cfg.Tenancy.CacheSize,
	})

	// Graceful shutdown on SIGINT / SIGTERM. Background loops (the
	// invalidation consumer, reaper, reconciler) share this context.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Feed peer invalidations into the local host cache. The publisher
	// subscribes too, so local mutations take the same path.
	feed, unsubscribe, err := invalidation.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer unsubscribe()
	go resolver.ConsumeInvalidations(ctx, feed)

	// Operator auth on the admin surface.
	authSvc := auth.NewService(store.Operators(), cfg.JWT.Secret, cfg.JWT.AccessTTL)

	// Migration engine over the full history, fanning out across tenant
	// namespaces with bounded concurrency.
	engine, err := migrate.NewEngine(store.Migrator(), migrate.All(), cfg.Lifecycle.MigrationWorkers)
	if err != nil {
		return err
	}

	// Lifecycle orchestrator: the single writer for tenant state.
	orchestrator := lifecycle.NewOrchestrator(
		store.Tenants(),
		store.Bindings(),
		store.Schemas(),
		engine,
		invalidation,
		auth.HashPassword,
		lifecycle.Options{
			PlatformDomain: cfg.Tenancy.PlatformDomain,
			DeleteGrace:    cfg.Lifecycle.DeleteGrace,
		},
	)

	// Background maintenance: reap schemas past their grace period and
	// periodically compare the catalog against physical namespaces.
	go orchestrator.RunReaper(ctx, cfg.Lifecycle.ReaperInterval)
	go orchestrator.RunReconciler(ctx, cfg.Lifecycle.ReconcileInterval)

	// Create HTTP server with all routes wired.
	srv := server.New(ctx, cfg, store, resolver, authSvc, orchestrator)

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("platform_domain", cfg.Tenancy.PlatformDomain).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}
