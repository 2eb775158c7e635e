package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/gurukulhq/gurukul/internal/domain"
)

// Binder checks tenant status against the catalog on every bind rather
// than trusting the possibly-cached tenant passed in, so a suspension
// takes effect within one request, not one cache TTL.
type Binder struct {
	pool    *pgxpool.Pool
	tenants domain.TenantRepository
}

func NewBinder(pool *pgxpool.Pool, tenants domain.TenantRepository) *Binder {
	return &Binder{pool: pool, tenants: tenants}
}

// Bind acquires a pooled connection and pins its search_path to the
// tenant's schema. The returned conn must be released on every exit path;
// callers typically `defer sc.Release()` immediately.
func (b *Binder) Bind(ctx context.Context, t *domain.Tenant) (*ScopedConn, error) {
	current, err := b.tenants.GetByID(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("binder.Bind: %w", err)
	}
	if !current.Status.Routable() {
		return nil, fmt.Errorf("binder.Bind: tenant %q status %s: %w",
			current.SchemaName, current.Status, domain.ErrTenantSuspended)
	}

	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("binder.Bind: acquire: %w", err)
	}

	_, err = conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{current.SchemaName}.Sanitize())
	if err != nil {
		// The session never switched; safe to return to the pool.
		conn.Release()
		return nil, fmt.Errorf("binder.Bind: set search_path: %w", err)
	}

	return &ScopedConn{conn: conn, schema: current.SchemaName}, nil
}

// ScopedConn is a connection pinned to one tenant schema for one unit of
// work. It is not safe for concurrent use and must never outlive the
// request that bound it.
type ScopedConn struct {
	conn   *pgxpool.Conn
	schema string

	mu       sync.Mutex
	released bool
}

// Schema returns the schema this connection is pinned to.
func (sc *ScopedConn) Schema() string { return sc.schema }

func (sc *ScopedConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return sc.conn.Exec(ctx, sql, args...)
}

func (sc *ScopedConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return sc.conn.Query(ctx, sql, args...)
}

func (sc *ScopedConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return sc.conn.QueryRow(ctx, sql, args...)
}

// Release resets the session to the neutral search_path and returns the
// connection to the pool. A connection that cannot be proven neutral is
// closed instead of reused: handing a schema-pinned session to the next
// request would be a cross-tenant leak. Runs on a background context so
// teardown is unconditional even when the request was cancelled.
func (sc *ScopedConn) Release() {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.released {
		return
	}
	sc.released = true

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var current string
	err := sc.conn.QueryRow(ctx, "SELECT current_schema()").Scan(&current)
	if err == nil && current != sc.schema {
		// The session's bound schema does not match what this conn
		// declared. Something rewrote search_path mid-request; the
		// connection cannot be trusted.
		log.Error().Str("declared", sc.schema).Str("actual", current).
			Msg("search_path mismatch on release, discarding connection")
		err = fmt.Errorf("binder: search_path mismatch")
	}

	if err == nil {
		_, err = sc.conn.Exec(ctx, "SET search_path TO public")
	}

	if err != nil {
		log.Warn().Err(err).Str("schema", sc.schema).
			Msg("failed to reset search_path, discarding connection")
		sc.conn.Conn().Close(ctx) //nolint:errcheck // pool destroys closed conns
	}

	sc.conn.Release()
}
