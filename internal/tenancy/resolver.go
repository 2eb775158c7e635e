package tenancy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"

	"github.com/gurukulhq/gurukul/internal/domain"
)

// PlatformSchemaName is the reserved schema holding the catalog itself.
// The platform tenant row points at it; it is never a customer namespace.
const PlatformSchemaName = "public"

// Resolver maps a request host to the owning tenant. Lookups are
// read-only; results are cached per host with a bounded TTL and
// invalidated on every tenant or binding mutation.
type Resolver struct {
	tenants  domain.TenantRepository
	bindings domain.DomainBindingRepository
	cache    *hostCache

	platformDomain string
	reserved       map[string]struct{}
}

// ResolverOptions configures a Resolver.
type ResolverOptions struct {
	PlatformDomain     string
	ReservedSubdomains []string
	CacheTTL           time.Duration
	CacheSize          int
	Clock              clock.Clock // nil for wall clock
}

// NewResolver creates a Resolver over the catalog repositories.
func NewResolver(tenants domain.TenantRepository, bindings domain.DomainBindingRepository, opts ResolverOptions) *Resolver {
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	if opts.CacheSize < 1 {
		opts.CacheSize = 1024
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}

	reserved := make(map[string]struct{}, len(opts.ReservedSubdomains))
	for _, s := range opts.ReservedSubdomains {
		reserved[strings.ToLower(s)] = struct{}{}
	}

	return &Resolver{
		tenants:        tenants,
		bindings:       bindings,
		cache:          newHostCache(opts.CacheTTL, opts.CacheSize, clk),
		platformDomain: strings.ToLower(opts.PlatformDomain),
		reserved:       reserved,
	}
}

// Resolve returns the tenant owning the given request host, or
// domain.ErrUnknownTenant when no binding and no subdomain label match.
// Suspended and deleted tenants resolve successfully; callers must check
// Status before granting data access.
func (r *Resolver) Resolve(ctx context.Context, host string) (*domain.Tenant, error) {
	host = NormalizeHost(host)
	if host == "" {
		return nil, fmt.Errorf("tenancy.Resolve: empty host: %w", domain.ErrUnknownTenant)
	}

	if t, ok := r.cache.get(host); ok {
		return t, nil
	}

	t, err := r.lookup(ctx, host)
	if err != nil {
		return nil, err
	}

	r.cache.put(host, t)
	return t, nil
}

func (r *Resolver) lookup(ctx context.Context, host string) (*domain.Tenant, error) {
	// Exact binding match first. Hostnames are globally unique, so a hit
	// is unambiguous.
	b, err := r.bindings.GetByHostname(ctx, host)
	if err == nil {
		t, terr := r.tenants.GetByID(ctx, b.TenantID)
		if terr != nil {
			return nil, fmt.Errorf("tenancy.Resolve: binding %q without tenant: %w", host, terr)
		}
		return t, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("tenancy.Resolve: %w", err)
	}

	// Wildcard fallback: subdomain labels of the platform domain resolve
	// as schema names. The bare platform host, loopback aliases, and
	// reserved labels route to the platform's own namespace.
	label, ok := r.subdomainLabel(host)
	if !ok {
		return nil, fmt.Errorf("tenancy.Resolve: host %q: %w", host, domain.ErrUnknownTenant)
	}

	schema := label
	if schema == "" {
		schema = PlatformSchemaName
	} else if _, isReserved := r.reserved[schema]; isReserved {
		schema = PlatformSchemaName
	}

	t, err := r.tenants.GetBySchemaName(ctx, schema)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("tenancy.Resolve: host %q: %w", host, domain.ErrUnknownTenant)
	}
	if err != nil {
		return nil, fmt.Errorf("tenancy.Resolve: %w", err)
	}

	// Tombstones keep their schema name forever, but a deleted tenant is
	// only reachable through an explicit binding that still exists. Once
	// the purge removed its bindings, the subdomain must go dark rather
	// than route to the tombstone.
	if t.Deleted() {
		return nil, fmt.Errorf("tenancy.Resolve: host %q: %w", host, domain.ErrUnknownTenant)
	}

	return t, nil
}

// subdomainLabel extracts the tenant label from a platform-domain host.
// Returns ("", true) for the bare platform domain and localhost aliases,
// (label, true) for one-level subdomains, and ("", false) for hosts
// outside the platform domain.
func (r *Resolver) subdomainLabel(host string) (string, bool) {
	if host == r.platformDomain || host == "localhost" || host == "127.0.0.1" {
		return "", true
	}

	suffix := "." + r.platformDomain
	if !strings.HasSuffix(host, suffix) {
		return "", false
	}

	label := strings.TrimSuffix(host, suffix)
	if label == "" || strings.Contains(label, ".") {
		return "", false
	}
	return label, true
}

// Invalidate drops one host from the resolver cache. Called on every
// binding mutation, locally and via the cross-instance invalidation feed.
func (r *Resolver) Invalidate(host string) {
	r.cache.invalidate(NormalizeHost(host))
}

// InvalidateAll drops the whole cache. Used for tenant-level mutations
// (suspend, delete, rename) whose affected host set is not known locally.
func (r *Resolver) InvalidateAll() {
	r.cache.invalidateAll()
}

// ConsumeInvalidations applies invalidation messages from a feed until
// the channel closes or ctx is done. A message of "*" drops everything;
// anything else is a hostname.
func (r *Resolver) ConsumeInvalidations(ctx context.Context, feed <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-feed:
			if !ok {
				return
			}
			host := string(msg)
			if host == "*" {
				r.InvalidateAll()
			} else {
				r.Invalidate(host)
			}
			log.Debug().Str("host", host).Msg("resolver cache invalidated")
		}
	}
}

// NormalizeHost lowercases the host and strips any port.
func NormalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
