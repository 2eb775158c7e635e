package tenancy

import (
	"context"
	"fmt"

	"github.com/gurukulhq/gurukul/internal/domain"
)

type contextKey int

const tenantKey contextKey = iota

// WithTenant pins the resolved tenant into the request context. The
// binding is write-once: a second bind to a different tenant reports
// domain.ErrContextAlreadyBound and leaves the original binding intact.
// Binding the same tenant again is a no-op.
//
// The context value holds a non-owning reference for one request only;
// it must never be stored in any structure shared across requests.
func WithTenant(ctx context.Context, t *domain.Tenant) (context.Context, error) {
	if existing, ok := FromContext(ctx); ok {
		if existing.ID == t.ID {
			return ctx, nil
		}
		return ctx, fmt.Errorf("tenancy.WithTenant: bound to %q, refusing %q: %w",
			existing.SchemaName, t.SchemaName, domain.ErrContextAlreadyBound)
	}

	return context.WithValue(ctx, tenantKey, t), nil
}

// FromContext returns the tenant bound to the request, if any.
func FromContext(ctx context.Context) (*domain.Tenant, bool) {
	t, ok := ctx.Value(tenantKey).(*domain.Tenant)
	return t, ok
}
