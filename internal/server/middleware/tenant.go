package middleware

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/gurukulhq/gurukul/internal/domain"
	"github.com/gurukulhq/gurukul/internal/tenancy"
)

// ResolveTenant resolves the request host to a tenant and pins it into
// the request context. Unknown hosts get a 404; suspended and deleted
// tenants still pass through here (flagged by status) so downstream can
// render an informative page instead of a data response.
func ResolveTenant(resolver *tenancy.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t, err := resolver.Resolve(r.Context(), r.Host)
			if errors.Is(err, domain.ErrUnknownTenant) {
				http.Error(w, `{"title":"Not Found","status":404,"detail":"no tenant for this host"}`, http.StatusNotFound)
				return
			}
			if err != nil {
				log.Error().Err(err).Str("host", r.Host).Msg("tenant resolution failed")
				http.Error(w, `{"title":"Internal Server Error","status":500}`, http.StatusInternalServerError)
				return
			}

			ctx, err := tenancy.WithTenant(r.Context(), t)
			if err != nil {
				// A context bound twice is a programming error, fatal to
				// the request: continuing could leak across tenants.
				log.Error().Err(err).Str("host", r.Host).Msg("context already bound")
				http.Error(w, `{"title":"Internal Server Error","status":500}`, http.StatusInternalServerError)
				return
			}

			w.Header().Set("X-Tenant-ID", t.ID.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireActiveTenant denies data access for tenants whose status is not
// routable. The route itself succeeded; only data access is refused.
func RequireActiveTenant() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t, ok := tenancy.FromContext(r.Context())
			if !ok {
				http.Error(w, `{"title":"Not Found","status":404,"detail":"no tenant for this host"}`, http.StatusNotFound)
				return
			}
			if !t.Status.Routable() {
				http.Error(w, `{"title":"Forbidden","status":403,"detail":"account suspended"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
