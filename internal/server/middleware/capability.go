package middleware

import "net/http"

// Capabilities granted to operators on the admin surface. A request
// carries a set; each route declares what it requires.
const (
	CapTenantsRead   = "tenants:read"
	CapTenantsWrite  = "tenants:write"
	CapMigrationsRun = "migrations:run"
)

// RequireCapability checks that the authenticated operator holds every
// listed capability. Must be chained after Auth, which stores the
// capability set in the request context.
//
// Returns 401 Unauthorized when no capability set is present (Auth not
// applied or failed), 403 Forbidden when one is missing.
func RequireCapability(capabilities ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := CapabilitiesFromContext(r.Context()); !ok {
				http.Error(w, `{"title":"Unauthorized","status":401,"detail":"authentication required"}`, http.StatusUnauthorized)
				return
			}

			for _, c := range capabilities {
				if !HasCapability(r.Context(), c) {
					http.Error(w, `{"title":"Forbidden","status":403,"detail":"insufficient capabilities"}`, http.StatusForbidden)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
