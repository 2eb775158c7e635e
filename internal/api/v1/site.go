package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/jackc/pgx/v5"

	"github.com/gurukulhq/gurukul/internal/domain"
	"github.com/gurukulhq/gurukul/internal/tenancy"
)

// TenantConn is a namespace-scoped database handle. *postgres.ScopedConn
// satisfies this interface.
type TenantConn interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Release()
}

// BindFunc acquires a connection pinned to the tenant's namespace.
type BindFunc func(ctx context.Context, t *domain.Tenant) (TenantConn, error)

type SiteOutput struct {
	Body struct {
		Tenant   string          `json:"tenant" doc:"Namespace identifier"`
		Name     string          `json:"name"`
		Plan     string          `json:"plan"`
		Status   string          `json:"status"`
		Branding json.RawMessage `json:"branding" doc:"Tenant-configured branding settings"`
	}
}

// RegisterSiteRoutes wires the tenant-facing site endpoint. It runs behind
// the host resolver, so every request here already carries a bound tenant;
// all data reads go through a namespace-scoped connection.
func RegisterSiteRoutes(api huma.API, bind BindFunc) {
	huma.Register(api, huma.Operation{
		OperationID: "get-site",
		Method:      http.MethodGet,
		Path:        "/site",
		Summary:     "Tenant site profile",
		Tags:        []string{"Site"},
	}, func(ctx context.Context, _ *struct{}) (*SiteOutput, error) {
		t, ok := tenancy.FromContext(ctx)
		if !ok {
			return nil, huma.Error500InternalServerError("no tenant bound to request")
		}

		conn, err := bind(ctx, t)
		if errors.Is(err, domain.ErrTenantSuspended) {
			return nil, huma.Error403Forbidden("account suspended")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to acquire tenant connection", err)
		}
		defer conn.Release()

		var branding []byte
		err = conn.QueryRow(ctx, `SELECT value FROM site_settings WHERE key = 'branding'`).Scan(&branding)
		if errors.Is(err, pgx.ErrNoRows) {
			branding = []byte(`{}`)
		} else if err != nil {
			return nil, huma.Error500InternalServerError("failed to read site settings", err)
		}

		out := &SiteOutput{}
		out.Body.Tenant = t.SchemaName
		out.Body.Name = t.Name
		out.Body.Plan = t.Plan
		out.Body.Status = string(t.Status)
		out.Body.Branding = branding
		return out, nil
	})
}
