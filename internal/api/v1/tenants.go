package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gurukulhq/gurukul/internal/domain"
	"github.com/gurukulhq/gurukul/internal/lifecycle"
	"github.com/gurukulhq/gurukul/internal/server/middleware"
)

type ProvisionTenantInput struct {
	Body struct {
		Name          string `json:"name" minLength:"1" maxLength:"255" doc:"Organization name"`
		SchemaName    string `json:"schema_name" minLength:"1" maxLength:"63" pattern:"^[a-z][a-z0-9_]*$" doc:"Namespace identifier (immutable once data exists)"`
		Hostname      string `json:"hostname,omitempty" doc:"Primary hostname; defaults to <schema>.<platform domain>"`
		Plan          string `json:"plan,omitempty" enum:"basic,professional,enterprise" doc:"Subscription plan"`
		ContactEmail  string `json:"contact_email" format:"email" doc:"Administrative contact"`
		Trial         bool   `json:"trial,omitempty" doc:"Start as a trial tenant"`
		AdminEmail    string `json:"admin_email" format:"email" doc:"Initial tenant admin account email"`
		AdminPassword string `json:"admin_password" minLength:"8" doc:"Initial tenant admin password"`
	}
}

type TenantOutput struct {
	Body *domain.Tenant
}

type ListTenantsOutput struct {
	Body []*domain.Tenant
}

type TenantByIDInput struct {
	ID uuid.UUID `path:"id" doc:"Tenant ID"`
}

type RenameTenantInput struct {
	ID   uuid.UUID `path:"id" doc:"Tenant ID"`
	Body struct {
		SchemaName string `json:"schema_name" minLength:"1" maxLength:"63" pattern:"^[a-z][a-z0-9_]*$" doc:"New namespace identifier"`
	}
}

type CloneTenantInput struct {
	ID   uuid.UUID `path:"id" doc:"Source tenant ID"`
	Body struct {
		Name       string `json:"name" minLength:"1" maxLength:"255" doc:"New tenant name"`
		SchemaName string `json:"schema_name" minLength:"1" maxLength:"63" pattern:"^[a-z][a-z0-9_]*$" doc:"New namespace identifier"`
	}
}

type DeleteTenantInput struct {
	ID    uuid.UUID `path:"id" doc:"Tenant ID"`
	Grace string    `query:"grace" doc:"Grace period before physical drop (Go duration, e.g. 72h); empty uses the configured default, 0 purges immediately"`
}

type AddDomainInput struct {
	ID   uuid.UUID `path:"id" doc:"Tenant ID"`
	Body struct {
		Hostname string `json:"hostname" minLength:"1" maxLength:"253" doc:"Hostname to bind"`
		Primary  bool   `json:"primary,omitempty" doc:"Make this the canonical hostname"`
	}
}

type RevokeDomainInput struct {
	Hostname string `path:"hostname" doc:"Hostname to revoke"`
}

type DomainBindingsOutput struct {
	Body []*domain.DomainBinding
}

func RegisterTenantRoutes(api huma.API, store DataStore, orchestrator Lifecycle) {
	huma.Register(api, huma.Operation{
		OperationID: "provision-tenant",
		Method:      http.MethodPost,
		Path:        "/tenants",
		Summary:     "Provision a new tenant",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *ProvisionTenantInput) (*TenantOutput, error) {
		if !middleware.HasCapability(ctx, middleware.CapTenantsWrite) {
			return nil, huma.Error403Forbidden("tenants:write capability required")
		}

		t, err := orchestrator.Provision(ctx, lifecycle.ProvisionInput{
			Name:          input.Body.Name,
			SchemaName:    input.Body.SchemaName,
			Hostname:      input.Body.Hostname,
			Plan:          input.Body.Plan,
			ContactEmail:  input.Body.ContactEmail,
			Trial:         input.Body.Trial,
			AdminEmail:    input.Body.AdminEmail,
			AdminPassword: input.Body.AdminPassword,
		})
		if errors.Is(err, domain.ErrIdentifierConflict) || errors.Is(err, domain.ErrConflict) {
			return nil, huma.Error409Conflict("schema name or hostname already taken")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("provisioning failed", err)
		}

		return &TenantOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tenants",
		Method:      http.MethodGet,
		Path:        "/tenants",
		Summary:     "List all tenants",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, _ *struct{}) (*ListTenantsOutput, error) {
		if !middleware.HasCapability(ctx, middleware.CapTenantsRead) {
			return nil, huma.Error403Forbidden("tenants:read capability required")
		}

		tenants, err := store.Tenants().List(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list tenants", err)
		}

		return &ListTenantsOutput{Body: tenants}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-tenant",
		Method:      http.MethodGet,
		Path:        "/tenants/{id}",
		Summary:     "Get one tenant",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *TenantByIDInput) (*TenantOutput, error) {
		if !middleware.HasCapability(ctx, middleware.CapTenantsRead) {
			return nil, huma.Error403Forbidden("tenants:read capability required")
		}

		t, err := store.Tenants().GetByID(ctx, input.ID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error404NotFound("tenant not found")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to get tenant", err)
		}

		return &TenantOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "suspend-tenant",
		Method:      http.MethodPost,
		Path:        "/tenants/{id}/suspend",
		Summary:     "Suspend a tenant",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *TenantByIDInput) (*struct{}, error) {
		if !middleware.HasCapability(ctx, middleware.CapTenantsWrite) {
			return nil, huma.Error403Forbidden("tenants:write capability required")
		}

		err := orchestrator.Suspend(ctx, input.ID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error404NotFound("tenant not found")
		}
		if errors.Is(err, domain.ErrConflict) {
			return nil, huma.Error409Conflict("invalid status transition")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("suspend failed", err)
		}

		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reactivate-tenant",
		Method:      http.MethodPost,
		Path:        "/tenants/{id}/reactivate",
		Summary:     "Reactivate a suspended tenant",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *TenantByIDInput) (*struct{}, error) {
		if !middleware.HasCapability(ctx, middleware.CapTenantsWrite) {
			return nil, huma.Error403Forbidden("tenants:write capability required")
		}

		err := orchestrator.Reactivate(ctx, input.ID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error404NotFound("tenant not found")
		}
		if errors.Is(err, domain.ErrConflict) {
			return nil, huma.Error409Conflict("invalid status transition")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("reactivate failed", err)
		}

		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "rename-tenant",
		Method:      http.MethodPost,
		Path:        "/tenants/{id}/rename",
		Summary:     "Rename a tenant's namespace identifier",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *RenameTenantInput) (*TenantOutput, error) {
		if !middleware.HasCapability(ctx, middleware.CapTenantsWrite) {
			return nil, huma.Error403Forbidden("tenants:write capability required")
		}

		t, err := orchestrator.Rename(ctx, input.ID, input.Body.SchemaName)
		if errors.Is(err, domain.ErrRenameUnsupported) {
			return nil, huma.Error501NotImplemented("storage engine cannot rename; clone and delete instead")
		}
		if errors.Is(err, domain.ErrIdentifierConflict) {
			return nil, huma.Error409Conflict("schema name already taken")
		}
		if errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error404NotFound("tenant not found")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("rename failed", err)
		}

		return &TenantOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "clone-tenant",
		Method:      http.MethodPost,
		Path:        "/tenants/{id}/clone",
		Summary:     "Clone a tenant into a new namespace",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *CloneTenantInput) (*TenantOutput, error) {
		if !middleware.HasCapability(ctx, middleware.CapTenantsWrite) {
			return nil, huma.Error403Forbidden("tenants:write capability required")
		}

		t, err := orchestrator.Clone(ctx, input.ID, input.Body.Name, input.Body.SchemaName)
		if errors.Is(err, domain.ErrIdentifierConflict) || errors.Is(err, domain.ErrConflict) {
			return nil, huma.Error409Conflict("schema name already taken")
		}
		if errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error404NotFound("tenant not found")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("clone failed", err)
		}

		return &TenantOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-tenant",
		Method:      http.MethodDelete,
		Path:        "/tenants/{id}",
		Summary:     "Delete a tenant (two-phase: tombstone now, drop after grace)",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *DeleteTenantInput) (*struct{}, error) {
		if !middleware.HasCapability(ctx, middleware.CapTenantsWrite) {
			return nil, huma.Error403Forbidden("tenants:write capability required")
		}

		grace := time.Duration(-1)
		if input.Grace != "" {
			parsed, err := time.ParseDuration(input.Grace)
			if err != nil || parsed < 0 {
				return nil, huma.Error422UnprocessableEntity("invalid grace duration")
			}
			grace = parsed
		}

		err := orchestrator.Delete(ctx, input.ID, grace)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error404NotFound("tenant not found")
		}
		if errors.Is(err, domain.ErrConflict) {
			return nil, huma.Error409Conflict("tenant cannot be deleted")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("delete failed", err)
		}

		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tenant-domains",
		Method:      http.MethodGet,
		Path:        "/tenants/{id}/domains",
		Summary:     "List a tenant's domain bindings",
		Tags:        []string{"Domains"},
	}, func(ctx context.Context, input *TenantByIDInput) (*DomainBindingsOutput, error) {
		if !middleware.HasCapability(ctx, middleware.CapTenantsRead) {
			return nil, huma.Error403Forbidden("tenants:read capability required")
		}

		bindings, err := store.Bindings().ListByTenant(ctx, input.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list bindings", err)
		}

		return &DomainBindingsOutput{Body: bindings}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-tenant-domain",
		Method:      http.MethodPost,
		Path:        "/tenants/{id}/domains",
		Summary:     "Bind a hostname to a tenant",
		Tags:        []string{"Domains"},
	}, func(ctx context.Context, input *AddDomainInput) (*struct{}, error) {
		if !middleware.HasCapability(ctx, middleware.CapTenantsWrite) {
			return nil, huma.Error403Forbidden("tenants:write capability required")
		}

		_, err := orchestrator.AddDomain(ctx, input.ID, input.Body.Hostname, input.Body.Primary)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error404NotFound("tenant not found")
		}
		if errors.Is(err, domain.ErrConflict) {
			return nil, huma.Error409Conflict("hostname already bound")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to bind hostname", err)
		}

		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "revoke-domain",
		Method:      http.MethodDelete,
		Path:        "/domains/{hostname}",
		Summary:     "Revoke a hostname binding",
		Tags:        []string{"Domains"},
	}, func(ctx context.Context, input *RevokeDomainInput) (*struct{}, error) {
		if !middleware.HasCapability(ctx, middleware.CapTenantsWrite) {
			return nil, huma.Error403Forbidden("tenants:write capability required")
		}

		err := orchestrator.RevokeDomain(ctx, input.Hostname)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error404NotFound("binding not found")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to revoke binding", err)
		}

		return nil, nil
	})
}
