package domain

import "errors"

// Sentinel errors for the domain layer.
var (
	ErrNotFound = errors.New("domain: not found")
	ErrConflict = errors.New("domain: conflict")

	// Routing and binding.
	ErrUnknownTenant       = errors.New("domain: no tenant for host")
	ErrTenantSuspended     = errors.New("domain: tenant suspended")
	ErrContextAlreadyBound = errors.New("domain: request already bound to a tenant")

	// Lifecycle.
	ErrIdentifierConflict     = errors.New("domain: schema identifier already taken")
	ErrProvisionFailed        = errors.New("domain: tenant provisioning failed")
	ErrRenameUnsupported      = errors.New("domain: storage engine does not support schema rename")
	ErrReconciliationMismatch = errors.New("domain: catalog and physical schemas disagree")

	// Migrations.
	ErrMigrationBlocked = errors.New("domain: prior migration incomplete, refusing out-of-order apply")
)
