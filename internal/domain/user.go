package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is an account inside one tenant schema. Accounts are isolated per
// tenant: the same email may exist under two different schools without
// collision, and a query for users only ever sees the bound schema's rows.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string // argon2id
	Name         string
	Role         string // "admin", "staff", or "student"
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Operator is a platform-level account living in the catalog schema. It
// authenticates against the administrative control plane and carries a
// capability set rather than a tenant association.
type Operator struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string // argon2id
	Name         string
	Capabilities []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type OperatorRepository interface {
	Create(ctx context.Context, o *Operator) error
	GetByEmail(ctx context.Context, email string) (*Operator, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Operator, error)
}
