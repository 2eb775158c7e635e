package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gurukulhq/gurukul/internal/domain"
)

type OperatorRepo struct {
	pool *pgxpool.Pool
}

func NewOperatorRepo(pool *pgxpool.Pool) *OperatorRepo {
	return &OperatorRepo{pool: pool}
}

func (r *OperatorRepo) Create(ctx context.Context, o *domain.Operator) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO operators (id, email, password_hash, name, capabilities, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		o.ID, o.Email, o.PasswordHash, o.Name, o.Capabilities, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("operatorRepo.Create: %w", mapConflict(err))
	}

	return nil
}

func (r *OperatorRepo) GetByEmail(ctx context.Context, email string) (*domain.Operator, error) {
	o, err := r.scanOne(r.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, name, capabilities, created_at, updated_at
		 FROM operators WHERE email = $1`, email))
	if err != nil {
		return nil, fmt.Errorf("operatorRepo.GetByEmail: %w", err)
	}
	return o, nil
}

func (r *OperatorRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Operator, error) {
	o, err := r.scanOne(r.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, name, capabilities, created_at, updated_at
		 FROM operators WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("operatorRepo.GetByID: %w", err)
	}
	return o, nil
}

func (r *OperatorRepo) scanOne(row pgx.Row) (*domain.Operator, error) {
	var o domain.Operator

	err := row.Scan(&o.ID, &o.Email, &o.PasswordHash, &o.Name, &o.Capabilities,
		&o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &o, nil
}
