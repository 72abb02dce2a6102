package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/presenza-app/presenza/internal/domain"
)

type TenantStore struct {
	db *pgxpool.Pool
}

func NewTenantStore(db *pgxpool.Pool) *TenantStore {
	return &TenantStore{db: db}
}

const tenantCols = `id, name, code, api_key_hash, active, created_at, updated_at`

func (s *TenantStore) Create(ctx context.Context, t *domain.Tenant) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO tenants (name, code, api_key_hash, active)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		t.Name, t.Code, t.APIKeyHash, t.Active,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *TenantStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	return s.get(ctx, `SELECT `+tenantCols+` FROM tenants WHERE id = $1`, id)
}

func (s *TenantStore) GetByCode(ctx context.Context, code string) (*domain.Tenant, error) {
	return s.get(ctx, `SELECT `+tenantCols+` FROM tenants WHERE code = $1`, code)
}

func (s *TenantStore) GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*domain.Tenant, error) {
	return s.get(ctx, `SELECT `+tenantCols+` FROM tenants WHERE api_key_hash = $1`, apiKeyHash)
}

func (s *TenantStore) get(ctx context.Context, query string, arg any) (*domain.Tenant, error) {
	t := &domain.Tenant{}
	err := s.db.QueryRow(ctx, query, arg).Scan(
		&t.ID, &t.Name, &t.Code, &t.APIKeyHash, &t.Active, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}
