package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/presenza-app/presenza/internal/domain"
)

type UserStore struct {
	db *pgxpool.Pool
}

func NewUserStore(db *pgxpool.Pool) *UserStore {
	return &UserStore{db: db}
}

const userCols = `id, tenant_id, identifier, last_name, first_name, title,
institution, phone, email, status, created_at, updated_at`

// Create inserts the user and its field values in one transaction. The
// unique index on users.identifier is the source of truth for
// identifier uniqueness; a violation surfaces as ErrConflict so the
// caller can retry with a fresh identifier.
func (s *UserStore) Create(ctx context.Context, u *domain.User, values []domain.FieldValue) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`INSERT INTO users (tenant_id, identifier, last_name, first_name, title,
		                    institution, phone, email, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		u.TenantID, u.Identifier, u.LastName, u.FirstName, u.Title,
		u.Institution, u.Phone, u.Email, u.Status,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}

	for i := range values {
		v := &values[i]
		v.UserID = u.ID
		err = tx.QueryRow(ctx,
			`INSERT INTO field_values (user_id, field_template_id, form_id, field_type, value)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id, created_at`,
			v.UserID, v.FieldTemplateID, v.FormID, v.FieldType, v.Value,
		).Scan(&v.ID, &v.CreatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*domain.User, error) {
	return s.get(ctx, `SELECT `+userCols+` FROM users WHERE id = $1 AND tenant_id = $2`, id, tenantID)
}

// GetByIdentifier is deliberately not tenant-filtered: the identifier is
// globally unique and the owning tenant is derived from the row.
func (s *UserStore) GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	return s.get(ctx, `SELECT `+userCols+` FROM users WHERE identifier = $1`, identifier)
}

func (s *UserStore) IdentifierExists(ctx context.Context, identifier string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE identifier = $1)`,
		identifier,
	).Scan(&exists)
	return exists, err
}

func (s *UserStore) ListFieldValues(ctx context.Context, userID uuid.UUID, tenantID uuid.UUID) ([]domain.FieldValue, error) {
	rows, err := s.db.Query(ctx,
		`SELECT fv.id, fv.user_id, fv.field_template_id, fv.form_id, fv.field_type, fv.value, fv.created_at
		 FROM field_values fv
		 JOIN users u ON u.id = fv.user_id
		 WHERE fv.user_id = $1 AND u.tenant_id = $2
		 ORDER BY fv.created_at`,
		userID, tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []domain.FieldValue
	for rows.Next() {
		var v domain.FieldValue
		if err := rows.Scan(&v.ID, &v.UserID, &v.FieldTemplateID, &v.FormID, &v.FieldType, &v.Value, &v.CreatedAt); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (s *UserStore) get(ctx context.Context, query string, args ...any) (*domain.User, error) {
	u := &domain.User{}
	err := s.db.QueryRow(ctx, query, args...).Scan(
		&u.ID, &u.TenantID, &u.Identifier, &u.LastName, &u.FirstName, &u.Title,
		&u.Institution, &u.Phone, &u.Email, &u.Status, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}
