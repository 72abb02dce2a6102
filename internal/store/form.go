package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/presenza-app/presenza/internal/domain"
)

type FormStore struct {
	db *pgxpool.Pool
}

func NewFormStore(db *pgxpool.Pool) *FormStore {
	return &FormStore{db: db}
}

const formCols = `id, tenant_id, name, description, purpose, form_type, active, created_at, updated_at`

func (s *FormStore) Create(ctx context.Context, f *domain.FormTemplate, fields []domain.FieldTemplate) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`INSERT INTO form_templates (tenant_id, name, description, purpose, form_type, active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		f.TenantID, f.Name, f.Description, f.Purpose, f.Type, f.Active,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return err
	}

	for i := range fields {
		ft := &fields[i]
		ft.FormID = f.ID
		err = tx.QueryRow(ctx,
			`INSERT INTO field_templates (form_id, label, field_type, required, options, display_order)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id`,
			ft.FormID, ft.Label, ft.FieldType, ft.Required, ft.Options, ft.DisplayOrder,
		).Scan(&ft.ID)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *FormStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.FormTemplate, error) {
	return s.get(ctx, `SELECT `+formCols+` FROM form_templates WHERE id = $1`, id)
}

// GetByIDAndTenant never matches a foreign tenant's form; "does not
// exist" and "belongs to another tenant" are indistinguishable upstream.
func (s *FormStore) GetByIDAndTenant(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*domain.FormTemplate, error) {
	return s.get(ctx, `SELECT `+formCols+` FROM form_templates WHERE id = $1 AND tenant_id = $2`, id, tenantID)
}

func (s *FormStore) ListFieldTemplates(ctx context.Context, formID uuid.UUID) ([]domain.FieldTemplate, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, form_id, label, field_type, required, options, display_order
		 FROM field_templates WHERE form_id = $1
		 ORDER BY display_order`,
		formID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []domain.FieldTemplate
	for rows.Next() {
		var ft domain.FieldTemplate
		if err := rows.Scan(&ft.ID, &ft.FormID, &ft.Label, &ft.FieldType, &ft.Required, &ft.Options, &ft.DisplayOrder); err != nil {
			return nil, err
		}
		fields = append(fields, ft)
	}
	return fields, rows.Err()
}

func (s *FormStore) GetInterval(ctx context.Context, formID uuid.UUID) (*domain.ArrivalDepartureInterval, error) {
	iv := &domain.ArrivalDepartureInterval{}
	err := s.db.QueryRow(ctx,
		`SELECT form_id, start_time, end_time, updated_at
		 FROM form_intervals WHERE form_id = $1`,
		formID,
	).Scan(&iv.FormID, &iv.StartTime, &iv.EndTime, &iv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return iv, nil
}

// UpsertInterval replaces any existing window for the form. form_id is
// the primary key, so a form can never hold two intervals.
func (s *FormStore) UpsertInterval(ctx context.Context, iv *domain.ArrivalDepartureInterval) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO form_intervals (form_id, start_time, end_time)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (form_id) DO UPDATE
		 SET start_time = EXCLUDED.start_time,
		     end_time = EXCLUDED.end_time,
		     updated_at = now()
		 RETURNING updated_at`,
		iv.FormID, iv.StartTime, iv.EndTime,
	).Scan(&iv.UpdatedAt)
}

func (s *FormStore) get(ctx context.Context, query string, args ...any) (*domain.FormTemplate, error) {
	f := &domain.FormTemplate{}
	err := s.db.QueryRow(ctx, query, args...).Scan(
		&f.ID, &f.TenantID, &f.Name, &f.Description, &f.Purpose, &f.Type, &f.Active, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}
