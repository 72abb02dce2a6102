package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/presenza-app/presenza/internal/domain"
)

type PresenceStore struct {
	db *pgxpool.Pool
}

func NewPresenceStore(db *pgxpool.Pool) *PresenceStore {
	return &PresenceStore{db: db}
}

// RecordSameDay serializes the day-window read and the insert per user:
// the transaction takes a FOR UPDATE lock on the user row, so two
// concurrent submissions for the same visitor cannot both classify
// against the same history. Read committed is sufficient under the
// lock. Locking the user is coarser than (user, form, day), but the
// only contention is one visitor double-submitting.
func (s *PresenceStore) RecordSameDay(ctx context.Context, p *domain.Presence, dayStart, dayEnd time.Time, classify domain.ClassifyFunc) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var lockedID uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT id FROM users WHERE id = $1 AND tenant_id = $2 FOR UPDATE`,
		p.UserID, p.TenantID,
	).Scan(&lockedID)
	if err != nil {
		return err
	}

	rows, err := tx.Query(ctx,
		`SELECT id, tenant_id, user_id, form_id, presence_type, created_at
		 FROM presences
		 WHERE user_id = $1 AND form_id = $2 AND tenant_id = $3
		   AND created_at >= $4 AND created_at < $5
		 ORDER BY created_at DESC`,
		p.UserID, p.FormID, p.TenantID, dayStart, dayEnd,
	)
	if err != nil {
		return err
	}

	var history []domain.Presence
	for rows.Next() {
		var h domain.Presence
		if err := rows.Scan(&h.ID, &h.TenantID, &h.UserID, &h.FormID, &h.Type, &h.CreatedAt); err != nil {
			rows.Close()
			return err
		}
		history = append(history, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	p.Type = classify(history)

	err = tx.QueryRow(ctx,
		`INSERT INTO presences (tenant_id, user_id, form_id, presence_type)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		p.TenantID, p.UserID, p.FormID, p.Type,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *PresenceStore) ListByUser(ctx context.Context, userID uuid.UUID, tenantID uuid.UUID, limit int) ([]domain.PresenceWithForm, error) {
	rows, err := s.db.Query(ctx,
		`SELECT p.id, p.tenant_id, p.user_id, p.form_id, p.presence_type, p.created_at,
		        f.name, f.form_type
		 FROM presences p
		 JOIN form_templates f ON f.id = p.form_id
		 WHERE p.user_id = $1 AND p.tenant_id = $2
		 ORDER BY p.created_at DESC
		 LIMIT $3`,
		userID, tenantID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PresenceWithForm
	for rows.Next() {
		var p domain.PresenceWithForm
		if err := rows.Scan(&p.ID, &p.TenantID, &p.UserID, &p.FormID, &p.Type, &p.CreatedAt, &p.FormName, &p.FormType); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
