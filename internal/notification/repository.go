package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists the do-not-call register. Rows are written once per
// opt-out and kept forever; the register is the compliance record the lead
// status alone does not provide.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) RecordOptOut(ctx context.Context, leadID uuid.UUID, phone, source string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO dnc_register (lead_id, phone, source)
		VALUES ($1, $2, $3)
		ON CONFLICT (phone) DO NOTHING
	`, leadID, phone, source)
	return err
}

// OptOut is one do-not-call register entry.
type OptOut struct {
	LeadID     uuid.UUID
	Phone      string
	Source     string
	RecordedAt time.Time
}

func (r *Repository) List(ctx context.Context, limit int) ([]OptOut, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT lead_id, phone, source, recorded_at
		FROM dnc_register
		ORDER BY recorded_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]OptOut, 0)
	for rows.Next() {
		var e OptOut
		if err := rows.Scan(&e.LeadID, &e.Phone, &e.Source, &e.RecordedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
