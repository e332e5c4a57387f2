package repository

import (
	"context"
	"errors"
	"time"

	"callcrm_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID          uuid.UUID
	Company     string
	ContactName *string
	Role        domain.ContactRole
	Phone       string
	Status      domain.Status
	InCall      bool
	NextRetryAt *time.Time
	Notes       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CreateLeadParams struct {
	Company     string
	ContactName *string
	Role        domain.ContactRole
	Phone       string
	Notes       *string
}

const leadColumns = `id, company, contact_name, role, phone, status, in_call, next_retry_at, notes, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.Company, &lead.ContactName, &lead.Role, &lead.Phone,
		&lead.Status, &lead.InCall, &lead.NextRetryAt, &lead.Notes,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	return lead, err
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (company, contact_name, role, phone, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+leadColumns+`
	`, params.Company, params.ContactName, params.Role, params.Phone, domain.StatusNew, params.Notes)

	return scanLead(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE id = $1
	`, id)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// List returns leads, optionally filtered by status, newest first.
func (r *Repository) List(ctx context.Context, status *domain.Status, limit, offset int) ([]Lead, error) {
	query := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	var statusArg *string
	if status != nil {
		s := string(*status)
		statusArg = &s
	}

	rows, err := r.pool.Query(ctx, query, statusArg, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}

	return leads, rows.Err()
}

// UpdateStatus writes the status and retry deadline as a partial update.
// Other columns are untouched so concurrent writers on disjoint fields
// cannot clobber each other.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status, nextRetryAt *time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET status = $2, next_retry_at = $3, updated_at = now()
		WHERE id = $1
	`, id, status, nextRetryAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetInCall toggles the transient in-call flag.
func (r *Repository) SetInCall(ctx context.Context, id uuid.UUID, inCall bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET in_call = $2, updated_at = now()
		WHERE id = $1
	`, id, inCall)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateNotes replaces the free-form notes field only.
func (r *Repository) UpdateNotes(ctx context.Context, id uuid.UUID, notes string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET notes = $2, updated_at = now()
		WHERE id = $1
	`, id, notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SelectDue returns leads in a retry queue whose deadline has elapsed,
// oldest deadline first, capped at limit.
func (r *Repository) SelectDue(ctx context.Context, now time.Time, limit int) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE status = ANY($1) AND next_retry_at IS NOT NULL AND next_retry_at <= $2
		ORDER BY next_retry_at ASC
		LIMIT $3
	`, []string{string(domain.StatusRetryQueue), string(domain.StatusAbgebrochenQueue)}, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}

	return leads, rows.Err()
}

// PushRetry moves the retry deadline forward so overlapping sweep runs do
// not double-dispatch the same lead. Status is left untouched.
func (r *Repository) PushRetry(ctx context.Context, id uuid.UUID, until time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET next_retry_at = $2, updated_at = now()
		WHERE id = $1
	`, id, until)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// StatusCounts returns the number of leads per status.
func (r *Repository) StatusCounts(ctx context.Context) (map[domain.Status]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM leads
		GROUP BY status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Status]int, len(domain.AllStatuses))
	for _, s := range domain.AllStatuses {
		counts[s] = 0
	}
	for rows.Next() {
		var status domain.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}

	return counts, rows.Err()
}
