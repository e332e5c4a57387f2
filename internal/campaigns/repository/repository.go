package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("campaign not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Campaign is one batch import hand-off to the dialer.
type Campaign struct {
	ID              uuid.UUID
	Name            string
	ProviderBatchID *string
	ScheduledAt     time.Time
	LeadCount       int
	Status          string
	CreatedAt       time.Time
}

type CreateCampaignParams struct {
	Name            string
	ProviderBatchID *string
	ScheduledAt     time.Time
	LeadCount       int
	Status          string
}

func (r *Repository) Create(ctx context.Context, params CreateCampaignParams) (Campaign, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO batch_campaigns (name, provider_batch_id, scheduled_at, lead_count, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, provider_batch_id, scheduled_at, lead_count, status, created_at
	`, params.Name, params.ProviderBatchID, params.ScheduledAt, params.LeadCount, params.Status)

	return scanCampaign(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Campaign, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, provider_batch_id, scheduled_at, lead_count, status, created_at
		FROM batch_campaigns
		WHERE id = $1
	`, id)

	campaign, err := scanCampaign(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Campaign{}, ErrNotFound
	}
	return campaign, err
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE batch_campaigns
		SET status = $2
		WHERE id = $1
	`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) List(ctx context.Context, limit int) ([]Campaign, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, provider_batch_id, scheduled_at, lead_count, status, created_at
		FROM batch_campaigns
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := make([]Campaign, 0)
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, campaign)
	}

	return campaigns, rows.Err()
}

func scanCampaign(row pgx.Row) (Campaign, error) {
	var c Campaign
	err := row.Scan(&c.ID, &c.Name, &c.ProviderBatchID, &c.ScheduledAt, &c.LeadCount, &c.Status, &c.CreatedAt)
	return c, err
}
