// Package repository persists the append-only call attempt ledger.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"callcrm_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("call attempt not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Attempt is one outbound call. Its ID is the provider's conversation ID;
// when the provider omits one, a synthetic ID is minted and flagged so the
// data-quality defect stays visible.
type Attempt struct {
	ID             string
	LeadID         uuid.UUID
	StartedAt      time.Time
	LastEventAt    time.Time
	Outcome        *domain.Outcome
	TransferTarget *string
	Closed         bool
	SyntheticID    bool
}

// AttemptEvent is one ledger entry. Rows are insert-only.
type AttemptEvent struct {
	ID         int64
	AttemptID  string
	EventType  domain.EventType
	RawType    string
	Payload    json.RawMessage
	OccurredAt time.Time
}

// TranscriptLine is one utterance attached to an attempt. Seq is the
// position within the attempt's transcript, derived from insertion order
// when listing.
type TranscriptLine struct {
	AttemptID  string
	Seq        int
	Speaker    string
	Text       string
	OccurredAt time.Time
}

const attemptColumns = `id, lead_id, started_at, last_event_at, outcome, transfer_target, closed, synthetic_id`

func scanAttempt(row pgx.Row) (Attempt, error) {
	var a Attempt
	err := row.Scan(
		&a.ID, &a.LeadID, &a.StartedAt, &a.LastEventAt,
		&a.Outcome, &a.TransferTarget, &a.Closed, &a.SyntheticID,
	)
	return a, err
}

// EnsureAttempt creates the attempt row if it does not exist yet. Events can
// arrive out of order, so any event type may be the first one seen for a
// conversation.
func (r *Repository) EnsureAttempt(ctx context.Context, id string, leadID uuid.UUID, occurredAt time.Time, synthetic bool) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO call_attempts (id, lead_id, started_at, last_event_at, synthetic_id)
		VALUES ($1, $2, $3, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, id, leadID, occurredAt, synthetic)
	return err
}

// AppendEvent writes one ledger entry and advances the attempt's
// last_event_at high-water mark. Existing rows are never updated.
func (r *Repository) AppendEvent(ctx context.Context, ev AttemptEvent) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO call_attempt_events (attempt_id, event_type, raw_type, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`, ev.AttemptID, ev.EventType, ev.RawType, ev.Payload, ev.OccurredAt)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE call_attempts
		SET last_event_at = GREATEST(last_event_at, $2)
		WHERE id = $1
	`, ev.AttemptID, ev.OccurredAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// SetOutcome records the attempt's final outcome. The first write wins so a
// duplicate delivery cannot overwrite an earlier verdict.
func (r *Repository) SetOutcome(ctx context.Context, id string, outcome domain.Outcome, closed bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE call_attempts
		SET outcome = COALESCE(outcome, $2), closed = closed OR $3
		WHERE id = $1
	`, id, outcome, closed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close marks the attempt finished without touching the outcome.
func (r *Repository) Close(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE call_attempts
		SET closed = TRUE
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SetTransferTarget(ctx context.Context, id, target string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE call_attempts
		SET transfer_target = $2
		WHERE id = $1
	`, id, target)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendTranscript stores one utterance. Ordering rides on the serial row
// id, so concurrent deliveries for one attempt cannot collide and every
// fragment is kept.
func (r *Repository) AppendTranscript(ctx context.Context, id, speaker, text string, occurredAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO call_attempt_transcripts (attempt_id, speaker, text, occurred_at)
		VALUES ($1, $2, $3, $4)
	`, id, speaker, text, occurredAt)
	return err
}

func (r *Repository) GetByID(ctx context.Context, id string) (Attempt, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+attemptColumns+`
		FROM call_attempts
		WHERE id = $1
	`, id)

	attempt, err := scanAttempt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Attempt{}, ErrNotFound
	}
	return attempt, err
}

// ListByLead returns a lead's attempts, newest first.
func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]Attempt, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+attemptColumns+`
		FROM call_attempts
		WHERE lead_id = $1
		ORDER BY started_at DESC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := make([]Attempt, 0)
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}

	return attempts, rows.Err()
}

// ListEvents returns an attempt's ledger entries in arrival order.
func (r *Repository) ListEvents(ctx context.Context, attemptID string) ([]AttemptEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, attempt_id, event_type, raw_type, payload, occurred_at
		FROM call_attempt_events
		WHERE attempt_id = $1
		ORDER BY id ASC
	`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]AttemptEvent, 0)
	for rows.Next() {
		var ev AttemptEvent
		if err := rows.Scan(&ev.ID, &ev.AttemptID, &ev.EventType, &ev.RawType, &ev.Payload, &ev.OccurredAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	return events, rows.Err()
}

// ListTranscript returns an attempt's transcript in insertion order.
func (r *Repository) ListTranscript(ctx context.Context, attemptID string) ([]TranscriptLine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT attempt_id, speaker, text, occurred_at
		FROM call_attempt_transcripts
		WHERE attempt_id = $1
		ORDER BY id ASC
	`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make([]TranscriptLine, 0)
	for rows.Next() {
		var line TranscriptLine
		if err := rows.Scan(&line.AttemptID, &line.Speaker, &line.Text, &line.OccurredAt); err != nil {
			return nil, err
		}
		line.Seq = len(lines) + 1
		lines = append(lines, line)
	}

	return lines, rows.Err()
}

// CountStartedSince counts attempts started at or after the given instant.
func (r *Repository) CountStartedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM call_attempts
		WHERE started_at >= $1
	`, since).Scan(&count)
	return count, err
}
