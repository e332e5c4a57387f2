package webhook

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository persists payloads that could not be processed: unknown
// event types, events without a lead, events for missing leads. Rows are
// kept for manual reconciliation and never deleted.
type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Archive(ctx context.Context, rawType string, payload json.RawMessage, reason string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_events (raw_type, payload, reason)
		VALUES ($1, $2, $3)
	`, rawType, payload, reason)
	return err
}

// AuditEntry is one archived payload.
type AuditEntry struct {
	ID      int64
	RawType string
	Payload json.RawMessage
	Reason  string
}

// ListRecent returns the newest archived payloads for the dashboard.
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]AuditEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, raw_type, payload, reason
		FROM audit_events
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]AuditEntry, 0)
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.RawType, &e.Payload, &e.Reason); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
