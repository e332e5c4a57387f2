package webhook

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProviderEvent is the superset of event shapes the provider sends across
// its naming schemes. Unknown extra fields are preserved in the raw payload,
// never pattern-matched here.
type ProviderEvent struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	AgentID        string `json:"agent_id,omitempty"`
	// LeadID is the legacy top-level field from the first integration.
	LeadID   string         `json:"leadId,omitempty"`
	Customer *CustomerInfo  `json:"customer,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	// Meta is the legacy envelope for per-event extras.
	Meta       map[string]any `json:"meta,omitempty"`
	Transcript string         `json:"transcript,omitempty"`
	Timestamp  string         `json:"timestamp,omitempty"`
}

type CustomerInfo struct {
	PhoneNumber string `json:"phone_number,omitempty"`
}

// ExtractLeadID resolves the owning lead. Current scheme puts it in
// metadata.lead_id, the legacy scheme at the top level.
func (e ProviderEvent) ExtractLeadID() (uuid.UUID, bool) {
	if raw, ok := e.Metadata["lead_id"].(string); ok {
		if id, err := uuid.Parse(raw); err == nil {
			return id, true
		}
	}
	if e.LeadID != "" {
		if id, err := uuid.Parse(e.LeadID); err == nil {
			return id, true
		}
	}
	return uuid.Nil, false
}

// ExtractAttemptID derives the idempotency key for the attempt. The provider
// conversation ID is authoritative; its absence is a data-quality defect, so
// the synthetic fallback is flagged for the caller to log.
func (e ProviderEvent) ExtractAttemptID(leadID uuid.UUID, now time.Time) (id string, synthetic bool) {
	if e.ConversationID != "" {
		return e.ConversationID, false
	}
	return fmt.Sprintf("%s-%d", leadID, now.UnixMilli()), true
}

// ExtractTransferTarget reads where a transferred call was routed. The
// provider historically defaults to the sales line.
func (e ProviderEvent) ExtractTransferTarget() string {
	if target, ok := e.Meta["transferTarget"].(string); ok && target != "" {
		return target
	}
	if target, ok := e.Metadata["transfer_target"].(string); ok && target != "" {
		return target
	}
	return "sales"
}

// OccurredAt parses the provider timestamp, falling back to now. Timestamps
// are advisory; ledger ordering uses insertion order.
func (e ProviderEvent) OccurredAt(now time.Time) time.Time {
	if e.Timestamp == "" {
		return now
	}
	if ts, err := time.Parse(time.RFC3339, e.Timestamp); err == nil {
		return ts
	}
	return now
}
