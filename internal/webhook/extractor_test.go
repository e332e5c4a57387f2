package webhook

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestExtractLeadIDSources(t *testing.T) {
	id := uuid.New()

	metadata := ProviderEvent{Metadata: map[string]any{"lead_id": id.String()}}
	if got, ok := metadata.ExtractLeadID(); !ok || got != id {
		t.Errorf("metadata lead id = %v/%v", got, ok)
	}

	legacy := ProviderEvent{LeadID: id.String()}
	if got, ok := legacy.ExtractLeadID(); !ok || got != id {
		t.Errorf("legacy lead id = %v/%v", got, ok)
	}

	// metadata wins over the legacy field
	both := ProviderEvent{LeadID: uuid.NewString(), Metadata: map[string]any{"lead_id": id.String()}}
	if got, _ := both.ExtractLeadID(); got != id {
		t.Errorf("metadata must take precedence, got %v", got)
	}

	for _, ev := range []ProviderEvent{
		{},
		{LeadID: "not-a-uuid"},
		{Metadata: map[string]any{"lead_id": 42}},
	} {
		if _, ok := ev.ExtractLeadID(); ok {
			t.Errorf("event %+v must not yield a lead id", ev)
		}
	}
}

func TestExtractAttemptIDFallback(t *testing.T) {
	leadID := uuid.New()
	at := time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC)

	withConv := ProviderEvent{ConversationID: "conv_55"}
	if id, synthetic := withConv.ExtractAttemptID(leadID, at); id != "conv_55" || synthetic {
		t.Errorf("got %q synthetic=%v", id, synthetic)
	}

	without := ProviderEvent{}
	id, synthetic := without.ExtractAttemptID(leadID, at)
	if !synthetic {
		t.Error("missing conversation id must be flagged synthetic")
	}
	want := leadID.String() + "-1741082400000"
	if id != want {
		t.Errorf("synthetic id = %q, want %q", id, want)
	}
}

func TestExtractTransferTarget(t *testing.T) {
	if got := (ProviderEvent{Meta: map[string]any{"transferTarget": "support"}}).ExtractTransferTarget(); got != "support" {
		t.Errorf("meta target = %q", got)
	}
	if got := (ProviderEvent{Metadata: map[string]any{"transfer_target": "hq"}}).ExtractTransferTarget(); got != "hq" {
		t.Errorf("metadata target = %q", got)
	}
	if got := (ProviderEvent{}).ExtractTransferTarget(); got != "sales" {
		t.Errorf("default target = %q", got)
	}
}

func TestOccurredAtParsesRFC3339(t *testing.T) {
	now := time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC)

	ev := ProviderEvent{Timestamp: "2025-03-04T08:30:00Z"}
	if got := ev.OccurredAt(now); !got.Equal(time.Date(2025, 3, 4, 8, 30, 0, 0, time.UTC)) {
		t.Errorf("parsed timestamp = %v", got)
	}

	for _, raw := range []string{"", "yesterday", "1741082400"} {
		if got := (ProviderEvent{Timestamp: raw}).OccurredAt(now); !got.Equal(now) {
			t.Errorf("timestamp %q: got %v, want fallback now", raw, got)
		}
	}
}
