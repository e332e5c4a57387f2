package transport

import (
	"encoding/json"
	"time"

	"callcrm_backend/internal/calls/repository"
	"callcrm_backend/internal/calls/service"

	"github.com/google/uuid"
)

type AttemptResponse struct {
	ID             string    `json:"id"`
	LeadID         uuid.UUID `json:"leadId"`
	StartedAt      time.Time `json:"startedAt"`
	LastEventAt    time.Time `json:"lastEventAt"`
	Outcome        *string   `json:"outcome,omitempty"`
	TransferTarget *string   `json:"transferTarget,omitempty"`
	Closed         bool      `json:"closed"`
	SyntheticID    bool      `json:"syntheticId"`
}

type AttemptEventResponse struct {
	ID         int64           `json:"id"`
	EventType  string          `json:"eventType"`
	RawType    string          `json:"rawType"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
}

type TranscriptLineResponse struct {
	Seq        int       `json:"seq"`
	Speaker    string    `json:"speaker"`
	Text       string    `json:"text"`
	OccurredAt time.Time `json:"occurredAt"`
}

type AttemptDetailResponse struct {
	AttemptResponse
	Events     []AttemptEventResponse   `json:"events"`
	Transcript []TranscriptLineResponse `json:"transcript"`
}

type StartCallResponse struct {
	Success   bool   `json:"success"`
	AttemptID string `json:"attemptId"`
}

func ToAttemptResponse(a repository.Attempt) AttemptResponse {
	var outcome *string
	if a.Outcome != nil {
		s := string(*a.Outcome)
		outcome = &s
	}
	return AttemptResponse{
		ID:             a.ID,
		LeadID:         a.LeadID,
		StartedAt:      a.StartedAt,
		LastEventAt:    a.LastEventAt,
		Outcome:        outcome,
		TransferTarget: a.TransferTarget,
		Closed:         a.Closed,
		SyntheticID:    a.SyntheticID,
	}
}

func ToAttemptResponses(attempts []repository.Attempt) []AttemptResponse {
	out := make([]AttemptResponse, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, ToAttemptResponse(a))
	}
	return out
}

func ToAttemptDetailResponse(detail service.AttemptDetail) AttemptDetailResponse {
	events := make([]AttemptEventResponse, 0, len(detail.Events))
	for _, ev := range detail.Events {
		events = append(events, AttemptEventResponse{
			ID:         ev.ID,
			EventType:  string(ev.EventType),
			RawType:    ev.RawType,
			Payload:    ev.Payload,
			OccurredAt: ev.OccurredAt,
		})
	}
	transcript := make([]TranscriptLineResponse, 0, len(detail.Transcript))
	for _, line := range detail.Transcript {
		transcript = append(transcript, TranscriptLineResponse{
			Seq:        line.Seq,
			Speaker:    line.Speaker,
			Text:       line.Text,
			OccurredAt: line.OccurredAt,
		})
	}
	return AttemptDetailResponse{
		AttemptResponse: ToAttemptResponse(detail.Attempt),
		Events:          events,
		Transcript:      transcript,
	}
}
