// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"callcrm_backend/internal/leads/domain"
	"callcrm_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadStatusChanged is published whenever a lead moves between queues,
// whether by webhook event, sweep push or manual dashboard action.
type LeadStatusChanged struct {
	BaseEvent
	LeadID    uuid.UUID     `json:"leadId"`
	OldStatus domain.Status `json:"oldStatus"`
	NewStatus domain.Status `json:"newStatus"`
	Trigger   string        `json:"trigger"`
}

func (e LeadStatusChanged) EventName() string { return "leads.status.changed" }

// DoNotCallRequested is published when a contact opts out, either via an
// explicit provider event or a transcript phrase match.
type DoNotCallRequested struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Phone  string    `json:"phone"`
	Source string    `json:"source"`
}

func (e DoNotCallRequested) EventName() string { return "leads.do_not_call.requested" }

// =============================================================================
// Calls Domain Events
// =============================================================================

// CallDispatched is published when an outbound call has been handed to the
// dialer, manually or by the retry sweep.
type CallDispatched struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	AttemptID string    `json:"attemptId"`
	Trigger   string    `json:"trigger"`
}

func (e CallDispatched) EventName() string { return "calls.dispatched" }

// CallFinished is published when a call attempt closes with an outcome.
type CallFinished struct {
	BaseEvent
	LeadID     uuid.UUID      `json:"leadId"`
	AttemptID  string         `json:"attemptId"`
	Outcome    domain.Outcome `json:"outcome"`
	FinishedAt time.Time      `json:"finishedAt"`
}

func (e CallFinished) EventName() string { return "calls.finished" }
