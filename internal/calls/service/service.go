// Package service implements call attempt operations: manual dial-out and
// ledger views.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"callcrm_backend/internal/calls/repository"
	domainevents "callcrm_backend/internal/events"
	"callcrm_backend/internal/leads/domain"
	leadsrepo "callcrm_backend/internal/leads/repository"
	"callcrm_backend/platform/apperr"
	"callcrm_backend/platform/logger"

	"github.com/google/uuid"
)

// Dialer starts an outbound conversational call. Implemented by the dialer
// client; the port keeps this package testable without HTTP.
type Dialer interface {
	StartCall(ctx context.Context, params DialParams) (conversationID string, err error)
	Enabled() bool
}

// DialParams carries the context the agent needs for one call.
type DialParams struct {
	Phone       string
	LeadID      uuid.UUID
	Company     string
	ContactName string
}

type Service struct {
	repo  *repository.Repository
	leads *leadsrepo.Repository
	dial  Dialer
	bus   domainevents.Bus
	log   *logger.Logger
}

func New(repo *repository.Repository, leads *leadsrepo.Repository, dial Dialer, bus domainevents.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, leads: leads, dial: dial, bus: bus, log: log}
}

// StartCall dials a lead on demand from the dashboard. Leads on the
// do-not-call list are never dialed, with no override.
func (s *Service) StartCall(ctx context.Context, leadID uuid.UUID) (string, error) {
	lead, err := s.leads.GetByID(ctx, leadID)
	if errors.Is(err, leadsrepo.ErrNotFound) {
		return "", apperr.NotFound("lead not found")
	}
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}

	if domain.IsAbsorbing(lead.Status) {
		return "", apperr.PreconditionFailed("lead is on the do-not-call list")
	}
	if s.dial == nil || !s.dial.Enabled() {
		return "", apperr.Unavailable("dialer is not configured")
	}

	contactName := ""
	if lead.ContactName != nil {
		contactName = *lead.ContactName
	}

	conversationID, err := s.dial.StartCall(ctx, DialParams{
		Phone:       lead.Phone,
		LeadID:      lead.ID,
		Company:     lead.Company,
		ContactName: contactName,
	})
	if err != nil {
		return "", err
	}

	attemptID := conversationID
	synthetic := false
	if attemptID == "" {
		// The provider should always return a conversation ID. When it does
		// not, mint a traceable fallback and record the defect.
		attemptID = SyntheticAttemptID(lead.ID, time.Now())
		synthetic = true
		s.log.Warn("dialer returned no conversation id, using synthetic attempt id",
			"lead_id", lead.ID.String(), "attempt_id", attemptID)
	}

	now := time.Now()
	if err := s.repo.EnsureAttempt(ctx, attemptID, lead.ID, now, synthetic); err != nil {
		s.log.DatabaseError("calls.ensure_attempt", err)
		return "", apperr.Wrap(apperr.KindInternal, "failed to record call attempt", err)
	}
	if err := s.leads.SetInCall(ctx, lead.ID, true); err != nil {
		s.log.DatabaseError("calls.set_in_call", err)
	}

	s.log.CallDispatched(lead.ID.String(), lead.Phone, attemptID)
	s.bus.Publish(ctx, domainevents.CallDispatched{
		BaseEvent: domainevents.NewBaseEvent(),
		LeadID:    lead.ID,
		AttemptID: attemptID,
		Trigger:   "manual",
	})

	return attemptID, nil
}

// SyntheticAttemptID builds the fallback attempt ID used when the provider
// omits a conversation ID.
func SyntheticAttemptID(leadID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("%s-%d", leadID, at.UnixMilli())
}

func (s *Service) ListByLead(ctx context.Context, leadID uuid.UUID) ([]repository.Attempt, error) {
	if _, err := s.leads.GetByID(ctx, leadID); errors.Is(err, leadsrepo.ErrNotFound) {
		return nil, apperr.NotFound("lead not found")
	} else if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}

	attempts, err := s.repo.ListByLead(ctx, leadID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list call attempts", err)
	}
	return attempts, nil
}

// AttemptDetail is one attempt with its full ledger and transcript.
type AttemptDetail struct {
	Attempt    repository.Attempt
	Events     []repository.AttemptEvent
	Transcript []repository.TranscriptLine
}

func (s *Service) GetDetail(ctx context.Context, attemptID string) (AttemptDetail, error) {
	attempt, err := s.repo.GetByID(ctx, attemptID)
	if errors.Is(err, repository.ErrNotFound) {
		return AttemptDetail{}, apperr.NotFound("call attempt not found")
	}
	if err != nil {
		return AttemptDetail{}, apperr.Wrap(apperr.KindInternal, "failed to load call attempt", err)
	}

	events, err := s.repo.ListEvents(ctx, attemptID)
	if err != nil {
		return AttemptDetail{}, apperr.Wrap(apperr.KindInternal, "failed to load ledger entries", err)
	}
	transcript, err := s.repo.ListTranscript(ctx, attemptID)
	if err != nil {
		return AttemptDetail{}, apperr.Wrap(apperr.KindInternal, "failed to load transcript", err)
	}

	return AttemptDetail{Attempt: attempt, Events: events, Transcript: transcript}, nil
}
