package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	callsrepo "callcrm_backend/internal/calls/repository"
	domainevents "callcrm_backend/internal/events"
	"callcrm_backend/internal/leads/domain"
	leadsrepo "callcrm_backend/internal/leads/repository"
	"callcrm_backend/internal/transcript"
	"callcrm_backend/platform/apperr"
	"callcrm_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// LeadStore is the slice of the lead repository the webhook needs.
type LeadStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (leadsrepo.Lead, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status, nextRetryAt *time.Time) error
	SetInCall(ctx context.Context, id uuid.UUID, inCall bool) error
}

// Ledger is the slice of the attempt ledger the webhook needs.
type Ledger interface {
	EnsureAttempt(ctx context.Context, id string, leadID uuid.UUID, occurredAt time.Time, synthetic bool) error
	AppendEvent(ctx context.Context, ev callsrepo.AttemptEvent) error
	SetOutcome(ctx context.Context, id string, outcome domain.Outcome, closed bool) error
	Close(ctx context.Context, id string) error
	SetTransferTarget(ctx context.Context, id, target string) error
	AppendTranscript(ctx context.Context, id, speaker, text string, occurredAt time.Time) error
}

// AuditArchive stores payloads that could not be attributed or understood.
type AuditArchive interface {
	Archive(ctx context.Context, rawType string, payload json.RawMessage, reason string) error
}

type Service struct {
	leads  LeadStore
	ledger Ledger
	audit  AuditArchive
	bus    domainevents.Bus
	log    *logger.Logger
	now    func() time.Time
}

func NewService(leads LeadStore, ledger Ledger, audit AuditArchive, bus domainevents.Bus, log *logger.Logger) *Service {
	return &Service{
		leads:  leads,
		ledger: ledger,
		audit:  audit,
		bus:    bus,
		log:    log,
		now:    time.Now,
	}
}

// Result is what the provider sees in the 200 response.
type Result struct {
	Processed string
	LeadID    string
}

// Process handles one inbound provider event. An error is returned only when
// the event could not be durably logged; downstream side effects that fail
// are logged for reconciliation instead, so the provider does not
// retry-storm events we already recorded.
func (s *Service) Process(ctx context.Context, raw json.RawMessage, event ProviderEvent) (Result, error) {
	now := s.now()
	canonical := Normalize(event.Type)

	leadID, hasLead := event.ExtractLeadID()
	if !hasLead {
		// Nothing to attach the event to. Archive and accept.
		if err := s.audit.Archive(ctx, event.Type, raw, "no lead id"); err != nil {
			return Result{}, apperr.Wrap(apperr.KindInternal, "failed to archive event", err)
		}
		s.log.Warn("webhook event without lead id archived", "raw_type", event.Type)
		return Result{Processed: string(canonical)}, nil
	}

	// The lead must exist before the ledger accepts an attempt for it; the
	// ledger's foreign key would reject the row anyway. An id we never
	// issued (stale replay, foreign environment) is archived and accepted,
	// never answered with an error that makes the provider redeliver.
	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, leadsrepo.ErrNotFound) {
			if archiveErr := s.audit.Archive(ctx, event.Type, raw, "unknown lead"); archiveErr != nil {
				return Result{}, apperr.Wrap(apperr.KindInternal, "failed to archive event", archiveErr)
			}
			s.log.Warn("webhook event for unknown lead archived",
				"lead_id", leadID.String(), "raw_type", event.Type)
			return Result{Processed: string(canonical)}, nil
		}
		return Result{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}

	attemptID, synthetic := event.ExtractAttemptID(leadID, now)
	if synthetic {
		// Missing conversation IDs break idempotency across redeliveries.
		// Logged as a data-quality defect, not papered over.
		s.log.Warn("provider omitted conversation id, attempt id is synthetic",
			"lead_id", leadID.String(), "attempt_id", attemptID, "raw_type", event.Type)
	}
	s.log.WebhookEvent(event.Type, string(canonical), leadID.String(), attemptID)

	occurredAt := event.OccurredAt(now)

	// The ledger write is the durability point: once the entry exists, the
	// provider gets a 200 no matter what else fails.
	if err := s.ledger.EnsureAttempt(ctx, attemptID, leadID, occurredAt, synthetic); err != nil {
		return Result{}, apperr.Wrap(apperr.KindInternal, "failed to record call attempt", err)
	}
	if err := s.ledger.AppendEvent(ctx, callsrepo.AttemptEvent{
		AttemptID:  attemptID,
		EventType:  canonical,
		RawType:    event.Type,
		Payload:    raw,
		OccurredAt: occurredAt,
	}); err != nil {
		return Result{}, apperr.Wrap(apperr.KindInternal, "failed to append ledger entry", err)
	}

	result := Result{Processed: string(canonical), LeadID: leadID.String()}

	var tc domain.Classification
	if event.Transcript != "" {
		verdict := transcript.Classify(event.Transcript)
		tc = domain.Classification{
			DNCRequested:           verdict.DNCRequested,
			DecisionMakerMentioned: verdict.DecisionMakerMentioned,
		}
	}

	decision := domain.Decide(lead.Status, canonical, tc, now)
	s.apply(ctx, lead, event, decision, attemptID, raw, occurredAt)

	return result, nil
}

// apply executes the decision's side effects as a batch of independent
// mutations. Each failure is logged on its own; there is no atomicity
// across the lead update and the attempt update.
func (s *Service) apply(ctx context.Context, lead leadsrepo.Lead, event ProviderEvent, decision domain.Decision, attemptID string, raw json.RawMessage, occurredAt time.Time) {
	var g errgroup.Group

	if decision.NewStatus != "" {
		g.Go(func() error {
			if err := s.leads.UpdateStatus(ctx, lead.ID, decision.NewStatus, decision.NextRetryAt); err != nil {
				s.log.Error("lead status update failed", "lead_id", lead.ID.String(), "error", err)
				return err
			}
			s.bus.Publish(ctx, domainevents.LeadStatusChanged{
				BaseEvent: domainevents.NewBaseEvent(),
				LeadID:    lead.ID,
				OldStatus: lead.Status,
				NewStatus: decision.NewStatus,
				Trigger:   "webhook:" + event.Type,
			})
			if decision.NewStatus == domain.StatusDoNotCall {
				s.bus.Publish(ctx, domainevents.DoNotCallRequested{
					BaseEvent: domainevents.NewBaseEvent(),
					LeadID:    lead.ID,
					Phone:     lead.Phone,
					Source:    event.Type,
				})
			}
			return nil
		})
	}

	if decision.SetInCall != nil {
		g.Go(func() error {
			if err := s.leads.SetInCall(ctx, lead.ID, *decision.SetInCall); err != nil {
				s.log.Error("in-call flag update failed", "lead_id", lead.ID.String(), "error", err)
				return err
			}
			return nil
		})
	}

	if decision.Outcome != "" {
		g.Go(func() error {
			if err := s.ledger.SetOutcome(ctx, attemptID, decision.Outcome, decision.ClosesAttempt); err != nil {
				s.log.Error("outcome update failed", "attempt_id", attemptID, "error", err)
				return err
			}
			s.bus.Publish(ctx, domainevents.CallFinished{
				BaseEvent:  domainevents.NewBaseEvent(),
				LeadID:     lead.ID,
				AttemptID:  attemptID,
				Outcome:    decision.Outcome,
				FinishedAt: occurredAt,
			})
			return nil
		})
	} else if decision.ClosesAttempt {
		g.Go(func() error {
			if err := s.ledger.Close(ctx, attemptID); err != nil {
				s.log.Error("attempt close failed", "attempt_id", attemptID, "error", err)
				return err
			}
			return nil
		})
	}

	if Normalize(event.Type) == domain.EventTransferred {
		target := event.ExtractTransferTarget()
		g.Go(func() error {
			if err := s.ledger.SetTransferTarget(ctx, attemptID, target); err != nil {
				s.log.Error("transfer target update failed", "attempt_id", attemptID, "error", err)
				return err
			}
			return nil
		})
	}

	if event.Transcript != "" {
		text := event.Transcript
		g.Go(func() error {
			if err := s.ledger.AppendTranscript(ctx, attemptID, "contact", text, occurredAt); err != nil {
				s.log.Error("transcript append failed", "attempt_id", attemptID, "error", err)
				return err
			}
			return nil
		})
	}

	if decision.Archive {
		g.Go(func() error {
			if err := s.audit.Archive(ctx, event.Type, raw, "unknown event type"); err != nil {
				s.log.Error("audit archive failed", "raw_type", event.Type, "error", err)
				return err
			}
			return nil
		})
	}

	if decision.Suppressed {
		s.log.Info("event suppressed by do-not-call guard",
			"lead_id", lead.ID.String(), "raw_type", event.Type)
	}

	if err := g.Wait(); err != nil {
		s.log.Warn("webhook side effects partially failed", "lead_id", lead.ID.String(), "attempt_id", attemptID)
	}
}
