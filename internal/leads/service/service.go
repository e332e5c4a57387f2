// Package service implements lead lifecycle operations for the dashboard.
package service

import (
	"context"
	"errors"
	"time"

	"callcrm_backend/internal/leads/domain"
	"callcrm_backend/internal/leads/repository"
	"callcrm_backend/platform/apperr"
	"callcrm_backend/platform/logger"
	"callcrm_backend/platform/phone"

	"github.com/google/uuid"
)

// AttemptCounter exposes the ledger's same-day attempt count for stats.
type AttemptCounter interface {
	CountStartedSince(ctx context.Context, since time.Time) (int, error)
}

// Store is the slice of the lead repository the service needs.
type Store interface {
	Create(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	List(ctx context.Context, status *domain.Status, limit, offset int) ([]repository.Lead, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status, nextRetryAt *time.Time) error
	UpdateNotes(ctx context.Context, id uuid.UUID, notes string) error
	StatusCounts(ctx context.Context) (map[domain.Status]int, error)
}

type Service struct {
	repo     Store
	attempts AttemptCounter
	loc      *time.Location
	log      *logger.Logger
}

func New(repo Store, attempts AttemptCounter, loc *time.Location, log *logger.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, attempts: attempts, loc: loc, log: log}
}

type CreateLeadInput struct {
	Company     string
	ContactName *string
	Role        domain.ContactRole
	Phone       string
	Notes       *string
}

// Create registers a new lead with status "new". The phone number must be
// E.164-normalizable; intake rejects anything the dialer could not call.
func (s *Service) Create(ctx context.Context, input CreateLeadInput) (repository.Lead, error) {
	normalized, err := phone.ValidateE164(input.Phone)
	if err != nil {
		return repository.Lead{}, apperr.Wrap(apperr.KindValidation, "phone number is not dialable", err)
	}

	role := input.Role
	if role == "" {
		role = domain.RoleUnknown
	}

	lead, err := s.repo.Create(ctx, repository.CreateLeadParams{
		Company:     input.Company,
		ContactName: input.ContactName,
		Role:        role,
		Phone:       normalized,
		Notes:       input.Notes,
	})
	if err != nil {
		s.log.DatabaseError("leads.create", err)
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to create lead", err)
	}

	return lead, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}
	return lead, nil
}

func (s *Service) List(ctx context.Context, status *domain.Status, limit, offset int) ([]repository.Lead, error) {
	if status != nil && !domain.IsKnownStatus(*status) {
		return nil, apperr.Validation("unknown lead status")
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	leads, err := s.repo.List(ctx, status, limit, offset)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list leads", err)
	}
	return leads, nil
}

// MoveToQueue applies a manual dashboard queue move. The retry-deadline
// invariant is enforced here: retry queues require a deadline, every other
// status clears it. Leaving do_not_call requires the privileged override.
func (s *Service) MoveToQueue(ctx context.Context, id uuid.UUID, status domain.Status, retryAt *time.Time, override bool) (repository.Lead, error) {
	if !domain.IsKnownStatus(status) {
		return repository.Lead{}, apperr.Validation("unknown lead status")
	}

	lead, err := s.Get(ctx, id)
	if err != nil {
		return repository.Lead{}, err
	}

	if domain.IsAbsorbing(lead.Status) && !override {
		return repository.Lead{}, apperr.PreconditionFailed("lead is on the do-not-call list")
	}

	if domain.RequiresRetryAt(status) {
		if retryAt == nil {
			return repository.Lead{}, apperr.Validation("retry queues require a retry deadline")
		}
	} else {
		retryAt = nil
	}

	if err := s.repo.UpdateStatus(ctx, id, status, retryAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, apperr.NotFound("lead not found")
		}
		s.log.DatabaseError("leads.update_status", err)
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to update lead", err)
	}

	return s.Get(ctx, id)
}

func (s *Service) UpdateNotes(ctx context.Context, id uuid.UUID, notes string) error {
	if err := s.repo.UpdateNotes(ctx, id, notes); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("lead not found")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to update notes", err)
	}
	return nil
}

// Stats aggregates lead counts per status plus the number of call attempts
// started since local midnight.
type Stats struct {
	LeadsByStatus map[domain.Status]int
	CallsToday    int
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	counts, err := s.repo.StatusCounts(ctx)
	if err != nil {
		return Stats{}, apperr.Wrap(apperr.KindInternal, "failed to count leads", err)
	}

	result := Stats{LeadsByStatus: counts}

	if s.attempts != nil {
		now := time.Now().In(s.loc)
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
		calls, err := s.attempts.CountStartedSince(ctx, midnight)
		if err != nil {
			return Stats{}, apperr.Wrap(apperr.KindInternal, "failed to count call attempts", err)
		}
		result.CallsToday = calls
	}

	return result, nil
}
