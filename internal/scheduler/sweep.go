// Package scheduler selects due leads inside the operating window and hands
// them to the outbound-call pipeline.
package scheduler

import (
	"context"
	"time"

	leadsrepo "callcrm_backend/internal/leads/repository"
	"callcrm_backend/platform/config"
	"callcrm_backend/platform/logger"

	"github.com/google/uuid"
)

// LeadQueue is the slice of the lead store the sweep needs.
type LeadQueue interface {
	SelectDue(ctx context.Context, now time.Time, limit int) ([]leadsrepo.Lead, error)
	PushRetry(ctx context.Context, id uuid.UUID, until time.Time) error
}

// InOperatingWindow reports whether calls may be placed at the given local
// time: weekdays only, hour in [startHour, endHour).
func InOperatingWindow(now time.Time, startHour, endHour int) bool {
	switch now.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return now.Hour() >= startHour && now.Hour() < endHour
}

// SweepResult reports what one sweep run did.
type SweepResult struct {
	Skipped   bool
	Message   string
	Processed int
	Failed    int
	Leads     []uuid.UUID
}

type RetrySweeper struct {
	queue    LeadQueue
	dispatch CallDispatcher
	cfg      config.SweepConfig
	log      *logger.Logger
	now      func() time.Time
}

func NewRetrySweeper(queue LeadQueue, dispatch CallDispatcher, cfg config.SweepConfig, log *logger.Logger) *RetrySweeper {
	return &RetrySweeper{
		queue:    queue,
		dispatch: dispatch,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// SweepOnce runs a single sweep. Outside the operating window it performs no
// store queries at all. Inside, each selected lead is dispatched and its
// retry deadline pushed forward by the buffer so overlapping runs do not
// double-dispatch; one lead failing does not abort the batch.
func (s *RetrySweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	now := s.now().In(s.cfg.GetWindowLocation())

	if !InOperatingWindow(now, s.cfg.GetWindowStartHour(), s.cfg.GetWindowEndHour()) {
		return SweepResult{Skipped: true, Message: "outside operating window"}, nil
	}

	due, err := s.queue.SelectDue(ctx, now, s.cfg.GetSweepBatchSize())
	if err != nil {
		return SweepResult{}, err
	}
	if len(due) == 0 {
		return SweepResult{Message: "no leads due"}, nil
	}

	result := SweepResult{Leads: make([]uuid.UUID, 0, len(due))}
	buffer := s.cfg.GetRetryBuffer()

	for _, lead := range due {
		// Push the deadline first: even if dispatch fails, the lead will
		// not be reselected until the buffer elapses, and the next sweep
		// picks it up again.
		if err := s.queue.PushRetry(ctx, lead.ID, now.Add(buffer)); err != nil {
			s.log.Error("retry push failed", "lead_id", lead.ID.String(), "error", err)
			result.Failed++
			continue
		}

		if err := s.dispatch.DispatchCall(ctx, lead); err != nil {
			s.log.Error("call dispatch failed", "lead_id", lead.ID.String(), "error", err)
			result.Failed++
			continue
		}

		result.Processed++
		result.Leads = append(result.Leads, lead.ID)
	}

	s.log.Info("retry sweep complete",
		"processed", result.Processed, "failed", result.Failed, "due", len(due))
	return result, nil
}

// Run sweeps on a fixed interval until the context is cancelled. Used by the
// standalone scheduler binary; deployments with an external cron hit the
// HTTP trigger instead.
func (s *RetrySweeper) Run(ctx context.Context) {
	interval := s.cfg.GetSweepInterval()
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.log.Error("retry sweep failed", "error", err)
			}
		}
	}
}
