package scheduler

import (
	"context"

	callsvc "callcrm_backend/internal/calls/service"
	leadsrepo "callcrm_backend/internal/leads/repository"
	"callcrm_backend/platform/apperr"
	"callcrm_backend/platform/logger"
)

// DirectDispatcher starts calls inline, without the queue. Used when Redis
// is not configured; the sweep then carries the dialer latency itself.
type DirectDispatcher struct {
	calls *callsvc.Service
	log   *logger.Logger
}

func NewDirectDispatcher(calls *callsvc.Service, log *logger.Logger) *DirectDispatcher {
	return &DirectDispatcher{calls: calls, log: log}
}

func (d *DirectDispatcher) DispatchCall(ctx context.Context, lead leadsrepo.Lead) error {
	_, err := d.calls.StartCall(ctx, lead.ID)
	if apperr.Is(err, apperr.KindPreconditionFailed) {
		// Opted out after selection. Not a dispatch failure.
		d.log.Info("sweep skipped do-not-call lead", "lead_id", lead.ID.String())
		return nil
	}
	return err
}

var _ CallDispatcher = (*DirectDispatcher)(nil)
var _ CallDispatcher = (*Client)(nil)
