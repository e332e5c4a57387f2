package scheduler

import (
	"context"
	"errors"
	"fmt"

	callsvc "callcrm_backend/internal/calls/service"
	"callcrm_backend/platform/apperr"
	"callcrm_backend/platform/config"
	"callcrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Worker consumes call-dispatch tasks and starts the actual calls. Running
// it in a separate process keeps dialer latency out of the sweep.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	calls  *callsvc.Service
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, calls *callsvc.Service, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		calls:  calls,
		log:    log,
	}

	mux.HandleFunc(TaskCallDispatch, w.handleCallDispatch)

	return w, nil
}

func (w *Worker) handleCallDispatch(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseCallDispatchPayload(task)
	if err != nil {
		return err
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}

	attemptID, err := w.calls.StartCall(ctx, leadID)
	if err != nil {
		// Business-rule blocks are final: the lead opted out (or vanished)
		// between sweep selection and dispatch. Retrying cannot help.
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			switch appErr.Kind {
			case apperr.KindPreconditionFailed, apperr.KindNotFound:
				w.log.Info("call dispatch dropped", "lead_id", payload.LeadID, "reason", appErr.Message)
				return nil
			}
		}
		return err
	}

	w.log.Info("sweep call dispatched", "lead_id", payload.LeadID, "attempt_id", attemptID, "trigger", payload.Trigger)
	return nil
}

// Run serves tasks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
