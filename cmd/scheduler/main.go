package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"callcrm_backend/internal/calls"
	"callcrm_backend/internal/dialer"
	"callcrm_backend/internal/events"
	leadsrepo "callcrm_backend/internal/leads/repository"
	"callcrm_backend/internal/scheduler"
	"callcrm_backend/platform/config"
	"callcrm_backend/platform/db"
	"callcrm_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// The scheduler binary runs the periodic retry sweep and the asynq worker
// that places the actual calls. Deployments using an external cron for the
// sweep can still run this for the worker alone.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	dialClient := dialer.NewClient(cfg, log)
	if !dialClient.Enabled() {
		log.Warn("DIALER_API_URL not configured; dispatched calls will fail")
	}

	leadRepo := leadsrepo.New(pool)
	callsModule := calls.NewModule(pool, leadRepo, dialClient, eventBus, log)

	// Sweep side: select due leads and enqueue dispatch tasks.
	dispatcher, closeDispatcher := initDispatcher(cfg, callsModule, log)
	if closeDispatcher != nil {
		defer closeDispatcher()
	}
	sweeper := scheduler.NewRetrySweeper(leadRepo, dispatcher, cfg, log)
	go sweeper.Run(ctx)

	// Worker side: consume dispatch tasks and place calls.
	if cfg.GetRedisURL() != "" {
		worker, err := scheduler.NewWorker(cfg, callsModule.Service(), log)
		if err != nil {
			log.Error("failed to initialize scheduler worker", "error", err)
			panic("failed to initialize scheduler worker: " + err.Error())
		}
		worker.Run(ctx)
		return
	}

	log.Warn("REDIS_URL not configured; running sweep loop only")
	<-ctx.Done()
}

func initDispatcher(cfg *config.Config, callsModule *calls.Module, log *logger.Logger) (scheduler.CallDispatcher, func()) {
	if cfg.GetRedisURL() == "" {
		return scheduler.NewDirectDispatcher(callsModule.Service(), log), nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize dispatch queue, falling back to inline dispatch", "error", err)
		return scheduler.NewDirectDispatcher(callsModule.Service(), log), nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
