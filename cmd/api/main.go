package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"callcrm_backend/internal/calls"
	"callcrm_backend/internal/campaigns"
	campaignsvc "callcrm_backend/internal/campaigns/service"
	"callcrm_backend/internal/dialer"
	"callcrm_backend/internal/events"
	apphttp "callcrm_backend/internal/http"
	"callcrm_backend/internal/http/router"
	"callcrm_backend/internal/leads"
	leadsrepo "callcrm_backend/internal/leads/repository"
	"callcrm_backend/internal/notification"
	"callcrm_backend/internal/scheduler"
	"callcrm_backend/internal/webhook"
	"callcrm_backend/platform/config"
	"callcrm_backend/platform/db"
	"callcrm_backend/platform/logger"
	"callcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// Outbound calling provider; nil when not configured
	dialClient := dialer.NewClient(cfg, log)
	if dialClient.Enabled() {
		log.Info("dialer client initialized", "url", cfg.DialerAPIURL)
	} else {
		log.Warn("DIALER_API_URL not configured; outbound calling disabled")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	notificationModule := notification.NewModule(pool, log)
	notificationModule.RegisterHandlers(eventBus)

	// The calls and leads modules reference each other's stores. The
	// repositories are stateless wrappers over the pool, so the knot is cut
	// by handing the calls module its own lead repository instance.
	callsModule := calls.NewModule(pool, leadsrepo.New(pool), dialClient, eventBus, log)
	leadsModule := leads.NewModule(pool, callsModule.Repository(), val, cfg, log)

	webhookModule := webhook.NewModule(pool, leadsModule.Repository(), callsModule.Repository(), eventBus, log)

	var batchDialer campaignsvc.BatchDialer
	if dialClient.Enabled() {
		batchDialer = dialClient
	}
	campaignsModule := campaigns.NewModule(pool, leadsModule.Service(), batchDialer, val, log)

	// Retry sweep, triggered over HTTP by the external cron. Dispatch goes
	// through the queue when Redis is configured, otherwise inline.
	dispatcher, closeDispatcher := initDispatcher(cfg, callsModule, log)
	if closeDispatcher != nil {
		defer closeDispatcher()
	}
	sweeper := scheduler.NewRetrySweeper(leadsModule.Repository(), dispatcher, cfg, log)
	schedulerModule := scheduler.NewModule(sweeper)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			callsModule,
			webhookModule,
			campaignsModule,
			schedulerModule,
			notificationModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initDispatcher(cfg *config.Config, callsModule *calls.Module, log *logger.Logger) (scheduler.CallDispatcher, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; sweep dispatches calls inline")
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
		return fmt.Errorf("%s: invalid retry attempts", name)
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

	return fmt.Errorf("%s: %w", name, lastErr)
}
