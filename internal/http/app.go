package http

import (
	"context"

	"callcrm_backend/platform/config"
	"callcrm_backend/platform/events"
	"callcrm_backend/platform/logger"
)

// RouterConfig is the slice of configuration the HTTP surface needs: bind
// address and CORS on one side, JWT verification for the dashboard routes
// on the other.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker answers the readiness probe, backed by a database ping.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is what the composition root hands to the router: shared
// infrastructure plus the modules that own the routes (leads, calls,
// webhook, campaigns, scheduler trigger).
type App struct {
	Config   RouterConfig
	Logger   *logger.Logger
	Health   HealthChecker
	EventBus events.Bus
	Modules  []Module
}
