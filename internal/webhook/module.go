package webhook

import (
	callsrepo "callcrm_backend/internal/calls/repository"
	"callcrm_backend/internal/events"
	apphttp "callcrm_backend/internal/http"
	leadsrepo "callcrm_backend/internal/leads/repository"
	"callcrm_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the webhook ingestion bounded context implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
}

// NewModule creates and initializes the webhook module.
func NewModule(pool *pgxpool.Pool, leads *leadsrepo.Repository, ledger *callsrepo.Repository, bus events.Bus, log *logger.Logger) *Module {
	audit := NewAuditRepository(pool)
	svc := NewService(leads, ledger, audit, bus, log)
	h := NewHandler(svc, audit)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts webhook routes. Ingestion is unauthenticated by
// provider constraint (signature checks happen upstream at the gateway);
// the audit view requires a dashboard token.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/webhook"))
	m.handler.RegisterAuditRoutes(ctx.Protected.Group("/webhook"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
