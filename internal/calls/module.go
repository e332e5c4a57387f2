// Package calls provides the call attempt ledger bounded context module.
package calls

import (
	"callcrm_backend/internal/calls/handler"
	"callcrm_backend/internal/calls/repository"
	"callcrm_backend/internal/calls/service"
	"callcrm_backend/internal/events"
	apphttp "callcrm_backend/internal/http"
	leadsrepo "callcrm_backend/internal/leads/repository"
	"callcrm_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the calls bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the calls module.
func NewModule(pool *pgxpool.Pool, leads *leadsrepo.Repository, dial service.Dialer, bus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, leads, dial, bus, log)
	h := handler.New(svc)

	return &Module{handler: h, service: svc, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "calls"
}

// Repository returns the attempt ledger for cross-module use.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// Service returns the call service for cross-module use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts call routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterLeadRoutes(ctx.Protected.Group("/leads"))
	m.handler.RegisterAttemptRoutes(ctx.Protected.Group("/attempts"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
