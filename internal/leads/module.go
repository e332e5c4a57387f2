// Package leads provides the lead management bounded context module.
package leads

import (
	apphttp "callcrm_backend/internal/http"
	"callcrm_backend/internal/leads/handler"
	"callcrm_backend/internal/leads/repository"
	"callcrm_backend/internal/leads/service"
	"callcrm_backend/platform/config"
	"callcrm_backend/platform/logger"
	"callcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the leads module. The attempts counter
// comes from the calls module; passing the interface here avoids a package
// cycle between the two contexts.
func NewModule(pool *pgxpool.Pool, attempts service.AttemptCounter, val *validator.Validator, cfg config.SweepConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, attempts, cfg.GetWindowLocation(), log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the lead service for cross-module use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the lead store for cross-module use.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
	m.handler.RegisterStatsRoutes(ctx.Protected)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
