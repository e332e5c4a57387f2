// Package campaigns provides the batch import bounded context module.
package campaigns

import (
	"callcrm_backend/internal/campaigns/handler"
	"callcrm_backend/internal/campaigns/repository"
	"callcrm_backend/internal/campaigns/service"
	apphttp "callcrm_backend/internal/http"
	leadsvc "callcrm_backend/internal/leads/service"
	"callcrm_backend/platform/logger"
	"callcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the campaigns bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the campaigns module.
func NewModule(pool *pgxpool.Pool, leads *leadsvc.Service, dial service.BatchDialer, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, leads, dial, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "campaigns"
}

// RegisterRoutes mounts campaign routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/campaigns"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
