package scheduler

import (
	"net/http"

	apphttp "callcrm_backend/internal/http"
	"callcrm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module exposes the sweep trigger over HTTP for external cron services.
type Module struct {
	sweeper *RetrySweeper
}

func NewModule(sweeper *RetrySweeper) *Module {
	return &Module{sweeper: sweeper}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "scheduler"
}

// RegisterRoutes mounts the sweep trigger on the internal group, which only
// admits the trusted scheduler header or local callers.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Internal.POST("/retry-sweep", m.TriggerSweep)
}

func (m *Module) TriggerSweep(c *gin.Context) {
	result, err := m.sweeper.SweepOnce(c.Request.Context())
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "retry sweep failed", err.Error())
		return
	}

	if result.Skipped {
		httpkit.OK(c, gin.H{"message": result.Message, "skipped": true})
		return
	}

	leads := make([]string, 0, len(result.Leads))
	for _, id := range result.Leads {
		leads = append(leads, id.String())
	}
	httpkit.OK(c, gin.H{
		"processed": result.Processed,
		"failed":    result.Failed,
		"leads":     leads,
	})
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
