// Package notification reacts to domain events that need a durable trace:
// opt-outs land in the do-not-call register, queue moves in the log.
package notification

import (
	"context"
	"net/http"
	"strconv"

	"callcrm_backend/internal/events"
	apphttp "callcrm_backend/internal/http"
	"callcrm_backend/platform/httpkit"
	"callcrm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	repo *Repository
	log  *logger.Logger
}

func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	return &Module{repo: NewRepository(pool), log: log}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// RegisterHandlers subscribes this module to the domain events it tracks.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.DoNotCallRequested{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.DoNotCallRequested)
		if !ok {
			return nil
		}
		if err := m.repo.RecordOptOut(ctx, e.LeadID, e.Phone, e.Source); err != nil {
			m.log.Error("failed to record opt-out", "lead_id", e.LeadID.String(), "error", err)
			return err
		}
		m.log.Info("opt-out recorded", "lead_id", e.LeadID.String(), "source", e.Source)
		return nil
	}))

	bus.Subscribe(events.LeadStatusChanged{}.EventName(), events.HandlerFunc(func(_ context.Context, event events.Event) error {
		e, ok := event.(events.LeadStatusChanged)
		if !ok {
			return nil
		}
		m.log.Info("lead moved",
			"lead_id", e.LeadID.String(),
			"from", string(e.OldStatus),
			"to", string(e.NewStatus),
			"trigger", e.Trigger,
		)
		return nil
	}))
}

// RegisterRoutes mounts the do-not-call register view.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/dnc-register", func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		if limit < 1 || limit > 1000 {
			limit = 100
		}
		entries, err := m.repo.List(c.Request.Context(), limit)
		if err != nil {
			httpkit.Error(c, http.StatusInternalServerError, "failed to load register", nil)
			return
		}
		httpkit.OK(c, gin.H{"entries": entries})
	})
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
