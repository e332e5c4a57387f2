package handler

import (
	"net/http"

	"callcrm_backend/internal/calls/service"
	"callcrm_backend/internal/calls/transport"
	"callcrm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterLeadRoutes mounts the per-lead call routes. The group must share
// its parameter name with the leads module since both live under /leads/:id.
func (h *Handler) RegisterLeadRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/call", h.StartCall)
	rg.GET("/:id/attempts", h.ListByLead)
}

func (h *Handler) RegisterAttemptRoutes(rg *gin.RouterGroup) {
	rg.GET("/:attemptId", h.GetDetail)
}

func (h *Handler) StartCall(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	attemptID, err := h.svc.StartCall(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.Accepted(c, transport.StartCallResponse{Success: true, AttemptID: attemptID})
}

func (h *Handler) ListByLead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	attempts, err := h.svc.ListByLead(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, gin.H{"attempts": transport.ToAttemptResponses(attempts)})
}

func (h *Handler) GetDetail(c *gin.Context) {
	attemptID := c.Param("attemptId")
	if attemptID == "" {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	detail, err := h.svc.GetDetail(c.Request.Context(), attemptID)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, transport.ToAttemptDetailResponse(detail))
}
