package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"callcrm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// maxPayloadBytes bounds inbound webhook bodies. Provider events are small;
// anything larger is hostile or broken.
const maxPayloadBytes = 1 << 20

// AckResponse is the acknowledgement envelope the provider receives for
// every accepted event, including unknown and malformed ones.
type AckResponse struct {
	Success   bool   `json:"success"`
	Processed string `json:"processed"`
	LeadID    string `json:"lead_id,omitempty"`
}

type Handler struct {
	svc   *Service
	audit *AuditRepository
}

func NewHandler(svc *Service, audit *AuditRepository) *Handler {
	return &Handler{svc: svc, audit: audit}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/events", h.HandleEvent)
}

// RegisterAuditRoutes mounts the reconciliation view on a protected group.
func (h *Handler) RegisterAuditRoutes(rg *gin.RouterGroup) {
	rg.GET("/audit-events", h.ListAuditEvents)
}

// HandleEvent accepts any provider event shape. It never answers 4xx for
// unrecognized types; the only failure mode is 500 when the event could not
// be durably logged.
func (h *Handler) HandleEvent(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadBytes))
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to read payload", nil)
		return
	}

	var event ProviderEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		// Not JSON at all. Archive the bytes and accept, same as an
		// unknown event type.
		if archiveErr := h.svc.audit.Archive(c.Request.Context(), "", json.RawMessage(strconv.Quote(string(raw))), "malformed payload"); archiveErr != nil {
			httpkit.Error(c, http.StatusInternalServerError, "failed to archive payload", archiveErr.Error())
			return
		}
		httpkit.OK(c, AckResponse{Success: true, Processed: "unknown"})
		return
	}

	result, err := h.svc.Process(c.Request.Context(), raw, event)
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to process event", err.Error())
		return
	}

	httpkit.OK(c, AckResponse{
		Success:   true,
		Processed: result.Processed,
		LeadID:    result.LeadID,
	})
}

func (h *Handler) ListAuditEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 500 {
		limit = 50
	}

	entries, err := h.audit.ListRecent(c.Request.Context(), limit)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, gin.H{"events": entries})
}
