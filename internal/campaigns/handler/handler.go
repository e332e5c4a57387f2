package handler

import (
	"net/http"
	"strconv"
	"time"

	"callcrm_backend/internal/campaigns/service"
	"callcrm_backend/internal/leads/domain"
	"callcrm_backend/platform/httpkit"
	"callcrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
}

type importLeadRequest struct {
	Company     string  `json:"company" validate:"required,min=1,max=200"`
	ContactName *string `json:"contactName,omitempty" validate:"omitempty,min=1,max=200"`
	Role        string  `json:"role,omitempty" validate:"omitempty,oneof=gatekeeper decision_maker unknown"`
	Phone       string  `json:"phone" validate:"required,min=5,max=20"`
}

type createCampaignRequest struct {
	Name        string              `json:"name" validate:"required,min=1,max=200"`
	ScheduledAt *time.Time          `json:"scheduledAt,omitempty"`
	Leads       []importLeadRequest `json:"leads" validate:"required,min=1,max=500,dive"`
}

func (h *Handler) Create(c *gin.Context) {
	var req createCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	scheduledAt := time.Now()
	if req.ScheduledAt != nil {
		scheduledAt = *req.ScheduledAt
	}

	leads := make([]service.ImportLead, 0, len(req.Leads))
	for _, l := range req.Leads {
		leads = append(leads, service.ImportLead{
			Company:     l.Company,
			ContactName: l.ContactName,
			Role:        domain.ContactRole(l.Role),
			Phone:       l.Phone,
		})
	}

	result, err := h.svc.Create(c.Request.Context(), service.CreateCampaignInput{
		Name:        req.Name,
		ScheduledAt: scheduledAt,
		Leads:       leads,
	})
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.JSON(c, http.StatusCreated, gin.H{
		"campaign": result.Campaign,
		"created":  result.Created,
		"rejected": result.Rejected,
	})
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	campaign, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, campaign)
}

func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	campaigns, err := h.svc.List(c.Request.Context(), limit)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, gin.H{"campaigns": campaigns})
}
