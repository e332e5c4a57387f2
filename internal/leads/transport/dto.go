package transport

import (
	"time"

	"callcrm_backend/internal/leads/domain"
	"callcrm_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// Request DTOs
type CreateLeadRequest struct {
	Company     string  `json:"company" validate:"required,min=1,max=200"`
	ContactName *string `json:"contactName,omitempty" validate:"omitempty,min=1,max=200"`
	Role        string  `json:"role,omitempty" validate:"omitempty,oneof=gatekeeper decision_maker unknown"`
	Phone       string  `json:"phone" validate:"required,min=5,max=20"`
	Notes       *string `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new retry_queue abgebrochen_queue dm_direct_queue trash_queue do_not_call"`
	// NextRetryAt is required when Status is a retry queue and ignored otherwise.
	NextRetryAt *time.Time `json:"nextRetryAt,omitempty"`
	// Override permits moving a lead out of do_not_call. Restricted action.
	Override bool `json:"override,omitempty"`
}

type UpdateNotesRequest struct {
	Notes string `json:"notes" validate:"max=5000"`
}

// Response DTOs
type LeadResponse struct {
	ID          uuid.UUID  `json:"id"`
	Company     string     `json:"company"`
	ContactName *string    `json:"contactName,omitempty"`
	Role        string     `json:"role"`
	Phone       string     `json:"phone"`
	Status      string     `json:"status"`
	InCall      bool       `json:"inCall"`
	NextRetryAt *time.Time `json:"nextRetryAt,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type StatsResponse struct {
	LeadsByStatus map[string]int `json:"leadsByStatus"`
	CallsToday    int            `json:"callsToday"`
}

func ToLeadResponse(lead repository.Lead) LeadResponse {
	return LeadResponse{
		ID:          lead.ID,
		Company:     lead.Company,
		ContactName: lead.ContactName,
		Role:        string(lead.Role),
		Phone:       lead.Phone,
		Status:      string(lead.Status),
		InCall:      lead.InCall,
		NextRetryAt: lead.NextRetryAt,
		Notes:       lead.Notes,
		CreatedAt:   lead.CreatedAt,
		UpdatedAt:   lead.UpdatedAt,
	}
}

func ToLeadResponses(leads []repository.Lead) []LeadResponse {
	out := make([]LeadResponse, 0, len(leads))
	for _, lead := range leads {
		out = append(out, ToLeadResponse(lead))
	}
	return out
}

func ToStatsResponse(stats map[domain.Status]int, callsToday int) StatsResponse {
	byStatus := make(map[string]int, len(stats))
	for status, count := range stats {
		byStatus[string(status)] = count
	}
	return StatsResponse{LeadsByStatus: byStatus, CallsToday: callsToday}
}
