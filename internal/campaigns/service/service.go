// Package service implements batch campaign imports: lead intake plus the
// hand-off to the dialer's batch calling queue.
package service

import (
	"context"
	"errors"
	"time"

	"callcrm_backend/internal/campaigns/repository"
	"callcrm_backend/internal/dialer"
	"callcrm_backend/internal/leads/domain"
	leadsvc "callcrm_backend/internal/leads/service"
	"callcrm_backend/platform/apperr"
	"callcrm_backend/platform/logger"

	"github.com/google/uuid"
)

// BatchDialer submits whole campaigns to the provider.
type BatchDialer interface {
	Enabled() bool
	SubmitBatch(ctx context.Context, name string, scheduledAt time.Time, leads []dialer.BatchLead) (string, error)
	GetBatchStatus(ctx context.Context, batchID string) (dialer.BatchStatus, error)
}

type Service struct {
	repo  *repository.Repository
	leads *leadsvc.Service
	dial  BatchDialer
	log   *logger.Logger
}

func New(repo *repository.Repository, leads *leadsvc.Service, dial BatchDialer, log *logger.Logger) *Service {
	return &Service{repo: repo, leads: leads, dial: dial, log: log}
}

type ImportLead struct {
	Company     string
	ContactName *string
	Role        domain.ContactRole
	Phone       string
}

type CreateCampaignInput struct {
	Name        string
	ScheduledAt time.Time
	Leads       []ImportLead
}

// CampaignResult reports a created campaign including per-lead intake
// failures. Intake is not transactional: valid leads are kept even when
// others in the same file are rejected.
type CampaignResult struct {
	Campaign repository.Campaign
	Created  []uuid.UUID
	Rejected []RejectedLead
}

type RejectedLead struct {
	Phone  string
	Reason string
}

// Create imports the leads, submits them to the dialer's batch queue when
// configured, and records the campaign.
func (s *Service) Create(ctx context.Context, input CreateCampaignInput) (CampaignResult, error) {
	if len(input.Leads) == 0 {
		return CampaignResult{}, apperr.Validation("campaign has no leads")
	}

	result := CampaignResult{}
	batchLeads := make([]dialer.BatchLead, 0, len(input.Leads))

	for _, imp := range input.Leads {
		lead, err := s.leads.Create(ctx, leadsvc.CreateLeadInput{
			Company:     imp.Company,
			ContactName: imp.ContactName,
			Role:        imp.Role,
			Phone:       imp.Phone,
		})
		if err != nil {
			result.Rejected = append(result.Rejected, RejectedLead{Phone: imp.Phone, Reason: err.Error()})
			continue
		}

		result.Created = append(result.Created, lead.ID)
		contactName := ""
		if lead.ContactName != nil {
			contactName = *lead.ContactName
		}
		batchLeads = append(batchLeads, dialer.BatchLead{
			LeadID:      lead.ID,
			Phone:       lead.Phone,
			Company:     lead.Company,
			ContactName: contactName,
		})
	}

	if len(result.Created) == 0 {
		return CampaignResult{}, apperr.Validation("no importable leads in campaign").WithDetails(result.Rejected)
	}

	status := "imported"
	var providerBatchID *string
	if s.dial != nil && s.dial.Enabled() {
		batchID, err := s.dial.SubmitBatch(ctx, input.Name, input.ScheduledAt, batchLeads)
		if err != nil {
			// Leads are already in the store; the campaign stays dialable
			// manually. Record the failure instead of rolling back intake.
			s.log.Error("batch submission failed", "campaign", input.Name, "error", err)
			status = "submit_failed"
		} else {
			status = "submitted"
			providerBatchID = &batchID
		}
	}

	campaign, err := s.repo.Create(ctx, repository.CreateCampaignParams{
		Name:            input.Name,
		ProviderBatchID: providerBatchID,
		ScheduledAt:     input.ScheduledAt,
		LeadCount:       len(result.Created),
		Status:          status,
	})
	if err != nil {
		s.log.DatabaseError("campaigns.create", err)
		return CampaignResult{}, apperr.Wrap(apperr.KindInternal, "failed to record campaign", err)
	}

	result.Campaign = campaign
	return result, nil
}

// Get returns a campaign, refreshing its status from the provider when a
// batch ID is on file.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (repository.Campaign, error) {
	campaign, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Campaign{}, apperr.NotFound("campaign not found")
	}
	if err != nil {
		return repository.Campaign{}, apperr.Wrap(apperr.KindInternal, "failed to load campaign", err)
	}

	if campaign.ProviderBatchID != nil && s.dial != nil && s.dial.Enabled() {
		status, err := s.dial.GetBatchStatus(ctx, *campaign.ProviderBatchID)
		if err != nil {
			s.log.Warn("batch status refresh failed", "campaign_id", id.String(), "error", err)
			return campaign, nil
		}
		if status.Status != "" && status.Status != campaign.Status {
			if err := s.repo.UpdateStatus(ctx, id, status.Status); err == nil {
				campaign.Status = status.Status
			}
		}
	}

	return campaign, nil
}

func (s *Service) List(ctx context.Context, limit int) ([]repository.Campaign, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	campaigns, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list campaigns", err)
	}
	return campaigns, nil
}
