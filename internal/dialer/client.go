// Package dialer wraps the conversational-calling provider's outbound API.
package dialer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	callsvc "callcrm_backend/internal/calls/service"
	"callcrm_backend/platform/apperr"
	"callcrm_backend/platform/config"
	"callcrm_backend/platform/logger"

	"github.com/google/uuid"
)

type Client struct {
	baseURL            string
	apiKey             string
	agentID            string
	agentPhoneNumberID string
	http               *http.Client
	log                *logger.Logger
}

// NewClient builds a dialer client. Returns nil when the provider is not
// configured; callers treat a nil client as "dialer disabled".
func NewClient(cfg config.DialerConfig, log *logger.Logger) *Client {
	if !cfg.IsDialerEnabled() {
		return nil
	}

	return &Client{
		baseURL:            strings.TrimRight(cfg.GetDialerAPIURL(), "/"),
		apiKey:             cfg.GetDialerAPIKey(),
		agentID:            cfg.GetDialerAgentID(),
		agentPhoneNumberID: cfg.GetDialerAgentPhoneNumberID(),
		http:               &http.Client{Timeout: 10 * time.Second},
		log:                log,
	}
}

func (c *Client) Enabled() bool {
	return c != nil
}

type outboundCallRequest struct {
	AgentID              string          `json:"agent_id"`
	AgentPhoneNumberID   string          `json:"agent_phone_number_id,omitempty"`
	ToNumber             string          `json:"to_number"`
	ConversationInitData *initClientData `json:"conversation_initiation_client_data,omitempty"`
}

type initClientData struct {
	DynamicVariables map[string]string `json:"dynamic_variables"`
}

type outboundCallResponse struct {
	Success        bool   `json:"success"`
	ConversationID string `json:"conversation_id"`
	CallSID        string `json:"callSid"`
}

// StartCall dials one number through the provider's agent and returns the
// conversation ID the webhook will later reference.
func (c *Client) StartCall(ctx context.Context, params callsvc.DialParams) (string, error) {
	payload := outboundCallRequest{
		AgentID:            c.agentID,
		AgentPhoneNumberID: c.agentPhoneNumberID,
		ToNumber:           params.Phone,
		ConversationInitData: &initClientData{
			DynamicVariables: map[string]string{
				"lead_id":      params.LeadID.String(),
				"company":      params.Company,
				"contact_name": params.ContactName,
			},
		},
	}

	var resp outboundCallResponse
	if err := c.post(ctx, "/v1/convai/twilio/outbound-call", payload, &resp); err != nil {
		return "", err
	}

	return resp.ConversationID, nil
}

type batchRecipient struct {
	PhoneNumber          string          `json:"phone_number"`
	ConversationInitData *initClientData `json:"conversation_initiation_client_data,omitempty"`
}

type batchSubmitRequest struct {
	CallName           string           `json:"call_name"`
	AgentID            string           `json:"agent_id"`
	AgentPhoneNumberID string           `json:"agent_phone_number_id,omitempty"`
	ScheduledTimeUnix  int64            `json:"scheduled_time_unix"`
	Recipients         []batchRecipient `json:"recipients"`
}

// BatchLead is one recipient in a batch campaign submission.
type BatchLead struct {
	LeadID      uuid.UUID
	Phone       string
	Company     string
	ContactName string
}

// BatchStatus is the provider's view of a submitted campaign.
type BatchStatus struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	TotalCalls      int    `json:"total_calls_scheduled"`
	DispatchedCalls int    `json:"total_calls_dispatched"`
}

// SubmitBatch hands a set of leads to the provider's batch calling queue and
// returns the provider's batch ID.
func (c *Client) SubmitBatch(ctx context.Context, name string, scheduledAt time.Time, leads []BatchLead) (string, error) {
	recipients := make([]batchRecipient, 0, len(leads))
	for _, lead := range leads {
		recipients = append(recipients, batchRecipient{
			PhoneNumber: lead.Phone,
			ConversationInitData: &initClientData{
				DynamicVariables: map[string]string{
					"lead_id":      lead.LeadID.String(),
					"company":      lead.Company,
					"contact_name": lead.ContactName,
				},
			},
		})
	}

	payload := batchSubmitRequest{
		CallName:           name,
		AgentID:            c.agentID,
		AgentPhoneNumberID: c.agentPhoneNumberID,
		ScheduledTimeUnix:  scheduledAt.Unix(),
		Recipients:         recipients,
	}

	var resp BatchStatus
	if err := c.post(ctx, "/v1/convai/batch-calling/submit", payload, &resp); err != nil {
		return "", err
	}

	return resp.ID, nil
}

// GetBatchStatus fetches the current state of a batch campaign.
func (c *Client) GetBatchStatus(ctx context.Context, batchID string) (BatchStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/convai/batch-calling/"+batchID, nil)
	if err != nil {
		return BatchStatus{}, err
	}
	req.Header.Set("xi-api-key", c.apiKey)

	var status BatchStatus
	if err := c.do(req, &status); err != nil {
		return BatchStatus{}, err
	}
	return status, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal dialer payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "dialer request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return mapStatus(resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Wrap(apperr.KindInternal, "decode dialer response", err)
	}
	return nil
}

func mapStatus(status int, body string) error {
	msg := fmt.Sprintf("dialer returned %d", status)
	switch {
	case status == http.StatusNotFound:
		return apperr.NotFound(msg)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperr.Forbidden(msg)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return apperr.Validation(msg).WithDetails(body)
	case status >= 500:
		return apperr.Unavailable(msg)
	default:
		return apperr.Internal(msg)
	}
}

// Compile-time check that Client satisfies the calls module's Dialer port.
var _ callsvc.Dialer = (*Client)(nil)
