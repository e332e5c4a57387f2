package dialer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	callsvc "callcrm_backend/internal/calls/service"
	"callcrm_backend/platform/apperr"
	"callcrm_backend/platform/logger"

	"github.com/google/uuid"
)

type dialerTestConfig struct {
	url string
}

func (c dialerTestConfig) GetDialerAPIURL() string             { return c.url }
func (c dialerTestConfig) GetDialerAPIKey() string             { return "test-key" }
func (c dialerTestConfig) GetDialerAgentID() string            { return "agent-1" }
func (c dialerTestConfig) GetDialerAgentPhoneNumberID() string { return "phone-1" }
func (c dialerTestConfig) GetAgentPhoneNumber() string         { return "+4930123456" }
func (c dialerTestConfig) IsDialerEnabled() bool               { return c.url != "" }

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(dialerTestConfig{url: srv.URL}, logger.New("development")), srv
}

func TestStartCallSendsAgentContext(t *testing.T) {
	leadID := uuid.New()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/convai/twilio/outbound-call" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("xi-api-key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}

		var req outboundCallRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ToNumber != "+4915112345678" {
			t.Errorf("to_number = %q", req.ToNumber)
		}
		if req.ConversationInitData == nil || req.ConversationInitData.DynamicVariables["lead_id"] != leadID.String() {
			t.Errorf("missing lead_id dynamic variable: %+v", req.ConversationInitData)
		}

		_ = json.NewEncoder(w).Encode(outboundCallResponse{Success: true, ConversationID: "conv_123"})
	})

	conversationID, err := client.StartCall(context.Background(), callsvc.DialParams{
		Phone:       "+4915112345678",
		LeadID:      leadID,
		Company:     "Example GmbH",
		ContactName: "A. Muster",
	})
	if err != nil {
		t.Fatalf("StartCall: %v", err)
	}
	if conversationID != "conv_123" {
		t.Fatalf("conversation id = %q", conversationID)
	}
}

func TestStartCallErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		want   apperr.Kind
	}{
		{http.StatusUnauthorized, apperr.KindForbidden},
		{http.StatusForbidden, apperr.KindForbidden},
		{http.StatusNotFound, apperr.KindNotFound},
		{http.StatusUnprocessableEntity, apperr.KindValidation},
		{http.StatusBadGateway, apperr.KindUnavailable},
		{http.StatusInternalServerError, apperr.KindUnavailable},
	}

	for _, tc := range cases {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tc.status)
		})

		_, err := client.StartCall(context.Background(), callsvc.DialParams{Phone: "+4915112345678"})
		if err == nil {
			t.Fatalf("status %d: expected error", tc.status)
		}
		if got := apperr.GetKind(err); got != tc.want {
			t.Errorf("status %d: kind = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestSubmitBatch(t *testing.T) {
	scheduled := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/convai/batch-calling/submit" {
			t.Errorf("path = %q", r.URL.Path)
		}

		var req batchSubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ScheduledTimeUnix != scheduled.Unix() {
			t.Errorf("scheduled_time_unix = %d", req.ScheduledTimeUnix)
		}
		if len(req.Recipients) != 2 {
			t.Errorf("recipients = %d", len(req.Recipients))
		}

		_ = json.NewEncoder(w).Encode(BatchStatus{ID: "batch_9", Status: "pending"})
	})

	batchID, err := client.SubmitBatch(context.Background(), "morning-run", scheduled, []BatchLead{
		{LeadID: uuid.New(), Phone: "+4915112345678", Company: "A GmbH"},
		{LeadID: uuid.New(), Phone: "+4915187654321", Company: "B GmbH"},
	})
	if err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}
	if batchID != "batch_9" {
		t.Fatalf("batch id = %q", batchID)
	}
}

func TestNilClientIsDisabled(t *testing.T) {
	client := NewClient(dialerTestConfig{url: ""}, logger.New("development"))
	if client.Enabled() {
		t.Fatal("unconfigured client must report disabled")
	}
}
