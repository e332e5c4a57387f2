package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	callsrepo "callcrm_backend/internal/calls/repository"
	"callcrm_backend/internal/leads/domain"
	leadsrepo "callcrm_backend/internal/leads/repository"
	platformevents "callcrm_backend/platform/events"
	"callcrm_backend/platform/logger"

	"github.com/google/uuid"
)

var processNow = time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC)

type fakeLeadStore struct {
	mu       sync.Mutex
	leads    map[uuid.UUID]leadsrepo.Lead
	statuses []domain.Status
	retryAts []*time.Time
	inCalls  []bool

	failUpdateStatus error
}

func newFakeLeadStore(leads ...leadsrepo.Lead) *fakeLeadStore {
	m := make(map[uuid.UUID]leadsrepo.Lead, len(leads))
	for _, l := range leads {
		m[l.ID] = l
	}
	return &fakeLeadStore{leads: m}
}

func (f *fakeLeadStore) GetByID(_ context.Context, id uuid.UUID) (leadsrepo.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[id]
	if !ok {
		return leadsrepo.Lead{}, leadsrepo.ErrNotFound
	}
	return lead, nil
}

func (f *fakeLeadStore) UpdateStatus(_ context.Context, id uuid.UUID, status domain.Status, nextRetryAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdateStatus != nil {
		return f.failUpdateStatus
	}
	lead := f.leads[id]
	lead.Status = status
	lead.NextRetryAt = nextRetryAt
	f.leads[id] = lead
	f.statuses = append(f.statuses, status)
	f.retryAts = append(f.retryAts, nextRetryAt)
	return nil
}

func (f *fakeLeadStore) SetInCall(_ context.Context, id uuid.UUID, inCall bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead := f.leads[id]
	lead.InCall = inCall
	f.leads[id] = lead
	f.inCalls = append(f.inCalls, inCall)
	return nil
}

type fakeLedger struct {
	mu         sync.Mutex
	attempts   map[string]uuid.UUID
	events     []callsrepo.AttemptEvent
	outcomes   map[string]domain.Outcome
	closed     map[string]bool
	transfers  map[string]string
	utterances []string

	failSetOutcome error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		attempts:  make(map[string]uuid.UUID),
		outcomes:  make(map[string]domain.Outcome),
		closed:    make(map[string]bool),
		transfers: make(map[string]string),
	}
}

func (f *fakeLedger) EnsureAttempt(_ context.Context, id string, leadID uuid.UUID, _ time.Time, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.attempts[id]; !exists {
		f.attempts[id] = leadID
	}
	return nil
}

func (f *fakeLedger) AppendEvent(_ context.Context, ev callsrepo.AttemptEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeLedger) SetOutcome(_ context.Context, id string, outcome domain.Outcome, closed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSetOutcome != nil {
		return f.failSetOutcome
	}
	if _, exists := f.outcomes[id]; !exists {
		f.outcomes[id] = outcome
	}
	if closed {
		f.closed[id] = true
	}
	return nil
}

func (f *fakeLedger) Close(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed[id] = true
	return nil
}

func (f *fakeLedger) SetTransferTarget(_ context.Context, id, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transfers[id] = target
	return nil
}

func (f *fakeLedger) AppendTranscript(_ context.Context, _, _, text string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.utterances = append(f.utterances, text)
	return nil
}

type fakeArchive struct {
	mu      sync.Mutex
	entries []string
}

func (f *fakeArchive) Archive(_ context.Context, rawType string, _ json.RawMessage, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, rawType+":"+reason)
	return nil
}

type fakeBus struct {
	mu     sync.Mutex
	events []platformevents.Event
}

func (f *fakeBus) Publish(_ context.Context, event platformevents.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeBus) PublishSync(ctx context.Context, event platformevents.Event) error {
	f.Publish(ctx, event)
	return nil
}

func (f *fakeBus) Subscribe(string, platformevents.Handler) {}

func (f *fakeBus) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev.EventName())
	}
	return out
}

type fixture struct {
	svc     *Service
	leads   *fakeLeadStore
	ledger  *fakeLedger
	archive *fakeArchive
	bus     *fakeBus
}

func newFixture(leads ...leadsrepo.Lead) *fixture {
	store := newFakeLeadStore(leads...)
	ledger := newFakeLedger()
	archive := &fakeArchive{}
	bus := &fakeBus{}

	svc := NewService(store, ledger, archive, bus, logger.New("development"))
	svc.now = func() time.Time { return processNow }

	return &fixture{svc: svc, leads: store, ledger: ledger, archive: archive, bus: bus}
}

func testLead(status domain.Status) leadsrepo.Lead {
	return leadsrepo.Lead{
		ID:      uuid.New(),
		Company: "Example GmbH",
		Phone:   "+4915112345678",
		Status:  status,
	}
}

func eventFor(lead leadsrepo.Lead, rawType string) (json.RawMessage, ProviderEvent) {
	event := ProviderEvent{
		Type:           rawType,
		ConversationID: "conv_" + rawType,
		Metadata:       map[string]any{"lead_id": lead.ID.String()},
	}
	raw, _ := json.Marshal(event)
	return raw, event
}

func TestProcessNoAnswerScenario(t *testing.T) {
	lead := testLead(domain.StatusNew)
	fx := newFixture(lead)

	raw, event := eventFor(lead, "phone-call-no-answer")
	result, err := fx.svc.Process(context.Background(), raw, event)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Processed != string(domain.EventNoAnswer) {
		t.Errorf("processed = %q", result.Processed)
	}

	got := fx.leads.leads[lead.ID]
	if got.Status != domain.StatusAbgebrochenQueue {
		t.Errorf("status = %q, want abgebrochen_queue", got.Status)
	}
	if got.NextRetryAt == nil || !got.NextRetryAt.Equal(processNow.Add(2*time.Hour)) {
		t.Errorf("next_retry_at = %v, want %v", got.NextRetryAt, processNow.Add(2*time.Hour))
	}
	if outcome := fx.ledger.outcomes["conv_phone-call-no-answer"]; outcome != domain.OutcomeNoAnswer {
		t.Errorf("outcome = %q, want no_answer", outcome)
	}
}

func TestProcessUnknownEventArchivesAndAccepts(t *testing.T) {
	lead := testLead(domain.StatusRetryQueue)
	fx := newFixture(lead)

	raw, event := eventFor(lead, "call.exploded")
	result, err := fx.svc.Process(context.Background(), raw, event)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.Processed != string(domain.EventUnknown) {
		t.Errorf("processed = %q", result.Processed)
	}

	if got := fx.leads.leads[lead.ID].Status; got != domain.StatusRetryQueue {
		t.Errorf("status changed to %q on unknown event", got)
	}
	if len(fx.archive.entries) != 1 || !strings.Contains(fx.archive.entries[0], "unknown event type") {
		t.Errorf("archive entries = %v", fx.archive.entries)
	}
	if len(fx.ledger.events) != 1 {
		t.Errorf("ledger entries = %d, want 1", len(fx.ledger.events))
	}
}

func TestProcessDoNotCallIsAbsorbing(t *testing.T) {
	lead := testLead(domain.StatusDoNotCall)
	fx := newFixture(lead)

	raw, event := eventFor(lead, "call.transferred")
	if _, err := fx.svc.Process(context.Background(), raw, event); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if len(fx.leads.statuses) != 0 {
		t.Errorf("absorbing lead mutated: %v", fx.leads.statuses)
	}
	if len(fx.ledger.events) != 1 {
		t.Errorf("suppressed event must still be logged, entries = %d", len(fx.ledger.events))
	}
}

func TestProcessTranscriptDNCRequest(t *testing.T) {
	lead := testLead(domain.StatusAbgebrochenQueue)
	fx := newFixture(lead)

	event := ProviderEvent{
		Type:           "transcript",
		ConversationID: "conv_42",
		Metadata:       map[string]any{"lead_id": lead.ID.String()},
		Transcript:     "Bitte keine Anrufe mehr, wir haben kein Interesse.",
	}
	raw, _ := json.Marshal(event)

	if _, err := fx.svc.Process(context.Background(), raw, event); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got := fx.leads.leads[lead.ID]
	if got.Status != domain.StatusDoNotCall {
		t.Errorf("status = %q, want do_not_call", got.Status)
	}
	if got.NextRetryAt != nil {
		t.Errorf("next_retry_at = %v, want nil", got.NextRetryAt)
	}
	if len(fx.ledger.utterances) != 1 {
		t.Errorf("transcript not persisted, utterances = %v", fx.ledger.utterances)
	}

	var sawDNC bool
	for _, name := range fx.bus.names() {
		if name == "leads.do_not_call.requested" {
			sawDNC = true
		}
	}
	if !sawDNC {
		t.Error("expected a do-not-call domain event")
	}
}

func TestProcessTransferredSetsTarget(t *testing.T) {
	lead := testLead(domain.StatusNew)
	fx := newFixture(lead)

	event := ProviderEvent{
		Type:           "call.transferred",
		ConversationID: "conv_7",
		Metadata:       map[string]any{"lead_id": lead.ID.String()},
		Meta:           map[string]any{"transferTarget": "berlin-office"},
	}
	raw, _ := json.Marshal(event)

	if _, err := fx.svc.Process(context.Background(), raw, event); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if got := fx.leads.leads[lead.ID].Status; got != domain.StatusDMDirectQueue {
		t.Errorf("status = %q, want dm_direct_queue", got)
	}
	if target := fx.ledger.transfers["conv_7"]; target != "berlin-office" {
		t.Errorf("transfer target = %q", target)
	}
}

func TestProcessWithoutLeadIDArchives(t *testing.T) {
	fx := newFixture()

	event := ProviderEvent{Type: "call_started", ConversationID: "conv_1"}
	raw, _ := json.Marshal(event)

	result, err := fx.svc.Process(context.Background(), raw, event)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.LeadID != "" {
		t.Errorf("lead id = %q, want empty", result.LeadID)
	}
	if len(fx.archive.entries) != 1 {
		t.Errorf("archive entries = %v", fx.archive.entries)
	}
	if len(fx.ledger.events) != 0 {
		t.Errorf("unattributable event must not create ledger entries")
	}
}

func TestProcessUnknownLeadArchivesWithoutLedgerWrite(t *testing.T) {
	fx := newFixture()

	// Well-formed lead id that was never issued, e.g. a replay from a
	// purged environment. The ledger must stay untouched.
	event := ProviderEvent{
		Type:           "no_answer",
		ConversationID: "conv_9",
		Metadata:       map[string]any{"lead_id": uuid.NewString()},
	}
	raw, _ := json.Marshal(event)

	result, err := fx.svc.Process(context.Background(), raw, event)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.LeadID != "" {
		t.Errorf("lead id = %q, want empty", result.LeadID)
	}
	if len(fx.archive.entries) != 1 || !strings.Contains(fx.archive.entries[0], "unknown lead") {
		t.Errorf("archive entries = %v", fx.archive.entries)
	}
	if len(fx.ledger.attempts) != 0 || len(fx.ledger.events) != 0 {
		t.Errorf("unknown lead must not reach the ledger: attempts=%d events=%d",
			len(fx.ledger.attempts), len(fx.ledger.events))
	}
}

func TestProcessToleratesSideEffectFailures(t *testing.T) {
	lead := testLead(domain.StatusNew)
	fx := newFixture(lead)
	fx.leads.failUpdateStatus = errors.New("status write lost")
	fx.ledger.failSetOutcome = errors.New("outcome write lost")

	raw, event := eventFor(lead, "no_answer")
	result, err := fx.svc.Process(context.Background(), raw, event)
	if err != nil {
		t.Fatalf("downstream failures after the ledger write must not surface: %v", err)
	}
	if result.Processed != string(domain.EventNoAnswer) {
		t.Errorf("processed = %q", result.Processed)
	}

	// The ledger entry is durable even though every later mutation failed.
	if len(fx.ledger.events) != 1 {
		t.Errorf("ledger entries = %d, want 1", len(fx.ledger.events))
	}
	if got := fx.leads.leads[lead.ID].Status; got != domain.StatusNew {
		t.Errorf("status = %q, want unchanged new", got)
	}
	if len(fx.ledger.outcomes) != 0 {
		t.Errorf("outcomes = %v, want none recorded", fx.ledger.outcomes)
	}
}

func TestProcessLedgerIsAppendOnly(t *testing.T) {
	lead := testLead(domain.StatusNew)
	fx := newFixture(lead)

	raw, event := eventFor(lead, "no_answer")
	for i := 0; i < 3; i++ {
		if _, err := fx.svc.Process(context.Background(), raw, event); err != nil {
			t.Fatalf("Process #%d: %v", i, err)
		}
	}

	if len(fx.ledger.events) != 3 {
		t.Errorf("ledger entries = %d, want 3 (no implicit de-duplication)", len(fx.ledger.events))
	}
	if len(fx.ledger.attempts) != 1 {
		t.Errorf("attempts = %d, want 1 (idempotent on attempt id)", len(fx.ledger.attempts))
	}
	// First outcome wins; the duplicate deliveries do not overwrite it.
	if outcome := fx.ledger.outcomes["conv_no_answer"]; outcome != domain.OutcomeNoAnswer {
		t.Errorf("outcome = %q", outcome)
	}
}

func TestProcessSyntheticAttemptID(t *testing.T) {
	lead := testLead(domain.StatusNew)
	fx := newFixture(lead)

	event := ProviderEvent{
		Type:     "call_started",
		Metadata: map[string]any{"lead_id": lead.ID.String()},
	}
	raw, _ := json.Marshal(event)

	if _, err := fx.svc.Process(context.Background(), raw, event); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if len(fx.ledger.attempts) != 1 {
		t.Fatalf("attempts = %d, want 1", len(fx.ledger.attempts))
	}
	for id := range fx.ledger.attempts {
		if !strings.HasPrefix(id, lead.ID.String()+"-") {
			t.Errorf("synthetic attempt id = %q, want %q prefix", id, lead.ID.String()+"-")
		}
	}
	if got := fx.leads.inCalls; len(got) != 1 || !got[0] {
		t.Errorf("in-call flag updates = %v, want [true]", got)
	}
}

func TestProcessCallEndedClosesAttempt(t *testing.T) {
	lead := testLead(domain.StatusNew)
	fx := newFixture(lead)

	raw, event := eventFor(lead, "conversation.ended")
	if _, err := fx.svc.Process(context.Background(), raw, event); err != nil {
		t.Fatalf("Process: %v", err)
	}

	if !fx.ledger.closed["conv_conversation.ended"] {
		t.Error("call_ended must close the attempt")
	}
	if got := fx.leads.inCalls; len(got) != 1 || got[0] {
		t.Errorf("in-call flag updates = %v, want [false]", got)
	}
	if len(fx.leads.statuses) != 0 {
		t.Errorf("call_ended must not change status, got %v", fx.leads.statuses)
	}
}
