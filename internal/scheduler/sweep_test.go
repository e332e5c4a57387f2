package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"callcrm_backend/internal/leads/domain"
	leadsrepo "callcrm_backend/internal/leads/repository"
	"callcrm_backend/platform/logger"

	"github.com/google/uuid"
)

// Tuesday.
var sweepNow = time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC)

type sweepTestConfig struct {
	batch  int
	buffer time.Duration
}

func (c sweepTestConfig) GetSweepInterval() time.Duration   { return 5 * time.Minute }
func (c sweepTestConfig) GetSweepBatchSize() int            { return c.batch }
func (c sweepTestConfig) GetRetryBuffer() time.Duration     { return c.buffer }
func (c sweepTestConfig) GetWindowStartHour() int           { return 9 }
func (c sweepTestConfig) GetWindowEndHour() int             { return 17 }
func (c sweepTestConfig) GetWindowLocation() *time.Location { return time.UTC }

type fakeQueue struct {
	due         []leadsrepo.Lead
	selectCalls int
	pushed      map[uuid.UUID]time.Time
	pushErr     map[uuid.UUID]error
}

func newFakeQueue(due ...leadsrepo.Lead) *fakeQueue {
	return &fakeQueue{due: due, pushed: make(map[uuid.UUID]time.Time), pushErr: make(map[uuid.UUID]error)}
}

func (f *fakeQueue) SelectDue(_ context.Context, _ time.Time, limit int) ([]leadsrepo.Lead, error) {
	f.selectCalls++
	if len(f.due) > limit {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeQueue) PushRetry(_ context.Context, id uuid.UUID, until time.Time) error {
	if err := f.pushErr[id]; err != nil {
		return err
	}
	f.pushed[id] = until
	return nil
}

type fakeDispatcher struct {
	dispatched []uuid.UUID
	failFor    map[uuid.UUID]error
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{failFor: make(map[uuid.UUID]error)}
}

func (f *fakeDispatcher) DispatchCall(_ context.Context, lead leadsrepo.Lead) error {
	if err := f.failFor[lead.ID]; err != nil {
		return err
	}
	f.dispatched = append(f.dispatched, lead.ID)
	return nil
}

func dueLead() leadsrepo.Lead {
	retryAt := sweepNow.Add(-time.Hour)
	return leadsrepo.Lead{
		ID:          uuid.New(),
		Company:     "Due GmbH",
		Phone:       "+4915112345678",
		Status:      domain.StatusRetryQueue,
		NextRetryAt: &retryAt,
	}
}

func newSweeper(queue *fakeQueue, dispatch *fakeDispatcher, cfg sweepTestConfig, at time.Time) *RetrySweeper {
	s := NewRetrySweeper(queue, dispatch, cfg, logger.New("development"))
	s.now = func() time.Time { return at }
	return s
}

func TestInOperatingWindow(t *testing.T) {
	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"tuesday mid-morning", time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC), true},
		{"window opens at 9", time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC), true},
		{"before opening", time.Date(2025, 3, 4, 8, 59, 0, 0, time.UTC), false},
		{"last working minute", time.Date(2025, 3, 4, 16, 59, 0, 0, time.UTC), true},
		{"window closes at 17", time.Date(2025, 3, 4, 17, 0, 0, 0, time.UTC), false},
		{"saturday", time.Date(2025, 3, 8, 10, 0, 0, 0, time.UTC), false},
		{"sunday", time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC), false},
		{"friday afternoon", time.Date(2025, 3, 7, 14, 0, 0, 0, time.UTC), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := InOperatingWindow(tc.at, 9, 17); got != tc.want {
				t.Fatalf("InOperatingWindow(%v) = %v, want %v", tc.at, got, tc.want)
			}
		})
	}
}

func TestSweepSkipsOutsideWindow(t *testing.T) {
	queue := newFakeQueue(dueLead())
	dispatch := newFakeDispatcher()
	evening := time.Date(2025, 3, 4, 20, 0, 0, 0, time.UTC)

	result, err := newSweeper(queue, dispatch, sweepTestConfig{batch: 10, buffer: 30 * time.Minute}, evening).SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if !result.Skipped {
		t.Fatal("expected skipped result")
	}
	if queue.selectCalls != 0 {
		t.Errorf("outside the window the store must not be queried, got %d calls", queue.selectCalls)
	}
	if len(dispatch.dispatched) != 0 {
		t.Errorf("outside the window nothing may be dispatched, got %v", dispatch.dispatched)
	}
}

func TestSweepDispatchesAllDueLeads(t *testing.T) {
	leads := []leadsrepo.Lead{dueLead(), dueLead(), dueLead()}
	queue := newFakeQueue(leads...)
	dispatch := newFakeDispatcher()
	cfg := sweepTestConfig{batch: 10, buffer: 30 * time.Minute}

	result, err := newSweeper(queue, dispatch, cfg, sweepNow).SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if result.Skipped {
		t.Fatal("unexpected skip")
	}
	if result.Processed != 3 || len(dispatch.dispatched) != 3 {
		t.Fatalf("processed = %d, dispatched = %d, want 3", result.Processed, len(dispatch.dispatched))
	}

	want := sweepNow.Add(30 * time.Minute)
	for _, lead := range leads {
		pushed, ok := queue.pushed[lead.ID]
		if !ok {
			t.Errorf("lead %s retry deadline not pushed", lead.ID)
			continue
		}
		if !pushed.Equal(want) {
			t.Errorf("lead %s pushed to %v, want %v", lead.ID, pushed, want)
		}
	}
}

func TestSweepRespectsBatchCap(t *testing.T) {
	var leads []leadsrepo.Lead
	for i := 0; i < 5; i++ {
		leads = append(leads, dueLead())
	}
	queue := newFakeQueue(leads...)
	dispatch := newFakeDispatcher()

	result, err := newSweeper(queue, dispatch, sweepTestConfig{batch: 2, buffer: 30 * time.Minute}, sweepNow).SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if result.Processed != 2 {
		t.Fatalf("processed = %d, want batch cap 2", result.Processed)
	}
}

func TestSweepToleratesPerLeadFailures(t *testing.T) {
	good1, bad, good2 := dueLead(), dueLead(), dueLead()
	queue := newFakeQueue(good1, bad, good2)
	dispatch := newFakeDispatcher()
	dispatch.failFor[bad.ID] = errors.New("dialer down")

	result, err := newSweeper(queue, dispatch, sweepTestConfig{batch: 10, buffer: 30 * time.Minute}, sweepNow).SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if result.Processed != 2 || result.Failed != 1 {
		t.Fatalf("processed = %d failed = %d, want 2/1", result.Processed, result.Failed)
	}

	if _, ok := queue.pushed[good2.ID]; !ok {
		t.Error("failure must not abort the remaining batch")
	}
}

func TestSweepPushFailureSkipsDispatch(t *testing.T) {
	lead := dueLead()
	queue := newFakeQueue(lead)
	queue.pushErr[lead.ID] = errors.New("write refused")
	dispatch := newFakeDispatcher()

	result, err := newSweeper(queue, dispatch, sweepTestConfig{batch: 10, buffer: 30 * time.Minute}, sweepNow).SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if result.Failed != 1 || result.Processed != 0 {
		t.Fatalf("processed = %d failed = %d, want 0/1", result.Processed, result.Failed)
	}
	if len(dispatch.dispatched) != 0 {
		t.Error("a lead whose buffer push failed must not be dispatched")
	}
}
