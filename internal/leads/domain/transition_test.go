package domain

import (
	"testing"
	"time"
)

var transitionNow = time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC)

func TestDecideTransitionTable(t *testing.T) {
	cases := []struct {
		name        string
		event       EventType
		wantStatus  Status
		wantRetryIn time.Duration
		wantOutcome Outcome
	}{
		{"transferred", EventTransferred, StatusDMDirectQueue, 0, OutcomeTransferred},
		{"no answer", EventNoAnswer, StatusAbgebrochenQueue, 2 * time.Hour, OutcomeNoAnswer},
		{"busy", EventBusy, StatusAbgebrochenQueue, 1 * time.Hour, OutcomeBusy},
		{"voicemail", EventVoicemailDetected, StatusAbgebrochenQueue, 24 * time.Hour, OutcomeVoicemail},
		{"hung up", EventHungUp, StatusTrashQueue, 0, OutcomeHungUpByContact},
		{"declined", EventDeclined, StatusDoNotCall, 0, OutcomeDeclined},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Decide(StatusNew, tc.event, Classification{}, transitionNow)
			if d.NewStatus != tc.wantStatus {
				t.Fatalf("status = %q, want %q", d.NewStatus, tc.wantStatus)
			}
			if d.Outcome != tc.wantOutcome {
				t.Fatalf("outcome = %q, want %q", d.Outcome, tc.wantOutcome)
			}
			if tc.wantRetryIn == 0 {
				if d.NextRetryAt != nil {
					t.Fatalf("expected cleared retry deadline, got %v", d.NextRetryAt)
				}
			} else {
				if d.NextRetryAt == nil {
					t.Fatal("expected a retry deadline")
				}
				if want := transitionNow.Add(tc.wantRetryIn); !d.NextRetryAt.Equal(want) {
					t.Fatalf("retry at %v, want %v", d.NextRetryAt, want)
				}
			}
		})
	}
}

func TestDecideRetryDeadlineInvariant(t *testing.T) {
	// next_retry_at must be non-nil exactly for the retry queues.
	events := []EventType{
		EventCallStarted, EventCallEnded, EventTransferred, EventCustomerConnected,
		EventNoAnswer, EventBusy, EventVoicemailDetected, EventHungUp,
		EventDeclined, EventTranscriptChunk, EventUnknown,
	}

	for _, ev := range events {
		d := Decide(StatusNew, ev, Classification{}, transitionNow)
		hasDeadline := d.NextRetryAt != nil
		if hasDeadline != RequiresRetryAt(d.NewStatus) {
			t.Errorf("event %q: deadline=%v but status %q", ev, hasDeadline, d.NewStatus)
		}
	}
}

func TestDecideDoNotCallIsAbsorbing(t *testing.T) {
	events := []EventType{
		EventCallStarted, EventCallEnded, EventTransferred, EventCustomerConnected,
		EventNoAnswer, EventBusy, EventVoicemailDetected, EventHungUp,
		EventDeclined, EventTranscriptChunk, EventUnknown,
	}

	for _, ev := range events {
		d := Decide(StatusDoNotCall, ev, Classification{DNCRequested: true}, transitionNow)
		if !d.Suppressed {
			t.Errorf("event %q: expected suppressed transition", ev)
		}
		if d.NewStatus != "" || d.NextRetryAt != nil || d.Outcome != "" {
			t.Errorf("event %q: absorbing state leaked a change: %+v", ev, d)
		}
	}
}

func TestDecideTranscriptDNCOverridesEvent(t *testing.T) {
	for _, current := range []Status{StatusNew, StatusRetryQueue, StatusAbgebrochenQueue, StatusDMDirectQueue, StatusTrashQueue} {
		d := Decide(current, EventTranscriptChunk, Classification{DNCRequested: true}, transitionNow)
		if d.NewStatus != StatusDoNotCall {
			t.Errorf("status %q: got %q, want do_not_call", current, d.NewStatus)
		}
		if d.NextRetryAt != nil {
			t.Errorf("status %q: retry deadline must be cleared on opt-out", current)
		}
	}
}

func TestDecideInformationalEvents(t *testing.T) {
	d := Decide(StatusRetryQueue, EventCustomerConnected, Classification{}, transitionNow)
	if d.NewStatus != "" || d.Outcome != "" || d.Archive {
		t.Fatalf("customer_connected must be log-only, got %+v", d)
	}

	d = Decide(StatusRetryQueue, EventUnknown, Classification{}, transitionNow)
	if !d.Archive {
		t.Fatal("unknown events must be archived")
	}
	if d.NewStatus != "" {
		t.Fatalf("unknown events must not change status, got %q", d.NewStatus)
	}
}

func TestDecideInCallFlag(t *testing.T) {
	started := Decide(StatusNew, EventCallStarted, Classification{}, transitionNow)
	if started.SetInCall == nil || !*started.SetInCall {
		t.Fatal("call_started must set the in-call flag")
	}
	if started.NewStatus != "" {
		t.Fatalf("in_call is informational, not a queue; got status %q", started.NewStatus)
	}

	ended := Decide(StatusNew, EventCallEnded, Classification{}, transitionNow)
	if ended.SetInCall == nil || *ended.SetInCall {
		t.Fatal("call_ended must clear the in-call flag")
	}
	if !ended.ClosesAttempt {
		t.Fatal("call_ended must close the attempt")
	}
}
