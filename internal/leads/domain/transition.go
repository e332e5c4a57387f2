package domain

import "time"

// Retry delays applied when a call attempt does not reach the contact.
const (
	RetryDelayBusy      = 1 * time.Hour
	RetryDelayNoAnswer  = 2 * time.Hour
	RetryDelayVoicemail = 24 * time.Hour
)

// Classification is the transcript classifier's verdict, fed back into the
// state machine. A zero value means no transcript signal.
type Classification struct {
	DNCRequested           bool
	DecisionMakerMentioned bool
}

// Decision is the state machine's verdict for one canonical event.
// A zero-value field means "leave as is".
type Decision struct {
	// NewStatus is the lead's next queue; empty means status unchanged.
	NewStatus Status
	// NextRetryAt is non-nil exactly when NewStatus requires a retry deadline.
	NextRetryAt *time.Time
	// Outcome to record on the call attempt; empty means none.
	Outcome Outcome
	// ClosesAttempt marks the attempt as finished.
	ClosesAttempt bool
	// Archive requests the raw payload be written to the audit archive.
	Archive bool
	// Suppressed is set when the absorbing do_not_call guard fired; the
	// event is still logged to the ledger but no state changes.
	Suppressed bool
	// SetInCall toggles the transient in-call flag (informational only,
	// not a queue).
	SetInCall *bool
}

// Decide computes the next lead status, retry deadline and attempt outcome
// for a canonical event. It is pure: persistence belongs to the caller.
//
// Invariant: the returned NextRetryAt is non-nil iff NewStatus is one of
// {retry_queue, abgebrochen_queue}.
func Decide(current Status, event EventType, tc Classification, now time.Time) Decision {
	if IsAbsorbing(current) {
		// do_not_call is absorbing: log only, suppress the transition.
		return Decision{Suppressed: true, Archive: event == EventUnknown}
	}

	// An opt-out request wins over whatever the event itself would do.
	if tc.DNCRequested {
		return Decision{NewStatus: StatusDoNotCall, Outcome: OutcomeDeclined}
	}

	switch event {
	case EventCallStarted:
		return Decision{SetInCall: boolPtr(true)}
	case EventCallEnded:
		return Decision{ClosesAttempt: true, SetInCall: boolPtr(false)}
	case EventTransferred:
		return Decision{NewStatus: StatusDMDirectQueue, Outcome: OutcomeTransferred}
	case EventNoAnswer:
		return retryDecision(StatusAbgebrochenQueue, OutcomeNoAnswer, now.Add(RetryDelayNoAnswer))
	case EventBusy:
		return retryDecision(StatusAbgebrochenQueue, OutcomeBusy, now.Add(RetryDelayBusy))
	case EventVoicemailDetected:
		return retryDecision(StatusAbgebrochenQueue, OutcomeVoicemail, now.Add(RetryDelayVoicemail))
	case EventHungUp:
		return Decision{NewStatus: StatusTrashQueue, Outcome: OutcomeHungUpByContact}
	case EventDeclined:
		return Decision{NewStatus: StatusDoNotCall, Outcome: OutcomeDeclined}
	case EventCustomerConnected, EventTranscriptChunk:
		// Informational; the ledger entry is the only effect.
		return Decision{}
	case EventUnknown:
		return Decision{Archive: true}
	default:
		return Decision{Archive: true}
	}
}

func retryDecision(status Status, outcome Outcome, retryAt time.Time) Decision {
	return Decision{NewStatus: status, NextRetryAt: &retryAt, Outcome: outcome}
}

func boolPtr(v bool) *bool { return &v }
