package domain

// EventType is the canonical form of a provider event, the state machine's
// input alphabet. The webhook normalizer maps the provider's historical
// naming schemes onto this set.
type EventType string

const (
	EventCallStarted       EventType = "call_started"
	EventCallEnded         EventType = "call_ended"
	EventTransferred       EventType = "transferred"
	EventCustomerConnected EventType = "customer_connected"
	EventNoAnswer          EventType = "no_answer"
	EventBusy              EventType = "busy"
	EventVoicemailDetected EventType = "voicemail_detected"
	EventHungUp            EventType = "hung_up"
	EventDeclined          EventType = "declined"
	EventTranscriptChunk   EventType = "transcript_chunk"
	EventUnknown           EventType = "unknown"
)
