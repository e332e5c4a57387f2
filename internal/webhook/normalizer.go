// Package webhook ingests provider call events: normalization, payload
// extraction and state-machine dispatch.
package webhook

import (
	"strings"

	"callcrm_backend/internal/leads/domain"
)

// The provider has shipped three naming schemes over time: dotted
// "conversation.*", snake_case, and hyphenated "phone-call-*". The legacy
// "call.*" scheme from the first integration is still seen on replays.
// All of them alias onto the canonical event set.
var rawEventAliases = map[string]domain.EventType{
	"conversation.started": domain.EventCallStarted,
	"call_started":         domain.EventCallStarted,
	"call.started":         domain.EventCallStarted,
	"phone-call-started":   domain.EventCallStarted,

	"conversation.ended": domain.EventCallEnded,
	"call_ended":         domain.EventCallEnded,
	"call.ended":         domain.EventCallEnded,
	"phone-call-ended":   domain.EventCallEnded,

	"conversation.transferred": domain.EventTransferred,
	"transfer_initiated":       domain.EventTransferred,
	"call.transferred":         domain.EventTransferred,
	"phone-call-transferred":   domain.EventTransferred,

	"user_connected":           domain.EventCustomerConnected,
	"customer_connected":       domain.EventCustomerConnected,
	"connected.gatekeeper":     domain.EventCustomerConnected,
	"connected.decision_maker": domain.EventCustomerConnected,

	"no_answer":            domain.EventNoAnswer,
	"call.no_answer":       domain.EventNoAnswer,
	"phone-call-no-answer": domain.EventNoAnswer,

	"busy":      domain.EventBusy,
	"call.busy": domain.EventBusy,

	"voicemail_detected":   domain.EventVoicemailDetected,
	"voicemail.detected":   domain.EventVoicemailDetected,
	"phone-call-voicemail": domain.EventVoicemailDetected,

	"customer_hung_up":            domain.EventHungUp,
	"call.hung_up":                domain.EventHungUp,
	"phone-call-customer-hung-up": domain.EventHungUp,

	"call.declined":         domain.EventDeclined,
	"do_not_call.requested": domain.EventDeclined,

	"transcript":              domain.EventTranscriptChunk,
	"conversation.transcript": domain.EventTranscriptChunk,
}

// Normalize maps a raw provider event type onto the canonical set. It is
// pure and total: unrecognized strings yield EventUnknown, never an error.
func Normalize(rawType string) domain.EventType {
	if canonical, ok := rawEventAliases[strings.TrimSpace(rawType)]; ok {
		return canonical
	}
	return domain.EventUnknown
}
