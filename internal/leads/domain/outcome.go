package domain

// Outcome is the per-attempt call result recorded in the ledger.
type Outcome string

const (
	OutcomeConnectedGatekeeper Outcome = "connected_gatekeeper"
	OutcomeConnectedDM         Outcome = "connected_dm"
	OutcomeTransferred         Outcome = "transferred"
	OutcomeNoAnswer            Outcome = "no_answer"
	OutcomeBusy                Outcome = "busy"
	OutcomeVoicemail           Outcome = "voicemail"
	OutcomeHungUpByContact     Outcome = "hung_up_by_contact"
	OutcomeDeclined            Outcome = "declined"
	OutcomeAborted             Outcome = "aborted"
)
