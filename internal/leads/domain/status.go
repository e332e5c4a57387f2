// Package domain provides core business rules for the leads bounded context.
package domain

// Status is the lead's pipeline queue. The set is closed; the dashboard,
// webhook processing and the retry sweep all operate on these values.
type Status string

const (
	StatusNew              Status = "new"
	StatusRetryQueue       Status = "retry_queue"
	StatusAbgebrochenQueue Status = "abgebrochen_queue"
	StatusDMDirectQueue    Status = "dm_direct_queue"
	StatusTrashQueue       Status = "trash_queue"
	StatusDoNotCall        Status = "do_not_call"
)

// AllStatuses lists every lead status, in dashboard display order.
var AllStatuses = []Status{
	StatusNew,
	StatusRetryQueue,
	StatusAbgebrochenQueue,
	StatusDMDirectQueue,
	StatusTrashQueue,
	StatusDoNotCall,
}

var knownStatuses = map[Status]struct{}{
	StatusNew:              {},
	StatusRetryQueue:       {},
	StatusAbgebrochenQueue: {},
	StatusDMDirectQueue:    {},
	StatusTrashQueue:       {},
	StatusDoNotCall:        {},
}

// IsKnownStatus reports whether s is a member of the closed status set.
func IsKnownStatus(s Status) bool {
	_, ok := knownStatuses[s]
	return ok
}

// RequiresRetryAt reports whether the status carries a retry deadline.
// next_retry_at must be non-null exactly for these statuses.
func RequiresRetryAt(s Status) bool {
	return s == StatusRetryQueue || s == StatusAbgebrochenQueue
}

// IsAbsorbing reports whether the status admits no further transitions.
// Only a privileged manual override may leave do_not_call.
func IsAbsorbing(s Status) bool {
	return s == StatusDoNotCall
}

// ContactRole describes who the contact is within the target company.
type ContactRole string

const (
	RoleGatekeeper    ContactRole = "gatekeeper"
	RoleDecisionMaker ContactRole = "decision_maker"
	RoleUnknown       ContactRole = "unknown"
)
