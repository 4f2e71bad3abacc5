package domain

import "fmt"

// Event is something that moves an application between statuses.
type Event string

const (
	// EventSubmit creates the first application for a user.
	EventSubmit Event = "Submit"

	// EventResubmit replays a rejected application in place.
	EventResubmit Event = "Resubmit"

	// EventAdminApprove, EventAdminReject, EventAdminExpire and
	// EventAdminReopen are review decisions. Reviewers may move an
	// application between any two statuses; every such move is audited.
	EventAdminApprove Event = "AdminApprove"
	EventAdminReject  Event = "AdminReject"
	EventAdminExpire  Event = "AdminExpire"
	EventAdminReopen  Event = "AdminReopen"
)

// AdminEvent maps a target status chosen by a reviewer onto the event
// that carries the application there.
func AdminEvent(target Status) (Event, error) {
	switch target {
	case StatusApproved:
		return EventAdminApprove, nil
	case StatusRejected:
		return EventAdminReject, nil
	case StatusExpired:
		return EventAdminExpire, nil
	case StatusPending:
		return EventAdminReopen, nil
	}
	return "", fmt.Errorf("no review event reaches status %q", target)
}

// Transition is one row of the status machine: the resulting status plus
// the side effects the service must run when taking it.
type Transition struct {
	Next                 Status
	ComputeLimit         bool
	ClearApproval        bool
	NotifyApproved       bool
	NotifyRejected       bool
	NotifySubmitted      bool
	ResetReviewArtifacts bool
}

type transitionKey struct {
	from  Status
	event Event
}

// transitions is the full status machine. Submission events are narrow
// (Submit only from NotStarted, Resubmit only from Rejected); review
// events apply from any stored status.
var transitions = map[transitionKey]Transition{
	{StatusNotStarted, EventSubmit}: {Next: StatusPending, NotifySubmitted: true},
	{StatusRejected, EventResubmit}: {Next: StatusPending, NotifySubmitted: true, ResetReviewArtifacts: true},
}

func init() {
	stored := []Status{StatusPending, StatusApproved, StatusRejected, StatusExpired}
	for _, from := range stored {
		transitions[transitionKey{from, EventAdminApprove}] = Transition{Next: StatusApproved, ComputeLimit: true, NotifyApproved: true}
		transitions[transitionKey{from, EventAdminReject}] = Transition{Next: StatusRejected, ClearApproval: true, NotifyRejected: true}
		transitions[transitionKey{from, EventAdminExpire}] = Transition{Next: StatusExpired}
		transitions[transitionKey{from, EventAdminReopen}] = Transition{Next: StatusPending, ClearApproval: true}
	}
}

// Apply looks up the transition for event from the current status.
func Apply(current Status, event Event) (Transition, error) {
	t, ok := transitions[transitionKey{current, event}]
	if !ok {
		return Transition{}, fmt.Errorf("event %q is not allowed from status %q", event, current)
	}
	return t, nil
}
