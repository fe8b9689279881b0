package booking

import "roombooking-service/internal/calendar"

// ApprovalState is derived from the event's show-as status and the room
// policy. It is never stored.
type ApprovalState string

const (
	StateAutoApproved    ApprovalState = "auto_approved"
	StatePendingApproval ApprovalState = "pending_approval"
	StateApproved        ApprovalState = "approved"
	StateRejected        ApprovalState = "rejected"
	StateCancelled       ApprovalState = "cancelled"
)

// DeriveState reads the approval state off an event. A nil or cancelled
// event is Cancelled; rejected bookings are deleted and so cannot be told
// apart from cancelled ones.
func DeriveState(ev *calendar.Event, policy Policy) ApprovalState {
	if ev == nil || ev.IsCancelled {
		return StateCancelled
	}
	if ev.ShowAs == calendar.ShowAsTentative {
		return StatePendingApproval
	}
	if policy.AutoApproves(ev.End.Sub(ev.Start)) {
		return StateAutoApproved
	}
	return StateApproved
}
