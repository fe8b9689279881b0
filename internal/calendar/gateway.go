// Package calendar is the boundary to the remote calendar provider. All
// provider I/O goes through a Gateway; Graph and Google implementations
// translate provider payloads into the typed records of this package and
// provider statuses into apperr kinds.
package calendar

import (
	"context"
	"strings"
	_ "time/tzdata"
)

// Gateway is the calendar provider API.
type Gateway interface {
	// ListRooms returns every room known to the provider.
	ListRooms(ctx context.Context) ([]Room, error)
	// ListEvents returns the calendar view of calendarAddress within window.
	// fields narrows the provider projection and may be nil.
	ListEvents(ctx context.Context, calendarAddress string, window Window, fields []string) ([]Event, error)
	GetEvent(ctx context.Context, calendarAddress, id string) (Event, error)
	// GetWorkingHours returns nil when the provider has no rule for the calendar.
	GetWorkingHours(ctx context.Context, calendarAddress string) (*WorkingHours, error)
	ListPermissions(ctx context.Context, calendarAddress string) ([]Permission, error)
	// GetManager returns the mailbox's manager, or a zero Participant when
	// none is assigned.
	GetManager(ctx context.Context, calendarAddress string) (Participant, error)
	// CreateEvent creates ev on the actor's own calendar using the actor's
	// credential, so the provider runs its native room workflow.
	CreateEvent(ctx context.Context, actor Actor, ev NewEvent) (Event, error)
	PatchEvent(ctx context.Context, calendarAddress, id string, patch EventPatch) error
	DeleteEvent(ctx context.Context, calendarAddress, id string) error
}

// Field projections for ListEvents.
var (
	RoomViewFields      = []string{"id", "subject", "start", "end", "showAs", "body", "organizer", "location", "isOrganizer", "isCancelled", "responseStatus", "attendees", "webLink"}
	OrganizerViewFields = []string{"id", "subject", "start", "end", "location", "sensitivity"}
)

var delegateRoles = map[string]struct{}{
	"write":    {},
	"owner":    {},
	"delegate": {},
}

// Delegates filters permissions down to identities allowed to manage the
// room's bookings.
func Delegates(perms []Permission) []Permission {
	out := make([]Permission, 0, len(perms))
	for _, p := range perms {
		if _, ok := delegateRoles[strings.ToLower(p.Role)]; !ok || p.Address == "" {
			continue
		}
		if p.Name == "" {
			p.Name = p.Address
		}
		out = append(out, p)
	}
	return out
}

// IsDelegate reports whether address holds a delegate role on the room's
// calendar. Lookup errors are returned so each call site can pick its own
// fail-open or fail-closed policy.
func IsDelegate(ctx context.Context, gw Gateway, roomAddress, address string) (bool, error) {
	if strings.TrimSpace(address) == "" {
		return false, nil
	}
	perms, err := gw.ListPermissions(ctx, roomAddress)
	if err != nil {
		return false, err
	}
	for _, d := range Delegates(perms) {
		if SameAddress(d.Address, address) {
			return true, nil
		}
	}
	return false, nil
}
