// Package calendartest provides an in-memory calendar.Gateway for tests.
package calendartest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"roombooking-service/internal/apperr"
	"roombooking-service/internal/calendar"
)

// Fake is a scriptable in-memory gateway. Calendars are keyed by address,
// case-insensitively. The zero value is ready to use.
type Fake struct {
	mu sync.Mutex

	rooms      []calendar.Room
	RoomsErr   error
	events     map[string][]calendar.Event
	listErrs   map[string]error
	delays     map[string]time.Duration
	perms      map[string][]calendar.Permission
	PermsErr   error
	managers   map[string]calendar.Participant
	ManagerErr error
	hours      map[string]*calendar.WorkingHours
	HoursErr   error
	CreateErr  error
	PatchErr   error
	DeleteErr  error

	Created []calendar.NewEvent
	Actors  []calendar.Actor
	Patched []calendar.EventPatch
	Deleted []string

	calls  map[string]int
	nextID int
}

func key(address string) string { return strings.ToLower(strings.TrimSpace(address)) }

func (f *Fake) init() {
	if f.events == nil {
		f.events = make(map[string][]calendar.Event)
		f.listErrs = make(map[string]error)
		f.delays = make(map[string]time.Duration)
		f.perms = make(map[string][]calendar.Permission)
		f.managers = make(map[string]calendar.Participant)
		f.hours = make(map[string]*calendar.WorkingHours)
		f.calls = make(map[string]int)
	}
}

// AddRoom registers a room and returns it.
func (f *Fake) AddRoom(id, name, address string) calendar.Room {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	room := calendar.Room{ID: id, DisplayName: name, Address: address}
	f.rooms = append(f.rooms, room)
	return room
}

// AddEvents appends events to the calendar at address.
func (f *Fake) AddEvents(address string, events ...calendar.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	f.events[key(address)] = append(f.events[key(address)], events...)
}

// FailList makes ListEvents on address return err.
func (f *Fake) FailList(address string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	f.listErrs[key(address)] = err
}

// DelayList makes ListEvents on address wait d (or until the context ends).
func (f *Fake) DelayList(address string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	f.delays[key(address)] = d
}

// SetPermissions replaces the sharing list of address.
func (f *Fake) SetPermissions(address string, perms ...calendar.Permission) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	f.perms[key(address)] = perms
}

// SetWorkingHours sets the provider-side rule of address.
func (f *Fake) SetWorkingHours(address string, wh *calendar.WorkingHours) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	f.hours[key(address)] = wh
}

// Calls returns how often op ("list", "get", "perms", "hours") hit address.
func (f *Fake) Calls(op, address string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	return f.calls[op+":"+key(address)]
}

// Event returns the stored event with id on address.
func (f *Fake) Event(address, id string) (calendar.Event, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	for _, ev := range f.events[key(address)] {
		if ev.ID == id {
			return ev, true
		}
	}
	return calendar.Event{}, false
}

func (f *Fake) ListRooms(ctx context.Context) ([]calendar.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RoomsErr != nil {
		return nil, f.RoomsErr
	}
	out := make([]calendar.Room, len(f.rooms))
	copy(out, f.rooms)
	return out, nil
}

func (f *Fake) ListEvents(ctx context.Context, address string, window calendar.Window, fields []string) ([]calendar.Event, error) {
	f.mu.Lock()
	f.init()
	f.calls["list:"+key(address)]++
	delay := f.delays[key(address)]
	err := f.listErrs[key(address)]
	var out []calendar.Event
	for _, ev := range f.events[key(address)] {
		if !window.Start.IsZero() && (!ev.Start.Before(window.End) || !ev.End.After(window.Start)) {
			continue
		}
		out = append(out, ev)
	}
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *Fake) GetEvent(ctx context.Context, address, id string) (calendar.Event, error) {
	f.mu.Lock()
	f.init()
	f.calls["get:"+key(address)]++
	f.mu.Unlock()
	if ev, ok := f.Event(address, id); ok {
		return ev, nil
	}
	return calendar.Event{}, fmt.Errorf("get event: %w", apperr.ErrNotFound)
}

func (f *Fake) GetWorkingHours(ctx context.Context, address string) (*calendar.WorkingHours, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	f.calls["hours:"+key(address)]++
	if f.HoursErr != nil {
		return nil, f.HoursErr
	}
	return f.hours[key(address)], nil
}

func (f *Fake) ListPermissions(ctx context.Context, address string) ([]calendar.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	f.calls["perms:"+key(address)]++
	if f.PermsErr != nil {
		return nil, f.PermsErr
	}
	return append([]calendar.Permission(nil), f.perms[key(address)]...), nil
}

func (f *Fake) GetManager(ctx context.Context, address string) (calendar.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	f.calls["manager:"+key(address)]++
	if f.ManagerErr != nil {
		return calendar.Participant{}, f.ManagerErr
	}
	return f.managers[key(address)], nil
}

// SetManager assigns the mailbox manager of address.
func (f *Fake) SetManager(address string, manager calendar.Participant) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	f.managers[key(address)] = manager
}

// CreateEvent stores the event on the room's calendar as the provider
// would after inviting the room.
func (f *Fake) CreateEvent(ctx context.Context, actor calendar.Actor, ev calendar.NewEvent) (calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	if f.CreateErr != nil {
		return calendar.Event{}, f.CreateErr
	}
	f.nextID++
	created := calendar.Event{
		ID:        fmt.Sprintf("created-%d", f.nextID),
		Subject:   ev.Subject,
		Body:      ev.HTMLBody,
		Start:     ev.Start,
		End:       ev.End,
		ShowAs:    ev.ShowAs,
		Organizer: actor.Participant,
		Location:  ev.Location,
		Response:  calendar.ResponseNone,
	}
	f.Created = append(f.Created, ev)
	f.Actors = append(f.Actors, actor)
	f.events[key(ev.Room.Address)] = append(f.events[key(ev.Room.Address)], created)
	return created, nil
}

func (f *Fake) PatchEvent(ctx context.Context, address, id string, patch calendar.EventPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	if f.PatchErr != nil {
		return f.PatchErr
	}
	events := f.events[key(address)]
	for i := range events {
		if events[i].ID != id {
			continue
		}
		if patch.Subject != nil {
			events[i].Subject = *patch.Subject
		}
		if patch.HTMLBody != nil {
			events[i].Body = *patch.HTMLBody
		}
		if patch.Start != nil {
			events[i].Start = *patch.Start
		}
		if patch.End != nil {
			events[i].End = *patch.End
		}
		if patch.ShowAs != nil {
			events[i].ShowAs = *patch.ShowAs
		}
		f.Patched = append(f.Patched, patch)
		return nil
	}
	return fmt.Errorf("patch event: %w", apperr.ErrNotFound)
}

func (f *Fake) DeleteEvent(ctx context.Context, address, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	events := f.events[key(address)]
	for i := range events {
		if events[i].ID == id {
			f.events[key(address)] = append(events[:i:i], events[i+1:]...)
			f.Deleted = append(f.Deleted, id)
			return nil
		}
	}
	return fmt.Errorf("delete event: %w", apperr.ErrNotFound)
}

var _ calendar.Gateway = (*Fake)(nil)
