// Package schedule builds the merged meeting timeline across room calendars.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"roombooking-service/internal/apperr"
	"roombooking-service/internal/calendar"
	"roombooking-service/internal/fanout"
	"roombooking-service/internal/locale"
	"roombooking-service/internal/logging"
)

// Defaults for Config.
const (
	DefaultFanout         = 8
	DefaultFetchTimeout   = 10 * time.Second
	DefaultResolveTimeout = 5 * time.Second
	DefaultWindowDays     = 10
)

// Meeting is one display ready entry of the aggregated schedule.
type Meeting struct {
	ID             string    `json:"id"`
	Room           string    `json:"room"`
	RoomEmail      string    `json:"roomEmail"`
	Subject        string    `json:"subject"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Status         string    `json:"status"`
	OrganizerEmail string    `json:"organizerEmail"`
	OrganizerName  string    `json:"organizerName"`
	Body           string    `json:"body,omitempty"`
	IsOrganizer    bool      `json:"isOrganizer"`
	RoomResponse   string    `json:"roomResponse"`
}

type Config struct {
	// Fanout bounds the per-room calendar queries.
	Fanout fanout.Options
	// ResolveTimeout bounds each organizer calendar lookup.
	ResolveTimeout time.Duration
	// Location is the zone the organizer day window is computed in.
	Location *time.Location
	Messages locale.Messages
}

// Aggregator fans out calendar-view queries across rooms and merges the
// results into one deduplicated timeline.
type Aggregator struct {
	gw     calendar.Gateway
	cache  *TitleCache
	cfg    Config
	logger *slog.Logger
}

func NewAggregator(gw calendar.Gateway, cache *TitleCache, cfg Config, logger *slog.Logger) *Aggregator {
	if cache == nil {
		cache = NewTitleCache(DefaultTitleTTL, nil)
	}
	if cfg.Fanout.Limit <= 0 {
		cfg.Fanout.Limit = DefaultFanout
	}
	if cfg.Fanout.Timeout <= 0 {
		cfg.Fanout.Timeout = DefaultFetchTimeout
	}
	if cfg.ResolveTimeout <= 0 {
		cfg.ResolveTimeout = DefaultResolveTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Messages.Lang == "" {
		cfg.Messages = locale.English
	}
	return &Aggregator{gw: gw, cache: cache, cfg: cfg, logger: logger}
}

// DefaultWindow starts at today 00:00 UTC and spans DefaultWindowDays.
func DefaultWindow(now time.Time) calendar.Window {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return calendar.Window{Start: start, End: start.AddDate(0, 0, DefaultWindowDays)}
}

// AggregateAll lists the rooms through the gateway and aggregates them.
// Only a failure to list rooms is returned.
func (a *Aggregator) AggregateAll(ctx context.Context, window calendar.Window) ([]Meeting, error) {
	rooms, err := a.gw.ListRooms(ctx)
	if err != nil {
		logger := logging.Service(ctx, a.logger, "ScheduleAggregator", "AggregateAll")
		logger.ErrorContext(ctx, "failed to list rooms", "error", err, "error_kind", apperr.Kind(err))
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return a.Aggregate(ctx, rooms, window), nil
}

// Aggregate queries every room concurrently. A room whose query fails or
// times out contributes no meetings; the failure is only logged. The result
// follows room order and is deduplicated by event id.
func (a *Aggregator) Aggregate(ctx context.Context, rooms []calendar.Room, window calendar.Window) []Meeting {
	logger := logging.Service(ctx, a.logger, "ScheduleAggregator", "Aggregate")
	if expired := a.cache.Expire(); expired > 0 {
		logger.DebugContext(ctx, "expired cached titles", "count", expired)
	}

	targets := make([]calendar.Room, 0, len(rooms))
	for _, room := range rooms {
		if strings.TrimSpace(room.Address) != "" {
			targets = append(targets, room)
		}
	}

	fetched := fanout.Map(ctx, targets, a.cfg.Fanout, func(ctx context.Context, room calendar.Room) ([]calendar.Event, error) {
		return a.gw.ListEvents(ctx, room.Address, window, calendar.RoomViewFields)
	})

	var meetings []Meeting
	var pending []hiddenTitle
	for i, res := range fetched {
		room := targets[i]
		if res.Err != nil {
			logger.WarnContext(ctx, "room calendar unavailable", "room", room.Address, "error", res.Err, "error_kind", apperr.Kind(res.Err))
			continue
		}
		for _, ev := range res.Value {
			if ev.IsCancelled {
				continue
			}
			if titleHidden(ev) && !ev.IsOrganizer && strings.TrimSpace(ev.Organizer.Address) != "" {
				pending = append(pending, hiddenTitle{index: len(meetings), room: room, event: ev})
			}
			meetings = append(meetings, toMeeting(room, ev))
		}
	}

	a.resolveTitles(ctx, logger, meetings, pending)

	for i := range meetings {
		if subjectHidden(meetings[i].Subject, meetings[i].OrganizerName) {
			meetings[i].Subject = a.fallbackTitle(meetings[i].OrganizerName)
		}
	}
	return Dedup(meetings)
}

type hiddenTitle struct {
	index int
	room  calendar.Room
	event calendar.Event
}

// resolveTitles fills hidden subjects in place. Lookups run on the same
// bounded fan-out as the room queries; a failed lookup keeps the original
// subject.
func (a *Aggregator) resolveTitles(ctx context.Context, logger *slog.Logger, meetings []Meeting, pending []hiddenTitle) {
	if len(pending) == 0 {
		return
	}
	opts := a.cfg.Fanout
	opts.Timeout = a.cfg.ResolveTimeout
	resolved := fanout.Map(ctx, pending, opts, func(ctx context.Context, h hiddenTitle) (string, error) {
		return a.ResolveTitle(ctx, h.room, h.event)
	})
	for i, res := range resolved {
		h := pending[i]
		if res.Err != nil {
			logger.DebugContext(ctx, "title resolution failed", "organizer", h.event.Organizer.Address, "error", res.Err, "error_kind", apperr.Kind(res.Err))
			continue
		}
		if res.Value != "" {
			meetings[h.index].Subject = res.Value
		}
	}
}

// ResolveTitle recovers the title of an event whose subject is hidden on the
// room calendar. It consults the cache, then the organizer's calendar for
// the same day. An empty title with a nil error means nothing matched.
func (a *Aggregator) ResolveTitle(ctx context.Context, room calendar.Room, ev calendar.Event) (string, error) {
	key := NewTitleKey(ev.Organizer.Address, ev.Start, ev.End, room.DisplayName)
	if title, ok := a.cache.Get(key); ok {
		return title, nil
	}

	day := calendar.DayWindow(ev.Start, a.cfg.Location)
	candidates, err := a.gw.ListEvents(ctx, ev.Organizer.Address, day, calendar.OrganizerViewFields)
	if err != nil {
		return "", err
	}
	roomName := strings.ToLower(strings.TrimSpace(room.DisplayName))
	for _, c := range candidates {
		sameInterval := c.Start.Equal(ev.Start) && c.End.Equal(ev.End)
		sameRoom := roomName != "" && strings.Contains(strings.ToLower(c.Location), roomName)
		if !sameInterval && !sameRoom {
			continue
		}
		if strings.TrimSpace(c.Subject) == "" {
			continue
		}
		title := a.organizerTitle(room, ev.Organizer, c)
		a.cache.Put(key, title)
		return title, nil
	}
	return "", nil
}

func (a *Aggregator) organizerTitle(room calendar.Room, organizer calendar.Participant, source calendar.Event) string {
	name := strings.TrimSpace(organizer.Name)
	if strings.EqualFold(source.Sensitivity, "private") {
		return a.cfg.Messages.BusyLabel(name)
	}
	if name != "" && !calendar.SameAddress(organizer.Address, room.Address) {
		return fmt.Sprintf("%s (%s)", source.Subject, name)
	}
	return source.Subject
}

func (a *Aggregator) fallbackTitle(organizerName string) string {
	if strings.TrimSpace(organizerName) != "" {
		return a.cfg.Messages.BusyLabel(organizerName)
	}
	return a.cfg.Messages.PrivateHidden
}

func titleHidden(ev calendar.Event) bool {
	return subjectHidden(ev.Subject, ev.Organizer.Name)
}

// subjectHidden reports whether the provider replaced the subject, which
// shows as empty or as the organizer's name.
func subjectHidden(subject, organizerName string) bool {
	s := strings.TrimSpace(subject)
	return s == "" || s == strings.TrimSpace(organizerName)
}

func toMeeting(room calendar.Room, ev calendar.Event) Meeting {
	status := ev.ShowAs
	if status == "" {
		status = calendar.ShowAsBusy
	}
	return Meeting{
		ID:             ev.ID,
		Room:           room.DisplayName,
		RoomEmail:      room.Address,
		Subject:        ev.Subject,
		Start:          ev.Start,
		End:            ev.End,
		Status:         status,
		OrganizerEmail: ev.Organizer.Address,
		OrganizerName:  ev.Organizer.Name,
		Body:           ev.Body,
		IsOrganizer:    ev.IsOrganizer,
		RoomResponse:   RoomResponse(ev, room.Address),
	}
}

// RoomResponse prefers the event's own response and otherwise reads the
// room's entry in the attendee list.
func RoomResponse(ev calendar.Event, roomAddress string) string {
	if ev.Response != "" && ev.Response != calendar.ResponseNone {
		return ev.Response
	}
	for _, at := range ev.Attendees {
		if calendar.SameAddress(at.Address, roomAddress) && at.Response != "" {
			return at.Response
		}
	}
	return calendar.ResponseNone
}

// Dedup keeps the first meeting of every event id. Meetings without an id
// are always kept.
func Dedup(meetings []Meeting) []Meeting {
	seen := make(map[string]struct{}, len(meetings))
	out := make([]Meeting, 0, len(meetings))
	for _, m := range meetings {
		if m.ID != "" {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
		}
		out = append(out, m)
	}
	return out
}
