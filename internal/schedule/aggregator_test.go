package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"roombooking-service/internal/apperr"
	"roombooking-service/internal/calendar"
	"roombooking-service/internal/calendar/calendartest"
	"roombooking-service/internal/fanout"
	"roombooking-service/internal/locale"
	"roombooking-service/internal/logging"
)

var day = time.Date(2025, 11, 19, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func testWindow() calendar.Window {
	return calendar.Window{Start: day, End: day.AddDate(0, 0, 1)}
}

func newTestAggregator(gw calendar.Gateway, now func() time.Time) *Aggregator {
	return NewAggregator(gw, NewTitleCache(DefaultTitleTTL, now), Config{
		Fanout:         fanout.Options{Limit: 4, Timeout: 200 * time.Millisecond},
		ResolveTimeout: 200 * time.Millisecond,
		Location:       time.UTC,
		Messages:       locale.English,
	}, logging.Discard())
}

func event(id, subject string, start, end time.Time, organizer calendar.Participant) calendar.Event {
	return calendar.Event{ID: id, Subject: subject, Start: start, End: end, ShowAs: calendar.ShowAsBusy, Organizer: organizer, Response: calendar.ResponseNone}
}

var jan = calendar.Participant{Address: "jan@example.org", Name: "Jan de Vries"}

func TestAggregateIsolatesFailingAndSlowRooms(t *testing.T) {
	gw := &calendartest.Fake{}
	a := gw.AddRoom("1", "Kantine", "kantine@example.org")
	b := gw.AddRoom("2", "Businessruimte", "business@example.org")
	c := gw.AddRoom("3", "Commissiekamer", "commissie@example.org")
	gw.AddEvents(a.Address, event("a1", "Lunch", at(12, 0), at(13, 0), jan))
	gw.AddEvents(b.Address, event("b1", "Board", at(9, 0), at(10, 0), jan))
	gw.AddEvents(c.Address, event("c1", "Review", at(14, 0), at(15, 0), jan))
	gw.FailList(b.Address, apperr.FromStatus("list events", 500, "boom"))
	gw.DelayList(c.Address, 2*time.Second)

	agg := newTestAggregator(gw, nil)
	meetings, err := agg.AggregateAll(context.Background(), testWindow())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(meetings) != 1 || meetings[0].ID != "a1" {
		t.Fatalf("expected only the healthy room's meeting, got %+v", meetings)
	}
	if meetings[0].Room != "Kantine" || meetings[0].RoomEmail != a.Address {
		t.Fatalf("unexpected room fields %+v", meetings[0])
	}
}

func TestAggregateAllPropagatesRoomListingFailure(t *testing.T) {
	gw := &calendartest.Fake{RoomsErr: apperr.ErrForbidden}
	if _, err := newTestAggregator(gw, nil).AggregateAll(context.Background(), testWindow()); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestAggregateDedupsAndSkipsCancelled(t *testing.T) {
	gw := &calendartest.Fake{}
	a := gw.AddRoom("1", "A", "a@example.org")
	b := gw.AddRoom("2", "B", "b@example.org")
	cancelled := event("gone", "Old", at(8, 0), at(9, 0), jan)
	cancelled.IsCancelled = true
	gw.AddEvents(a.Address,
		event("shared", "First", at(9, 0), at(10, 0), jan),
		event("", "No id", at(10, 0), at(11, 0), jan),
		cancelled,
	)
	gw.AddEvents(b.Address,
		event("shared", "Second", at(9, 0), at(10, 0), jan),
		event("", "No id", at(10, 0), at(11, 0), jan),
	)

	meetings := newTestAggregator(gw, nil).Aggregate(context.Background(), []calendar.Room{a, b}, testWindow())
	if len(meetings) != 3 {
		t.Fatalf("expected 3 meetings, got %+v", meetings)
	}
	if meetings[0].ID != "shared" || meetings[0].Subject != "First" {
		t.Fatalf("expected first occurrence to win, got %+v", meetings[0])
	}
	for _, m := range meetings {
		if m.ID == "gone" {
			t.Fatalf("expected cancelled event to be skipped")
		}
	}
}

func TestAggregateResolvesHiddenTitleAndCachesIt(t *testing.T) {
	current := time.Date(2025, 11, 18, 8, 0, 0, 0, time.UTC)
	gw := &calendartest.Fake{}
	room := gw.AddRoom("1", "Kantine", "kantine@example.org")
	gw.AddEvents(room.Address, event("e1", "Jan de Vries", at(9, 0), at(10, 0), jan))
	gw.AddEvents(jan.Address, event("o1", "Budget review", at(9, 0), at(10, 0), jan))

	agg := newTestAggregator(gw, func() time.Time { return current })
	rooms := []calendar.Room{room}

	meetings := agg.Aggregate(context.Background(), rooms, testWindow())
	if len(meetings) != 1 || meetings[0].Subject != "Budget review (Jan de Vries)" {
		t.Fatalf("expected resolved title, got %+v", meetings)
	}

	current = current.Add(14 * time.Minute)
	meetings = agg.Aggregate(context.Background(), rooms, testWindow())
	if meetings[0].Subject != "Budget review (Jan de Vries)" {
		t.Fatalf("expected cached title, got %q", meetings[0].Subject)
	}
	if calls := gw.Calls("list", jan.Address); calls != 1 {
		t.Fatalf("expected one organizer lookup within TTL, got %d", calls)
	}

	current = current.Add(2 * time.Minute)
	agg.Aggregate(context.Background(), rooms, testWindow())
	if calls := gw.Calls("list", jan.Address); calls != 2 {
		t.Fatalf("expected re-resolution after TTL, got %d lookups", calls)
	}
}

func TestResolveTitleVariants(t *testing.T) {
	room := calendar.Room{ID: "1", DisplayName: "Kantine", Address: "kantine@example.org"}

	t.Run("private event shows busy label", func(t *testing.T) {
		gw := &calendartest.Fake{}
		private := event("o1", "Salary talk", at(9, 0), at(10, 0), jan)
		private.Sensitivity = "private"
		gw.AddEvents(jan.Address, private)
		title, err := newTestAggregator(gw, nil).ResolveTitle(context.Background(), room, event("e1", "", at(9, 0), at(10, 0), jan))
		if err != nil || title != "Busy (Jan de Vries)" {
			t.Fatalf("expected busy label, got %q, %v", title, err)
		}
	})

	t.Run("location match with different interval", func(t *testing.T) {
		gw := &calendartest.Fake{}
		moved := event("o1", "Planning", at(11, 0), at(12, 0), jan)
		moved.Location = "Vergaderzaal KANTINE (begane grond)"
		gw.AddEvents(jan.Address, moved)
		title, err := newTestAggregator(gw, nil).ResolveTitle(context.Background(), room, event("e1", "", at(9, 0), at(10, 0), jan))
		if err != nil || title != "Planning (Jan de Vries)" {
			t.Fatalf("expected location match, got %q, %v", title, err)
		}
	})

	t.Run("organizer is the room", func(t *testing.T) {
		gw := &calendartest.Fake{}
		self := calendar.Participant{Address: room.Address, Name: "Kantine"}
		gw.AddEvents(room.Address, event("o1", "Schoonmaak", at(9, 0), at(10, 0), self))
		title, err := newTestAggregator(gw, nil).ResolveTitle(context.Background(), room, event("e1", "Kantine", at(9, 0), at(10, 0), self))
		if err != nil || title != "Schoonmaak" {
			t.Fatalf("expected bare subject, got %q, %v", title, err)
		}
	})

	t.Run("no match", func(t *testing.T) {
		gw := &calendartest.Fake{}
		gw.AddEvents(jan.Address, event("o1", "Elsewhere", at(15, 0), at(16, 0), jan))
		title, err := newTestAggregator(gw, nil).ResolveTitle(context.Background(), room, event("e1", "", at(9, 0), at(10, 0), jan))
		if err != nil || title != "" {
			t.Fatalf("expected no resolution, got %q, %v", title, err)
		}
	})
}

func TestAggregateFallsBackWhenResolutionFails(t *testing.T) {
	gw := &calendartest.Fake{}
	room := gw.AddRoom("1", "Kantine", "kantine@example.org")
	anonymous := calendar.Participant{Address: "ghost@example.org"}
	gw.AddEvents(room.Address,
		event("e1", "Jan de Vries", at(9, 0), at(10, 0), jan),
		event("e2", "", at(11, 0), at(12, 0), anonymous),
	)
	gw.FailList(jan.Address, apperr.ErrForbidden)

	agg := NewAggregator(gw, nil, Config{Messages: locale.Dutch}, logging.Discard())
	meetings := agg.Aggregate(context.Background(), []calendar.Room{room}, testWindow())
	if len(meetings) != 2 {
		t.Fatalf("expected 2 meetings, got %+v", meetings)
	}
	if meetings[0].Subject != "Bezet (Jan de Vries)" {
		t.Fatalf("expected busy fallback, got %q", meetings[0].Subject)
	}
	if meetings[1].Subject != "Privé (onderwerp verborgen)" {
		t.Fatalf("expected private fallback, got %q", meetings[1].Subject)
	}
}

func TestAggregateSkipsLookupWhenRoomOrganizes(t *testing.T) {
	gw := &calendartest.Fake{}
	room := gw.AddRoom("1", "Kantine", "kantine@example.org")
	ev := event("e1", "", at(9, 0), at(10, 0), jan)
	ev.IsOrganizer = true
	gw.AddEvents(room.Address, ev)

	newTestAggregator(gw, nil).Aggregate(context.Background(), []calendar.Room{room}, testWindow())
	if calls := gw.Calls("list", jan.Address); calls != 0 {
		t.Fatalf("expected no organizer lookup, got %d", calls)
	}
}

func TestRoomResponse(t *testing.T) {
	roomAddress := "kantine@example.org"
	cases := []struct {
		name string
		ev   calendar.Event
		want string
	}{
		{"own field", calendar.Event{Response: calendar.ResponseDeclined}, calendar.ResponseDeclined},
		{"attendee entry", calendar.Event{Response: calendar.ResponseNone, Attendees: []calendar.Attendee{
			{Participant: calendar.Participant{Address: "other@example.org"}, Response: calendar.ResponseDeclined},
			{Participant: calendar.Participant{Address: "KANTINE@example.org"}, Response: calendar.ResponseAccepted},
		}}, calendar.ResponseAccepted},
		{"nothing", calendar.Event{}, calendar.ResponseNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RoomResponse(tc.ev, roomAddress); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestDefaultWindow(t *testing.T) {
	now := time.Date(2025, 11, 19, 22, 30, 0, 0, time.FixedZone("CET", 3600))
	w := DefaultWindow(now)
	if !w.Start.Equal(time.Date(2025, 11, 19, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", w.Start)
	}
	if w.End.Sub(w.Start) != 10*24*time.Hour {
		t.Fatalf("expected 10 day window, got %v", w.End.Sub(w.Start))
	}
}
