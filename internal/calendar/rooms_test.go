package calendar_test

import (
	"context"
	"errors"
	"testing"

	"roombooking-service/internal/apperr"
	"roombooking-service/internal/calendar"
	"roombooking-service/internal/calendar/calendartest"
	"roombooking-service/internal/fanout"
	"roombooking-service/internal/logging"
)

func TestFindRoom(t *testing.T) {
	rooms := []calendar.Room{
		{DisplayName: "Kantine", Address: "kantine@example.org"},
		{DisplayName: "Commissiekamer", Address: "commissie@example.org"},
		{DisplayName: "Ghost"},
	}

	room, ambiguous, err := calendar.FindRoom(rooms, "  kantine ")
	if err != nil || ambiguous || room.Address != "kantine@example.org" {
		t.Fatalf("expected kantine, got %+v %v %v", room, ambiguous, err)
	}
	if _, _, err := calendar.FindRoom(rooms, "Ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected rooms without address to be ignored, got %v", err)
	}
	if _, _, err := calendar.FindRoom(rooms, "Zolder"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	rooms = append(rooms, calendar.Room{DisplayName: "KANTINE", Address: "kantine2@example.org"})
	if _, ambiguous, err := calendar.FindRoom(rooms, "Kantine"); err != nil || !ambiguous {
		t.Fatalf("expected ambiguity, got %v %v", ambiguous, err)
	}

	if r, ok := calendar.FindRoomByAddress(rooms, "COMMISSIE@example.org"); !ok || r.DisplayName != "Commissiekamer" {
		t.Fatalf("expected lookup by address, got %+v", r)
	}
}

func TestListRoomsWithDelegates(t *testing.T) {
	gw := &calendartest.Fake{}
	gw.AddRoom("2", "Kantine", "kantine@example.org")
	gw.AddRoom("1", "Businessruimte", "business@example.org")
	gw.SetPermissions("kantine@example.org",
		calendar.Permission{Address: "desk@example.org", Role: "Owner"},
		calendar.Permission{Address: "all@example.org", Role: "read"},
	)

	dir := &calendar.Directory{Gateway: gw, Fanout: fanout.Options{Limit: 2}, Logger: logging.Discard()}
	rooms, err := dir.Rooms(context.Background())
	if err != nil {
		t.Fatalf("rooms: %v", err)
	}
	if rooms[0].DisplayName != "Businessruimte" || rooms[1].DisplayName != "Kantine" {
		t.Fatalf("expected rooms sorted by name, got %+v", rooms)
	}
	if len(rooms[0].Delegates) != 0 || len(rooms[1].Delegates) != 1 || rooms[1].Delegates[0].Name != "desk@example.org" {
		t.Fatalf("unexpected delegates %+v", rooms)
	}

	gw.PermsErr = errors.New("throttled")
	rooms, err = dir.Rooms(context.Background())
	if err != nil || rooms[1].Delegates == nil || len(rooms[1].Delegates) != 0 {
		t.Fatalf("expected empty delegate lists on lookup failure, got %+v, %v", rooms, err)
	}

	gw.RoomsErr = apperr.FromStatus("list rooms", 401, "")
	if _, err := dir.Rooms(context.Background()); !errors.Is(err, apperr.ErrAuthenticationRequired) {
		t.Fatalf("expected ErrAuthenticationRequired, got %v", err)
	}
}

func TestIsDelegate(t *testing.T) {
	gw := &calendartest.Fake{}
	gw.SetPermissions("kantine@example.org", calendar.Permission{Address: "Desk@Example.org", Role: "delegate"})
	ctx := context.Background()

	if ok, err := calendar.IsDelegate(ctx, gw, "kantine@example.org", "desk@example.org"); err != nil || !ok {
		t.Fatalf("expected delegate, got %v %v", ok, err)
	}
	if ok, _ := calendar.IsDelegate(ctx, gw, "kantine@example.org", " "); ok {
		t.Fatalf("expected blank address not to be a delegate")
	}
	gw.PermsErr = errors.New("down")
	if _, err := calendar.IsDelegate(ctx, gw, "kantine@example.org", "desk@example.org"); err == nil {
		t.Fatalf("expected lookup error to be returned")
	}
}
