package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"roombooking-service/internal/apperr"
	"roombooking-service/internal/fanout"
)

// ListRoomsWithDelegates returns the rooms sorted by display name, each
// annotated with its delegates. A failed delegate lookup leaves that room's
// list empty.
func ListRoomsWithDelegates(ctx context.Context, gw Gateway, opts fanout.Options, logger *slog.Logger) ([]Room, error) {
	rooms, err := gw.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	sort.SliceStable(rooms, func(i, j int) bool {
		return rooms[i].DisplayName < rooms[j].DisplayName
	})

	results := fanout.Map(ctx, rooms, opts, func(ctx context.Context, room Room) ([]Permission, error) {
		perms, err := gw.ListPermissions(ctx, room.Address)
		if err != nil {
			return nil, err
		}
		return Delegates(perms), nil
	})
	for i, res := range results {
		if res.Err != nil {
			if logger != nil {
				logger.Warn("delegate lookup failed", "room", rooms[i].Address, "error", res.Err, "error_kind", apperr.Kind(res.Err))
			}
			rooms[i].Delegates = []Permission{}
			continue
		}
		rooms[i].Delegates = res.Value
	}
	return rooms, nil
}

// FindRoom resolves a display name to exactly one room, case-insensitively.
// The returned error is apperr.ErrNotFound when nothing matches; ambiguous
// reports whether more than one room matched.
func FindRoom(rooms []Room, displayName string) (room Room, ambiguous bool, err error) {
	name := strings.TrimSpace(displayName)
	matches := 0
	for _, r := range rooms {
		if r.Address == "" || !strings.EqualFold(strings.TrimSpace(r.DisplayName), name) {
			continue
		}
		if matches == 0 {
			room = r
		}
		matches++
	}
	switch {
	case matches == 0:
		return Room{}, false, fmt.Errorf("room %q: %w", name, apperr.ErrNotFound)
	case matches > 1:
		return room, true, nil
	}
	return room, false, nil
}

// FindRoomByAddress returns the room whose calendar address matches.
func FindRoomByAddress(rooms []Room, address string) (Room, bool) {
	for _, r := range rooms {
		if SameAddress(r.Address, address) {
			return r, true
		}
	}
	return Room{}, false
}

// Directory serves the room list with delegates.
type Directory struct {
	Gateway Gateway
	Fanout  fanout.Options
	Logger  *slog.Logger
}

func (d *Directory) Rooms(ctx context.Context) ([]Room, error) {
	return ListRoomsWithDelegates(ctx, d.Gateway, d.Fanout, d.Logger)
}
