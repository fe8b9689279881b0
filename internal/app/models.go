package app

import (
	"context"
	"time"

	"roombooking-service/internal/booking"
	"roombooking-service/internal/calendar"
	"roombooking-service/internal/schedule"
)

// Scheduler yields the merged meeting timeline.
type Scheduler interface {
	AggregateAll(ctx context.Context, window calendar.Window) ([]schedule.Meeting, error)
}

// RoomDirectory lists rooms with their delegates.
type RoomDirectory interface {
	Rooms(ctx context.Context) ([]calendar.Room, error)
}

// Bookings is the booking lifecycle.
type Bookings interface {
	RequestBooking(ctx context.Context, req booking.Request, p booking.Principal) (booking.Result, error)
	Approve(ctx context.Context, roomAddress, eventID string, actor booking.Principal) (booking.Outcome, error)
	Reject(ctx context.Context, roomAddress, eventID string, actor booking.Principal) (booking.Outcome, error)
	Cancel(ctx context.Context, roomAddress, eventID string, actor booking.Principal) (booking.Outcome, error)
	Update(ctx context.Context, roomAddress, eventID string, req booking.UpdateRequest, actor booking.Principal) (booking.Details, error)
	Details(ctx context.Context, roomAddress, eventID string, actor booking.Principal) (booking.Details, error)
}

// WorkingHours is the working hours administration.
type WorkingHours interface {
	Get(ctx context.Context, roomAddress, actor string) (calendar.WorkingHours, bool, error)
	Set(ctx context.Context, roomAddress string, rule calendar.WorkingHours, actor string) (calendar.WorkingHours, error)
}

type meetingsResponse struct {
	Start    time.Time          `json:"start"`
	End      time.Time          `json:"end"`
	Meetings []schedule.Meeting `json:"meetings"`
}

type workingHoursResponse struct {
	Room         string                `json:"room"`
	WorkingHours calendar.WorkingHours `json:"workingHours"`
	CanEdit      bool                  `json:"canEdit"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Field string `json:"field,omitempty"`
}
