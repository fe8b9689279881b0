package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"roombooking-service/internal/apperr"
	"roombooking-service/internal/booking"
	"roombooking-service/internal/calendar"
	"roombooking-service/internal/logging"
	"roombooking-service/internal/schedule"
)

// App holds the services behind the HTTP handlers.
type App struct {
	Schedule     Scheduler
	Rooms        RoomDirectory
	Bookings     Bookings
	WorkingHours WorkingHours
	// WindowDays sizes the default meetings window.
	WindowDays int
	Now        func() time.Time
	Logger     *slog.Logger
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// GET /api/meetings?start=RFC3339&end=RFC3339
// Without bounds the window starts today and spans WindowDays.
func (a *App) ListMeetingsHandler(c *gin.Context) {
	window := schedule.DefaultWindow(a.now())
	if a.WindowDays > 0 {
		window.End = window.Start.AddDate(0, 0, a.WindowDays)
	}
	if v := c.Query("start"); v != "" {
		start, err := time.Parse(time.RFC3339, v)
		if err != nil {
			a.fail(c, apperr.Invalid("start", "invalid start"))
			return
		}
		window.Start = start
	}
	if v := c.Query("end"); v != "" {
		end, err := time.Parse(time.RFC3339, v)
		if err != nil {
			a.fail(c, apperr.Invalid("end", "invalid end"))
			return
		}
		window.End = end
	}
	if !window.Start.Before(window.End) {
		a.fail(c, apperr.Invalid("end", "start must be before end"))
		return
	}

	meetings, err := a.Schedule.AggregateAll(c.Request.Context(), window)
	if err != nil {
		a.fail(c, err)
		return
	}
	sort.SliceStable(meetings, func(i, j int) bool {
		return meetings[i].Start.Before(meetings[j].Start)
	})
	if meetings == nil {
		meetings = []schedule.Meeting{}
	}
	c.JSON(http.StatusOK, meetingsResponse{Start: window.Start, End: window.End, Meetings: meetings})
}

// GET /api/rooms
func (a *App) ListRoomsHandler(c *gin.Context) {
	rooms, err := a.Rooms.Rooms(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	if rooms == nil {
		rooms = []calendar.Room{}
	}
	c.JSON(http.StatusOK, rooms)
}

// POST /api/bookings
func (a *App) CreateBookingHandler(c *gin.Context) {
	var req booking.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, apperr.Invalid("body", err.Error()))
		return
	}
	res, err := a.Bookings.RequestBooking(c.Request.Context(), req, PrincipalFrom(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GET /api/bookings/:id?room=
func (a *App) GetBookingHandler(c *gin.Context) {
	room, ok := a.roomQuery(c)
	if !ok {
		return
	}
	d, err := a.Bookings.Details(c.Request.Context(), room, c.Param("id"), PrincipalFrom(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// PUT /api/bookings/:id?room=
func (a *App) UpdateBookingHandler(c *gin.Context) {
	room, ok := a.roomQuery(c)
	if !ok {
		return
	}
	var req booking.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.fail(c, apperr.Invalid("body", err.Error()))
		return
	}
	d, err := a.Bookings.Update(c.Request.Context(), room, c.Param("id"), req, PrincipalFrom(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// POST /api/bookings/:id/approve?room=
func (a *App) ApproveBookingHandler(c *gin.Context) {
	a.decide(c, a.Bookings.Approve)
}

// POST /api/bookings/:id/reject?room=
func (a *App) RejectBookingHandler(c *gin.Context) {
	a.decide(c, a.Bookings.Reject)
}

// DELETE /api/bookings/:id?room=
func (a *App) CancelBookingHandler(c *gin.Context) {
	a.decide(c, a.Bookings.Cancel)
}

type decision func(ctx context.Context, roomAddress, eventID string, actor booking.Principal) (booking.Outcome, error)

func (a *App) decide(c *gin.Context, fn decision) {
	room, ok := a.roomQuery(c)
	if !ok {
		return
	}
	out, err := fn(c.Request.Context(), room, c.Param("id"), PrincipalFrom(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/admin/working-hours/:room
func (a *App) GetWorkingHoursHandler(c *gin.Context) {
	room := c.Param("room")
	rule, canEdit, err := a.WorkingHours.Get(c.Request.Context(), room, PrincipalFrom(c).Address)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, workingHoursResponse{Room: room, WorkingHours: rule, CanEdit: canEdit})
}

// PUT /api/admin/working-hours/:room
func (a *App) SetWorkingHoursHandler(c *gin.Context) {
	room := c.Param("room")
	var rule calendar.WorkingHours
	if err := c.ShouldBindJSON(&rule); err != nil {
		a.fail(c, apperr.Invalid("body", err.Error()))
		return
	}
	saved, err := a.WorkingHours.Set(c.Request.Context(), room, rule, PrincipalFrom(c).Address)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, workingHoursResponse{Room: room, WorkingHours: saved, CanEdit: true})
}

func (a *App) roomQuery(c *gin.Context) (string, bool) {
	room := strings.TrimSpace(c.Query("room"))
	if room == "" {
		a.fail(c, apperr.Invalid("room", "room is required"))
		return "", false
	}
	return room, true
}

// fail writes err as JSON with the status of its kind. Unexpected errors
// are logged; their details never reach the client.
func (a *App) fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	kind := apperr.Kind(err)
	if status >= http.StatusInternalServerError {
		logger := logging.Service(c.Request.Context(), a.Logger, "HTTP", c.FullPath())
		logger.ErrorContext(c.Request.Context(), "request failed", "error", err, "error_kind", kind)
	}
	resp := errorResponse{Error: apperr.Message(err), Kind: kind}
	var vErr *apperr.ValidationError
	if errors.As(err, &vErr) {
		resp.Field = vErr.Field
	}
	c.AbortWithStatusJSON(status, resp)
}
