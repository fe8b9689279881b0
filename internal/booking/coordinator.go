// Package booking validates room bookings, creates the underlying calendar
// events and drives them through approval.
package booking

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"roombooking-service/internal/apperr"
	"roombooking-service/internal/calendar"
	"roombooking-service/internal/locale"
	"roombooking-service/internal/logging"
	"roombooking-service/internal/notify"
	"roombooking-service/internal/workinghours"
)

// Rules yields the working hours rule a booking is checked against. A nil
// rule means the room is unrestricted.
type Rules interface {
	Effective(ctx context.Context, roomAddress string) (*calendar.WorkingHours, error)
}

// Notifier receives booking notifications. Both methods report delivery
// and never fail the booking.
type Notifier interface {
	Requested(ctx context.Context, n notify.RequestNotice) bool
	Decided(ctx context.Context, n notify.DecisionNotice) bool
}

type Config struct {
	Policies Policies
	// Location is the zone booking dates and times are read in.
	Location *time.Location
	Messages locale.Messages
	// FallbackApprover is mailed when a room has no delegates.
	FallbackApprover string
}

// Result describes a created booking.
type Result struct {
	EventID          string        `json:"eventId"`
	Room             string        `json:"room"`
	RoomAddress      string        `json:"roomEmail"`
	Start            time.Time     `json:"start"`
	End              time.Time     `json:"end"`
	State            ApprovalState `json:"state"`
	AutoApproved     bool          `json:"autoApproved"`
	Approver         string        `json:"approver,omitempty"`
	NotificationSent bool          `json:"notificationSent"`
}

// Outcome describes the effect of a decision on a booking. Changed is false
// when the call was an idempotent repeat.
type Outcome struct {
	EventID          string        `json:"eventId"`
	State            ApprovalState `json:"state"`
	Changed          bool          `json:"changed"`
	NotificationSent bool          `json:"notificationSent"`
}

// UpdateRequest replaces subject, date and times of a booking. Notes
// replace the body when set.
type UpdateRequest struct {
	Subject   string `json:"subject"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Notes     string `json:"notes"`
}

// Details is a single booking as shown to a user.
type Details struct {
	ID        string               `json:"id"`
	Subject   string               `json:"subject"`
	Body      string               `json:"body"`
	Start     time.Time            `json:"start"`
	End       time.Time            `json:"end"`
	ShowAs    string               `json:"showAs"`
	Organizer calendar.Participant `json:"organizer"`
	Location  string               `json:"location"`
	RoomEmail string               `json:"roomEmail"`
	State     ApprovalState        `json:"state"`
	CanEdit   bool                 `json:"canEdit"`
	UserEmail string               `json:"userEmail"`
}

// Coordinator implements the booking lifecycle on top of a calendar
// gateway.
type Coordinator struct {
	gw       calendar.Gateway
	rules    Rules
	notifier Notifier
	cfg      Config
	logger   *slog.Logger
}

func NewCoordinator(gw calendar.Gateway, rules Rules, notifier Notifier, cfg Config, logger *slog.Logger) *Coordinator {
	if cfg.Policies == nil {
		cfg.Policies = DefaultPolicies()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Messages.Lang == "" {
		cfg.Messages = locale.English
	}
	return &Coordinator{gw: gw, rules: rules, notifier: notifier, cfg: cfg, logger: logger}
}

// RequestBooking validates req, creates the event on the requester's own
// calendar with the room invited and notifies the approver.
func (c *Coordinator) RequestBooking(ctx context.Context, req Request, p Principal) (Result, error) {
	if strings.TrimSpace(p.Address) == "" || p.AccessToken == "" {
		return Result{}, fmt.Errorf("request booking: %w", apperr.ErrAuthenticationRequired)
	}
	m := c.cfg.Messages
	logger := logging.Service(ctx, c.logger, "BookingCoordinator", "RequestBooking", "requester", p.Address)

	v, err := validateRequest(req, c.cfg.Location, m)
	if err != nil {
		return Result{}, err
	}

	rooms, err := c.gw.ListRooms(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list rooms", "error", err, "error_kind", apperr.Kind(err))
		return Result{}, fmt.Errorf("list rooms: %w", err)
	}
	roomName := html.UnescapeString(v.room)
	room, ambiguous, err := calendar.FindRoom(rooms, roomName)
	if err != nil {
		return Result{}, apperr.WithMessage(err, fmt.Sprintf(m.RoomNotFound, roomName))
	}
	if ambiguous {
		return Result{}, apperr.Invalid("room", fmt.Sprintf(m.RoomAmbiguous, roomName))
	}
	logger = logger.With("room", room.Address)

	if err := c.checkHours(ctx, logger, room.Address, v.slot); err != nil {
		return Result{}, err
	}

	policy := c.cfg.Policies.For(room.DisplayName)
	auto := policy.AutoApproves(v.end.Sub(v.start))
	showAs := calendar.ShowAsTentative
	if auto {
		showAs = calendar.ShowAsBusy
	}

	actor := calendar.Actor{
		Participant: calendar.Participant{Address: p.Address, Name: p.Name},
		AccessToken: p.AccessToken,
	}
	created, err := c.gw.CreateEvent(ctx, actor, calendar.NewEvent{
		Subject:           v.subject,
		HTMLBody:          c.eventBody(p, v.notes),
		Start:             v.start,
		End:               v.end,
		Location:          room.DisplayName,
		Room:              calendar.Participant{Address: room.Address, Name: room.DisplayName},
		ShowAs:            showAs,
		ResponseRequested: !auto,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to create event", "error", err, "error_kind", apperr.Kind(err))
		return Result{}, fmt.Errorf("create event: %w", err)
	}

	res := Result{
		EventID:      created.ID,
		Room:         room.DisplayName,
		RoomAddress:  room.Address,
		Start:        v.start,
		End:          v.end,
		State:        StatePendingApproval,
		AutoApproved: auto,
		Approver:     c.approver(ctx, logger, room.Address),
	}
	if auto {
		res.State = StateAutoApproved
	}
	if c.notifier != nil {
		res.NotificationSent = c.notifier.Requested(ctx, notify.RequestNotice{
			EventID:      created.ID,
			RoomName:     room.DisplayName,
			RoomAddress:  room.Address,
			Subject:      v.subject,
			Start:        v.start,
			End:          v.end,
			Requester:    notify.Participant{Address: p.Address, Name: p.Name},
			Notes:        v.notes,
			Approver:     res.Approver,
			AutoApproved: auto,
		})
	}
	logger.InfoContext(ctx, "booking created", "event_id", created.ID, "state", res.State, "notified", res.NotificationSent)
	return res, nil
}

// Approve confirms a pending booking. Approving a booking that is already
// busy succeeds without touching it.
func (c *Coordinator) Approve(ctx context.Context, roomAddress, eventID string, actor Principal) (Outcome, error) {
	logger := logging.Service(ctx, c.logger, "BookingCoordinator", "Approve", "room", roomAddress, "event_id", eventID)
	ev, err := c.authorizedEvent(ctx, logger, roomAddress, eventID, actor)
	if err != nil {
		return Outcome{}, err
	}
	if ev.ShowAs == calendar.ShowAsBusy {
		return Outcome{EventID: eventID, State: StateApproved}, nil
	}
	busy := calendar.ShowAsBusy
	if err := c.gw.PatchEvent(ctx, roomAddress, eventID, calendar.EventPatch{ShowAs: &busy}); err != nil {
		logger.ErrorContext(ctx, "failed to approve", "error", err, "error_kind", apperr.Kind(err))
		return Outcome{}, fmt.Errorf("approve %s: %w", eventID, err)
	}
	out := Outcome{EventID: eventID, State: StateApproved, Changed: true}
	out.NotificationSent = c.decided(ctx, notify.OutcomeApproved, roomAddress, ev, actor)
	logger.InfoContext(ctx, "booking approved", "actor", actor.Address)
	return out, nil
}

// Reject deletes a booking that awaits approval.
func (c *Coordinator) Reject(ctx context.Context, roomAddress, eventID string, actor Principal) (Outcome, error) {
	logger := logging.Service(ctx, c.logger, "BookingCoordinator", "Reject", "room", roomAddress, "event_id", eventID)
	ev, err := c.authorizedEvent(ctx, logger, roomAddress, eventID, actor)
	if err != nil {
		return Outcome{}, err
	}
	if ev.ShowAs != calendar.ShowAsTentative {
		return Outcome{}, apperr.Invalid("state", c.cfg.Messages.NotPending)
	}
	if err := c.gw.DeleteEvent(ctx, roomAddress, eventID); err != nil {
		logger.ErrorContext(ctx, "failed to reject", "error", err, "error_kind", apperr.Kind(err))
		return Outcome{}, fmt.Errorf("reject %s: %w", eventID, err)
	}
	out := Outcome{EventID: eventID, State: StateRejected, Changed: true}
	out.NotificationSent = c.decided(ctx, notify.OutcomeRejected, roomAddress, ev, actor)
	logger.InfoContext(ctx, "booking rejected", "actor", actor.Address)
	return out, nil
}

// Cancel deletes a booking in any state.
func (c *Coordinator) Cancel(ctx context.Context, roomAddress, eventID string, actor Principal) (Outcome, error) {
	logger := logging.Service(ctx, c.logger, "BookingCoordinator", "Cancel", "room", roomAddress, "event_id", eventID)
	ev, err := c.authorizedEvent(ctx, logger, roomAddress, eventID, actor)
	if err != nil {
		return Outcome{}, err
	}
	if err := c.gw.DeleteEvent(ctx, roomAddress, eventID); err != nil {
		logger.ErrorContext(ctx, "failed to cancel", "error", err, "error_kind", apperr.Kind(err))
		return Outcome{}, fmt.Errorf("cancel %s: %w", eventID, err)
	}
	out := Outcome{EventID: eventID, State: StateCancelled, Changed: true}
	out.NotificationSent = c.decided(ctx, notify.OutcomeCancelled, roomAddress, ev, actor)
	logger.InfoContext(ctx, "booking cancelled", "actor", actor.Address)
	return out, nil
}

// Update moves or renames a booking. The new slot must satisfy the room's
// working hours.
func (c *Coordinator) Update(ctx context.Context, roomAddress, eventID string, req UpdateRequest, actor Principal) (Details, error) {
	m := c.cfg.Messages
	logger := logging.Service(ctx, c.logger, "BookingCoordinator", "Update", "room", roomAddress, "event_id", eventID)

	subject, err := cleanText(req.Subject, m.FieldSubject, MinSubjectLength, MaxSubjectLength, false, m)
	if err != nil {
		return Details{}, err
	}
	s, err := parseSlot(req.Date, req.StartTime, req.EndTime, c.cfg.Location, m)
	if err != nil {
		return Details{}, err
	}
	notes, err := cleanText(req.Notes, m.FieldNotes, 0, MaxNotesLength, true, m)
	if err != nil {
		return Details{}, err
	}
	if err := s.check(m); err != nil {
		return Details{}, err
	}

	ev, err := c.authorizedEvent(ctx, logger, roomAddress, eventID, actor)
	if err != nil {
		return Details{}, err
	}
	if err := c.checkHours(ctx, logger, roomAddress, s); err != nil {
		return Details{}, err
	}

	patch := calendar.EventPatch{Subject: &subject, Start: &s.start, End: &s.end}
	if notes != "" {
		requester := Principal{Address: ev.Organizer.Address, Name: ev.Organizer.Name}
		body := c.eventBody(requester, notes)
		patch.HTMLBody = &body
	}
	if err := c.gw.PatchEvent(ctx, roomAddress, eventID, patch); err != nil {
		logger.ErrorContext(ctx, "failed to update", "error", err, "error_kind", apperr.Kind(err))
		return Details{}, fmt.Errorf("update %s: %w", eventID, err)
	}
	ev.Subject, ev.Start, ev.End = subject, s.start, s.end
	if patch.HTMLBody != nil {
		ev.Body = *patch.HTMLBody
	}
	logger.InfoContext(ctx, "booking updated", "actor", actor.Address)
	return c.details(roomAddress, ev, actor, true), nil
}

// Details returns a booking with whether actor may edit it. A failed
// delegate lookup yields CanEdit=false.
func (c *Coordinator) Details(ctx context.Context, roomAddress, eventID string, actor Principal) (Details, error) {
	if strings.TrimSpace(actor.Address) == "" {
		return Details{}, fmt.Errorf("booking details: %w", apperr.ErrAuthenticationRequired)
	}
	logger := logging.Service(ctx, c.logger, "BookingCoordinator", "Details", "room", roomAddress, "event_id", eventID)
	ev, err := c.gw.GetEvent(ctx, roomAddress, eventID)
	if err != nil {
		return Details{}, fmt.Errorf("get event %s: %w", eventID, err)
	}
	c.fillRoomName(ctx, logger, roomAddress, &ev)
	canEdit := calendar.SameAddress(ev.Organizer.Address, actor.Address)
	if !canEdit {
		ok, err := calendar.IsDelegate(ctx, c.gw, roomAddress, actor.Address)
		if err != nil {
			logger.WarnContext(ctx, "delegate lookup failed", "error", err, "error_kind", apperr.Kind(err))
		}
		canEdit = ok
	}
	return c.details(roomAddress, ev, actor, canEdit), nil
}

func (c *Coordinator) details(roomAddress string, ev calendar.Event, actor Principal, canEdit bool) Details {
	return Details{
		ID:        ev.ID,
		Subject:   ev.Subject,
		Body:      ev.Body,
		Start:     ev.Start,
		End:       ev.End,
		ShowAs:    ev.ShowAs,
		Organizer: ev.Organizer,
		Location:  ev.Location,
		RoomEmail: roomAddress,
		State:     DeriveState(&ev, c.cfg.Policies.For(ev.Location)),
		CanEdit:   canEdit,
		UserEmail: actor.Address,
	}
}

// authorizedEvent fetches the event and checks that actor organizes it or
// is a delegate of the room. Non-delegates get Forbidden for a missing
// event as well, so existence does not leak.
func (c *Coordinator) authorizedEvent(ctx context.Context, logger *slog.Logger, roomAddress, eventID string, actor Principal) (calendar.Event, error) {
	if strings.TrimSpace(actor.Address) == "" {
		return calendar.Event{}, fmt.Errorf("%s: %w", eventID, apperr.ErrAuthenticationRequired)
	}
	ev, err := c.gw.GetEvent(ctx, roomAddress, eventID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		logger.ErrorContext(ctx, "failed to fetch event", "error", err, "error_kind", apperr.Kind(err))
		return calendar.Event{}, fmt.Errorf("get event %s: %w", eventID, err)
	}
	if err == nil && calendar.SameAddress(ev.Organizer.Address, actor.Address) {
		c.fillRoomName(ctx, logger, roomAddress, &ev)
		return ev, nil
	}

	delegate, derr := calendar.IsDelegate(ctx, c.gw, roomAddress, actor.Address)
	if derr != nil {
		logger.WarnContext(ctx, "delegate lookup failed", "error", derr, "error_kind", apperr.Kind(derr))
	}
	if !delegate {
		logger.WarnContext(ctx, "actor may not manage booking", "actor", actor.Address)
		return calendar.Event{}, fmt.Errorf("%s on %s: %w", actor.Address, roomAddress, apperr.ErrForbidden)
	}
	if err != nil {
		return calendar.Event{}, fmt.Errorf("get event %s: %w", eventID, err)
	}
	c.fillRoomName(ctx, logger, roomAddress, &ev)
	return ev, nil
}

// fillRoomName sets ev.Location to the room's display name when the
// provider returned the event without one.
func (c *Coordinator) fillRoomName(ctx context.Context, logger *slog.Logger, roomAddress string, ev *calendar.Event) {
	if strings.TrimSpace(ev.Location) != "" {
		return
	}
	rooms, err := c.gw.ListRooms(ctx)
	if err != nil {
		logger.WarnContext(ctx, "room lookup failed", "error", err, "error_kind", apperr.Kind(err))
		return
	}
	if room, ok := calendar.FindRoomByAddress(rooms, roomAddress); ok {
		ev.Location = room.DisplayName
	}
}

// checkHours refuses slots outside the room's working hours. A failed rule
// lookup allows the booking.
func (c *Coordinator) checkHours(ctx context.Context, logger *slog.Logger, roomAddress string, s slot) error {
	if c.rules == nil {
		return nil
	}
	rule, err := c.rules.Effective(ctx, roomAddress)
	if err != nil {
		logger.WarnContext(ctx, "working hours unavailable, allowing booking", "error", err, "error_kind", apperr.Kind(err))
		return nil
	}
	d := workinghours.Check(rule, s.date, s.startSec, s.endSec, c.cfg.Messages)
	if !d.Allowed {
		return apperr.Invalid("time", d.Message)
	}
	return nil
}

// approver is the first delegate of the room, else the room mailbox's
// manager, else the configured fallback.
func (c *Coordinator) approver(ctx context.Context, logger *slog.Logger, roomAddress string) string {
	perms, err := c.gw.ListPermissions(ctx, roomAddress)
	if err != nil {
		logger.WarnContext(ctx, "delegate lookup failed", "error", err, "error_kind", apperr.Kind(err))
	}
	if d := calendar.Delegates(perms); len(d) > 0 {
		return d[0].Address
	}
	manager, err := c.gw.GetManager(ctx, roomAddress)
	if err != nil {
		logger.WarnContext(ctx, "manager lookup failed", "error", err, "error_kind", apperr.Kind(err))
		return c.cfg.FallbackApprover
	}
	if manager.Address != "" {
		return manager.Address
	}
	return c.cfg.FallbackApprover
}

func (c *Coordinator) decided(ctx context.Context, outcome notify.Outcome, roomAddress string, ev calendar.Event, actor Principal) bool {
	if c.notifier == nil {
		return false
	}
	return c.notifier.Decided(ctx, notify.DecisionNotice{
		Outcome:     outcome,
		EventID:     ev.ID,
		RoomName:    ev.Location,
		RoomAddress: roomAddress,
		Subject:     ev.Subject,
		Start:       ev.Start,
		End:         ev.End,
		Requester:   ev.Organizer.Address,
		Actor:       notify.Participant{Address: actor.Address, Name: actor.Name},
	})
}

// eventBody renders the event description. notes must already be escaped.
func (c *Coordinator) eventBody(requester Principal, notes string) string {
	l := c.cfg.Messages.Mail
	name := requester.Name
	if name == "" {
		name = requester.Address
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<p><strong>%s:</strong> %s (%s)</p>", l.Requester, html.EscapeString(name), html.EscapeString(requester.Address))
	if notes != "" {
		fmt.Fprintf(&b, "<p><strong>%s:</strong> %s</p>", l.Notes, notes)
	}
	return b.String()
}
