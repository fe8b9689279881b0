package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"roombooking-service/internal/apperr"
)

// GoogleConfig configures a GoogleGateway. Google Calendar has no room
// directory in the calendar API, so rooms are supplied by configuration.
type GoogleConfig struct {
	Rooms    []Room
	TimeZone string
	// Endpoint overrides the API base path.
	Endpoint string
}

// GoogleGateway implements Gateway on the Google Calendar v3 API.
type GoogleGateway struct {
	svc      *gcal.Service
	rooms    []Room
	tz       string
	loc      *time.Location
	endpoint string
}

// GoogleServiceAccountClient returns an HTTP client for a service account,
// impersonating subject when it is not empty.
func GoogleServiceAccountClient(ctx context.Context, credentialsJSON []byte, subject string) (*http.Client, error) {
	conf, err := google.JWTConfigFromJSON(credentialsJSON, gcal.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("google: parse service account: %w", err)
	}
	conf.Subject = subject
	return conf.Client(ctx), nil
}

// NewGoogleGateway builds the gateway over app, the service credential client.
func NewGoogleGateway(ctx context.Context, app *http.Client, cfg GoogleConfig) (*GoogleGateway, error) {
	tz := cfg.TimeZone
	if tz == "" {
		tz = "Europe/Amsterdam"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("google: load time zone %q: %w", tz, err)
	}
	svc, err := newGoogleService(ctx, app, cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	rooms := make([]Room, len(cfg.Rooms))
	copy(rooms, cfg.Rooms)
	return &GoogleGateway{svc: svc, rooms: rooms, tz: tz, loc: loc, endpoint: cfg.Endpoint}, nil
}

func newGoogleService(ctx context.Context, client *http.Client, endpoint string) (*gcal.Service, error) {
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google: create calendar service: %w", err)
	}
	return svc, nil
}

func (g *GoogleGateway) ListRooms(ctx context.Context) ([]Room, error) {
	out := make([]Room, len(g.rooms))
	copy(out, g.rooms)
	return out, nil
}

func (g *GoogleGateway) ListEvents(ctx context.Context, calendarAddress string, window Window, fields []string) ([]Event, error) {
	call := g.svc.Events.List(calendarAddress).
		TimeMin(window.Start.Format(time.RFC3339)).
		TimeMax(window.End.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250)

	var events []Event
	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			events = append(events, g.toEvent(item, calendarAddress))
		}
		return nil
	})
	if err != nil {
		return nil, googleError("list events", err)
	}
	return events, nil
}

func (g *GoogleGateway) GetEvent(ctx context.Context, calendarAddress, id string) (Event, error) {
	item, err := g.svc.Events.Get(calendarAddress, id).Context(ctx).Do()
	if err != nil {
		return Event{}, googleError("get event", err)
	}
	return g.toEvent(item, calendarAddress), nil
}

// GetWorkingHours always reports no rule; the provider does not expose
// working hours for resource calendars.
func (g *GoogleGateway) GetWorkingHours(ctx context.Context, calendarAddress string) (*WorkingHours, error) {
	return nil, nil
}

// GetManager reports nobody; resource calendars carry no manager.
func (g *GoogleGateway) GetManager(ctx context.Context, calendarAddress string) (Participant, error) {
	return Participant{}, nil
}

func (g *GoogleGateway) ListPermissions(ctx context.Context, calendarAddress string) ([]Permission, error) {
	acl, err := g.svc.Acl.List(calendarAddress).Context(ctx).Do()
	if err != nil {
		return nil, googleError("list permissions", err)
	}
	perms := make([]Permission, 0, len(acl.Items))
	for _, rule := range acl.Items {
		if rule.Scope == nil || rule.Scope.Value == "" {
			continue
		}
		if rule.Scope.Type != "user" && rule.Scope.Type != "group" {
			continue
		}
		perms = append(perms, Permission{Address: rule.Scope.Value, Name: rule.Scope.Value, Role: googleRole(rule.Role)})
	}
	return perms, nil
}

func (g *GoogleGateway) CreateEvent(ctx context.Context, actor Actor, ev NewEvent) (Event, error) {
	if actor.AccessToken == "" {
		return Event{}, fmt.Errorf("create event: %w", apperr.ErrAuthenticationRequired)
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: actor.AccessToken, TokenType: "Bearer"}))
	svc, err := newGoogleService(ctx, client, g.endpoint)
	if err != nil {
		return Event{}, err
	}

	item := &gcal.Event{
		Summary:      ev.Subject,
		Description:  ev.HTMLBody,
		Location:     ev.Location,
		Start:        g.dateTime(ev.Start),
		End:          g.dateTime(ev.End),
		Status:       googleStatus(ev.ShowAs),
		Transparency: "opaque",
		Attendees: []*gcal.EventAttendee{{
			Email:       ev.Room.Address,
			DisplayName: ev.Room.Name,
			Resource:    true,
		}},
	}
	created, err := svc.Events.Insert("primary", item).SendUpdates("all").Context(ctx).Do()
	if err != nil {
		return Event{}, googleError("create event", err)
	}
	return g.toEvent(created, actor.Address), nil
}

func (g *GoogleGateway) PatchEvent(ctx context.Context, calendarAddress, id string, patch EventPatch) error {
	item := &gcal.Event{}
	if patch.Subject != nil {
		item.Summary = *patch.Subject
	}
	if patch.HTMLBody != nil {
		item.Description = *patch.HTMLBody
	}
	if patch.Start != nil {
		item.Start = g.dateTime(*patch.Start)
	}
	if patch.End != nil {
		item.End = g.dateTime(*patch.End)
	}
	if patch.ShowAs != nil {
		item.Status = googleStatus(*patch.ShowAs)
	}
	if _, err := g.svc.Events.Patch(calendarAddress, id, item).Context(ctx).Do(); err != nil {
		return googleError("patch event", err)
	}
	return nil
}

func (g *GoogleGateway) DeleteEvent(ctx context.Context, calendarAddress, id string) error {
	if err := g.svc.Events.Delete(calendarAddress, id).Context(ctx).Do(); err != nil {
		return googleError("delete event", err)
	}
	return nil
}

func (g *GoogleGateway) dateTime(t time.Time) *gcal.EventDateTime {
	return &gcal.EventDateTime{DateTime: t.In(g.loc).Format(time.RFC3339), TimeZone: g.tz}
}

func (g *GoogleGateway) parseDateTime(dt *gcal.EventDateTime) time.Time {
	if dt == nil {
		return time.Time{}
	}
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return t.In(g.loc)
		}
	}
	if dt.Date != "" {
		if t, err := time.ParseInLocation("2006-01-02", dt.Date, g.loc); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (g *GoogleGateway) toEvent(item *gcal.Event, calendarAddress string) Event {
	ev := Event{
		ID:          item.Id,
		Subject:     item.Summary,
		Body:        item.Description,
		Start:       g.parseDateTime(item.Start),
		End:         g.parseDateTime(item.End),
		ShowAs:      ShowAsBusy,
		IsCancelled: item.Status == "cancelled",
		Location:    item.Location,
		Sensitivity: "normal",
		Response:    ResponseNone,
		WebLink:     item.HtmlLink,
	}
	switch {
	case item.Status == "tentative":
		ev.ShowAs = ShowAsTentative
	case item.Transparency == "transparent":
		ev.ShowAs = ShowAsFree
	}
	if item.Visibility == "private" || item.Visibility == "confidential" {
		ev.Sensitivity = "private"
	}
	if item.Organizer != nil {
		ev.Organizer = Participant{Address: item.Organizer.Email, Name: item.Organizer.DisplayName}
		ev.IsOrganizer = item.Organizer.Self || SameAddress(item.Organizer.Email, calendarAddress)
	}
	for _, a := range item.Attendees {
		if a == nil {
			continue
		}
		kind := "required"
		switch {
		case a.Resource:
			kind = "resource"
		case a.Optional:
			kind = "optional"
		}
		ev.Attendees = append(ev.Attendees, Attendee{
			Participant: Participant{Address: a.Email, Name: a.DisplayName},
			Type:        kind,
			Response:    googleResponse(a.ResponseStatus),
		})
	}
	return ev
}

func googleStatus(showAs string) string {
	if showAs == ShowAsTentative {
		return "tentative"
	}
	return "confirmed"
}

func googleRole(role string) string {
	switch role {
	case "owner":
		return "owner"
	case "writer":
		return "write"
	case "reader":
		return "read"
	}
	return strings.ToLower(role)
}

func googleResponse(status string) string {
	switch status {
	case "accepted":
		return ResponseAccepted
	case "declined":
		return ResponseDeclined
	case "tentative":
		return ResponseTentative
	}
	return ResponseNone
}

func googleError(op string, err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		body := gErr.Body
		if body == "" {
			body = gErr.Message
		}
		return apperr.FromStatus(op, gErr.Code, body)
	}
	return apperr.Unreachable(op, err)
}
