package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"roombooking-service/internal/apperr"
)

// DefaultGraphEndpoint is the Microsoft Graph v1.0 root.
const DefaultGraphEndpoint = "https://graph.microsoft.com/v1.0"

const (
	// Parsing also accepts the seven digit fraction Graph appends.
	graphLocalLayout = "2006-01-02T15:04:05"
	maxErrorBody     = 8 << 10
)

// GraphConfig configures a GraphGateway.
type GraphConfig struct {
	Endpoint string
	// TimeZone is the IANA zone events are requested and created in.
	TimeZone string
	// ActorClient builds the HTTP client for calls made as a principal.
	// Defaults to a static oauth2 token source over the actor's token.
	ActorClient func(ctx context.Context, actor Actor) *http.Client
}

// GraphGateway implements Gateway against the Microsoft Graph REST API.
type GraphGateway struct {
	endpoint    string
	app         *http.Client
	actorClient func(ctx context.Context, actor Actor) *http.Client
	tz          string
	loc         *time.Location
}

// GraphAppClient returns an HTTP client authenticated with the
// application's client credentials for the given tenant.
func GraphAppClient(ctx context.Context, tenant, clientID, clientSecret string) *http.Client {
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     "https://login.microsoftonline.com/" + url.PathEscape(tenant) + "/oauth2/v2.0/token",
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}
	return cfg.Client(ctx)
}

// NewGraphGateway wraps app, the application credential client.
func NewGraphGateway(app *http.Client, cfg GraphConfig) (*GraphGateway, error) {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultGraphEndpoint
	}
	tz := cfg.TimeZone
	if tz == "" {
		tz = "Europe/Amsterdam"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("graph: load time zone %q: %w", tz, err)
	}
	actorClient := cfg.ActorClient
	if actorClient == nil {
		actorClient = staticTokenClient
	}
	if app == nil {
		app = http.DefaultClient
	}
	return &GraphGateway{endpoint: endpoint, app: app, actorClient: actorClient, tz: tz, loc: loc}, nil
}

func staticTokenClient(ctx context.Context, actor Actor) *http.Client {
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: actor.AccessToken, TokenType: "Bearer"}))
}

type graphEmail struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

type graphRecipient struct {
	EmailAddress graphEmail `json:"emailAddress"`
}

type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type graphBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type graphResponse struct {
	Response string `json:"response"`
}

// graphLocation accepts both the object form and a bare string.
type graphLocation struct {
	DisplayName string `json:"displayName"`
}

func (l *graphLocation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		l.DisplayName = s
		return nil
	}
	var obj struct {
		DisplayName string `json:"displayName"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	l.DisplayName = obj.DisplayName
	return nil
}

type graphAttendee struct {
	EmailAddress graphEmail     `json:"emailAddress"`
	Type         string         `json:"type"`
	Status       *graphResponse `json:"status,omitempty"`
}

type graphEvent struct {
	ID             string          `json:"id"`
	Subject        string          `json:"subject"`
	Body           *graphBody      `json:"body"`
	Start          *graphDateTime  `json:"start"`
	End            *graphDateTime  `json:"end"`
	ShowAs         string          `json:"showAs"`
	IsCancelled    bool            `json:"isCancelled"`
	IsOrganizer    bool            `json:"isOrganizer"`
	Organizer      *graphRecipient `json:"organizer"`
	Location       *graphLocation  `json:"location"`
	Sensitivity    string          `json:"sensitivity"`
	ResponseStatus *graphResponse  `json:"responseStatus"`
	Attendees      []graphAttendee `json:"attendees"`
	WebLink        string          `json:"webLink"`
}

type graphRoom struct {
	ID           string `json:"id"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

type graphPermission struct {
	EmailAddress *graphEmail `json:"emailAddress"`
	Role         string      `json:"role"`
}

// graphWorkingHours covers both the mailbox settings shape and the
// timeSlots shape.
type graphWorkingHours struct {
	DaysOfWeek []string   `json:"daysOfWeek"`
	StartTime  string     `json:"startTime"`
	EndTime    string     `json:"endTime"`
	TimeZone   *TimeZone  `json:"timeZone"`
	TimeSlots  []TimeSlot `json:"timeSlots"`
}

type graphPage[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

func (g *GraphGateway) ListRooms(ctx context.Context) ([]Room, error) {
	raw, err := getPaged[graphRoom](ctx, g, "list rooms", g.endpoint+"/places/microsoft.graph.room")
	if err != nil {
		return nil, err
	}
	rooms := make([]Room, 0, len(raw))
	for _, r := range raw {
		rooms = append(rooms, Room{ID: r.ID, DisplayName: r.DisplayName, Address: r.EmailAddress})
	}
	return rooms, nil
}

func (g *GraphGateway) ListEvents(ctx context.Context, calendarAddress string, window Window, fields []string) ([]Event, error) {
	q := url.Values{}
	q.Set("startDateTime", window.Start.Format(time.RFC3339))
	q.Set("endDateTime", window.End.Format(time.RFC3339))
	if len(fields) > 0 {
		q.Set("$select", strings.Join(fields, ","))
	}
	q.Set("$top", "100")
	u := g.endpoint + "/users/" + url.PathEscape(calendarAddress) + "/calendar/calendarView?" + q.Encode()

	raw, err := getPaged[graphEvent](ctx, g, "list events", u)
	if err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(raw))
	for _, ev := range raw {
		events = append(events, g.toEvent(ev))
	}
	return events, nil
}

func (g *GraphGateway) GetEvent(ctx context.Context, calendarAddress, id string) (Event, error) {
	var ev graphEvent
	if err := g.do(ctx, g.app, http.MethodGet, g.eventURL(calendarAddress, id), nil, &ev, "get event"); err != nil {
		return Event{}, err
	}
	return g.toEvent(ev), nil
}

func (g *GraphGateway) GetWorkingHours(ctx context.Context, calendarAddress string) (*WorkingHours, error) {
	var raw graphWorkingHours
	u := g.endpoint + "/users/" + url.PathEscape(calendarAddress) + "/mailboxSettings/workingHours"
	if err := g.do(ctx, g.app, http.MethodGet, u, nil, &raw, "get working hours"); err != nil {
		return nil, err
	}
	wh := &WorkingHours{TimeZone: TimeZone{Name: DefaultTimeZone}}
	if raw.TimeZone != nil && raw.TimeZone.Name != "" {
		wh.TimeZone = *raw.TimeZone
	}
	switch {
	case len(raw.TimeSlots) > 0:
		wh.TimeSlots = raw.TimeSlots
	case len(raw.DaysOfWeek) > 0 && raw.StartTime != "" && raw.EndTime != "":
		wh.TimeSlots = []TimeSlot{{
			DaysOfWeek: raw.DaysOfWeek,
			StartTime:  trimFraction(raw.StartTime),
			EndTime:    trimFraction(raw.EndTime),
		}}
	default:
		return nil, nil
	}
	return wh, nil
}

func (g *GraphGateway) ListPermissions(ctx context.Context, calendarAddress string) ([]Permission, error) {
	u := g.endpoint + "/users/" + url.PathEscape(calendarAddress) + "/calendar/calendarPermissions"
	raw, err := getPaged[graphPermission](ctx, g, "list permissions", u)
	if err != nil {
		return nil, err
	}
	perms := make([]Permission, 0, len(raw))
	for _, p := range raw {
		if p.EmailAddress == nil || p.EmailAddress.Address == "" {
			continue
		}
		perms = append(perms, Permission{Address: p.EmailAddress.Address, Name: p.EmailAddress.Name, Role: p.Role})
	}
	return perms, nil
}

func (g *GraphGateway) GetManager(ctx context.Context, calendarAddress string) (Participant, error) {
	u := g.endpoint + "/users/" + url.PathEscape(calendarAddress) + "/manager?$select=mail,userPrincipalName,displayName"
	var raw struct {
		Mail              string `json:"mail"`
		UserPrincipalName string `json:"userPrincipalName"`
		DisplayName       string `json:"displayName"`
	}
	err := g.do(ctx, g.app, http.MethodGet, u, nil, &raw, "get manager")
	if errors.Is(err, apperr.ErrNotFound) {
		return Participant{}, nil
	}
	if err != nil {
		return Participant{}, err
	}
	address := raw.Mail
	if address == "" {
		address = raw.UserPrincipalName
	}
	return Participant{Address: address, Name: raw.DisplayName}, nil
}

func (g *GraphGateway) CreateEvent(ctx context.Context, actor Actor, ev NewEvent) (Event, error) {
	if actor.AccessToken == "" {
		return Event{}, fmt.Errorf("create event: %w", apperr.ErrAuthenticationRequired)
	}
	payload := map[string]any{
		"subject":  ev.Subject,
		"body":     graphBody{ContentType: "HTML", Content: ev.HTMLBody},
		"start":    g.dateTime(ev.Start),
		"end":      g.dateTime(ev.End),
		"location": graphLocation{DisplayName: ev.Location},
		"attendees": []map[string]any{{
			"emailAddress": graphEmail{Address: ev.Room.Address, Name: ev.Room.Name},
			"type":         "resource",
		}},
		"showAs":            ev.ShowAs,
		"responseRequested": ev.ResponseRequested,
	}
	var created graphEvent
	client := g.actorClient(ctx, actor)
	if err := g.do(ctx, client, http.MethodPost, g.endpoint+"/me/calendar/events", payload, &created, "create event"); err != nil {
		return Event{}, err
	}
	return g.toEvent(created), nil
}

func (g *GraphGateway) PatchEvent(ctx context.Context, calendarAddress, id string, patch EventPatch) error {
	payload := map[string]any{}
	if patch.Subject != nil {
		payload["subject"] = *patch.Subject
	}
	if patch.HTMLBody != nil {
		payload["body"] = graphBody{ContentType: "HTML", Content: *patch.HTMLBody}
	}
	if patch.Start != nil {
		payload["start"] = g.dateTime(*patch.Start)
	}
	if patch.End != nil {
		payload["end"] = g.dateTime(*patch.End)
	}
	if patch.ShowAs != nil {
		payload["showAs"] = *patch.ShowAs
	}
	return g.do(ctx, g.app, http.MethodPatch, g.eventURL(calendarAddress, id), payload, nil, "patch event")
}

func (g *GraphGateway) DeleteEvent(ctx context.Context, calendarAddress, id string) error {
	return g.do(ctx, g.app, http.MethodDelete, g.eventURL(calendarAddress, id), nil, nil, "delete event")
}

// GraphMail is an outbound message sent through a mailbox.
type GraphMail struct {
	To         []string
	Cc         []string
	Subject    string
	HTMLBody   string
	Importance string
}

// SendMail sends msg from mailbox, or from the application's own mailbox
// when mailbox is empty.
func (g *GraphGateway) SendMail(ctx context.Context, mailbox string, msg GraphMail) error {
	recipients := func(addrs []string) []graphRecipient {
		out := make([]graphRecipient, 0, len(addrs))
		for _, a := range addrs {
			out = append(out, graphRecipient{EmailAddress: graphEmail{Address: a}})
		}
		return out
	}
	importance := msg.Importance
	if importance == "" {
		importance = "normal"
	}
	payload := map[string]any{
		"message": map[string]any{
			"subject":      msg.Subject,
			"body":         graphBody{ContentType: "HTML", Content: msg.HTMLBody},
			"toRecipients": recipients(msg.To),
			"ccRecipients": recipients(msg.Cc),
			"importance":   importance,
		},
		"saveToSentItems": true,
	}
	u := g.endpoint + "/me/sendMail"
	if mailbox != "" {
		u = g.endpoint + "/users/" + url.PathEscape(mailbox) + "/sendMail"
	}
	return g.do(ctx, g.app, http.MethodPost, u, payload, nil, "send mail")
}

func (g *GraphGateway) eventURL(calendarAddress, id string) string {
	return g.endpoint + "/users/" + url.PathEscape(calendarAddress) + "/calendar/events/" + url.PathEscape(id)
}

func (g *GraphGateway) dateTime(t time.Time) graphDateTime {
	return graphDateTime{DateTime: t.In(g.loc).Format(graphLocalLayout), TimeZone: g.tz}
}

func (g *GraphGateway) parseDateTime(dt *graphDateTime) time.Time {
	if dt == nil || dt.DateTime == "" {
		return time.Time{}
	}
	loc := g.loc
	if dt.TimeZone != "" && dt.TimeZone != g.tz {
		if l, err := time.LoadLocation(dt.TimeZone); err == nil {
			loc = l
		}
	}
	if t, err := time.ParseInLocation(graphLocalLayout, dt.DateTime, loc); err == nil {
		return t.In(g.loc)
	}
	if t, err := time.Parse(time.RFC3339Nano, dt.DateTime); err == nil {
		return t.In(g.loc)
	}
	return time.Time{}
}

func (g *GraphGateway) toEvent(ev graphEvent) Event {
	out := Event{
		ID:          ev.ID,
		Subject:     ev.Subject,
		Start:       g.parseDateTime(ev.Start),
		End:         g.parseDateTime(ev.End),
		ShowAs:      ev.ShowAs,
		IsCancelled: ev.IsCancelled,
		IsOrganizer: ev.IsOrganizer,
		Sensitivity: ev.Sensitivity,
		Response:    ResponseNone,
		WebLink:     ev.WebLink,
	}
	if out.ShowAs == "" {
		out.ShowAs = ShowAsBusy
	}
	if out.Sensitivity == "" {
		out.Sensitivity = "normal"
	}
	if ev.Body != nil {
		out.Body = ev.Body.Content
	}
	if ev.Organizer != nil {
		out.Organizer = Participant{Address: ev.Organizer.EmailAddress.Address, Name: ev.Organizer.EmailAddress.Name}
	}
	if ev.Location != nil {
		out.Location = ev.Location.DisplayName
	}
	if ev.ResponseStatus != nil && ev.ResponseStatus.Response != "" {
		out.Response = normalizeResponse(ev.ResponseStatus.Response)
	}
	for _, a := range ev.Attendees {
		att := Attendee{
			Participant: Participant{Address: a.EmailAddress.Address, Name: a.EmailAddress.Name},
			Type:        a.Type,
			Response:    ResponseNone,
		}
		if a.Status != nil && a.Status.Response != "" {
			att.Response = normalizeResponse(a.Status.Response)
		}
		out.Attendees = append(out.Attendees, att)
	}
	return out
}

func normalizeResponse(r string) string {
	switch strings.ToLower(r) {
	case "accepted", "organizer":
		return ResponseAccepted
	case "declined":
		return ResponseDeclined
	case "tentativelyaccepted", "tentative":
		return ResponseTentative
	}
	return ResponseNone
}

func trimFraction(s string) string {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return s[:i]
	}
	return s
}

func getPaged[T any](ctx context.Context, g *GraphGateway, op, u string) ([]T, error) {
	var out []T
	for u != "" {
		var page graphPage[T]
		if err := g.do(ctx, g.app, http.MethodGet, u, nil, &page, op); err != nil {
			return nil, err
		}
		out = append(out, page.Value...)
		u = page.NextLink
	}
	return out, nil
}

func (g *GraphGateway) do(ctx context.Context, client *http.Client, method, u string, body, out any, op string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", `outlook.timezone="`+g.tz+`"`)

	resp, err := client.Do(req)
	if err != nil {
		return apperr.Unreachable(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return apperr.FromStatus(op, resp.StatusCode, string(data))
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return apperr.Unreachable(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
