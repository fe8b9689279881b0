// Package notify renders and delivers booking notifications. Delivery is
// best effort: failures are logged and reported as false, never returned.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html"
	"html/template"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"roombooking-service/internal/apperr"
	"roombooking-service/internal/locale"
	"roombooking-service/internal/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

// Message is one outbound email. From names the mailbox to send from;
// senders that cannot choose a mailbox ignore it.
type Message struct {
	From       string
	To         []string
	Cc         []string
	Subject    string
	HTMLBody   string
	Importance string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Participant mirrors an addressable identity.
type Participant struct {
	Address string
	Name    string
}

// RequestNotice describes a freshly created booking. Text fields may be
// HTML-escaped; they are unescaped before rendering.
type RequestNotice struct {
	EventID      string
	RoomName     string
	RoomAddress  string
	Subject      string
	Start        time.Time
	End          time.Time
	Requester    Participant
	Notes        string
	Approver     string
	AutoApproved bool
}

// Outcome names a decision on an existing booking.
type Outcome string

const (
	OutcomeApproved  Outcome = "approved"
	OutcomeRejected  Outcome = "rejected"
	OutcomeCancelled Outcome = "cancelled"
)

// DecisionNotice tells the requester what happened to their booking.
type DecisionNotice struct {
	Outcome     Outcome
	EventID     string
	RoomName    string
	RoomAddress string
	Subject     string
	Start       time.Time
	End         time.Time
	Requester   string
	Actor       Participant
}

type Config struct {
	Messages locale.Messages
	// Watchers receive every booking request next to the approver.
	Watchers []string
	// BaseURL prefixes the action links; links are omitted when empty.
	BaseURL  string
	Location *time.Location
}

// Dispatcher turns booking events into emails and hands them to a Sender.
type Dispatcher struct {
	sender Sender
	cfg    Config
	tmpl   *template.Template
	logger *slog.Logger
}

func NewDispatcher(sender Sender, cfg Config, logger *slog.Logger) (*Dispatcher, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("notify: parse templates: %w", err)
	}
	if cfg.Messages.Lang == "" {
		cfg.Messages = locale.English
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Dispatcher{sender: sender, cfg: cfg, tmpl: tmpl, logger: logger}, nil
}

// Send delivers msg and reports whether it went out.
func (d *Dispatcher) Send(ctx context.Context, msg Message) bool {
	if d == nil || d.sender == nil {
		return false
	}
	logger := logging.Service(ctx, d.logger, "NotificationDispatcher", "Send", "subject", msg.Subject)
	if len(msg.To) == 0 {
		logger.WarnContext(ctx, "notification has no recipients")
		return false
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		logger.WarnContext(ctx, "notification not delivered", "to", msg.To, "error", err, "error_kind", apperr.Kind(err))
		return false
	}
	logger.InfoContext(ctx, "notification delivered", "to", msg.To)
	return true
}

type requestView struct {
	L              locale.MailLabels
	Status         string
	Room           string
	Date           string
	Start          string
	End            string
	Subject        string
	RequesterName  string
	RequesterEmail string
	Notes          string
	AutoApproved   bool
	ApproveURL     string
	RejectURL      string
	CancelURL      string
}

// Requested mails the approver and watchers about a new booking. The
// requester is copied when the booking awaits approval.
func (d *Dispatcher) Requested(ctx context.Context, n RequestNotice) bool {
	m := d.cfg.Messages
	status := m.StatusPending
	if n.AutoApproved {
		status = m.StatusApproved
	}
	start, end := n.Start.In(d.cfg.Location), n.End.In(d.cfg.Location)
	view := requestView{
		L:              m.Mail,
		Status:         strings.ToUpper(status),
		Room:           unescape(n.RoomName),
		Date:           start.Format("2006-01-02"),
		Start:          start.Format("15:04"),
		End:            end.Format("15:04"),
		Subject:        unescape(n.Subject),
		RequesterName:  unescape(n.Requester.Name),
		RequesterEmail: n.Requester.Address,
		Notes:          unescape(n.Notes),
		AutoApproved:   n.AutoApproved,
		CancelURL:      d.actionURL("cancel", n.EventID, n.RoomAddress),
	}
	if !n.AutoApproved {
		view.ApproveURL = d.actionURL("approve", n.EventID, n.RoomAddress)
		view.RejectURL = d.actionURL("reject", n.EventID, n.RoomAddress)
	}

	body, err := d.render("request", view)
	if err != nil {
		logging.Service(ctx, d.logger, "NotificationDispatcher", "Requested").ErrorContext(ctx, "failed to render notification", "error", err)
		return false
	}

	to := make([]string, 0, 1+len(d.cfg.Watchers))
	if n.Approver != "" {
		to = append(to, n.Approver)
	}
	to = append(to, d.cfg.Watchers...)
	msg := Message{
		From:       n.RoomAddress,
		To:         to,
		Subject:    fmt.Sprintf(m.SubjectRequest, unescape(n.RoomName), status),
		HTMLBody:   body,
		Importance: "normal",
	}
	if !n.AutoApproved {
		msg.Importance = "high"
		if n.Requester.Address != "" {
			msg.Cc = []string{n.Requester.Address}
		}
	}
	return d.Send(ctx, msg)
}

type decisionView struct {
	L         locale.MailLabels
	Heading   string
	Text      string
	Positive  bool
	Room      string
	Subject   string
	Start     string
	End       string
	Actor     string
	CancelURL string
	Contact   bool
}

// Decided tells the requester about an approval, rejection or cancellation.
func (d *Dispatcher) Decided(ctx context.Context, n DecisionNotice) bool {
	if n.Requester == "" {
		return false
	}
	m := d.cfg.Messages
	room := unescape(n.RoomName)
	if room == "" {
		room, _, _ = strings.Cut(n.RoomAddress, "@")
	}
	view := decisionView{
		L:       m.Mail,
		Room:    room,
		Subject: unescape(n.Subject),
		Start:   n.Start.In(d.cfg.Location).Format("2006-01-02 15:04"),
		End:     n.End.In(d.cfg.Location).Format("2006-01-02 15:04"),
		Actor:   actorLabel(n.Actor),
	}
	var subject string
	switch n.Outcome {
	case OutcomeApproved:
		view.Heading, view.Text, view.Positive = m.Mail.ApprovedHeading, m.Mail.ApprovedText, true
		view.CancelURL = d.actionURL("cancel", n.EventID, n.RoomAddress)
		subject = fmt.Sprintf(m.SubjectApproved, room)
	case OutcomeRejected:
		view.Heading, view.Text, view.Contact = m.Mail.RejectedHeading, m.Mail.RejectedText, true
		subject = fmt.Sprintf(m.SubjectRejected, room)
	case OutcomeCancelled:
		view.Heading, view.Text = m.Mail.CancelledHeading, m.Mail.CancelledText
		subject = fmt.Sprintf(m.SubjectCancelled, room)
	default:
		return false
	}

	body, err := d.render("decision", view)
	if err != nil {
		logging.Service(ctx, d.logger, "NotificationDispatcher", "Decided").ErrorContext(ctx, "failed to render notification", "error", err)
		return false
	}
	return d.Send(ctx, Message{
		From:       n.RoomAddress,
		To:         []string{n.Requester},
		Subject:    subject,
		HTMLBody:   body,
		Importance: "normal",
	})
}

func (d *Dispatcher) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := d.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// actionURL links to the dashboard action for a booking.
func (d *Dispatcher) actionURL(action, eventID, room string) string {
	if d.cfg.BaseURL == "" || eventID == "" {
		return ""
	}
	q := url.Values{"room": {room}, "action": {action}}
	return d.cfg.BaseURL + "/bookings/" + url.PathEscape(eventID) + "?" + q.Encode()
}

func actorLabel(p Participant) string {
	switch {
	case p.Name != "" && p.Address != "":
		return fmt.Sprintf("%s (%s)", p.Name, p.Address)
	case p.Name != "":
		return p.Name
	}
	return p.Address
}

// unescape reverses the HTML escaping applied to stored text; the
// templates escape again on output.
func unescape(s string) string {
	return html.UnescapeString(s)
}
