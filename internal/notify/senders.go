package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"roombooking-service/internal/calendar"
)

// GraphMailbox is the part of the Graph gateway that sends mail.
type GraphMailbox interface {
	SendMail(ctx context.Context, mailbox string, msg calendar.GraphMail) error
}

// GraphMailer sends from the message's mailbox (the room) and retries once
// from Fallback. An empty Fallback retries from the application mailbox.
type GraphMailer struct {
	Graph    GraphMailbox
	Fallback string
}

func (m *GraphMailer) Send(ctx context.Context, msg Message) error {
	gm := calendar.GraphMail{
		To:         msg.To,
		Cc:         msg.Cc,
		Subject:    msg.Subject,
		HTMLBody:   msg.HTMLBody,
		Importance: msg.Importance,
	}
	err := m.Graph.SendMail(ctx, msg.From, gm)
	if err == nil {
		return nil
	}
	if msg.From == m.Fallback {
		return err
	}
	if ferr := m.Graph.SendMail(ctx, m.Fallback, gm); ferr != nil {
		return errors.Join(err, ferr)
	}
	return nil
}

// SendGridMailer delivers through the SendGrid v3 mail API. Host is
// optional and defaults to the public API.
type SendGridMailer struct {
	APIKey   string
	Host     string
	FromName string
	FromAddr string
}

func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	if m.APIKey == "" || m.FromAddr == "" {
		return errors.New("sendgrid: api key and sender address are required")
	}
	v3 := mail.NewV3Mail()
	v3.SetFrom(mail.NewEmail(m.FromName, m.FromAddr))
	v3.Subject = msg.Subject

	p := mail.NewPersonalization()
	for _, to := range msg.To {
		p.AddTos(mail.NewEmail("", to))
	}
	for _, cc := range msg.Cc {
		p.AddCCs(mail.NewEmail("", cc))
	}
	v3.AddPersonalizations(p)
	v3.AddContent(mail.NewContent("text/html", msg.HTMLBody))

	host := m.Host
	if host == "" {
		host = "https://api.sendgrid.com"
	}
	request := sendgrid.GetRequest(m.APIKey, "/v3/mail/send", host)
	request.Method = "POST"
	request.Body = mail.GetRequestBody(v3)

	resp, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("sendgrid: send: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: unexpected status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// LogMailer only logs messages. It is the sender of choice for local runs.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "mail", "from", msg.From, "to", msg.To, "cc", msg.Cc, "subject", msg.Subject, "importance", msg.Importance)
	return nil
}
