package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"rentcars/internal/app/policies"
)

var ErrWrongChannel = errors.New("notify: message sent to the wrong channel")

// SendGridMailer delivers email through the SendGrid v3 API.
type SendGridMailer struct {
	client   *sendgrid.Client
	from     *mail.Email
	replyTo  *mail.Email
	category string
}

// NewSendGridMailer builds a mailer. host overrides the API endpoint and is
// empty in production.
func NewSendGridMailer(apiKey, fromEmail, fromName, host string) *SendGridMailer {
	req := sendgrid.GetRequest(apiKey, "/v3/mail/send", host)
	req.Method = "POST"
	return &SendGridMailer{
		client:   &sendgrid.Client{Request: req},
		from:     mail.NewEmail(fromName, fromEmail),
		category: "booking",
	}
}

func (m *SendGridMailer) Send(ctx context.Context, msg policies.Message) error {
	if msg.Channel != policies.ChannelEmail {
		return ErrWrongChannel
	}
	to := mail.NewEmail(msg.Data["driver_name"], msg.To)
	message := mail.NewSingleEmail(m.from, msg.Subject, to, msg.Body, htmlBody(msg.Body))
	if msg.Template != "" {
		message.AddCategories(m.category, msg.Template)
	}
	if id := msg.Data["booking_id"]; id != "" {
		message.SetHeader("X-Booking-ID", id)
	}
	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body))
	}
	return nil
}

func htmlBody(text string) string {
	return "<p>" + strings.ReplaceAll(html.EscapeString(text), "\n", "<br>") + "</p>"
}

var _ policies.Notifier = (*SendGridMailer)(nil)
