package mailer

import (
	"context"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

// Mailgun sends plain/HTML email through the Mailgun API.
type Mailgun struct {
	client  *mg.MailgunImpl
	Sender  string
	Timeout time.Duration
}

func NewMailgun(domain, apiKey, sender string) *Mailgun {
	return &Mailgun{client: mg.NewMailgun(domain, apiKey), Sender: sender, Timeout: 10 * time.Second}
}

// Send sends an email. html is optional; when set it is used as the HTML body.
func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) error {
	msg := m.client.NewMessage(m.Sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	c, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()
	_, _, err := m.client.Send(c, msg)
	return err
}
