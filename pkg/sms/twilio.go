package sms

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Twilio sends text messages through the Twilio REST API.
type Twilio struct {
	client *twilio.RestClient
	From   string
}

func NewTwilio(accountSID, authToken, from string) *Twilio {
	c := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Twilio{client: c, From: from}
}

// Send delivers body to the number to. The Twilio client has no context support,
// so ctx is only checked before the call.
func (t *Twilio) Send(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.From == "" {
		return errors.New("twilio: from phone not configured")
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.From)
	params.SetBody(body)
	if _, err := t.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio send to %s: %w", to, err)
	}
	return nil
}
