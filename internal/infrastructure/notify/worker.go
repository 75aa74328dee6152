package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/oksasatya/reach-identity/pkg/helpers"
	"github.com/oksasatya/reach-identity/pkg/mailer"
	mailtpl "github.com/oksasatya/reach-identity/pkg/mailer/templates"
	"github.com/oksasatya/reach-identity/pkg/sms"
)

// ErrPoisonMessage marks a job that can never succeed; it is dropped, not requeued.
var ErrPoisonMessage = errors.New("poison message")

// Worker delivers jobs published by QueueGateway.
type Worker struct {
	Mail EmailSender
	SMS  SMSSender
}

// HandleEmail decodes, renders and sends one email job.
func (w *Worker) HandleEmail(ctx context.Context, body []byte) error {
	var job mailer.EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("%w: %v", ErrPoisonMessage, err)
	}
	if strings.TrimSpace(job.To) == "" {
		return fmt.Errorf("%w: missing recipient", ErrPoisonMessage)
	}
	helpers.EnsureRecipientAndEmail(&job)

	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		s, t, h, err := mailtpl.Render(job.Template, job.Data)
		if err != nil {
			return fmt.Errorf("%w: render %s: %v", ErrPoisonMessage, job.Template, err)
		}
		subject, text, html = s, t, h
	}
	if subject == "" {
		subject = helpers.SubjectFor(job.Template)
	}
	if text == "" && html == "" {
		return fmt.Errorf("%w: empty body", ErrPoisonMessage)
	}
	return w.Mail.Send(ctx, job.To, subject, text, html)
}

// HandleSMS decodes and sends one SMS job.
func (w *Worker) HandleSMS(ctx context.Context, body []byte) error {
	var job sms.SMSJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("%w: %v", ErrPoisonMessage, err)
	}
	if strings.TrimSpace(job.To) == "" || job.Body == "" {
		return fmt.Errorf("%w: missing recipient or body", ErrPoisonMessage)
	}
	return w.SMS.Send(ctx, job.To, job.Body)
}
