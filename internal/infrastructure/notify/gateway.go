package notify

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/reach-identity/config"
	"github.com/oksasatya/reach-identity/pkg/helpers"
	"github.com/oksasatya/reach-identity/pkg/mailer"
	mailtpl "github.com/oksasatya/reach-identity/pkg/mailer/templates"
	"github.com/oksasatya/reach-identity/pkg/sms"
)

type EmailSender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

type Publisher interface {
	PublishJSON(ctx context.Context, queue string, body any) error
}

// DirectGateway renders and sends inline: Mailgun for email, Twilio for SMS.
type DirectGateway struct {
	Mail EmailSender
	SMS  SMSSender
	Cfg  *config.Config
}

func NewDirectGateway(mail EmailSender, sms SMSSender, cfg *config.Config) *DirectGateway {
	return &DirectGateway{Mail: mail, SMS: sms, Cfg: cfg}
}

func (g *DirectGateway) SendEmail(ctx context.Context, address, code string) error {
	if g.Mail == nil {
		return fmt.Errorf("email sender not configured")
	}
	job := VerificationEmailJob(g.Cfg, address, code)
	subject, text, html, err := mailtpl.Render(job.Template, job.Data)
	if err != nil {
		return fmt.Errorf("render %s: %w", job.Template, err)
	}
	return g.Mail.Send(ctx, address, subject, text, html)
}

func (g *DirectGateway) SendSMS(ctx context.Context, number, code string) error {
	if g.SMS == nil {
		return fmt.Errorf("sms sender not configured")
	}
	return g.SMS.Send(ctx, number, sms.VerificationBody(appName(g.Cfg), code))
}

// QueueGateway publishes jobs for notify_worker to deliver.
type QueueGateway struct {
	Pub        Publisher
	EmailQueue string
	SMSQueue   string
	Cfg        *config.Config
}

func NewQueueGateway(pub Publisher, cfg *config.Config) *QueueGateway {
	return &QueueGateway{Pub: pub, EmailQueue: cfg.RabbitMQEmailQueue, SMSQueue: cfg.RabbitMQSMSQueue, Cfg: cfg}
}

func (g *QueueGateway) SendEmail(ctx context.Context, address, code string) error {
	return g.Pub.PublishJSON(ctx, g.EmailQueue, VerificationEmailJob(g.Cfg, address, code))
}

func (g *QueueGateway) SendSMS(ctx context.Context, number, code string) error {
	return g.Pub.PublishJSON(ctx, g.SMSQueue, sms.SMSJob{To: number, Body: sms.VerificationBody(appName(g.Cfg), code)})
}

// LogGateway only logs; used when MAIL_SEND_ENABLED=false.
type LogGateway struct {
	Logger *logrus.Logger
}

func (g LogGateway) SendEmail(_ context.Context, address, code string) error {
	g.Logger.WithFields(logrus.Fields{"to": address, "code": code}).Info("email sending disabled; verification code not sent")
	return nil
}

func (g LogGateway) SendSMS(_ context.Context, number, code string) error {
	g.Logger.WithFields(logrus.Fields{"to": number, "code": code}).Info("sms sending disabled; verification code not sent")
	return nil
}

// VerificationEmailJob builds the templated email job for a code.
func VerificationEmailJob(cfg *config.Config, address, code string) mailer.EmailJob {
	job := mailer.EmailJob{
		To:       address,
		Subject:  helpers.SubjectFor(mailtpl.VerificationCode),
		Template: mailtpl.VerificationCode,
		Data:     mailtpl.NewVerificationCodeData(cfg, address, code),
	}
	helpers.EnsureRecipientAndEmail(&job)
	return job
}

func appName(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	return cfg.CompanyName
}
