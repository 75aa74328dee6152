package templates

import (
	"time"

	"github.com/oksasatya/reach-identity/config"
)

// Option pattern
type Option func(*EmailData)

func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04")
	}
}

func WithName(name string) Option { return func(d *EmailData) { d.Name = name } }

// NewBaseEmailData fills the common fields from config, then applies opts.
func NewBaseEmailData(cfg *config.Config, typ string, email string, opts ...Option) EmailData {
	d := EmailData{
		Email:          email,
		RecipientEmail: email,
		Type:           typ,
	}
	if cfg != nil {
		d.CompanyName = cfg.CompanyName
		d.CompanyAddress = cfg.CompanyAddress
		d.AppName = cfg.AppName
		d.LogoURL = cfg.LogoURL
		d.SupportURL = cfg.SupportURL
		d.PrivacyURL = cfg.PrivacyURL
		d.UnsubscribeURL = cfg.UnsubscribeURL
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewVerificationCodeData(cfg *config.Config, email, code string, opts ...Option) map[string]any {
	d := NewBaseEmailData(cfg, VerificationCode, email, opts...)
	d.Code = code
	return ToMap(d)
}
