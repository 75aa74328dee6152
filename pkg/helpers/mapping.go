package helpers

import (
	"fmt"
	"strings"

	"github.com/oksasatya/reach-identity/pkg/mailer"
	mailtpl "github.com/oksasatya/reach-identity/pkg/mailer/templates"
)

// SubjectFor returns the default subject for a template name.
func SubjectFor(template string) string {
	switch strings.ToLower(template) {
	case mailtpl.VerificationCode:
		return "Your verification code"
	default:
		return "Notification"
	}
}

// EnsureRecipientAndEmail fills Email/RecipientEmail from job.To when the producer left them out.
func EnsureRecipientAndEmail(job *mailer.EmailJob) {
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["Email"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["Email"] = job.To
	}
	if v, ok := job.Data["RecipientEmail"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["RecipientEmail"] = job.To
	}
}
