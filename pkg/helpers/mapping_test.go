package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oksasatya/reach-identity/pkg/mailer"
)

func TestEnsureRecipientAndEmail(t *testing.T) {
	job := mailer.EmailJob{To: "ana@example.com", Template: "verification_code"}
	EnsureRecipientAndEmail(&job)
	assert.Equal(t, "ana@example.com", job.Data["Email"])
	assert.Equal(t, "ana@example.com", job.Data["RecipientEmail"])

	job = mailer.EmailJob{To: "a@example.com", Data: map[string]any{"Email": "b@example.com"}}
	EnsureRecipientAndEmail(&job)
	assert.Equal(t, "b@example.com", job.Data["Email"])
	assert.Equal(t, "a@example.com", job.Data["RecipientEmail"])
}

func TestSubjectFor(t *testing.T) {
	assert.Equal(t, "Your verification code", SubjectFor("VERIFICATION_CODE"))
	assert.Equal(t, "Notification", SubjectFor("other"))
}
