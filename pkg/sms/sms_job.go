package sms

import "fmt"

// SMSJob is the JSON payload put on the RabbitMQ queue for sending a text message.
type SMSJob struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// VerificationBody is the text sent with a verification code.
func VerificationBody(appName, code string) string {
	if appName == "" {
		appName = "REACH"
	}
	return fmt.Sprintf("Your %s verification code is %s", appName, code)
}
