// Package mailer builds and delivers transactional email. Delivery goes
// through a bounded in-process queue; a full queue drops the message.
package mailer

import (
	"context"
	"fmt"
	"net/url"
)

type Message struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Sender delivers one message synchronously.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

func VerificationEmail(appURL, to, token string) Message {
	link := fmt.Sprintf("%s/auth/verify-email?token=%s", appURL, url.QueryEscape(token))
	return Message{
		To:      to,
		Subject: "Verify your email",
		Body: "Welcome! Confirm your email address by opening the link below:\n\n" +
			link + "\n\nIf you did not create an account, ignore this message.",
	}
}

func PasswordResetEmail(appURL, to, token string) Message {
	link := fmt.Sprintf("%s/auth/reset-password?token=%s", appURL, url.QueryEscape(token))
	return Message{
		To:      to,
		Subject: "Reset your password",
		Body: "A password reset was requested for your account. Open the link below to choose a new password:\n\n" +
			link + "\n\nThe link expires in one hour. If you did not request a reset, ignore this message.",
	}
}
