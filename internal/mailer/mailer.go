// Package mailer renders auth-related emails and enqueues them for the
// mail worker. The server never talks SMTP itself.
package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

// Publisher is the slice of the message queue the mailer needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// Job is the payload the mail worker consumes.
type Job struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Mailer publishes mail jobs to the configured queue. A nil publisher
// logs and drops instead, which keeps local development runnable
// without a broker.
type Mailer struct {
	publisher Publisher
	queue     string
}

func New(publisher Publisher, queue string) *Mailer {
	return &Mailer{
		publisher: publisher,
		queue:     queue,
	}
}

// SendPasswordResetCode enqueues the OTP mail for email.
func (m *Mailer) SendPasswordResetCode(ctx context.Context, email, code string, ttl time.Duration) error {
	job := Job{
		To:      email,
		Subject: "Your password reset code",
		Body: fmt.Sprintf(
			"Your password reset code is %s. It is valid for %d minutes.",
			code,
			int(ttl.Minutes()),
		),
	}

	if m.publisher == nil {
		log.Printf("mailer: no broker configured, dropping mail to %s", email)
		return nil
	}

	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	_, err = m.publisher.Publish(ctx, m.queue, data, map[string]string{
		"type": "password_reset_otp",
	})
	return err
}
