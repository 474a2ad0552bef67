package mailer

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

type capturingPublisher struct {
	channel string
	data    []byte
	attrs   map[string]string
}

func (p *capturingPublisher) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	p.channel = channel
	p.data = data
	p.attrs = attrs
	return "msg-1", nil
}

func TestSendPasswordResetCodePublishesJob(t *testing.T) {
	publisher := &capturingPublisher{}
	m := New(publisher, "auth.emails")

	err := m.SendPasswordResetCode(context.Background(), "jane@example.edu", "123456", 5*time.Minute)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if publisher.channel != "auth.emails" {
		t.Errorf("channel = %q, want auth.emails", publisher.channel)
	}
	if publisher.attrs["type"] != "password_reset_otp" {
		t.Errorf("attrs = %v", publisher.attrs)
	}

	var job Job
	if err := json.Unmarshal(publisher.data, &job); err != nil {
		t.Fatalf("unmarshal job: %v", err)
	}
	if job.To != "jane@example.edu" {
		t.Errorf("to = %q", job.To)
	}
	if !strings.Contains(job.Body, "123456") {
		t.Errorf("body missing code: %q", job.Body)
	}
	if !strings.Contains(job.Body, "5 minutes") {
		t.Errorf("body missing validity notice: %q", job.Body)
	}
}

func TestSendWithoutBrokerDrops(t *testing.T) {
	m := New(nil, "auth.emails")

	if err := m.SendPasswordResetCode(context.Background(), "jane@example.edu", "123456", 5*time.Minute); err != nil {
		t.Fatalf("nil publisher should drop silently, got %v", err)
	}
}
