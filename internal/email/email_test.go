package email

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/authcode/authcode-go/internal/config"
	"github.com/authcode/authcode-go/internal/model"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.EmailConfig
		want    string
		wantErr bool
	}{
		{"default", config.EmailConfig{}, "*email.LogSender", false},
		{"console", config.EmailConfig{Backend: "console"}, "*email.LogSender", false},
		{"memory", config.EmailConfig{Backend: "memory"}, "*email.MemorySender", false},
		{"smtp", config.EmailConfig{Backend: "smtp", SMTPHost: "mail", Username: "u", Password: "p"}, "*email.SMTPSender", false},
		{"smtp missing host", config.EmailConfig{Backend: "smtp", Username: "u", Password: "p"}, "", true},
		{"unknown", config.EmailConfig{Backend: "carrier-pigeon"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, err := New(tt.cfg, 10*time.Minute)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := typeName(sender); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestNew_SMTPFromFallsBackToUsername(t *testing.T) {
	sender, err := New(config.EmailConfig{Backend: "smtp", SMTPHost: "mail", Username: "bot@example.com", Password: "p"}, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if from := sender.(*SMTPSender).from; from != "bot@example.com" {
		t.Errorf("expected from to default to username, got %q", from)
	}
}

func TestMemorySender(t *testing.T) {
	s := NewMemorySender()
	ctx := context.Background()

	if _, ok := s.Last("a@example.com"); ok {
		t.Fatal("expected empty outbox")
	}

	s.SendCode(ctx, "a@example.com", "111111", model.PurposeRegister)
	s.SendCode(ctx, "b@example.com", "222222", model.PurposeReset)
	s.SendCode(ctx, "a@example.com", "333333", model.PurposeReset)

	msg, ok := s.Last("a@example.com")
	if !ok || msg.Code != "333333" || msg.Purpose != model.PurposeReset {
		t.Errorf("unexpected last message: %+v", msg)
	}
	if n := len(s.Outbox()); n != 3 {
		t.Errorf("expected 3 messages, got %d", n)
	}

	s.Err = errors.New("down")
	if err := s.SendCode(ctx, "a@example.com", "444444", model.PurposeRegister); err == nil {
		t.Error("expected simulated failure")
	}
	if n := len(s.Outbox()); n != 3 {
		t.Errorf("failed send should not be recorded, got %d", n)
	}
}

func TestSMTPMessage(t *testing.T) {
	s := &SMTPSender{from: "no-reply@example.com", ttl: 10 * time.Minute}
	msg := string(s.message("a@example.com", "123456"))

	for _, want := range []string{
		"From: no-reply@example.com\r\n",
		"To: a@example.com\r\n",
		"Subject: Verification code\r\n",
		"123456",
		"10 minutes",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *LogSender:
		return "*email.LogSender"
	case *MemorySender:
		return "*email.MemorySender"
	case *SMTPSender:
		return "*email.SMTPSender"
	}
	return ""
}
