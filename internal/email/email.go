package email

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/authcode/authcode-go/internal/model"
)

const subject = "Verification code"

// Sender delivers verification codes. A returned error aborts the operation
// that issued the code.
type Sender interface {
	SendCode(ctx context.Context, to, code string, purpose model.Purpose) error
}

func body(code string, ttl time.Duration) string {
	minutes := int(ttl.Minutes())
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("Your verification code is: %s\nIt is valid for %d minutes. Do not share it with anyone.\n", code, minutes)
}

// LogSender writes codes to the log instead of sending them.
type LogSender struct {
	ttl time.Duration
}

func (s *LogSender) SendCode(ctx context.Context, to, code string, purpose model.Purpose) error {
	slog.InfoContext(ctx, "email sent (logged)",
		"to", to,
		"purpose", string(purpose),
		"subject", subject,
		"body", body(code, s.ttl),
	)
	return nil
}

// SMTPSender delivers codes over SMTP with STARTTLS and PLAIN auth.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	ttl      time.Duration
}

func (s *SMTPSender) SendCode(ctx context.Context, to, code string, purpose model.Purpose) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	auth := smtp.PlainAuth("", s.username, s.password, s.host)

	if err := smtp.SendMail(addr, auth, s.from, []string{to}, s.message(to, code)); err != nil {
		return fmt.Errorf("send %s code to %s: %w", purpose, to, err)
	}

	slog.InfoContext(ctx, "email sent", "to", to, "purpose", string(purpose))
	return nil
}

func (s *SMTPSender) message(to, code string) []byte {
	var b strings.Builder
	b.WriteString("From: " + s.from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body(code, s.ttl), "\n", "\r\n"))
	return []byte(b.String())
}

// Message is one delivery recorded by a MemorySender.
type Message struct {
	To      string
	Code    string
	Purpose model.Purpose
}

// MemorySender records deliveries in an outbox. Set Err to simulate a failure.
type MemorySender struct {
	mu     sync.Mutex
	outbox []Message
	Err    error
}

// NewMemorySender creates an empty MemorySender.
func NewMemorySender() *MemorySender {
	return &MemorySender{}
}

func (s *MemorySender) SendCode(_ context.Context, to, code string, purpose model.Purpose) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}
	s.outbox = append(s.outbox, Message{To: to, Code: code, Purpose: purpose})
	return nil
}

// Outbox returns a copy of all recorded messages.
func (s *MemorySender) Outbox() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.outbox...)
}

// Last returns the most recent message sent to address.
func (s *MemorySender) Last(to string) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.outbox) - 1; i >= 0; i-- {
		if s.outbox[i].To == to {
			return s.outbox[i], true
		}
	}
	return Message{}, false
}
