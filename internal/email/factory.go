package email

import (
	"errors"
	"fmt"
	"time"

	"github.com/authcode/authcode-go/internal/config"
)

var ErrSMTPConfig = errors.New("smtp configuration missing: set SMTP_HOST, SMTP_USERNAME and SMTP_PASSWORD")

// New returns the Sender selected by cfg.Backend. ttl is quoted in message bodies.
func New(cfg config.EmailConfig, ttl time.Duration) (Sender, error) {
	switch cfg.Backend {
	case "", "console":
		return &LogSender{ttl: ttl}, nil
	case "memory":
		return NewMemorySender(), nil
	case "smtp":
		if cfg.SMTPHost == "" || cfg.Username == "" || cfg.Password == "" {
			return nil, ErrSMTPConfig
		}
		from := cfg.From
		if from == "" {
			from = cfg.Username
		}
		return &SMTPSender{
			host:     cfg.SMTPHost,
			port:     cfg.SMTPPort,
			username: cfg.Username,
			password: cfg.Password,
			from:     from,
			ttl:      ttl,
		}, nil
	default:
		return nil, fmt.Errorf("unknown email backend: %s", cfg.Backend)
	}
}
