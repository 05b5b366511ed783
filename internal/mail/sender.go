// Package mail dispatches transactional email. The SMTP sender targets a
// relay such as Mailpit in development; the log sender is for environments
// without one.
package mail

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Sender delivers a single HTML message.
type Sender interface {
	Send(to, subject, htmlBody string) error
}

// Config holds SMTP connection settings.
type Config struct {
	Host string
	Port int
	From string
}

// NewSender picks an implementation by mode: "smtp" talks to the configured
// relay, anything else logs the message instead of delivering it.
func NewSender(mode string, cfg Config, logger *slog.Logger) Sender {
	if mode == "smtp" {
		return &smtpSender{cfg: cfg}
	}
	return &logSender{logger: logger}
}

type smtpSender struct {
	cfg Config
}

func (s *smtpSender) Send(to, subject, htmlBody string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	if err := smtp.SendMail(addr, nil, s.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("mail: send to %s: %w", to, err)
	}
	return nil
}

type logSender struct {
	logger *slog.Logger
}

func (s *logSender) Send(to, subject, htmlBody string) error {
	s.logger.Info("mail not delivered (log mode)",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.Int("body_bytes", len(htmlBody)))
	return nil
}
