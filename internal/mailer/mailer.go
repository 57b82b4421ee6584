// Package mailer sends operator notifications over SMTP with STARTTLS.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jmylchreest/tablewatch/internal/config"
	"github.com/jmylchreest/tablewatch/internal/logger"
)

// Mailer implements notify.Notifier over plain SMTP.
type Mailer struct {
	cfg config.SMTPConfig

	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New creates a mailer from SMTP configuration.
func New(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg, send: smtp.SendMail}
}

// Send delivers one plain-text message. The context is advisory only:
// net/smtp has no context support, so cancellation is checked up front.
func (m *Mailer) Send(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	msg := buildMessage(m.cfg.From, m.cfg.To, subject, body)
	if err := m.send(addr, auth, m.cfg.From, []string{m.cfg.To}, msg); err != nil {
		return fmt.Errorf("smtp send via %s: %w", addr, err)
	}

	logger.Debug("email sent", "to", m.cfg.To, "subject", subject)
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
