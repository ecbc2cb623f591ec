// Package mailer delivers HTML email over SMTP.
package mailer

import (
	"context"
	"log/slog"

	"gopkg.in/gomail.v2"
)

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends mail through an SMTP relay, opening one connection per message.
type SMTPMailer struct {
	cfg    Config
	dialer *gomail.Dialer
}

// NewSMTPMailer creates a mailer for the given relay.
func NewSMTPMailer(cfg Config) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	// gomail takes no context; cancellation is only checked before dialing.
	return m.dialer.DialAndSend(msg)
}

// LogMailer writes messages to the log instead of sending them. Used when no
// SMTP relay is configured.
type LogMailer struct {
	log *slog.Logger
}

func NewLogMailer(log *slog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	m.log.Info("email (not sent, smtp disabled)", "to", to, "subject", subject, "bytes", len(htmlBody))
	return nil
}
