// Package mailer delivers the password-reset e-mail.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"amber/internal/config"
	"amber/internal/middleware"

	"github.com/wneessen/go-mail"
)

const (
	resetSubject = "Password Reset Request"
	sendTimeout  = 15 * time.Second
)

// Mailer sends account e-mail.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, resetURL string) error
}

// New returns an SMTPMailer when MAIL_SERVER is configured and a LogMailer otherwise.
func New(cfg *config.Config) (Mailer, error) {
	if strings.TrimSpace(cfg.MailServer) == "" {
		return NewLogMailer(middleware.Logger), nil
	}
	return NewSMTPMailer(cfg)
}

type deliverFunc func(ctx context.Context, msg *mail.Msg) error

// SMTPMailer sends through an SMTP relay, upgrading to TLS when the server offers STARTTLS.
type SMTPMailer struct {
	host    string
	port    int
	from    string
	deliver deliverFunc
	now     func() time.Time
}

// NewSMTPMailer builds a mailer from the MAIL_* settings. Credentials enable SMTP PLAIN auth.
func NewSMTPMailer(cfg *config.Config) (*SMTPMailer, error) {
	port := cfg.MailPort
	if port == 0 {
		port = 587
	}

	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(sendTimeout),
	}
	if cfg.MailUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.MailUsername),
			mail.WithPassword(cfg.MailPassword),
		)
	}
	client, err := mail.NewClient(cfg.MailServer, opts...)
	if err != nil {
		return nil, fmt.Errorf("configure smtp client: %w", err)
	}

	from := cfg.MailDefaultSender
	if from == "" {
		from = cfg.MailUsername
	}
	return &SMTPMailer{
		host: cfg.MailServer,
		port: port,
		from: from,
		deliver: func(ctx context.Context, msg *mail.Msg) error {
			return client.DialAndSendWithContext(ctx, msg)
		},
		now: time.Now,
	}, nil
}

// SendPasswordReset mails the reset link to a single recipient.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	msg, err := m.resetMessage(to, resetURL)
	if err != nil {
		return err
	}
	if err := m.deliver(ctx, msg); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	middleware.Logger.InfoContext(ctx, "password reset mail sent", slog.String("relay", m.host))
	return nil
}

func (m *SMTPMailer) resetMessage(to, resetURL string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(resetSubject)
	msg.SetDateWithValue(m.now())
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextPlain, resetBody(resetURL))
	return msg, nil
}

// LogMailer writes the reset link to the log instead of sending it.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer returns a mailer for development setups without an SMTP relay.
func NewLogMailer(l *slog.Logger) *LogMailer {
	return &LogMailer{logger: l}
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	m.logger.InfoContext(ctx, "password reset requested (mail delivery disabled)",
		slog.String("to", to),
		slog.String("reset_url", resetURL),
	)
	return nil
}

func resetBody(resetURL string) string {
	return "To reset your password, visit the following link:\n" +
		resetURL + "\n\n" +
		"If you did not make this request, simply ignore this email and no changes will be made.\n"
}
