// Package notify turns reconciliation outcomes into email notifications:
// markdown-templated bodies, an HTML alternative, and per-container recipient
// routing.
package notify

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Message is one outbound notification, transport-agnostic.
type Message struct {
	To      []string
	Cc      []string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends one message. The production implementation speaks SMTP; tests
// substitute a capture fake.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPMailer struct {
	cfg    SMTPConfig
	logger *zap.Logger
}

func NewSMTPMailer(cfg SMTPConfig, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger}
}

// Send delivers the message over a fresh SMTP connection. Connections are not
// pooled; notification volume is a handful per polling cycle.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	mm := mail.NewMsg()
	if err := mm.From(m.cfg.From); err != nil {
		return fmt.Errorf("from address: %w", err)
	}
	if err := mm.To(msg.To...); err != nil {
		return fmt.Errorf("to addresses: %w", err)
	}
	if len(msg.Cc) > 0 {
		if err := mm.Cc(msg.Cc...); err != nil {
			return fmt.Errorf("cc addresses: %w", err)
		}
	}
	mm.Subject(msg.Subject)
	mm.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		mm.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if err := client.DialAndSendWithContext(ctx, mm); err != nil {
		return fmt.Errorf("send to %v: %w", msg.To, err)
	}
	m.logger.Info("notification delivered",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}
