package alert

import (
	"fmt"
	"time"

	gomail "gopkg.in/gomail.v2"
)

// Notifier fans a security alert out to the on-call channel.
// Implementations are best-effort; the audit row is the durable record.
type Notifier interface {
	Notify(event, subject, detail string) error
}

// Config holds SMTP settings for the security-team mailbox
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// Mailer emails security alerts to the configured recipients
type Mailer struct {
	cfg    Config
	dialer *gomail.Dialer
}

func NewMailer(cfg Config) *Mailer {
	return &Mailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (m *Mailer) Notify(event, subject, detail string) error {
	if len(m.cfg.To) == 0 {
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", m.cfg.To...)
	msg.SetHeader("Subject", fmt.Sprintf("[%s] %s", event, subject))
	msg.SetBody("text/plain", fmt.Sprintf("%s\n\nEvent: %s\nRaised: %s\n", detail, event, time.Now().UTC().Format(time.RFC3339)))

	return m.dialer.DialAndSend(msg)
}

// NopNotifier drops alerts, for tests and alert-less deployments
type NopNotifier struct{}

func (NopNotifier) Notify(string, string, string) error { return nil }
