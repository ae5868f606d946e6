// Package mailer delivers email over SMTP.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"
	"github.com/wneessen/go-mail"
)

// Config holds SMTP settings. Delivery is disabled unless host, user and pass are set.
type Config struct {
	Host    string
	Port    int
	Secure  bool
	User    string
	Pass    string
	From    string
	Timeout time.Duration
}

// Enabled reports whether the configuration is complete enough to deliver mail.
func (c Config) Enabled() bool {
	return c.Host != "" && c.User != "" && c.Pass != ""
}

// Mailer sends messages through a single SMTP relay.
type Mailer struct {
	client *mail.Client
	from   string
}

// ConfigFromViper reads the smtp.* keys.
func ConfigFromViper() Config {
	port := viper.GetInt("smtp.port")

	return Config{
		Host:    viper.GetString("smtp.host"),
		Port:    port,
		Secure:  viper.GetBool("smtp.secure") || port == 465,
		User:    viper.GetString("smtp.user"),
		Pass:    viper.GetString("smtp.pass"),
		From:    viper.GetString("smtp.from"),
		Timeout: viper.GetDuration("smtp.timeout"),
	}
}

// MustNewMailer creates the process mailer, or returns nil when SMTP is not configured.
func MustNewMailer() *Mailer {
	cfg := ConfigFromViper()
	if !cfg.Enabled() {
		slog.Info("SMTP is not configured, order confirmations are disabled")

		return nil
	}

	m, err := NewMailer(cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to create SMTP client: %v", err))
	}

	slog.Info("SMTP mailer configured", "host", cfg.Host, "port", cfg.Port, "secure", cfg.Secure)

	return m
}

// NewMailer creates a mailer. No connection is opened until Send.
func NewMailer(cfg Config) (*Mailer, error) {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.User),
		mail.WithPassword(cfg.Pass),
		mail.WithTimeout(cfg.Timeout),
	}
	if cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &Mailer{client: client, from: cfg.From}, nil
}

// Send delivers a message with a plain-text body and an HTML alternative.
func (m *Mailer) Send(ctx context.Context, to, subject, text, html string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, text)
	msg.AddAlternativeString(mail.TypeTextHTML, html)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	return nil
}
