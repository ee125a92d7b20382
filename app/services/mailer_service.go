// Package services provides external service integrations and technical concerns like mail delivery and tokens
package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/amirphl/Yatagarasu/config"
	"github.com/amirphl/Yatagarasu/utils"
)

// Mailer delivers a single email and reports the provider response text.
// Campaign dispatch persists that text verbatim on the attempt record.
type Mailer interface {
	Deliver(ctx context.Context, to, toName, subject, body string) (string, error)
}

// SMTPMailer implements Mailer over a configured SMTP relay using gomail
type SMTPMailer struct {
	cfg config.SMTPConfig
}

// NewSMTPMailer creates a mailer backed by the configured SMTP relay
func NewSMTPMailer(cfg config.SMTPConfig) Mailer {
	return &SMTPMailer{cfg: cfg}
}

// Deliver sends one email synchronously. The returned string is what gets
// recorded as the delivery response; SMTP has no per-message receipt so a
// successful handoff reports the standard delivered marker.
func (m *SMTPMailer) Deliver(ctx context.Context, to, toName, subject, body string) (string, error) {
	if err := validateAddress(to); err != nil {
		return "", err
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.FromEmail, m.cfg.FromName)
	msg.SetAddressHeader("To", to, toName)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	dialer := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	if m.cfg.UseTLS {
		dialer.SSL = true
	}
	if m.cfg.UseSTARTTLS {
		dialer.TLSConfig = &tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}
	}

	// gomail dials synchronously; honor context cancellation around the send
	done := make(chan error, 1)
	go func() {
		done <- dialer.DialAndSend(msg)
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("smtp delivery to %s failed: %w", to, err)
		}
		return utils.DeliveredResponse, nil
	}
}

// MockMailer logs deliveries instead of sending them. Used in development and
// when SMTP_MOCK is set.
type MockMailer struct{}

func NewMockMailer() Mailer {
	return &MockMailer{}
}

func (m *MockMailer) Deliver(_ context.Context, to, toName, subject, body string) (string, error) {
	if err := validateAddress(to); err != nil {
		return "", err
	}
	log.Printf("Email sent to %s <%s> [%s]: %s", toName, to, subject, body)
	return utils.DeliveredResponse, nil
}

func validateAddress(email string) error {
	if len(email) == 0 || !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address: %s", email)
	}
	return nil
}
