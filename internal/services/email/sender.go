// Package email sends the portal's transactional mail through Resend:
// login codes for customers without a phone on file and payment
// confirmations pushed from the ERP.
package email

import (
	"fmt"
	"log"

	"github.com/resend/resend-go/v2"
	"github.com/terralima/portalgo/internal/config"
)

// Sender delivers one HTML email
type Sender interface {
	Send(to, subject, html string) error
}

// ResendSender sends messages through the Resend REST API
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender builds a sender from a Resend API key
func NewResendSender(cfg config.EmailConfig) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(cfg.ResendAPIKey),
		from:   cfg.From,
	}
}

func (s *ResendSender) Send(to, subject, html string) error {
	_, err := s.client.Emails.Send(&resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("resend send failed: %w", err)
	}
	return nil
}

// LogSender is the demo-mode sender: it only logs the message. Used when
// no Resend API key is configured.
type LogSender struct{}

func (LogSender) Send(to, subject, html string) error {
	log.Printf("[EMAIL DEMO] to %s: %s", to, subject)
	return nil
}

// NewSender picks the Resend sender when an API key is present, the
// log-only sender otherwise.
func NewSender(cfg config.EmailConfig) Sender {
	if cfg.ResendAPIKey == "" {
		log.Println("RESEND_API_KEY not set, email running in demo mode")
		return LogSender{}
	}
	return NewResendSender(cfg)
}
