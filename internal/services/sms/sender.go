package sms

import (
	"fmt"
	"log"

	"github.com/terralima/portalgo/internal/config"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Sender delivers one SMS message
type Sender interface {
	Send(to, body string) error
}

// TwilioSender sends messages through the Twilio REST API
type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioSender builds a sender from Twilio credentials
func NewTwilioSender(cfg config.TwilioConfig) *TwilioSender {
	return &TwilioSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		}),
		from: cfg.FromNumber,
	}
}

func (s *TwilioSender) Send(to, body string) error {
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio send failed: %w", err)
	}
	return nil
}

// LogSender is the demo-mode sender: it only logs the message. Used when
// no Twilio credentials are configured.
type LogSender struct{}

func (LogSender) Send(to, body string) error {
	log.Printf("[SMS DEMO] to %s: %s", to, body)
	return nil
}

// NewSender picks the Twilio sender when credentials are present, the
// log-only sender otherwise.
func NewSender(cfg config.TwilioConfig) Sender {
	if cfg.AccountSID == "" {
		log.Println("TWILIO_ACCOUNT_SID not set, SMS running in demo mode")
		return LogSender{}
	}
	return NewTwilioSender(cfg)
}
