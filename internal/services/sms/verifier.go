// Package sms implements the DNI login flow's one-time codes: generation,
// delivery over Twilio, and single-use verification.
package sms

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/terralima/portalgo/internal/apperr"
	"github.com/terralima/portalgo/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const codeTTL = 5 * time.Minute

// CodeMailer delivers a one-time code by email. Satisfied by the email
// service.
type CodeMailer interface {
	SendVerificationCode(to, code string) error
}

// Verifier issues and checks one-time verification codes
type Verifier struct {
	store  CodeStore
	sender Sender
	mailer CodeMailer // optional, enables the email channel
	now    func() time.Time
}

func NewVerifier(store CodeStore, sender Sender) *Verifier {
	return &Verifier{store: store, sender: sender, now: time.Now}
}

// WithMailer enables code delivery by email for customers who have no
// phone on file
func (v *Verifier) WithMailer(mailer CodeMailer) *Verifier {
	v.mailer = mailer
	return v
}

// RequestCode generates a 6-digit code, stores its hash and sends it to
// the customer's phone. Codes expire after five minutes.
func (v *Verifier) RequestCode(dni, phone string) error {
	return v.issue(dni, phone, func(code string) error {
		body := fmt.Sprintf("Tu codigo Terra Lima es %s", code)
		if err := v.sender.Send(phone, body); err != nil {
			return apperr.Wrap(apperr.Upstream, "SMS delivery failed", err)
		}
		return nil
	})
}

// RequestCodeByEmail is the fallback channel for customers without a
// phone on file
func (v *Verifier) RequestCodeByEmail(dni, email string) error {
	if v.mailer == nil {
		return apperr.New(apperr.Validation, "Envío de códigos por email no disponible")
	}
	return v.issue(dni, email, func(code string) error {
		if err := v.mailer.SendVerificationCode(email, code); err != nil {
			return apperr.Wrap(apperr.Upstream, "email delivery failed", err)
		}
		return nil
	})
}

// issue stores a fresh hashed code for the DNI and hands it to deliver
func (v *Verifier) issue(dni, destination string, deliver func(code string) error) error {
	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), 10)
	if err != nil {
		return fmt.Errorf("failed to hash code: %w", err)
	}

	record := &models.VerificationCode{
		DNI:         dni,
		CodeHash:    string(hash),
		Destination: destination,
		CreatedAt:   v.now(),
		ExpiresAt:   v.now().Add(codeTTL),
	}
	if err := v.store.Save(record); err != nil {
		return fmt.Errorf("failed to store code: %w", err)
	}

	return deliver(code)
}

// Verify checks a submitted code against the latest one issued for the
// DNI. A code is valid exactly once and only within its TTL.
func (v *Verifier) Verify(dni, code string) error {
	stored, err := v.store.Latest(dni)
	if err != nil {
		return fmt.Errorf("failed to load code: %w", err)
	}
	if stored == nil || stored.Used || v.now().After(stored.ExpiresAt) {
		return apperr.New(apperr.Auth, "Código inválido o expirado")
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.CodeHash), []byte(code)) != nil {
		return apperr.New(apperr.Auth, "Código inválido o expirado")
	}
	return v.store.MarkUsed(stored)
}

// generateCode returns a random 6-digit numeric code
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// MaskPhone hides all but the last three digits for display
func MaskPhone(phone string) string {
	digits := strings.TrimSpace(phone)
	if len(digits) <= 3 {
		return digits
	}
	return strings.Repeat("*", len(digits)-3) + digits[len(digits)-3:]
}
