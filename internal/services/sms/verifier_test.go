package sms

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/terralima/portalgo/internal/apperr"
	"github.com/terralima/portalgo/internal/models"
)

type recordingSender struct {
	to   string
	body string
}

func (r *recordingSender) Send(to, body string) error {
	r.to = to
	r.body = body
	return nil
}

func (r *recordingSender) code() string {
	parts := strings.Fields(r.body)
	return parts[len(parts)-1]
}

func newTestVerifier() (*Verifier, *recordingSender) {
	sender := &recordingSender{}
	return NewVerifier(NewMemoryStore(), sender), sender
}

func TestVerifyRoundTrip(t *testing.T) {
	v, sender := newTestVerifier()

	if err := v.RequestCode("12345678", "+51987654321"); err != nil {
		t.Fatalf("RequestCode failed: %v", err)
	}
	if sender.to != "+51987654321" {
		t.Errorf("code sent to %q", sender.to)
	}
	code := sender.code()
	if len(code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", code)
	}

	if err := v.Verify("12345678", code); err != nil {
		t.Fatalf("Verify failed with the delivered code: %v", err)
	}
}

func TestVerifyWrongCode(t *testing.T) {
	v, sender := newTestVerifier()
	if err := v.RequestCode("12345678", "+51987654321"); err != nil {
		t.Fatalf("RequestCode failed: %v", err)
	}

	wrong := "000000"
	if wrong == sender.code() {
		wrong = "000001"
	}
	err := v.Verify("12345678", wrong)
	if err == nil {
		t.Fatal("expected rejection of wrong code")
	}
	if apperr.StatusCode(err) != 401 {
		t.Errorf("wrong code should map to 401, got %d", apperr.StatusCode(err))
	}
}

func TestVerifySingleUse(t *testing.T) {
	v, sender := newTestVerifier()
	if err := v.RequestCode("12345678", "+51987654321"); err != nil {
		t.Fatalf("RequestCode failed: %v", err)
	}
	code := sender.code()

	if err := v.Verify("12345678", code); err != nil {
		t.Fatalf("first Verify failed: %v", err)
	}
	if err := v.Verify("12345678", code); err == nil {
		t.Fatal("a code must not verify twice")
	}
}

func TestVerifyExpiredCode(t *testing.T) {
	v, sender := newTestVerifier()
	if err := v.RequestCode("12345678", "+51987654321"); err != nil {
		t.Fatalf("RequestCode failed: %v", err)
	}

	// Jump past the TTL
	v.now = func() time.Time { return time.Now().Add(codeTTL + time.Minute) }

	if err := v.Verify("12345678", sender.code()); err == nil {
		t.Fatal("expected expired code to be rejected")
	}
}

func TestVerifyUnknownDNI(t *testing.T) {
	v, _ := newTestVerifier()
	if err := v.Verify("99999999", "123456"); err == nil {
		t.Fatal("expected rejection when no code was requested")
	}
}

func TestNewerCodeSupersedesOlder(t *testing.T) {
	v, sender := newTestVerifier()

	if err := v.RequestCode("12345678", "+51987654321"); err != nil {
		t.Fatalf("RequestCode failed: %v", err)
	}
	first := sender.code()

	if err := v.RequestCode("12345678", "+51987654321"); err != nil {
		t.Fatalf("second RequestCode failed: %v", err)
	}
	second := sender.code()

	if first != second {
		if err := v.Verify("12345678", first); err == nil {
			t.Error("the superseded code should no longer verify")
		}
	}
	if err := v.Verify("12345678", second); err != nil {
		t.Errorf("latest code should verify: %v", err)
	}
}

type recordingMailer struct {
	to   string
	code string
}

func (m *recordingMailer) SendVerificationCode(to, code string) error {
	m.to = to
	m.code = code
	return nil
}

func TestRequestCodeByEmailRoundTrip(t *testing.T) {
	mailer := &recordingMailer{}
	v := NewVerifier(NewMemoryStore(), &recordingSender{}).WithMailer(mailer)

	if err := v.RequestCodeByEmail("12345678", "juan@example.com"); err != nil {
		t.Fatalf("RequestCodeByEmail failed: %v", err)
	}
	if mailer.to != "juan@example.com" {
		t.Errorf("code mailed to %q", mailer.to)
	}
	if err := v.Verify("12345678", mailer.code); err != nil {
		t.Fatalf("Verify failed with the mailed code: %v", err)
	}
}

func TestRequestCodeByEmailWithoutMailer(t *testing.T) {
	v, _ := newTestVerifier()

	err := v.RequestCodeByEmail("12345678", "juan@example.com")
	if err == nil {
		t.Fatal("expected rejection when no mailer is configured")
	}
	if apperr.StatusCode(err) != 400 {
		t.Errorf("missing mailer should map to 400, got %d", apperr.StatusCode(err))
	}
}

// brokenStore simulates a database outage
type brokenStore struct{}

func (brokenStore) Save(*models.VerificationCode) error { return nil }
func (brokenStore) Latest(string) (*models.VerificationCode, error) {
	return nil, errors.New("connection refused")
}
func (brokenStore) MarkUsed(*models.VerificationCode) error { return nil }

func TestVerifyStoreFailureIsNotAuthRejection(t *testing.T) {
	v := NewVerifier(brokenStore{}, &recordingSender{})

	err := v.Verify("12345678", "123456")
	if err == nil {
		t.Fatal("expected an error when the store is down")
	}
	if apperr.StatusCode(err) == 401 {
		t.Error("a store failure must not surface as an invalid-code rejection")
	}
	if apperr.StatusCode(err) != 500 {
		t.Errorf("store failure should map to 500, got %d", apperr.StatusCode(err))
	}
}

func TestMaskPhone(t *testing.T) {
	tests := []struct{ in, want string }{
		{"+51987654321", "*********321"},
		{"987654321", "******321"},
		{"12", "12"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := MaskPhone(tt.in); got != tt.want {
			t.Errorf("MaskPhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
