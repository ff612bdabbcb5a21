package email

import (
	"strings"
	"testing"
)

type recordingSender struct {
	to      string
	subject string
	html    string
}

func (r *recordingSender) Send(to, subject, html string) error {
	r.to = to
	r.subject = subject
	r.html = html
	return nil
}

func TestSendVerificationCode(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender)

	if err := svc.SendVerificationCode("juan@example.com", "123456"); err != nil {
		t.Fatalf("SendVerificationCode failed: %v", err)
	}
	if sender.to != "juan@example.com" {
		t.Errorf("sent to %q", sender.to)
	}
	if !strings.Contains(sender.html, "123456") {
		t.Error("the code must appear in the message body")
	}
}

func TestSendPaymentValidation(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender)

	err := svc.SendPaymentValidation(PaymentValidation{
		To:               "juan@example.com",
		UserName:         "Juan Perez",
		Amount:           1500.50,
		InvoiceName:      "F001-42",
		PaymentReference: "E01MZQ102P-C005-20260130",
		NextDueDate:      "15 de marzo de 2026",
	})
	if err != nil {
		t.Fatalf("SendPaymentValidation failed: %v", err)
	}
	for _, want := range []string{"Juan Perez", "1500.50", "F001-42", "15 de marzo de 2026"} {
		if !strings.Contains(sender.html, want) {
			t.Errorf("message body missing %q", want)
		}
	}
}

func TestSendPaymentValidationOmitsUnknownDueDate(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender)

	if err := svc.SendPaymentValidation(PaymentValidation{To: "a@b.com", UserName: "X"}); err != nil {
		t.Fatalf("SendPaymentValidation failed: %v", err)
	}
	if strings.Contains(sender.html, "vencimiento") {
		t.Error("due-date paragraph should be absent when the date is unknown")
	}
}

func TestMask(t *testing.T) {
	tests := []struct{ in, want string }{
		{"juan@example.com", "ju***@example.com"},
		{"ab@x.pe", "ab***@x.pe"},
		{"a@b.c", "a@b.c"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Mask(tt.in); got != tt.want {
			t.Errorf("Mask(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
