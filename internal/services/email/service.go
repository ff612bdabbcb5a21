package email

import (
	"fmt"
	"regexp"
)

// Service renders and sends the portal's email templates
type Service struct {
	sender Sender
}

func NewService(sender Sender) *Service {
	return &Service{sender: sender}
}

// SendVerificationCode mails a one-time login code to a customer
func (s *Service) SendVerificationCode(to, code string) error {
	html := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<div style="background: linear-gradient(135deg, #A145F5 0%%, #8D32DF 100%%); color: white; padding: 30px; text-align: center;">
				<h1 style="margin: 0;">Terra Lima</h1>
				<p style="margin: 10px 0 0 0;">Portal de Pagos</p>
			</div>
			<div style="background: #f9f9f9; padding: 30px;">
				<h2>C&oacute;digo de Verificaci&oacute;n</h2>
				<p>Hemos recibido una solicitud para acceder a tu portal de pagos.</p>
				<p>Ingresa el siguiente c&oacute;digo para continuar:</p>
				<div style="background: white; border: 2px solid #A145F5; border-radius: 8px; padding: 20px; text-align: center;">
					<span style="font-size: 32px; font-weight: bold; color: #A145F5; letter-spacing: 8px;">%s</span>
				</div>
				<p><strong>Este c&oacute;digo expira en 5 minutos.</strong></p>
				<p style="font-size: 14px; color: #666;">Si no solicitaste este c&oacute;digo, puedes ignorar este mensaje.</p>
			</div>
		</div>`, code)

	if err := s.sender.Send(to, "Tu código de verificación - Terra Lima", html); err != nil {
		return fmt.Errorf("error al enviar el código por email: %w", err)
	}
	return nil
}

// PaymentValidation carries the details of a confirmed payment
type PaymentValidation struct {
	To               string
	UserName         string
	Amount           float64
	InvoiceName      string
	PaymentReference string
	NextDueDate      string // already formatted, empty when unknown
}

// SendPaymentValidation mails a payment confirmation to the customer
func (s *Service) SendPaymentValidation(p PaymentValidation) error {
	nextDue := ""
	if p.NextDueDate != "" {
		nextDue = fmt.Sprintf(`<p>Tu pr&oacute;ximo vencimiento es el <strong>%s</strong>.</p>`, p.NextDueDate)
	}
	html := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<div style="background: linear-gradient(135deg, #A145F5 0%%, #8D32DF 100%%); color: white; padding: 30px; text-align: center;">
				<h1 style="margin: 0;">Terra Lima</h1>
				<p style="margin: 10px 0 0 0;">Pago Confirmado</p>
			</div>
			<div style="background: #f9f9f9; padding: 30px;">
				<p>Hola %s,</p>
				<p>Hemos validado tu pago de <strong>S/ %.2f</strong> por la factura <strong>%s</strong>.</p>
				<p>Referencia: %s</p>
				%s
				<p style="font-size: 14px; color: #666;">Gracias por tu puntualidad.</p>
			</div>
		</div>`, p.UserName, p.Amount, p.InvoiceName, p.PaymentReference, nextDue)

	if err := s.sender.Send(p.To, "Pago confirmado - Terra Lima", html); err != nil {
		return fmt.Errorf("error al enviar la confirmación de pago: %w", err)
	}
	return nil
}

var maskPattern = regexp.MustCompile(`(.{2}).*(@.*)`)

// Mask hides the local part of an address for display, keeping the first
// two characters and the domain (ju***@example.com). Addresses too short
// to mask come back unchanged.
func Mask(addr string) string {
	return maskPattern.ReplaceAllString(addr, "$1***$2")
}
