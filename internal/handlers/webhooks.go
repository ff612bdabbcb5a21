package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/terralima/portalgo/internal/models"
	"github.com/terralima/portalgo/internal/services/email"
	"gorm.io/datatypes"
)

// odooWebhook receives ERP push events. Only payment_validated is
// understood today, the raw payload is persisted for auditing either way.
func (r *Router) odooWebhook(w http.ResponseWriter, req *http.Request) {
	var body struct {
		InvoiceID int64  `json:"invoice_id"`
		Event     string `json:"event"`
		Secret    string `json:"secret"`
	}
	raw := json.RawMessage{}
	if err := json.NewDecoder(req.Body).Decode(&raw); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	if r.cfg.Webhook.OdooSecret == "" {
		log.Println("[webhook] ODOO_WEBHOOK_SECRET not configured, rejecting event")
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"success": false,
			"message": "Webhook not configured",
		})
		return
	}
	if body.Secret != r.cfg.Webhook.OdooSecret {
		log.Println("[webhook] unauthorized webhook attempt")
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if body.InvoiceID == 0 || body.Event != "payment_validated" {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid payload",
		})
		return
	}

	invoice, err := r.payments.InvoiceByID(req.Context(), body.InvoiceID)
	if err != nil {
		respondFailure(w, "webhooks/odoo", err)
		return
	}
	if invoice == nil {
		respondJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"message": "Invoice not found",
		})
		return
	}

	if r.db != nil {
		event := models.WebhookEvent{
			ID:        uuid.New().String(),
			Event:     body.Event,
			InvoiceID: body.InvoiceID,
			Payload:   datatypes.JSON(raw),
			CreatedAt: time.Now(),
		}
		if err := r.db.Create(&event).Error; err != nil {
			log.Printf("[webhook] could not persist event: %v", err)
		}
	}

	if r.hub != nil {
		r.hub.BroadcastPaymentValidated(body.InvoiceID)
	}

	message := "Payment validation processed"
	if addr := r.sendPaymentConfirmation(req, invoice); addr != "" {
		message = "Email de confirmación enviado a " + addr
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": message,
		"invoice": invoice.Name,
	})
}

// sendPaymentConfirmation mails the customer after the ERP validated a
// payment. Delivery is best effort; the webhook never fails because of
// it. Returns the address on success, empty otherwise.
func (r *Router) sendPaymentConfirmation(req *http.Request, invoice *models.PendingInvoice) string {
	if r.mailer == nil || invoice.PartnerID.ID == 0 {
		return ""
	}

	var partners []struct {
		Name  models.OdooString `json:"name"`
		Email models.OdooString `json:"email"`
	}
	if err := r.rpc.Read(req.Context(), "res.partner", []int64{invoice.PartnerID.ID}, []string{"name", "email"}, &partners); err != nil {
		log.Printf("[webhook] could not read partner %d: %v", invoice.PartnerID.ID, err)
		return ""
	}
	if len(partners) == 0 || partners[0].Email.String() == "" {
		log.Printf("[webhook] partner %q has no email on file", invoice.PartnerID.Name)
		return ""
	}

	// Tell the customer when the next installment is due, if any
	nextDueDate := ""
	if pending, err := r.payments.PendingInvoices(req.Context(), invoice.PartnerID.ID); err == nil {
		for _, inv := range pending {
			if inv.ID != invoice.ID {
				nextDueDate = formatSpanishDate(inv.InvoiceDateDue.String())
				break
			}
		}
	}

	to := partners[0].Email.String()
	err := r.mailer.SendPaymentValidation(email.PaymentValidation{
		To:               to,
		UserName:         partners[0].Name.String(),
		Amount:           invoice.AmountTotal,
		InvoiceName:      invoice.Name,
		PaymentReference: invoice.PaymentReference.String(),
		NextDueDate:      nextDueDate,
	})
	if err != nil {
		log.Printf("[webhook] email delivery failed: %v", err)
		return ""
	}
	return to
}

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// formatSpanishDate renders an ERP date as "15 de marzo de 2026".
// Unparseable values come back as-is.
func formatSpanishDate(s string) string {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		if t, err = time.Parse("2006-01-02 15:04:05", s); err != nil {
			return s
		}
	}
	return fmt.Sprintf("%02d de %s de %d", t.Day(), spanishMonths[t.Month()-1], t.Year())
}
