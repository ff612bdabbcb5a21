package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/terralima/portalgo/internal/middleware"
)

// niubizCreateSession opens a card-payment session for one of the
// customer's own pending invoices
func (r *Router) niubizCreateSession(w http.ResponseWriter, req *http.Request) {
	user, ok := middleware.SessionUser(req)
	if !ok {
		respondError(w, http.StatusUnauthorized, "No autenticado")
		return
	}

	var body struct {
		InvoiceID json.Number `json:"invoice_id"`
	}
	if err := decodeJSON(req, &body); err != nil {
		respondFailure(w, "niubiz/create-session", err)
		return
	}
	invoiceID, err := body.InvoiceID.Int64()
	if err != nil || invoiceID <= 0 {
		respondError(w, http.StatusBadRequest, "invoice_id requerido")
		return
	}

	if r.niubiz == nil || !r.niubiz.Configured() {
		respondError(w, http.StatusServiceUnavailable, "Pasarela de pago no configurada")
		return
	}

	invoice, err := r.payments.InvoiceByID(req.Context(), invoiceID)
	if err != nil {
		respondFailure(w, "niubiz/create-session", err)
		return
	}
	if invoice == nil {
		respondError(w, http.StatusNotFound, "Factura no encontrada")
		return
	}
	if invoice.PartnerID.ID != user.PartnerID {
		respondError(w, http.StatusForbidden, "No autorizado para pagar esta factura")
		return
	}

	reference := invoice.PaymentReference.String()
	sessionKey, err := r.niubiz.CreateSession(req.Context(), invoice.AmountResidual, reference, clientIP(req))
	if err != nil {
		respondFailure(w, "niubiz/create-session", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":          true,
		"sessionKey":       sessionKey,
		"merchantId":       r.niubiz.MerchantID,
		"amount":           invoice.AmountResidual,
		"paymentReference": reference,
		"invoice": map[string]interface{}{
			"id":       invoice.ID,
			"name":     invoice.Name,
			"due_date": invoice.InvoiceDateDue,
		},
	})
}

// niubizAuthorize captures the transaction after the customer entered
// card data, then registers the payment in the ERP. A gateway-approved
// payment that fails to register still reports success with a warning.
func (r *Router) niubizAuthorize(w http.ResponseWriter, req *http.Request) {
	user, ok := middleware.SessionUser(req)
	if !ok {
		respondError(w, http.StatusUnauthorized, "No autenticado")
		return
	}

	var body struct {
		TransactionToken string      `json:"transactionToken"`
		Amount           float64     `json:"amount"`
		PaymentReference string      `json:"paymentReference"`
		InvoiceID        json.Number `json:"invoiceId"`
	}
	if err := decodeJSON(req, &body); err != nil {
		respondFailure(w, "niubiz/authorize", err)
		return
	}
	invoiceID, _ := body.InvoiceID.Int64()
	if body.TransactionToken == "" || body.Amount <= 0 || body.PaymentReference == "" || invoiceID <= 0 {
		respondError(w, http.StatusBadRequest, "Parámetros incompletos")
		return
	}

	if r.niubiz == nil || !r.niubiz.Configured() {
		respondError(w, http.StatusServiceUnavailable, "Pasarela de pago no configurada")
		return
	}

	auth, err := r.niubiz.Authorize(req.Context(), body.TransactionToken, body.Amount, body.PaymentReference)
	if err != nil {
		respondFailure(w, "niubiz/authorize", err)
		return
	}
	if !auth.Approved() {
		message := auth.DataMap.ActionDescription
		if message == "" {
			message = "Transacción rechazada"
		}
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success":           false,
			"error":             message,
			"authorizationCode": auth.DataMap.ActionCode,
		})
		return
	}

	amount, err := auth.AmountSoles()
	if err != nil {
		amount = body.Amount
	}

	paymentID, err := r.registerCardPayment(req, user.PartnerID, amount, body.PaymentReference, invoiceID, auth.Order.TransactionID, auth.DataMap.Card, auth.DataMap.Brand)
	if err != nil {
		// The card was charged; the accounting entry can be redone by hand
		log.Printf("[niubiz/authorize] payment registration failed: %v", err)
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success":       true,
			"warning":       "Pago procesado pero error al registrar en el sistema contable.",
			"transactionId": auth.Order.TransactionID,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"transactionId": auth.Order.TransactionID,
		"paymentId":     paymentID,
	})
}

// registerCardPayment books and posts an inbound account.payment, then
// attempts automatic reconciliation against the invoice
func (r *Router) registerCardPayment(req *http.Request, partnerID int64, amount float64, reference string, invoiceID int64, transactionID, card, brand string) (int64, error) {
	paymentID, err := r.rpc.Create(req.Context(), "account.payment", map[string]interface{}{
		"payment_type":      "inbound",
		"partner_id":        partnerID,
		"amount":            amount,
		"date":              time.Now().Format("2006-01-02"),
		"ref":               reference,
		"journal_id":        r.cfg.Niubiz.JournalID,
		"payment_method_id": r.cfg.Niubiz.PaymentMethodID,
		"narration":         fmt.Sprintf("Niubiz Transaction: %s\nCard: %s\nBrand: %s", transactionID, card, brand),
	})
	if err != nil {
		return 0, err
	}

	if _, err := r.rpc.CallMethod(req.Context(), "account.payment", "action_post", []int64{paymentID}, nil); err != nil {
		return 0, err
	}

	// Reconciliation can always be done manually in the ERP
	if _, err := r.rpc.CallMethod(req.Context(), "account.move", "js_assign_outstanding_line", []int64{invoiceID}, nil); err != nil {
		log.Printf("[niubiz/authorize] auto-reconciliation failed: %v", err)
	}
	return paymentID, nil
}

// clientIP extracts the caller's address for the gateway's antifraud data
func clientIP(req *http.Request) string {
	if fwd := req.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}
