package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/terralima/portalgo/internal/middleware"
	"github.com/terralima/portalgo/internal/services/payments"
)

// pendingInvoices lists the session customer's unpaid invoices, soonest
// due date first
func (r *Router) pendingInvoices(w http.ResponseWriter, req *http.Request) {
	user, ok := middleware.SessionUser(req)
	if !ok {
		respondError(w, http.StatusUnauthorized, "No autenticado")
		return
	}
	if user.PartnerID == 0 {
		respondError(w, http.StatusBadRequest, "Partner ID no encontrado en sesión")
		return
	}

	invoices, err := r.payments.PendingInvoices(req.Context(), user.PartnerID)
	if err != nil {
		respondFailure(w, "invoices/pending", err)
		return
	}
	payments.SortPendingByDueDate(invoices)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"count":    len(invoices),
		"invoices": invoices,
	})
}

// paymentHistory lists the session customer's settled invoices, most
// recent first
func (r *Router) paymentHistory(w http.ResponseWriter, req *http.Request) {
	user, ok := middleware.SessionUser(req)
	if !ok {
		respondError(w, http.StatusUnauthorized, "No autenticado")
		return
	}
	if user.PartnerID == 0 {
		respondError(w, http.StatusBadRequest, "Partner ID no encontrado en sesión")
		return
	}

	records, err := r.payments.PaymentHistory(req.Context(), user.PartnerID)
	if err != nil {
		respondFailure(w, "invoices/history", err)
		return
	}
	payments.SortPaymentsByDateDesc(records)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"count":    len(records),
		"payments": records,
	})
}

// getClientInvoices returns a partner's posted invoices for the seller
// console. Upstream failures answer 200 with success:false so the
// console degrades to an empty list instead of a network error.
func (r *Router) getClientInvoices(w http.ResponseWriter, req *http.Request) {
	var body struct {
		PartnerID json.Number `json:"partnerId"`
	}
	if err := decodeJSON(req, &body); err != nil {
		respondFailure(w, "get_client_invoices", err)
		return
	}
	partnerID, err := body.PartnerID.Int64()
	if err != nil || partnerID <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid partnerId")
		return
	}

	invoices, err := r.payments.ClientInvoices(req.Context(), partnerID)
	if err != nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success":  false,
			"error":    err.Error(),
			"invoices": []interface{}{},
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"invoices": invoices,
	})
}
