package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/terralima/portalgo/internal/models"
	"github.com/terralima/portalgo/internal/services/odoo"
)

// createContract builds the recurring installment contract for a
// confirmed sale order. One contract per order; a second attempt is a
// conflict.
func (r *Router) createContract(w http.ResponseWriter, req *http.Request) {
	var body struct {
		SaleOrderID json.Number `json:"saleOrderId"`
	}
	if err := decodeJSON(req, &body); err != nil {
		respondFailure(w, "create_contract", err)
		return
	}
	orderID, err := body.SaleOrderID.Int64()
	if err != nil || orderID <= 0 {
		respondError(w, http.StatusBadRequest, "Missing saleOrderId")
		return
	}

	var orders []struct {
		ID               int64             `json:"id"`
		PartnerID        models.Many2One   `json:"partner_id"`
		OrderLine        []int64           `json:"order_line"`
		State            string            `json:"state"`
		PlazoMeses       models.OdooInt    `json:"x_plazo_meses"`
		DownPayment      models.OdooFloat  `json:"x_down_payment"`
		DiscountAmount   models.OdooFloat  `json:"x_discount_amount"`
		FirstInstallment models.OdooString `json:"x_date_first_installment"`
	}
	orderFields := []string{
		"id", "partner_id", "order_line", "state",
		"x_plazo_meses", "x_down_payment",
		"x_discount_amount", "x_date_first_installment",
	}
	orderDomain := odoo.Domain{odoo.C("id", "=", orderID)}
	if err := r.rpc.SearchRead(req.Context(), "sale.order", orderDomain, orderFields, &odoo.Options{Limit: 1}, &orders); err != nil {
		respondFailure(w, "create_contract", err)
		return
	}
	if len(orders) == 0 {
		respondError(w, http.StatusNotFound, fmt.Sprintf("Sale Order %d not found", orderID))
		return
	}

	order := orders[0]
	if order.State != "sale" {
		respondError(w, http.StatusBadRequest, `Order must be in "sale" state to create contract`)
		return
	}
	installments := order.PlazoMeses.Int64()
	if installments <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid installment plan (x_plazo_meses)")
		return
	}
	if len(order.OrderLine) == 0 {
		respondError(w, http.StatusBadRequest, "Sale Order has no products")
		return
	}

	var existing []struct {
		ID int64 `json:"id"`
	}
	existingDomain := odoo.Domain{odoo.C("sale_order_id", "=", orderID)}
	if err := r.rpc.SearchRead(req.Context(), "simple.contract", existingDomain, []string{"id"}, &odoo.Options{Limit: 1}, &existing); err != nil {
		respondFailure(w, "create_contract", err)
		return
	}
	if len(existing) > 0 {
		respondJSON(w, http.StatusConflict, map[string]interface{}{
			"success":            false,
			"error":              "Contract already exists for this order",
			"existingContractId": existing[0].ID,
		})
		return
	}

	var lines []struct {
		ProductID models.Many2One `json:"product_id"`
		PriceUnit float64         `json:"price_unit"`
	}
	lineDomain := odoo.Domain{odoo.C("id", "=", order.OrderLine[0])}
	if err := r.rpc.SearchRead(req.Context(), "sale.order.line", lineDomain, []string{"product_id", "price_unit"}, &odoo.Options{Limit: 1}, &lines); err != nil {
		respondFailure(w, "create_contract", err)
		return
	}
	if len(lines) == 0 {
		respondError(w, http.StatusNotFound, "Product line not found")
		return
	}

	listPrice := lines[0].PriceUnit
	netPrice := listPrice - order.DiscountAmount.Float64()
	financedAmount := netPrice - order.DownPayment.Float64()
	monthlyAmount := financedAmount / float64(installments)

	firstInstallment := order.FirstInstallment.String()
	if firstInstallment == "" {
		firstInstallment = time.Now().Format("2006-01-02")
	}

	contractID, err := r.rpc.Create(req.Context(), "simple.contract", map[string]interface{}{
		"partner_id":             order.PartnerID.ID,
		"product_id":             lines[0].ProductID.ID,
		"sale_order_id":          orderID,
		"list_price":             listPrice,
		"discount_amount":        order.DiscountAmount.Float64(),
		"down_payment":           order.DownPayment.Float64(),
		"total_quotas":           installments,
		"amount":                 monthlyAmount,
		"date_first_installment": firstInstallment,
		"interval_type":          "months",
	})
	if err != nil {
		respondFailure(w, "create_contract", err)
		return
	}

	// The chatter note is informational only, never blocks the contract
	noteBody := fmt.Sprintf("Contrato recurrente creado: #%d<br/>Cuotas: %d<br/>Mensualidad: S/ %.2f",
		contractID, installments, monthlyAmount)
	if _, err := r.rpc.Create(req.Context(), "mail.message", map[string]interface{}{
		"model":        "sale.order",
		"res_id":       orderID,
		"body":         noteBody,
		"message_type": "notification",
	}); err != nil {
		log.Printf("[create_contract] could not post order note: %v", err)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"contractId": contractID,
		"details": map[string]interface{}{
			"monthlyAmount":  monthlyAmount,
			"totalQuotas":    installments,
			"financedAmount": financedAmount,
		},
	})
}
