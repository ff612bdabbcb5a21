package handlers

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/terralima/portalgo/internal/apperr"
	"github.com/terralima/portalgo/internal/models"
	"github.com/terralima/portalgo/internal/services/odoo"
	"github.com/terralima/portalgo/internal/services/vouchers"
)

// createSaleOrder creates a draft quotation for a lot
func (r *Router) createSaleOrder(w http.ResponseWriter, req *http.Request) {
	var body struct {
		PartnerID   int64   `json:"partnerId"`
		DefaultCode string  `json:"defaultCode"`
		Price       float64 `json:"price"`
		Notes       string  `json:"notes"`
	}
	if err := decodeJSON(req, &body); err != nil {
		respondFailure(w, "create_sale_order", err)
		return
	}
	if body.PartnerID == 0 || body.DefaultCode == "" || body.Price == 0 {
		respondError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	productID, err := r.productIDByCode(req, body.DefaultCode)
	if err != nil {
		respondFailure(w, "create_sale_order", err)
		return
	}

	orderData := map[string]interface{}{
		"partner_id": body.PartnerID,
		"state":      "draft",
		"note":       body.Notes,
		"order_line": []interface{}{
			[]interface{}{0, 0, map[string]interface{}{
				"product_id":      productID,
				"product_uom_qty": 1,
				"price_unit":      body.Price,
			}},
		},
	}

	orderID, err := r.rpc.Create(req.Context(), "sale.order", orderData)
	if err != nil {
		respondFailure(w, "create_sale_order", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"orderId": orderID,
	})
}

// confirmOrder moves a quotation from draft to sale. The order id is
// validated before anything is sent upstream, a non-numeric id is a 400.
func (r *Router) confirmOrder(w http.ResponseWriter, req *http.Request) {
	var body struct {
		OrderID json.Number `json:"orderId"`
	}
	if err := decodeJSON(req, &body); err != nil {
		respondFailure(w, "confirm_order", err)
		return
	}
	orderID, err := body.OrderID.Int64()
	if err != nil || orderID <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid orderId")
		return
	}

	if _, err := r.rpc.CallMethod(req.Context(), "sale.order", "action_confirm", []int64{orderID}, nil); err != nil {
		respondFailure(w, "confirm_order", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Order confirmed successfully",
	})
}

// addAttachment stores an uploaded payment proof against a sale order
func (r *Router) addAttachment(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseMultipartForm(vouchers.MaxFileSize); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart payload")
		return
	}

	orderID, err := strconv.ParseInt(req.FormValue("orderId"), 10, 64)
	if err != nil || orderID <= 0 {
		respondError(w, http.StatusBadRequest, "Missing orderId or file")
		return
	}

	file, header, err := req.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid file format. Expected binary file.")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, vouchers.MaxFileSize+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Could not read uploaded file")
		return
	}
	if int64(len(data)) > vouchers.MaxFileSize {
		respondError(w, http.StatusBadRequest, "File exceeds the 5MB limit")
		return
	}

	attachment := map[string]interface{}{
		"name":        vouchers.SanitizeFileName(header.Filename),
		"type":        "binary",
		"datas":       base64.StdEncoding.EncodeToString(data),
		"res_model":   "sale.order",
		"res_id":      orderID,
		"description": "Comprobante de pago - Reserva",
	}

	attachmentID, err := r.rpc.Create(req.Context(), "ir.attachment", attachment)
	if err != nil {
		respondFailure(w, "add_attachment", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"attachmentId": attachmentID,
	})
}

// findDraftOrder returns the latest draft or sent quotation holding a lot
func (r *Router) findDraftOrder(w http.ResponseWriter, req *http.Request) {
	var body struct {
		DefaultCode string `json:"defaultCode"`
	}
	if err := decodeJSON(req, &body); err != nil {
		respondFailure(w, "find_draft_order", err)
		return
	}
	if body.DefaultCode == "" {
		respondError(w, http.StatusBadRequest, "Missing defaultCode")
		return
	}

	productID, err := r.productIDByCode(req, body.DefaultCode)
	if err != nil {
		respondFailure(w, "find_draft_order", err)
		return
	}

	var orders []struct {
		ID          int64             `json:"id"`
		PartnerID   models.Many2One   `json:"partner_id"`
		AmountTotal float64           `json:"amount_total"`
		DateOrder   models.OdooString `json:"date_order"`
	}
	domain := odoo.Domain{
		odoo.C("state", "in", []string{"draft", "sent"}),
		odoo.C("order_line.product_id", "=", productID),
	}
	fields := []string{"id", "partner_id", "amount_total", "date_order"}
	opts := &odoo.Options{Limit: 1, Order: "date_order desc"}
	if err := r.rpc.SearchRead(req.Context(), "sale.order", domain, fields, opts, &orders); err != nil {
		respondFailure(w, "find_draft_order", err)
		return
	}
	if len(orders) == 0 {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"order":   nil,
		})
		return
	}

	order := orders[0]
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"order": map[string]interface{}{
			"id":          order.ID,
			"partnerId":   order.PartnerID.ID,
			"partnerName": order.PartnerID.Name,
			"amount":      order.AmountTotal,
			"productId":   productID,
		},
	})
}

// getActiveQuotes lists the draft quotations touching a lot so sellers
// can see competing reservations
func (r *Router) getActiveQuotes(w http.ResponseWriter, req *http.Request) {
	var body struct {
		DefaultCode string `json:"defaultCode"`
	}
	if err := decodeJSON(req, &body); err != nil {
		respondFailure(w, "get_active_quotes", err)
		return
	}
	if body.DefaultCode == "" {
		respondError(w, http.StatusBadRequest, "Missing defaultCode")
		return
	}

	productID, err := r.productIDByCode(req, body.DefaultCode)
	if err != nil {
		// An unknown lot simply has no quotes
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"quotes":  []interface{}{},
		})
		return
	}

	var lines []struct {
		OrderID models.Many2One `json:"order_id"`
	}
	lineDomain := odoo.Domain{odoo.C("product_id", "=", productID)}
	if err := r.rpc.SearchRead(req.Context(), "sale.order.line", lineDomain, []string{"order_id", "product_uom_qty", "price_unit"}, nil, &lines); err != nil {
		respondFailure(w, "get_active_quotes", err)
		return
	}

	seen := map[int64]bool{}
	orderIDs := []int64{}
	for _, line := range lines {
		if line.OrderID.ID != 0 && !seen[line.OrderID.ID] {
			seen[line.OrderID.ID] = true
			orderIDs = append(orderIDs, line.OrderID.ID)
		}
	}
	if len(orderIDs) == 0 {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"quotes":  []interface{}{},
		})
		return
	}

	var orders []struct {
		ID          int64             `json:"id"`
		Name        string            `json:"name"`
		PartnerID   models.Many2One   `json:"partner_id"`
		UserID      models.Many2One   `json:"user_id"`
		CreateDate  models.OdooString `json:"create_date"`
		AmountTotal float64           `json:"amount_total"`
	}
	orderDomain := odoo.Domain{
		odoo.C("id", "in", orderIDs),
		odoo.C("state", "=", "draft"),
	}
	fields := []string{"id", "name", "partner_id", "user_id", "create_date", "amount_total"}
	if err := r.rpc.SearchRead(req.Context(), "sale.order", orderDomain, fields, nil, &orders); err != nil {
		respondFailure(w, "get_active_quotes", err)
		return
	}

	quotes := make([]map[string]interface{}, 0, len(orders))
	for _, order := range orders {
		clientName := order.PartnerID.Name
		if clientName == "" {
			clientName = "Cliente Desconocido"
		}
		vendorName := order.UserID.Name
		if vendorName == "" {
			vendorName = "Vendedor Desconocido"
		}
		quotes = append(quotes, map[string]interface{}{
			"orderId":    order.ID,
			"orderName":  order.Name,
			"clientName": clientName,
			"vendorName": vendorName,
			"createdAt":  order.CreateDate,
			"amount":     order.AmountTotal,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"quotes":  quotes,
	})
}

// defaultInstallments is assumed when a confirmed order carries no
// x_plazo_meses value
const defaultInstallments = 72

// getReservationOwner reports which salesperson holds the confirmed
// reservation of a lot
func (r *Router) getReservationOwner(w http.ResponseWriter, req *http.Request) {
	var body struct {
		DefaultCode string `json:"defaultCode"`
		ProductID   int64  `json:"productId"`
	}
	if err := decodeJSON(req, &body); err != nil {
		respondFailure(w, "get_reservation_owner", err)
		return
	}
	if body.DefaultCode == "" && body.ProductID == 0 {
		respondError(w, http.StatusBadRequest, "Missing identifier")
		return
	}

	productID := body.ProductID
	if productID == 0 {
		id, err := r.productIDByCode(req, body.DefaultCode)
		if err != nil {
			respondFailure(w, "get_reservation_owner", err)
			return
		}
		productID = id
	}

	var orders []struct {
		UserID     models.Many2One   `json:"user_id"`
		PartnerID  models.Many2One   `json:"partner_id"`
		DateOrder  models.OdooString `json:"date_order"`
		PlazoMeses models.OdooInt    `json:"x_plazo_meses"`
	}
	domain := odoo.Domain{
		odoo.C("state", "=", "sale"),
		odoo.C("order_line.product_id", "=", productID),
	}
	fields := []string{"user_id", "partner_id", "date_order", "x_plazo_meses"}
	opts := &odoo.Options{Limit: 1, Order: "date_order desc"}
	if err := r.rpc.SearchRead(req.Context(), "sale.order", domain, fields, opts, &orders); err != nil {
		respondFailure(w, "get_reservation_owner", err)
		return
	}
	if len(orders) == 0 {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"ownerId": nil,
		})
		return
	}

	order := orders[0]
	installments := int64(defaultInstallments)
	if n := order.PlazoMeses.Int64(); n > 0 {
		installments = n
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":           true,
		"ownerId":           order.UserID.ID,
		"ownerName":         order.UserID.Name,
		"partnerId":         order.PartnerID.ID,
		"clientName":        order.PartnerID.Name,
		"totalInstallments": installments,
		"orderDate":         order.DateOrder,
	})
}

// salesStats summarizes a salesperson's confirmed sales
func (r *Router) salesStats(w http.ResponseWriter, req *http.Request) {
	userID, err := strconv.ParseInt(req.URL.Query().Get("userId"), 10, 64)
	if err != nil || userID <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid userId parameter")
		return
	}

	domain := odoo.Domain{
		odoo.C("user_id", "=", userID),
		odoo.C("state", "in", []string{"sale", "done"}),
	}

	sold, err := r.rpc.SearchCount(req.Context(), "sale.order", domain)
	if err != nil {
		respondFailure(w, "stats", err)
		return
	}

	groups, err := r.rpc.ReadGroup(req.Context(), "sale.order", domain, []string{"amount_total"}, []string{"user_id"})
	if err != nil {
		respondFailure(w, "stats", err)
		return
	}

	totalValue := 0.0
	if len(groups) > 0 {
		if v, ok := groups[0]["amount_total"].(float64); ok {
			totalValue = v
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stats": map[string]interface{}{
			"sold":       sold,
			"reserved":   0,
			"totalValue": totalValue,
		},
	})
}

// productIDByCode resolves a default_code to the product.product id
func (r *Router) productIDByCode(req *http.Request, defaultCode string) (int64, error) {
	var products []struct {
		ID int64 `json:"id"`
	}
	domain := odoo.Domain{odoo.C("default_code", "=", defaultCode)}
	opts := &odoo.Options{Limit: 1}
	if err := r.rpc.SearchRead(req.Context(), "product.product", domain, []string{"id"}, opts, &products); err != nil {
		return 0, err
	}
	if len(products) == 0 {
		return 0, apperr.New(apperr.NotFound, "Product with code '"+defaultCode+"' not found in Odoo")
	}
	return products[0].ID, nil
}
