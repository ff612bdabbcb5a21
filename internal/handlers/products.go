package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/terralima/portalgo/internal/models"
	"github.com/terralima/portalgo/internal/services/odoo"
)

// listLots returns the lot catalog with optional filters. Filters combine
// by implicit AND, the free-text search is an OR over name and default_code.
func (r *Router) listLots(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()

	domain := odoo.Domain{odoo.C("active", "=", true)}
	if search := q.Get("search"); search != "" {
		domain = append(domain, odoo.Or(
			odoo.C("name", "ilike", search),
			odoo.C("default_code", "ilike", search),
		)...)
	}
	if etapa := q.Get("etapa"); etapa != "" {
		domain = append(domain, odoo.C("x_etapa", "=", etapa))
	}
	if manzana := q.Get("manzana"); manzana != "" {
		domain = append(domain, odoo.C("x_mz", "=", manzana))
	}
	if estado := q.Get("estado"); estado != "" {
		domain = append(domain, odoo.C("x_statu", "=", estado))
	}

	var lots []models.Lot
	opts := &odoo.Options{Limit: 2000}
	if err := r.rpc.SearchRead(req.Context(), "product.template", domain, models.LotFields, opts, &lots); err != nil {
		respondFailure(w, "products", err)
		return
	}
	if lots == nil {
		lots = []models.Lot{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(lots),
		"data":    lots,
	})
}

// getLot fetches a single lot by portal reference. "local-" and bare
// numeric ids resolve by id, "fb-" references resolve by default_code.
func (r *Router) getLot(w http.ResponseWriter, req *http.Request) {
	ref := mux.Vars(req)["id"]

	domain, err := odoo.ResolveProductRef(ref)
	if err != nil {
		respondFailure(w, "product", err)
		return
	}

	var lots []models.Lot
	opts := &odoo.Options{Limit: 1}
	if err := r.rpc.SearchRead(req.Context(), "product.template", domain, models.LotFields, opts, &lots); err != nil {
		respondFailure(w, "product", err)
		return
	}
	if len(lots) == 0 {
		respondError(w, http.StatusNotFound, "Lote no encontrado en Odoo")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"product": lots[0],
	})
}

// searchProductByCode resolves a default_code to the product template id,
// the id update_status writes to
func (r *Router) searchProductByCode(w http.ResponseWriter, req *http.Request) {
	var body struct {
		DefaultCode string `json:"defaultCode"`
	}
	if err := decodeJSON(req, &body); err != nil {
		respondFailure(w, "search_product_by_code", err)
		return
	}
	if body.DefaultCode == "" {
		respondError(w, http.StatusBadRequest, "Missing defaultCode")
		return
	}

	var products []struct {
		ID     int64       `json:"id"`
		TmplID interface{} `json:"product_tmpl_id"`
	}
	domain := odoo.Domain{odoo.C("default_code", "=", body.DefaultCode)}
	opts := &odoo.Options{Limit: 1}
	if err := r.rpc.SearchRead(req.Context(), "product.product", domain, []string{"id", "product_tmpl_id"}, opts, &products); err != nil {
		respondFailure(w, "search_product_by_code", err)
		return
	}
	if len(products) == 0 {
		respondError(w, http.StatusNotFound, "Product with code '"+body.DefaultCode+"' not found")
		return
	}

	tmplID, ok := odoo.Many2OneID(products[0].TmplID)
	if !ok {
		tmplID = products[0].ID
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"productId": tmplID,
	})
}

// updateStatus writes a new x_statu value on a product template and
// broadcasts the change to map viewers
func (r *Router) updateStatus(w http.ResponseWriter, req *http.Request) {
	var body struct {
		ProductID  int64   `json:"productId"`
		NewStatus  string  `json:"newStatus"`
		ClientName *string `json:"clientName"`
	}
	if err := decodeJSON(req, &body); err != nil {
		respondFailure(w, "update_status", err)
		return
	}
	if body.ProductID == 0 || body.NewStatus == "" {
		respondError(w, http.StatusBadRequest, "Missing productId or newStatus")
		return
	}

	erpStatus, ok := models.LotStatuses[body.NewStatus]
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	vals := map[string]interface{}{"x_statu": erpStatus}
	if body.ClientName != nil {
		vals["x_cliente"] = *body.ClientName
	}

	if err := r.rpc.Write(req.Context(), "product.template", []int64{body.ProductID}, vals); err != nil {
		respondFailure(w, "update_status", err)
		return
	}

	if r.hub != nil {
		clientName := ""
		if body.ClientName != nil {
			clientName = *body.ClientName
		}
		r.hub.BroadcastLotStatus(body.ProductID, erpStatus, clientName)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Status updated successfully",
	})
}
