package handlers

import (
	"net/http"

	"github.com/terralima/portalgo/internal/services/odoo"
)

// orFalse converts an empty string to Odoo's false sentinel
func orFalse(s string) interface{} {
	if s == "" {
		return false
	}
	return s
}

// createPartner registers a new customer record
func (r *Router) createPartner(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Phone   string `json:"phone"`
		Vat     string `json:"vat"`
		Address string `json:"address"`
	}
	if err := decodeJSON(req, &body); err != nil {
		respondFailure(w, "create_partner", err)
		return
	}
	if body.Name == "" {
		respondError(w, http.StatusBadRequest, "El nombre es obligatorio")
		return
	}

	values := map[string]interface{}{
		"name":          body.Name,
		"email":         orFalse(body.Email),
		"phone":         orFalse(body.Phone),
		"mobile":        orFalse(body.Phone),
		"vat":           orFalse(body.Vat),
		"street":        orFalse(body.Address),
		"company_type":  "person",
		"customer_rank": 1,
	}

	id, err := r.rpc.Create(req.Context(), "res.partner", values)
	if err != nil {
		respondFailure(w, "create_partner", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"id":      id,
		"name":    body.Name,
	})
}

// searchPartners finds customers by name, email or tax id. An empty query
// short-circuits to an empty result without touching the ERP.
func (r *Router) searchPartners(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Query string `json:"query"`
	}
	if err := decodeJSON(req, &body); err != nil {
		respondFailure(w, "search_partners", err)
		return
	}
	if body.Query == "" {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"results": []interface{}{},
		})
		return
	}

	domain := odoo.Domain{odoo.C("active", "=", true)}
	domain = append(domain, odoo.Or(
		odoo.C("name", "ilike", body.Query),
		odoo.C("email", "ilike", body.Query),
		odoo.C("vat", "ilike", body.Query),
	)...)

	var results []map[string]interface{}
	fields := []string{"id", "name", "email", "phone", "mobile", "vat", "street"}
	opts := &odoo.Options{Limit: 10}
	if err := r.rpc.SearchRead(req.Context(), "res.partner", domain, fields, opts, &results); err != nil {
		respondFailure(w, "search_partners", err)
		return
	}
	if results == nil {
		results = []map[string]interface{}{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"results": results,
	})
}
