package handlers

import (
	"net/http"

	"github.com/terralima/portalgo/internal/services/odoo"
)

// searchRead proxies a raw search_read call. Domains arrive in Odoo's
// prefix notation and are forwarded as-is, the ERP reports malformed ones.
func (r *Router) searchRead(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Model  string      `json:"model"`
		Domain odoo.Domain `json:"domain"`
		Fields []string    `json:"fields"`
		Limit  int         `json:"limit"`
		Offset int         `json:"offset"`
		Order  string      `json:"order"`
	}
	if err := decodeJSON(req, &body); err != nil {
		respondFailure(w, "search-read", err)
		return
	}
	// An absent domain is rejected, an explicit empty one is allowed
	if body.Model == "" || body.Domain == nil {
		respondError(w, http.StatusBadRequest, "Model and domain are required")
		return
	}

	var records []map[string]interface{}
	opts := &odoo.Options{Limit: body.Limit, Offset: body.Offset, Order: body.Order}
	if err := r.rpc.SearchRead(req.Context(), body.Model, body.Domain, body.Fields, opts, &records); err != nil {
		respondFailure(w, "search-read", err)
		return
	}
	if records == nil {
		records = []map[string]interface{}{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
	})
}

// read proxies a raw read call for explicit record ids
func (r *Router) read(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Model  string   `json:"model"`
		IDs    []int64  `json:"ids"`
		Fields []string `json:"fields"`
	}
	if err := decodeJSON(req, &body); err != nil {
		respondFailure(w, "read", err)
		return
	}
	if body.Model == "" || len(body.IDs) == 0 {
		respondError(w, http.StatusBadRequest, "Model and ids are required")
		return
	}

	var records []map[string]interface{}
	if err := r.rpc.Read(req.Context(), body.Model, body.IDs, body.Fields, &records); err != nil {
		respondFailure(w, "read", err)
		return
	}
	if records == nil {
		records = []map[string]interface{}{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
	})
}

// call proxies an arbitrary model method
func (r *Router) call(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Model  string                 `json:"model"`
		Method string                 `json:"method"`
		Args   []interface{}          `json:"args"`
		Kwargs map[string]interface{} `json:"kwargs"`
	}
	if err := decodeJSON(req, &body); err != nil {
		respondFailure(w, "call", err)
		return
	}
	if body.Model == "" || body.Method == "" {
		respondError(w, http.StatusBadRequest, "Model and method are required")
		return
	}

	result, err := r.rpc.ExecuteKw(req.Context(), body.Model, body.Method, body.Args, body.Kwargs)
	if err != nil {
		respondFailure(w, "call", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"result": result,
	})
}
