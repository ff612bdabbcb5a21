package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/terralima/portalgo/internal/apperr"
	"github.com/terralima/portalgo/internal/config"
	"github.com/terralima/portalgo/internal/database"
	"github.com/terralima/portalgo/internal/middleware"
	"github.com/terralima/portalgo/internal/services/email"
	"github.com/terralima/portalgo/internal/services/niubiz"
	"github.com/terralima/portalgo/internal/services/odoo"
	"github.com/terralima/portalgo/internal/services/payments"
	"github.com/terralima/portalgo/internal/services/sms"
	"github.com/terralima/portalgo/internal/services/vouchers"
	"github.com/terralima/portalgo/internal/websocket"
)

// Deps are the services injected into the router
type Deps struct {
	Cfg      *config.Config
	RPC      odoo.RPC
	Payments *payments.Service
	Verifier *sms.Verifier
	Vouchers *vouchers.Service
	Niubiz   *niubiz.Client
	Mailer   *email.Service // nil disables outbound mail
	Hub      *websocket.Hub
	DB       *database.DB // nil when the database is disabled
}

// Router wraps the mux router and the injected services
type Router struct {
	*mux.Router
	cfg      *config.Config
	rpc      odoo.RPC
	payments *payments.Service
	verifier *sms.Verifier
	vouchers *vouchers.Service
	niubiz   *niubiz.Client
	mailer   *email.Service
	hub      *websocket.Hub
	db       *database.DB
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(deps Deps) *Router {
	r := &Router{
		Router:   mux.NewRouter(),
		cfg:      deps.Cfg,
		rpc:      deps.RPC,
		payments: deps.Payments,
		verifier: deps.Verifier,
		vouchers: deps.Vouchers,
		niubiz:   deps.Niubiz,
		mailer:   deps.Mailer,
		hub:      deps.Hub,
		db:       deps.DB,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Auth routes
	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.HandleFunc("/request-code", r.requestCode).Methods("POST")
	auth.HandleFunc("/verify-code", r.verifyCode).Methods("POST")
	auth.HandleFunc("/login", r.login).Methods("POST")

	// ERP proxy routes
	erp := r.PathPrefix("/api/odoo").Subrouter()
	erp.HandleFunc("/search-read", r.searchRead).Methods("POST")
	erp.HandleFunc("/read", r.read).Methods("POST")
	erp.HandleFunc("/call", r.call).Methods("POST")
	erp.HandleFunc("/products", r.listLots).Methods("GET")
	erp.HandleFunc("/product/{id}", r.getLot).Methods("GET")
	erp.HandleFunc("/create_partner", r.createPartner).Methods("POST")
	erp.HandleFunc("/search_partners", r.searchPartners).Methods("POST")
	erp.HandleFunc("/create_sale_order", r.createSaleOrder).Methods("POST")
	erp.HandleFunc("/confirm_order", r.confirmOrder).Methods("POST")
	erp.HandleFunc("/create_contract", r.createContract).Methods("POST")
	erp.HandleFunc("/update_status", r.updateStatus).Methods("POST")
	erp.HandleFunc("/add_attachment", r.addAttachment).Methods("POST")
	erp.HandleFunc("/search_product_by_code", r.searchProductByCode).Methods("POST")
	erp.HandleFunc("/find_draft_order", r.findDraftOrder).Methods("POST")
	erp.HandleFunc("/get_active_quotes", r.getActiveQuotes).Methods("POST")
	erp.HandleFunc("/get_reservation_owner", r.getReservationOwner).Methods("POST")
	erp.HandleFunc("/get_client_invoices", r.getClientInvoices).Methods("POST")
	erp.HandleFunc("/stats", r.salesStats).Methods("GET")

	// Customer routes (session required)
	invoices := r.PathPrefix("/api/invoices").Subrouter()
	invoices.Use(middleware.Auth(deps.Cfg.JWTSecret))
	invoices.HandleFunc("/pending", r.pendingInvoices).Methods("GET")
	invoices.HandleFunc("/history", r.paymentHistory).Methods("GET")

	vch := r.PathPrefix("/api/vouchers").Subrouter()
	vch.Use(middleware.Auth(deps.Cfg.JWTSecret))
	vch.HandleFunc("/upload", r.uploadVoucher).Methods("POST")
	vch.HandleFunc("/status", r.voucherStatus).Methods("GET")

	// Online card payments
	pay := r.PathPrefix("/api/payments/niubiz").Subrouter()
	pay.Use(middleware.Auth(deps.Cfg.JWTSecret))
	pay.HandleFunc("/create-session", r.niubizCreateSession).Methods("POST")
	pay.HandleFunc("/authorize", r.niubizAuthorize).Methods("POST")

	// Inbound webhooks
	r.HandleFunc("/api/webhooks/odoo", r.odooWebhook).Methods("POST")

	// Quote PDF export
	r.HandleFunc("/api/quotes/pdf", r.quotePDF).Methods("POST")

	// Live lot status updates
	if deps.Hub != nil {
		r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
			websocket.ServeWS(deps.Hub, w, req)
		})
	}

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	payload := map[string]interface{}{
		"status": "ok",
		"server": "terra-lima-portal",
	}
	if r.hub != nil {
		payload["viewers"] = r.hub.ClientCount()
	}
	respondJSON(w, http.StatusOK, payload)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// respondFailure logs the error and maps its kind to an HTTP status
func respondFailure(w http.ResponseWriter, route string, err error) {
	log.Printf("[%s] %v", route, err)
	respondError(w, apperr.StatusCode(err), apperr.UserMessage(err))
}

// decodeJSON parses a request body into dst
func decodeJSON(req *http.Request, dst interface{}) error {
	if err := json.NewDecoder(req.Body).Decode(dst); err != nil {
		return apperr.New(apperr.Validation, "Invalid request payload")
	}
	return nil
}
