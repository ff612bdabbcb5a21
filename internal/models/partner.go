package models

// Partner represents a customer from Odoo (res.partner). No copy is
// persisted locally; every read re-fetches from the ERP.
type Partner struct {
	ID     int64      `json:"id"`
	Name   string     `json:"name"`
	Email  OdooString `json:"email"`
	Phone  OdooString `json:"phone"`
	Mobile OdooString `json:"mobile"`
	Vat    OdooString `json:"vat"` // DNI / RUC
	Street OdooString `json:"street"`
}

// SessionUser is the session payload issued after code verification or
// salesperson login
type SessionUser struct {
	UID       int64  `json:"uid,omitempty"`
	PartnerID int64  `json:"partnerId"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	DNI       string `json:"dni,omitempty"`
}
