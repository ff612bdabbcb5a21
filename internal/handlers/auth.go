package handlers

import (
	"net/http"
	"regexp"

	"github.com/terralima/portalgo/internal/apperr"
	"github.com/terralima/portalgo/internal/models"
	"github.com/terralima/portalgo/internal/services/email"
	"github.com/terralima/portalgo/internal/services/odoo"
	"github.com/terralima/portalgo/internal/services/sms"
	"github.com/terralima/portalgo/internal/utils"
)

var dniPattern = regexp.MustCompile(`^\d{8}$`)

type authPartner struct {
	ID     int64             `json:"id"`
	Name   models.OdooString `json:"name"`
	Email  models.OdooString `json:"email"`
	Vat    models.OdooString `json:"vat"`
	Mobile models.OdooString `json:"mobile"`
	Phone  models.OdooString `json:"phone"`
}

// findPartnerByDNI looks up an active customer by tax id
func (r *Router) findPartnerByDNI(req *http.Request, dni string) (*authPartner, error) {
	var partners []authPartner
	domain := odoo.Domain{
		odoo.C("vat", "=", dni),
		odoo.C("active", "=", true),
	}
	fields := []string{"id", "name", "email", "vat", "mobile", "phone"}
	opts := &odoo.Options{Limit: 1}
	if err := r.rpc.SearchRead(req.Context(), "res.partner", domain, fields, opts, &partners); err != nil {
		return nil, err
	}
	if len(partners) == 0 {
		return nil, apperr.New(apperr.NotFound, "DNI no registrado")
	}
	return &partners[0], nil
}

// requestCode sends a one-time login code to the phone on file for a DNI
func (r *Router) requestCode(w http.ResponseWriter, req *http.Request) {
	var body struct {
		DNI string `json:"dni"`
	}
	if err := decodeJSON(req, &body); err != nil {
		respondFailure(w, "request-code", err)
		return
	}
	if !dniPattern.MatchString(body.DNI) {
		respondError(w, http.StatusBadRequest, "DNI inválido, debe tener 8 dígitos")
		return
	}

	partner, err := r.findPartnerByDNI(req, body.DNI)
	if err != nil {
		respondFailure(w, "request-code", err)
		return
	}

	phone := string(partner.Mobile)
	if phone == "" {
		phone = string(partner.Phone)
	}

	// SMS is the primary channel; email covers partners without a phone
	switch {
	case phone != "":
		if err := r.verifier.RequestCode(body.DNI, phone); err != nil {
			respondFailure(w, "request-code", err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success":     true,
			"maskedPhone": sms.MaskPhone(phone),
		})
	case partner.Email != "":
		if err := r.verifier.RequestCodeByEmail(body.DNI, string(partner.Email)); err != nil {
			respondFailure(w, "request-code", err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success":     true,
			"maskedEmail": email.Mask(string(partner.Email)),
		})
	default:
		respondError(w, http.StatusBadRequest, "No hay un teléfono ni email registrado para este DNI")
	}
}

// verifyCode checks a one-time code and issues a session token
func (r *Router) verifyCode(w http.ResponseWriter, req *http.Request) {
	var body struct {
		DNI  string `json:"dni"`
		Code string `json:"code"`
	}
	if err := decodeJSON(req, &body); err != nil {
		respondFailure(w, "verify-code", err)
		return
	}
	if !dniPattern.MatchString(body.DNI) {
		respondError(w, http.StatusBadRequest, "DNI inválido, debe tener 8 dígitos")
		return
	}
	if body.Code == "" {
		respondError(w, http.StatusBadRequest, "Código requerido")
		return
	}

	if err := r.verifier.Verify(body.DNI, body.Code); err != nil {
		respondFailure(w, "verify-code", err)
		return
	}

	partner, err := r.findPartnerByDNI(req, body.DNI)
	if err != nil {
		respondFailure(w, "verify-code", err)
		return
	}

	user := models.SessionUser{
		PartnerID: partner.ID,
		Name:      string(partner.Name),
		Email:     string(partner.Email),
		DNI:       body.DNI,
	}
	token, err := utils.GenerateSessionToken(user, r.cfg.JWTSecret)
	if err != nil {
		respondFailure(w, "verify-code", apperr.Wrap(apperr.Upstream, "Could not create session", err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
		"user": map[string]interface{}{
			"partnerId": partner.ID,
			"name":      string(partner.Name),
			"email":     string(partner.Email),
			"dni":       body.DNI,
		},
	})
}

// login authenticates an ERP user with username and password
func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(req, &body); err != nil {
		respondFailure(w, "login", err)
		return
	}
	if body.Username == "" || body.Password == "" {
		respondError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	info, err := r.rpc.SessionAuthenticate(req.Context(), body.Username, body.Password)
	if err != nil {
		respondFailure(w, "login", err)
		return
	}

	user := models.SessionUser{
		UID:       info.UID,
		PartnerID: info.PartnerID,
		Name:      info.Name,
	}
	token, err := utils.GenerateSessionToken(user, r.cfg.JWTSecret)
	if err != nil {
		respondFailure(w, "login", apperr.Wrap(apperr.Upstream, "Could not create session", err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
		"user": map[string]interface{}{
			"uid":       info.UID,
			"name":      info.Name,
			"username":  info.Username,
			"partnerId": info.PartnerID,
			"isSystem":  info.IsSystem,
		},
	})
}
