package handlers

import (
	"net/http"
	"strconv"

	"github.com/terralima/portalgo/internal/models"
	"github.com/terralima/portalgo/internal/services/quotes"
)

// quotePDF renders a quotation as a downloadable PDF
func (r *Router) quotePDF(w http.ResponseWriter, req *http.Request) {
	var quote models.LocalQuote
	if err := decodeJSON(req, &quote); err != nil {
		respondFailure(w, "quotes/pdf", err)
		return
	}

	pdf, err := quotes.GeneratePDF(quote)
	if err != nil {
		respondFailure(w, "quotes/pdf", err)
		return
	}

	fileName := "cotizacion"
	if quote.LotDefaultCode != "" {
		fileName = "cotizacion-" + quote.LotDefaultCode
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileName+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
