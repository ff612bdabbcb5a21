// Package quotes renders local quotations to PDF. Quotes live in the
// salesperson's browser; the server only formats them for printing.
package quotes

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
	"github.com/terralima/portalgo/internal/apperr"
	"github.com/terralima/portalgo/internal/models"
)

// GeneratePDF renders one quotation as an A4 PDF. The QR code carries the
// lot code so field staff can pull the lot up on the map by scanning it.
func GeneratePDF(q models.LocalQuote) ([]byte, error) {
	if q.LotName == "" {
		return nil, apperr.New(apperr.Validation, "missing lot name")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, "TERRA LIMA", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, "Cotizacion de Lote", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// Lot block
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Lote: %s", q.LotName), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	if q.LotDefaultCode != "" {
		pdf.CellFormat(0, 6, fmt.Sprintf("Codigo: %s", q.LotDefaultCode), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, fmt.Sprintf("Vendedor: %s", q.VendorName), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Fecha: %s", formatDate(q.CreatedAt)), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	// Client block
	if q.ClientData != nil {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 7, "Cliente", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, q.ClientData.Name, "", 1, "L", false, 0, "")
		if q.ClientData.Vat != "" {
			pdf.CellFormat(0, 6, fmt.Sprintf("DNI/RUC: %s", q.ClientData.Vat), "", 1, "L", false, 0, "")
		}
		if q.ClientData.Phone != "" {
			pdf.CellFormat(0, 6, fmt.Sprintf("Telefono: %s", q.ClientData.Phone), "", 1, "L", false, 0, "")
		}
		pdf.Ln(3)
	}

	// Terms table
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 7, "Condiciones de pago", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)

	rows := [][2]string{
		{"Precio de lista", money(q.Terms.OriginalPrice)},
		{"Descuento", fmt.Sprintf("%.1f%% (%s)", q.Terms.DiscountPercent, money(q.Terms.DiscountAmount))},
		{"Precio final", money(q.Terms.DiscountedPrice)},
		{"Cuota inicial", money(q.Terms.InitialPayment)},
		{"Saldo a financiar", money(q.Terms.RemainingBalance)},
		{"Cuotas", fmt.Sprintf("%d x %s", q.Terms.NumInstallments, money(q.Terms.MonthlyInstallment))},
		{"Inicio de pagos", formatDate(q.Terms.StartDate)},
	}
	for _, row := range rows {
		pdf.CellFormat(70, 7, row[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 7, row[1], "1", 1, "R", false, 0, "")
	}

	// QR with the lot code, bottom right
	if q.LotDefaultCode != "" {
		qrPng, err := qrcode.Encode(q.LotDefaultCode, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("failed to encode QR: %w", err)
		}
		opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
		pdf.RegisterImageOptionsReader("lot_qr", opts, bytes.NewReader(qrPng))
		pdf.ImageOptions("lot_qr", 160, 240, 32, 32, false, opts, 0, "")
		pdf.SetXY(160, 273)
		pdf.SetFontSize(7)
		pdf.CellFormat(32, 4, q.LotDefaultCode, "", 0, "C", false, 0, "")
	}

	// Footer
	pdf.SetY(252)
	pdf.SetFont("Arial", "I", 8)
	pdf.MultiCell(130, 4,
		"Cotizacion referencial, sujeta a disponibilidad del lote y aprobacion de Terra Lima. "+
			"Validez: 7 dias calendario.", "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func money(v float64) string {
	return fmt.Sprintf("S/ %.2f", v)
}

func formatDate(iso string) string {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, iso); err == nil {
			return t.Format("02/01/2006")
		}
	}
	return iso
}
