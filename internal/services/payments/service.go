// Package payments reads a customer's invoice and payment state from the
// ERP: pending installments, payment history, and the review status of
// uploaded bank-transfer vouchers.
package payments

import (
	"context"
	"log"
	"regexp"
	"sort"
	"time"

	"github.com/terralima/portalgo/internal/models"
	"github.com/terralima/portalgo/internal/services/odoo"
)

var pendingInvoiceFields = []string{
	"name",
	"payment_reference",
	"amount_total",
	"amount_residual",
	"invoice_date_due",
	"payment_state",
	"state",
	"partner_id",
}

// Service fetches invoice/payment records for the portal
type Service struct {
	rpc odoo.RPC
}

func NewService(rpc odoo.RPC) *Service {
	return &Service{rpc: rpc}
}

// PendingInvoices returns the posted, unpaid customer invoices of a
// partner, each annotated with its lot reference and the status of the
// most recent voucher submitted against it.
func (s *Service) PendingInvoices(ctx context.Context, partnerID int64) ([]models.PendingInvoice, error) {
	domain := odoo.Domain{
		odoo.C("partner_id", "=", partnerID),
		odoo.C("move_type", "=", "out_invoice"),
		odoo.C("state", "=", "posted"),
		odoo.C("payment_state", "!=", "paid"),
	}

	var invoices []models.PendingInvoice
	if err := s.rpc.SearchRead(ctx, "account.move", domain, pendingInvoiceFields, nil, &invoices); err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return []models.PendingInvoice{}, nil
	}

	ids := make([]int64, len(invoices))
	for i, inv := range invoices {
		ids[i] = inv.ID
	}
	voucherMap := s.latestVouchers(ctx, ids)

	for i := range invoices {
		invoices[i].LotInfo = ParsePaymentReference(invoices[i].PaymentReference.String())
		if v, ok := voucherMap[invoices[i].ID]; ok {
			invoices[i].VoucherStatus = v
		}
	}
	return invoices, nil
}

type voucherRow struct {
	ResID       models.Many2One   `json:"res_id"`
	Status      models.OdooString `json:"x_voucher_status"`
	SubmittedAt models.OdooString `json:"x_voucher_submitted_at"`
	Amount      float64           `json:"x_voucher_amount"`
}

type fallbackVoucherRow struct {
	ResID      models.Many2One   `json:"res_id"`
	CreateDate models.OdooString `json:"create_date"`
}

// latestVouchers maps invoice id -> most recent voucher state. When the
// custom x_voucher_* fields are not installed in the ERP it falls back to
// matching attachments by description.
func (s *Service) latestVouchers(ctx context.Context, invoiceIDs []int64) map[int64]*models.VoucherState {
	domain := odoo.Domain{
		odoo.C("res_model", "=", "account.move"),
		odoo.C("res_id", "in", invoiceIDs),
		odoo.C("x_voucher_status", "!=", false),
	}

	var rows []voucherRow
	err := s.rpc.SearchRead(ctx, "ir.attachment", domain,
		[]string{"res_id", "x_voucher_status", "x_voucher_submitted_at", "x_voucher_amount"}, nil, &rows)
	if err != nil {
		log.Printf("[PAYMENT] x_voucher_* fields unavailable, using description fallback: %v", err)
		fallbackDomain := odoo.Domain{
			odoo.C("res_model", "=", "account.move"),
			odoo.C("res_id", "in", invoiceIDs),
			odoo.C("description", "ilike", "Comprobante de transferencia%"),
		}
		var fallback []fallbackVoucherRow
		if err := s.rpc.SearchRead(ctx, "ir.attachment", fallbackDomain,
			[]string{"res_id", "description", "create_date"},
			&odoo.Options{Order: "create_date desc"}, &fallback); err != nil {
			return map[int64]*models.VoucherState{}
		}
		rows = rows[:0]
		for _, f := range fallback {
			rows = append(rows, voucherRow{
				ResID:       f.ResID,
				Status:      "pending",
				SubmittedAt: f.CreateDate,
			})
		}
	}

	// Keep only the most recent voucher per invoice
	out := make(map[int64]*models.VoucherState)
	for _, row := range rows {
		state := &models.VoucherState{
			Status:      orDefault(row.Status.String(), "pending"),
			SubmittedAt: row.SubmittedAt.String(),
			Amount:      row.Amount,
		}
		existing, ok := out[row.ResID.ID]
		if !ok || parseOdooDate(state.SubmittedAt).After(parseOdooDate(existing.SubmittedAt)) {
			out[row.ResID.ID] = state
		}
	}
	return out
}

// PaymentHistory maps the partner's settled invoices to payment records
func (s *Service) PaymentHistory(ctx context.Context, partnerID int64) ([]models.PaymentRecord, error) {
	domain := odoo.Domain{
		odoo.C("partner_id", "=", partnerID),
		odoo.C("move_type", "=", "out_invoice"),
		odoo.C("state", "=", "posted"),
		odoo.C("payment_state", "in", []string{"paid", "in_payment"}),
	}

	var invoices []struct {
		ID           int64             `json:"id"`
		Name         string            `json:"name"`
		AmountTotal  float64           `json:"amount_total"`
		InvoiceDate  models.OdooString `json:"invoice_date"`
		PaymentState string            `json:"payment_state"`
	}
	if err := s.rpc.SearchRead(ctx, "account.move", domain,
		[]string{"name", "amount_total", "invoice_date", "state", "payment_state"}, nil, &invoices); err != nil {
		return nil, err
	}

	records := make([]models.PaymentRecord, 0, len(invoices))
	for _, inv := range invoices {
		records = append(records, models.PaymentRecord{
			ID:              inv.ID,
			Name:            inv.Name,
			Amount:          inv.AmountTotal,
			Date:            inv.InvoiceDate.String(),
			State:           inv.PaymentState,
			PaymentMethodID: models.Many2One{ID: 0, Name: "Vía Factura", Set: true},
			JournalID:       models.Many2One{ID: 0, Name: "Odoo", Set: true},
		})
	}
	return records, nil
}

// ClientInvoiceFields is kept minimal for compatibility across ERP
// versions, newer releases renamed several account.move columns
var ClientInvoiceFields = []string{
	"id", "name", "invoice_date", "invoice_date_due",
	"payment_state", "amount_total", "amount_residual",
}

// ClientInvoices lists a partner's posted customer invoices for the
// seller console, newest first
func (s *Service) ClientInvoices(ctx context.Context, partnerID int64) ([]map[string]interface{}, error) {
	domain := odoo.Domain{
		odoo.C("partner_id", "=", partnerID),
		odoo.C("move_type", "=", "out_invoice"),
		odoo.C("state", "=", "posted"),
	}
	var invoices []map[string]interface{}
	opts := &odoo.Options{Limit: 100, Order: "invoice_date desc"}
	if err := s.rpc.SearchRead(ctx, "account.move", domain, ClientInvoiceFields, opts, &invoices); err != nil {
		return nil, err
	}
	if invoices == nil {
		invoices = []map[string]interface{}{}
	}
	return invoices, nil
}

// InvoiceByID reads one invoice, or nil when it does not exist
func (s *Service) InvoiceByID(ctx context.Context, invoiceID int64) (*models.PendingInvoice, error) {
	var invoices []models.PendingInvoice
	if err := s.rpc.Read(ctx, "account.move", []int64{invoiceID}, pendingInvoiceFields, &invoices); err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, nil
	}
	inv := invoices[0]
	inv.LotInfo = ParsePaymentReference(inv.PaymentReference.String())
	return &inv, nil
}

// VoucherDetail is the full review state of the latest voucher on an
// invoice
type VoucherDetail struct {
	Status          string  `json:"status"`
	SubmittedAt     string  `json:"submitted_at"`
	BankName        string  `json:"bank_name"`
	OperationNumber string  `json:"operation_number"`
	Amount          float64 `json:"amount"`
	TransferDate    string  `json:"transfer_date"`
}

// VoucherStatus returns the latest voucher submitted for an invoice, or
// nil when none exists
func (s *Service) VoucherStatus(ctx context.Context, invoiceID int64) (*VoucherDetail, error) {
	domain := odoo.Domain{
		odoo.C("res_model", "=", "account.move"),
		odoo.C("res_id", "=", invoiceID),
		odoo.C("x_voucher_status", "!=", false),
	}

	var rows []struct {
		Status       models.OdooString `json:"x_voucher_status"`
		SubmittedAt  models.OdooString `json:"x_voucher_submitted_at"`
		Bank         models.OdooString `json:"x_voucher_bank"`
		Operation    models.OdooString `json:"x_voucher_operation"`
		Amount       float64           `json:"x_voucher_amount"`
		TransferDate models.OdooString `json:"x_voucher_transfer_date"`
	}
	err := s.rpc.SearchRead(ctx, "ir.attachment", domain,
		[]string{"name", "x_voucher_status", "x_voucher_submitted_at", "x_voucher_bank",
			"x_voucher_operation", "x_voucher_amount", "x_voucher_transfer_date"},
		&odoo.Options{Order: "create_date desc", Limit: 1}, &rows)
	if err != nil {
		log.Printf("[PAYMENT] VoucherStatus falling back to description lookup: %v", err)
		fallbackDomain := odoo.Domain{
			odoo.C("res_model", "=", "account.move"),
			odoo.C("res_id", "=", invoiceID),
			odoo.C("description", "ilike", "Comprobante de transferencia%"),
		}
		var fallback []fallbackVoucherRow
		if err := s.rpc.SearchRead(ctx, "ir.attachment", fallbackDomain,
			[]string{"name", "description", "create_date"},
			&odoo.Options{Order: "create_date desc", Limit: 1}, &fallback); err != nil {
			return nil, err
		}
		if len(fallback) == 0 {
			return nil, nil
		}
		return &VoucherDetail{
			Status:      "pending",
			SubmittedAt: fallback[0].CreateDate.String(),
		}, nil
	}

	if len(rows) == 0 {
		return nil, nil
	}
	return &VoucherDetail{
		Status:          orDefault(rows[0].Status.String(), "pending"),
		SubmittedAt:     rows[0].SubmittedAt.String(),
		BankName:        orDefault(rows[0].Bank.String(), "No especificado"),
		OperationNumber: orDefault(rows[0].Operation.String(), "No especificado"),
		Amount:          rows[0].Amount,
		TransferDate:    rows[0].TransferDate.String(),
	}, nil
}

// payment references look like E01MZQ102P-C005-20260130
var paymentRefPattern = regexp.MustCompile(`E(\d+)(MZ[A-Z]+)(\d+)([A-Z])?-C(\d+)-(\d{8})`)

// ParsePaymentReference decodes the lot coordinates encoded in an invoice
// payment reference. Returns nil for references in any other format.
func ParsePaymentReference(ref string) *models.LotInfo {
	if ref == "" {
		return nil
	}
	m := paymentRefPattern.FindStringSubmatch(ref)
	if m == nil {
		return nil
	}
	return &models.LotInfo{
		Etapa:   m[1],
		Manzana: m[2],
		Lote:    m[3],
		Quota:   m[5],
	}
}

// SortPendingByDueDate orders invoices by due date ascending, soonest
// first. The sort is stable: ties keep their original relative order.
func SortPendingByDueDate(invoices []models.PendingInvoice) {
	sort.SliceStable(invoices, func(i, j int) bool {
		return parseOdooDate(invoices[i].InvoiceDateDue.String()).
			Before(parseOdooDate(invoices[j].InvoiceDateDue.String()))
	})
}

// SortPaymentsByDateDesc orders payment records by date descending, most
// recent first. Stable for equal dates.
func SortPaymentsByDateDesc(records []models.PaymentRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return parseOdooDate(records[j].Date).Before(parseOdooDate(records[i].Date))
	})
}

// parseOdooDate accepts both Odoo date and datetime strings; unparseable
// values sort first.
func parseOdooDate(s string) time.Time {
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
