package models

// LotInfo is decoded from a payment reference like E01MZQ102P-C005-20260130
type LotInfo struct {
	Etapa   string `json:"etapa"`
	Manzana string `json:"manzana"`
	Lote    string `json:"lote"`
	Quota   string `json:"quota"`
}

// VoucherState summarizes the most recent payment voucher attached to an
// invoice
type VoucherState struct {
	Status      string  `json:"status"` // pending, approved, rejected
	SubmittedAt string  `json:"submitted_at"`
	Amount      float64 `json:"amount"`
}

// PendingInvoice is an unpaid posted customer invoice (account.move)
type PendingInvoice struct {
	ID               int64         `json:"id"`
	Name             string        `json:"name"`
	PaymentReference OdooString    `json:"payment_reference"`
	AmountTotal      float64       `json:"amount_total"`
	AmountResidual   float64       `json:"amount_residual"`
	InvoiceDateDue   OdooString    `json:"invoice_date_due"`
	PaymentState     string        `json:"payment_state"` // not_paid, in_payment, partial, paid
	State            string        `json:"state"`
	PartnerID        Many2One      `json:"partner_id"`
	LotInfo          *LotInfo      `json:"lot_info,omitempty"`
	VoucherStatus    *VoucherState `json:"voucher_status"`
}

// PaymentRecord is one entry of a customer's payment history
type PaymentRecord struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	Amount          float64  `json:"amount"`
	Date            string   `json:"date"`
	State           string   `json:"state"`
	PaymentMethodID Many2One `json:"payment_method_id"`
	JournalID       Many2One `json:"journal_id"`
}
