package models

// Local quotes are owned by the salesperson's browser and only sent to the
// server for PDF rendering or ERP confirmation. They are never persisted
// here.

// QuoteStatus is the lifecycle state of a local quote
type QuoteStatus string

const (
	QuoteDraftLocal    QuoteStatus = "draft_local"
	QuoteConfirmedOdoo QuoteStatus = "confirmed_odoo"
)

// LocalQuoteTerms holds the pricing terms of a quotation
type LocalQuoteTerms struct {
	OriginalPrice      float64 `json:"originalPrice"`
	DiscountPercent    float64 `json:"discountPercent"`
	DiscountAmount     float64 `json:"discountAmount"`
	DiscountedPrice    float64 `json:"discountedPrice"`
	InitialPayment     float64 `json:"initialPayment"`
	NumInstallments    int     `json:"numInstallments"`
	MonthlyInstallment float64 `json:"monthlyInstallment"`
	RemainingBalance   float64 `json:"remainingBalance"`
	StartDate          string  `json:"startDate"`
}

// LocalQuoteClient is the prospective buyer on a quotation
type LocalQuoteClient struct {
	Name  string `json:"name"`
	Vat   string `json:"vat,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// LocalQuote is a not-yet-committed price quotation for a lot
type LocalQuote struct {
	ID             string            `json:"id"` // UUID assigned by the client
	LotID          string            `json:"lotId"`
	LotName        string            `json:"lotName"`
	LotDefaultCode string            `json:"lotDefaultCode"`
	ClientData     *LocalQuoteClient `json:"clientData"`
	Terms          LocalQuoteTerms   `json:"terms"`
	CreatedAt      string            `json:"createdAt"`
	UpdatedAt      string            `json:"updatedAt"`
	Status         QuoteStatus       `json:"status"`
	OdooOrderID    int64             `json:"odooOrderId,omitempty"`   // set after confirmation
	OdooPartnerID  int64             `json:"odooPartnerId,omitempty"` // set after confirmation
	VendorName     string            `json:"vendorName"`
}
