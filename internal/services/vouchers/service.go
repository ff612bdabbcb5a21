// Package vouchers handles bank-transfer voucher intake: validation of the
// uploaded file, duplicate and amount checks against the open invoice, and
// registration of the voucher (plus a review task) in the ERP.
package vouchers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/terralima/portalgo/internal/apperr"
	"github.com/terralima/portalgo/internal/config"
	"github.com/terralima/portalgo/internal/services/odoo"
)

// Service performs voucher intake against the ERP
type Service struct {
	rpc     odoo.RPC
	limiter *RateLimiter
	cfg     config.VoucherConfig
	now     func() time.Time
}

func NewService(rpc odoo.RPC, cfg config.VoucherConfig) *Service {
	return &Service{
		rpc:     rpc,
		limiter: NewRateLimiter(),
		cfg:     cfg,
		now:     time.Now,
	}
}

// UploadRequest is one voucher submission from a logged-in customer
type UploadRequest struct {
	UserEmail       string
	UserName        string
	DNI             string
	PartnerID       int64
	InvoiceID       int64
	ReportedAmount  float64
	TransferDate    string
	BankName        string
	OperationNumber string
	FileName        string
	Data            []byte
}

// UploadResult reports the created ERP records
type UploadResult struct {
	AttachmentID int64  `json:"attachment_id"`
	TaskID       int64  `json:"task_id,omitempty"`
	Status       string `json:"voucher_status"`
	SubmittedAt  string `json:"submitted_at"`
}

// Upload validates and registers one voucher. The validation order
// matters: cheap local checks happen before any ERP round trip.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if allowed, resetIn := s.limiter.Allow(req.UserEmail); !allowed {
		return nil, apperr.Newf(apperr.RateLimited,
			"Has alcanzado el límite de intentos. Intenta nuevamente en %d minutos.", resetIn)
	}

	if len(req.Data) > MaxFileSize {
		return nil, apperr.New(apperr.Validation, "El archivo no debe exceder 5MB")
	}

	fileType, ok := SniffFileType(req.Data)
	if !ok {
		return nil, apperr.New(apperr.Validation,
			"Tipo de archivo no permitido. Solo se aceptan JPG, PNG o PDF auténticos.")
	}

	if err := s.checkAmount(ctx, req.InvoiceID, req.ReportedAmount); err != nil {
		return nil, err
	}

	if err := s.checkDuplicate(ctx, req.InvoiceID); err != nil {
		return nil, err
	}

	fileName := SanitizeFileName(req.FileName)
	submittedAt := s.now().UTC().Format("2006-01-02 15:04:05")
	description := fmt.Sprintf("Comprobante de transferencia - %s - Op: %s - Usuario: %s",
		req.BankName, req.OperationNumber, req.UserEmail)

	attachmentID, err := s.createAttachment(ctx, req, fileName, description, submittedAt)
	if err != nil {
		return nil, err
	}
	log.Printf("[VOUCHER] attachment %d created for invoice %d (%s, %s)",
		attachmentID, req.InvoiceID, fileName, fileType)

	taskID := s.createReviewTask(ctx, req, attachmentID, fileType)

	return &UploadResult{
		AttachmentID: attachmentID,
		TaskID:       taskID,
		Status:       "pending",
		SubmittedAt:  s.now().UTC().Format(time.RFC3339),
	}, nil
}

// checkAmount compares the reported amount with the invoice's open
// balance. An unreadable invoice does not block the upload.
func (s *Service) checkAmount(ctx context.Context, invoiceID int64, reported float64) error {
	var invoices []struct {
		AmountResidual float64 `json:"amount_residual"`
	}
	if err := s.rpc.Read(ctx, "account.move", []int64{invoiceID}, []string{"amount_residual"}, &invoices); err != nil {
		log.Printf("[VOUCHER] could not validate amount against invoice %d: %v", invoiceID, err)
		return nil
	}
	if len(invoices) == 0 {
		return nil
	}

	const tolerance = 0.01
	if math.Abs(invoices[0].AmountResidual-reported) > tolerance {
		return apperr.Newf(apperr.Validation,
			"El monto reportado (S/ %.2f) no coincide con el monto de la factura (S/ %.2f)",
			reported, invoices[0].AmountResidual)
	}
	return nil
}

// checkDuplicate rejects the upload when a pending voucher already exists
// for the invoice
func (s *Service) checkDuplicate(ctx context.Context, invoiceID int64) error {
	domain := odoo.Domain{
		odoo.C("res_model", "=", "account.move"),
		odoo.C("res_id", "=", invoiceID),
		odoo.C("x_voucher_status", "=", "pending"),
	}

	var existing []struct {
		ID int64 `json:"id"`
	}
	err := s.rpc.SearchRead(ctx, "ir.attachment", domain, []string{"id", "create_date"},
		&odoo.Options{Limit: 1}, &existing)
	if err != nil {
		// Custom fields unavailable: match recent attachments by description
		log.Printf("[VOUCHER] duplicate check using description fallback: %v", err)
		sevenDaysAgo := s.now().AddDate(0, 0, -7).Format("2006-01-02")
		fallbackDomain := odoo.Domain{
			odoo.C("res_model", "=", "account.move"),
			odoo.C("res_id", "=", invoiceID),
			odoo.C("description", "ilike", "Comprobante de transferencia%"),
			odoo.C("create_date", ">=", sevenDaysAgo),
		}
		if err := s.rpc.SearchRead(ctx, "ir.attachment", fallbackDomain,
			[]string{"id", "create_date"}, &odoo.Options{Limit: 1}, &existing); err != nil {
			return err
		}
	}

	if len(existing) > 0 {
		return apperr.New(apperr.Conflict,
			"Ya existe un comprobante pendiente de validación para esta factura. Por favor espera a que sea procesado.")
	}
	return nil
}

// createAttachment stores the voucher file on the invoice. Tries the
// custom tracking fields first, then plain attachment creation.
func (s *Service) createAttachment(ctx context.Context, req UploadRequest, fileName, description, submittedAt string) (int64, error) {
	base := map[string]interface{}{
		"name":        fileName,
		"datas":       base64.StdEncoding.EncodeToString(req.Data),
		"res_model":   "account.move",
		"res_id":      req.InvoiceID,
		"public":      false,
		"description": description,
	}

	withTracking := map[string]interface{}{}
	for k, v := range base {
		withTracking[k] = v
	}
	withTracking["x_voucher_status"] = "pending"
	withTracking["x_voucher_submitted_at"] = submittedAt
	withTracking["x_voucher_bank"] = req.BankName
	withTracking["x_voucher_operation"] = req.OperationNumber
	withTracking["x_voucher_amount"] = req.ReportedAmount
	withTracking["x_voucher_transfer_date"] = orDefault(req.TransferDate, s.now().Format("2006-01-02"))

	id, err := s.rpc.Create(ctx, "ir.attachment", withTracking)
	if err == nil {
		return id, nil
	}

	var rpcErr *odoo.RPCError
	if errors.As(err, &rpcErr) && !rpcErr.IsMissingField() {
		return 0, err
	}

	log.Printf("[VOUCHER] custom fields unavailable, creating standard attachment: %v", err)
	return s.rpc.Create(ctx, "ir.attachment", base)
}

// createReviewTask opens a validation task in the collections project.
// Failures are non-blocking: the voucher is already attached.
func (s *Service) createReviewTask(ctx context.Context, req UploadRequest, attachmentID int64, fileType string) int64 {
	if s.cfg.ProjectID == 0 {
		return 0
	}

	description := fmt.Sprintf(
		"Validación de comprobante bancario\n\n"+
			"Cliente: %s\nDNI: %s\nEmail: %s\nFactura ID: %d\n\n"+
			"Monto reportado: S/ %.2f\nFecha transferencia: %s\nBanco origen: %s\nNro. operación: %s\n\n"+
			"Comprobante adjunto ID: %d (archivo validado: %s)\n"+
			"Verificar el abono en cuenta y registrar el pago desde la factura.",
		req.UserName, req.DNI, req.UserEmail, req.InvoiceID,
		req.ReportedAmount, orDefault(req.TransferDate, "no especificada"),
		orDefault(req.BankName, "no especificado"), orDefault(req.OperationNumber, "no especificado"),
		attachmentID, fileType)

	taskID, err := s.rpc.Create(ctx, "project.task", map[string]interface{}{
		"name":        fmt.Sprintf("Validar Comprobante - Factura %d", req.InvoiceID),
		"project_id":  s.cfg.ProjectID,
		"partner_id":  req.PartnerID,
		"user_ids":    []interface{}{[]interface{}{6, 0, []int{s.cfg.UserID}}},
		"description": description,
		"priority":    "1",
	})
	if err != nil {
		log.Printf("[VOUCHER] failed to create validation task (non-blocking): %v", err)
		return 0
	}
	return taskID
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
