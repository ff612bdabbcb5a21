package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/terralima/portalgo/internal/middleware"
	"github.com/terralima/portalgo/internal/services/vouchers"
)

// uploadVoucher receives a bank-transfer proof for an invoice
func (r *Router) uploadVoucher(w http.ResponseWriter, req *http.Request) {
	user, ok := middleware.SessionUser(req)
	if !ok {
		respondError(w, http.StatusUnauthorized, "No autenticado")
		return
	}

	if err := req.ParseMultipartForm(vouchers.MaxFileSize); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart payload")
		return
	}

	invoiceID, err := strconv.ParseInt(req.FormValue("invoice_id"), 10, 64)
	if err != nil || invoiceID <= 0 {
		respondError(w, http.StatusBadRequest, "Archivo, invoice_id y amount son requeridos")
		return
	}
	amount, err := strconv.ParseFloat(req.FormValue("amount"), 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Archivo, invoice_id y amount son requeridos")
		return
	}

	file, header, err := req.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Archivo, invoice_id y amount son requeridos")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, vouchers.MaxFileSize+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Could not read uploaded file")
		return
	}

	result, err := r.vouchers.Upload(req.Context(), vouchers.UploadRequest{
		UserEmail:       user.Email,
		UserName:        user.Name,
		DNI:             user.DNI,
		PartnerID:       user.PartnerID,
		InvoiceID:       invoiceID,
		ReportedAmount:  amount,
		TransferDate:    req.FormValue("transfer_date"),
		BankName:        req.FormValue("bank_name"),
		OperationNumber: req.FormValue("operation_number"),
		FileName:        header.Filename,
		Data:            data,
	})
	if err != nil {
		respondFailure(w, "vouchers/upload", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"attachment_id":  result.AttachmentID,
		"task_id":        result.TaskID,
		"voucher_status": result.Status,
		"submitted_at":   result.SubmittedAt,
		"message":        "Comprobante subido exitosamente. Tu pago está en revisión y será validado en las próximas 24 horas.",
	})
}

// voucherStatus reports the review state of the latest voucher on an
// invoice
func (r *Router) voucherStatus(w http.ResponseWriter, req *http.Request) {
	if _, ok := middleware.SessionUser(req); !ok {
		respondError(w, http.StatusUnauthorized, "No autenticado")
		return
	}

	invoiceID, err := strconv.ParseInt(req.URL.Query().Get("invoice_id"), 10, 64)
	if err != nil || invoiceID <= 0 {
		respondError(w, http.StatusBadRequest, "ID de factura es requerido")
		return
	}

	detail, err := r.payments.VoucherStatus(req.Context(), invoiceID)
	if err != nil {
		respondFailure(w, "vouchers/status", err)
		return
	}
	if detail == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success":           true,
			"voucher_submitted": false,
			"message":           "No se encontró comprobante para esta factura",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":           true,
		"voucher_submitted": true,
		"status":            detail.Status,
		"submitted_at":      detail.SubmittedAt,
		"bank_name":         detail.BankName,
		"operation_number":  detail.OperationNumber,
		"amount":            detail.Amount,
		"transfer_date":     detail.TransferDate,
		"message":           voucherStatusMessage(detail.Status),
	})
}

func voucherStatusMessage(status string) string {
	switch status {
	case "pending":
		return "Tu comprobante está en revisión. Te notificaremos cuando sea validado."
	case "approved":
		return "Tu pago ha sido validado exitosamente."
	case "rejected":
		return "Hubo un problema con tu comprobante. Por favor, sube uno nuevo o contacta al administrador."
	default:
		return "Estado desconocido"
	}
}
