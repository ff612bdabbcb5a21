package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terralima/portalgo/internal/config"
	"github.com/terralima/portalgo/internal/models"
	"github.com/terralima/portalgo/internal/services/email"
	"github.com/terralima/portalgo/internal/services/niubiz"
	"github.com/terralima/portalgo/internal/services/odoo"
	"github.com/terralima/portalgo/internal/services/payments"
	"github.com/terralima/portalgo/internal/services/sms"
	"github.com/terralima/portalgo/internal/services/vouchers"
	"github.com/terralima/portalgo/internal/utils"
)

// fakeRPC satisfies odoo.RPC with pluggable behavior. Every call is
// counted so tests can assert that validation short-circuits before any
// upstream traffic.
type fakeRPC struct {
	calls      int
	searchRead func(model string, domain odoo.Domain, fields []string, opts *odoo.Options) (interface{}, error)
	read       func(model string, ids []int64, fields []string) (interface{}, error)
	create     func(model string, values map[string]interface{}) (int64, error)
	write      func(model string, ids []int64, values map[string]interface{}) error
	callMethod func(model, method string, ids []int64) (interface{}, error)
	executeKw  func(model, method string, args []interface{}) (interface{}, error)
}

func (f *fakeRPC) ExecuteKw(ctx context.Context, model, method string, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	f.calls++
	if f.executeKw != nil {
		return f.executeKw(model, method, args)
	}
	return nil, nil
}

func (f *fakeRPC) SearchRead(ctx context.Context, model string, domain odoo.Domain, fields []string, opts *odoo.Options, result interface{}) error {
	f.calls++
	if f.searchRead == nil {
		return fillJSON(result, []interface{}{})
	}
	data, err := f.searchRead(model, domain, fields, opts)
	if err != nil {
		return err
	}
	return fillJSON(result, data)
}

func (f *fakeRPC) Read(ctx context.Context, model string, ids []int64, fields []string, result interface{}) error {
	f.calls++
	if f.read == nil {
		return fillJSON(result, []interface{}{})
	}
	data, err := f.read(model, ids, fields)
	if err != nil {
		return err
	}
	return fillJSON(result, data)
}

func (f *fakeRPC) Create(ctx context.Context, model string, values map[string]interface{}) (int64, error) {
	f.calls++
	if f.create != nil {
		return f.create(model, values)
	}
	return 1, nil
}

func (f *fakeRPC) Write(ctx context.Context, model string, ids []int64, values map[string]interface{}) error {
	f.calls++
	if f.write != nil {
		return f.write(model, ids, values)
	}
	return nil
}

func (f *fakeRPC) CallMethod(ctx context.Context, model, method string, ids []int64, kwargs map[string]interface{}) (interface{}, error) {
	f.calls++
	if f.callMethod != nil {
		return f.callMethod(model, method, ids)
	}
	return true, nil
}

func (f *fakeRPC) SearchCount(ctx context.Context, model string, domain odoo.Domain) (int64, error) {
	f.calls++
	return 0, nil
}

func (f *fakeRPC) ReadGroup(ctx context.Context, model string, domain odoo.Domain, fields, groupBy []string) ([]map[string]interface{}, error) {
	f.calls++
	return nil, nil
}

func (f *fakeRPC) SessionAuthenticate(ctx context.Context, login, password string) (*odoo.SessionInfo, error) {
	f.calls++
	return &odoo.SessionInfo{UID: 2, Name: "Vendedor", Username: login, PartnerID: 9}, nil
}

func fillJSON(dst, src interface{}) error {
	b, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

type silentSender struct{}

func (silentSender) Send(to, body string) error { return nil }

func testRouter(rpc *fakeRPC) *Router {
	cfg := &config.Config{
		JWTSecret: "test-secret",
		Webhook:   config.WebhookConfig{OdooSecret: "hook-secret"},
	}
	return NewRouter(Deps{
		Cfg:      cfg,
		RPC:      rpc,
		Payments: payments.NewService(rpc),
		Verifier: sms.NewVerifier(sms.NewMemoryStore(), silentSender{}),
		Vouchers: vouchers.NewService(rpc, cfg.Vouchers),
	})
}

func doJSON(r *Router, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestRequestCodeRejectsBadDNIBeforeRPC(t *testing.T) {
	rpc := &fakeRPC{}
	r := testRouter(rpc)

	for _, dni := range []string{"1234", "123456789", "1234567a", ""} {
		rr := doJSON(r, http.MethodPost, "/api/auth/request-code", `{"dni":"`+dni+`"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "dni %q", dni)
	}
	assert.Zero(t, rpc.calls, "invalid DNIs must never reach the ERP")
}

func TestRequestCodeUnknownDNI(t *testing.T) {
	rpc := &fakeRPC{} // empty search result
	r := testRouter(rpc)

	rr := doJSON(r, http.MethodPost, "/api/auth/request-code", `{"dni":"12345678"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRequestCodeMasksPhone(t *testing.T) {
	rpc := &fakeRPC{
		searchRead: func(model string, domain odoo.Domain, fields []string, opts *odoo.Options) (interface{}, error) {
			return []map[string]interface{}{{
				"id":     7,
				"name":   "Juan Perez",
				"email":  "juan@example.com",
				"vat":    "12345678",
				"mobile": "+51987654321",
				"phone":  false,
			}}, nil
		},
	}
	r := testRouter(rpc)

	rr := doJSON(r, http.MethodPost, "/api/auth/request-code", `{"dni":"12345678"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Success     bool   `json:"success"`
		MaskedPhone string `json:"maskedPhone"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "*********321", resp.MaskedPhone)
	assert.NotContains(t, rr.Body.String(), "987654321", "full phone must not leak")
}

func TestSearchPartnersEmptyQuerySkipsRPC(t *testing.T) {
	rpc := &fakeRPC{}
	r := testRouter(rpc)

	rr := doJSON(r, http.MethodPost, "/api/odoo/search_partners", `{"query":""}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Success bool          `json:"success"`
		Results []interface{} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Results)
	assert.Zero(t, rpc.calls)
}

func TestConfirmOrderValidatesID(t *testing.T) {
	rpc := &fakeRPC{}
	r := testRouter(rpc)

	for _, body := range []string{`{"orderId":"abc"}`, `{"orderId":0}`, `{}`} {
		rr := doJSON(r, http.MethodPost, "/api/odoo/confirm_order", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "body %s", body)
	}
	assert.Zero(t, rpc.calls)
}

func TestConfirmOrderCallsActionConfirm(t *testing.T) {
	var gotModel, gotMethod string
	var gotIDs []int64
	rpc := &fakeRPC{
		callMethod: func(model, method string, ids []int64) (interface{}, error) {
			gotModel, gotMethod, gotIDs = model, method, ids
			return true, nil
		},
	}
	r := testRouter(rpc)

	rr := doJSON(r, http.MethodPost, "/api/odoo/confirm_order", `{"orderId":55}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "sale.order", gotModel)
	assert.Equal(t, "action_confirm", gotMethod)
	assert.Equal(t, []int64{55}, gotIDs)
}

func TestUpdateStatusMapsPortalStates(t *testing.T) {
	var written map[string]interface{}
	rpc := &fakeRPC{
		write: func(model string, ids []int64, values map[string]interface{}) error {
			written = values
			return nil
		},
	}
	r := testRouter(rpc)

	rr := doJSON(r, http.MethodPost, "/api/odoo/update_status", `{"productId":12,"newStatus":"libre"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "disponible", written["x_statu"])
	_, hasCliente := written["x_cliente"]
	assert.False(t, hasCliente, "absent clientName must not touch x_cliente")
}

func TestUpdateStatusRejectsUnknownState(t *testing.T) {
	rpc := &fakeRPC{}
	r := testRouter(rpc)

	rr := doJSON(r, http.MethodPost, "/api/odoo/update_status", `{"productId":12,"newStatus":"en_llamas"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Zero(t, rpc.calls)
}

func TestGetLotInvalidReference(t *testing.T) {
	rpc := &fakeRPC{}
	r := testRouter(rpc)

	req := httptest.NewRequest(http.MethodGet, "/api/odoo/product/not-a-ref", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Zero(t, rpc.calls)
}

func TestListLotsBuildsCatalogDomain(t *testing.T) {
	var gotDomain odoo.Domain
	rpc := &fakeRPC{
		searchRead: func(model string, domain odoo.Domain, fields []string, opts *odoo.Options) (interface{}, error) {
			gotDomain = domain
			return []models.Lot{{ID: 1, Name: "MZ Q1 Lote 5"}}, nil
		},
	}
	r := testRouter(rpc)

	req := httptest.NewRequest(http.MethodGet, "/api/odoo/products?search=MZ&etapa=1&estado=disponible", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	// active filter + 1 pipe + 2 OR conditions + etapa + estado
	require.Len(t, gotDomain, 6)
	assert.Equal(t, "|", gotDomain[1])

	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
}

func TestAddAttachmentRejectsNonFileField(t *testing.T) {
	rpc := &fakeRPC{}
	r := testRouter(rpc)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("orderId", "5")
	mw.WriteField("file", "just a string, not a file")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/odoo/add_attachment", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Zero(t, rpc.calls)
}

func TestWebhookSecretRequired(t *testing.T) {
	rpc := &fakeRPC{}
	r := testRouter(rpc)

	rr := doJSON(r, http.MethodPost, "/api/webhooks/odoo", `{"invoice_id":9,"event":"payment_validated","secret":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Zero(t, rpc.calls)
}

func TestWebhookUnconfiguredIs503(t *testing.T) {
	rpc := &fakeRPC{}
	r := testRouter(rpc)
	r.cfg.Webhook.OdooSecret = ""

	rr := doJSON(r, http.MethodPost, "/api/webhooks/odoo", `{"invoice_id":9,"event":"payment_validated","secret":"anything"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestPendingInvoicesRequiresSession(t *testing.T) {
	r := testRouter(&fakeRPC{})

	req := httptest.NewRequest(http.MethodGet, "/api/invoices/pending", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestPendingInvoicesWithSession(t *testing.T) {
	rpc := &fakeRPC{
		searchRead: func(model string, domain odoo.Domain, fields []string, opts *odoo.Options) (interface{}, error) {
			if model == "account.move" {
				return []map[string]interface{}{
					{"id": 1, "name": "F001-1", "invoice_date_due": "2026-03-15", "payment_reference": "E01MZQ102P-C005-20260130"},
					{"id": 2, "name": "F001-2", "invoice_date_due": "2026-01-30", "payment_reference": false},
				}, nil
			}
			return []interface{}{}, nil
		},
	}
	r := testRouter(rpc)

	token, err := utils.GenerateSessionToken(models.SessionUser{PartnerID: 7, Name: "Juan"}, "test-secret")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/invoices/pending", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Success  bool                    `json:"success"`
		Invoices []models.PendingInvoice `json:"invoices"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Invoices, 2)
	assert.Equal(t, int64(2), resp.Invoices[0].ID, "soonest due date first")
	require.NotNil(t, resp.Invoices[1].LotInfo)
	assert.Equal(t, "MZQ", resp.Invoices[1].LotInfo.Manzana)
}

func TestQuotePDFRequiresLotName(t *testing.T) {
	r := testRouter(&fakeRPC{})

	rr := doJSON(r, http.MethodPost, "/api/quotes/pdf", `{"lotName":""}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestQuotePDFReturnsDocument(t *testing.T) {
	r := testRouter(&fakeRPC{})

	body := `{
		"lotName": "MZ Q1 Lote 5",
		"lotDefaultCode": "MZQ1-L05",
		"clientData": {"name": "Juan Perez"},
		"terms": {
			"originalPrice": 50000,
			"discountPercent": 5,
			"discountedPrice": 47500,
			"initialPayment": 10000,
			"numInstallments": 48,
			"monthlyInstallment": 781.25
		}
	}`
	rr := doJSON(r, http.MethodPost, "/api/quotes/pdf", body)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")), "response should be a PDF document")
}

func TestSearchReadProxyRequiresModelAndDomain(t *testing.T) {
	rpc := &fakeRPC{}
	r := testRouter(rpc)

	for _, body := range []string{`{"model":"res.partner"}`, `{"domain":[]}`, `{}`} {
		rr := doJSON(r, http.MethodPost, "/api/odoo/search-read", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "body %s", body)
	}
	assert.Zero(t, rpc.calls, "an absent domain must never reach the ERP")
}

func TestSearchReadProxyReturnsRecords(t *testing.T) {
	rpc := &fakeRPC{
		searchRead: func(model string, domain odoo.Domain, fields []string, opts *odoo.Options) (interface{}, error) {
			return []map[string]interface{}{{"id": 1, "name": "Juan"}}, nil
		},
	}
	r := testRouter(rpc)

	// An explicit empty domain is a valid match-all query
	rr := doJSON(r, http.MethodPost, "/api/odoo/search-read", `{"model":"res.partner","domain":[]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Contains(t, resp, "records")
	assert.NotContains(t, resp, "data")

	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal(resp["records"], &records))
	require.Len(t, records, 1)
	assert.Equal(t, "Juan", records[0]["name"])
}

func TestReadProxyReturnsRecords(t *testing.T) {
	rpc := &fakeRPC{
		read: func(model string, ids []int64, fields []string) (interface{}, error) {
			return []map[string]interface{}{{"id": 4}}, nil
		},
	}
	r := testRouter(rpc)

	rr := doJSON(r, http.MethodPost, "/api/odoo/read", `{"model":"res.partner","ids":[4]}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, resp, "records")
	assert.NotContains(t, resp, "data")
}

func TestCallProxyReturnsResult(t *testing.T) {
	rpc := &fakeRPC{
		executeKw: func(model, method string, args []interface{}) (interface{}, error) {
			return float64(42), nil
		},
	}
	r := testRouter(rpc)

	rr := doJSON(r, http.MethodPost, "/api/odoo/call", `{"model":"sale.order","method":"name_get","args":[[1]]}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Result float64 `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, float64(42), resp.Result)
	assert.NotContains(t, rr.Body.String(), `"data"`)
}

func TestCreateContractValidatesOrderID(t *testing.T) {
	rpc := &fakeRPC{}
	r := testRouter(rpc)

	for _, body := range []string{`{}`, `{"saleOrderId":"abc"}`, `{"saleOrderId":0}`} {
		rr := doJSON(r, http.MethodPost, "/api/odoo/create_contract", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "body %s", body)
	}
	assert.Zero(t, rpc.calls)
}

func TestCreateContractRequiresConfirmedOrder(t *testing.T) {
	rpc := &fakeRPC{
		searchRead: func(model string, domain odoo.Domain, fields []string, opts *odoo.Options) (interface{}, error) {
			return []map[string]interface{}{{
				"id": 55, "state": "draft", "order_line": []int64{101},
				"partner_id": []interface{}{7, "Juan"}, "x_plazo_meses": 24,
			}}, nil
		},
	}
	r := testRouter(rpc)

	rr := doJSON(r, http.MethodPost, "/api/odoo/create_contract", `{"saleOrderId":55}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateContractConflictsOnExisting(t *testing.T) {
	rpc := &fakeRPC{
		searchRead: func(model string, domain odoo.Domain, fields []string, opts *odoo.Options) (interface{}, error) {
			switch model {
			case "sale.order":
				return []map[string]interface{}{{
					"id": 55, "state": "sale", "order_line": []int64{101},
					"partner_id": []interface{}{7, "Juan"}, "x_plazo_meses": 24,
					"x_down_payment": false, "x_discount_amount": false,
					"x_date_first_installment": false,
				}}, nil
			case "simple.contract":
				return []map[string]interface{}{{"id": 42}}, nil
			}
			return []interface{}{}, nil
		},
	}
	r := testRouter(rpc)

	rr := doJSON(r, http.MethodPost, "/api/odoo/create_contract", `{"saleOrderId":55}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	var resp struct {
		ExistingContractID int64 `json:"existingContractId"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.ExistingContractID)
}

func TestCreateContractComputesInstallments(t *testing.T) {
	var contractValues map[string]interface{}
	rpc := &fakeRPC{
		searchRead: func(model string, domain odoo.Domain, fields []string, opts *odoo.Options) (interface{}, error) {
			switch model {
			case "sale.order":
				return []map[string]interface{}{{
					"id": 55, "state": "sale", "order_line": []int64{101},
					"partner_id": []interface{}{7, "Juan"}, "x_plazo_meses": 24,
					"x_down_payment": 1000.0, "x_discount_amount": 500.0,
					"x_date_first_installment": "2026-10-01",
				}}, nil
			case "simple.contract":
				return []interface{}{}, nil
			case "sale.order.line":
				return []map[string]interface{}{{
					"product_id": []interface{}{3, "Lote 5"}, "price_unit": 50000.0,
				}}, nil
			}
			return []interface{}{}, nil
		},
		create: func(model string, values map[string]interface{}) (int64, error) {
			if model == "simple.contract" {
				contractValues = values
				return 99, nil
			}
			return 1, nil
		},
	}
	r := testRouter(rpc)

	rr := doJSON(r, http.MethodPost, "/api/odoo/create_contract", `{"saleOrderId":55}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	require.NotNil(t, contractValues)
	assert.Equal(t, int64(24), contractValues["total_quotas"])
	assert.Equal(t, "2026-10-01", contractValues["date_first_installment"])

	var resp struct {
		ContractID int64 `json:"contractId"`
		Details    struct {
			MonthlyAmount  float64 `json:"monthlyAmount"`
			FinancedAmount float64 `json:"financedAmount"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, int64(99), resp.ContractID)
	// (50000 - 500 - 1000) / 24
	assert.InDelta(t, 2020.83, resp.Details.MonthlyAmount, 0.01)
	assert.InDelta(t, 48500, resp.Details.FinancedAmount, 0.001)
}

func TestNiubizCreateSessionRequiresSession(t *testing.T) {
	r := testRouter(&fakeRPC{})

	rr := doJSON(r, http.MethodPost, "/api/payments/niubiz/create-session", `{"invoice_id":9}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func customerToken(t *testing.T, partnerID int64) string {
	t.Helper()
	token, err := utils.GenerateSessionToken(models.SessionUser{PartnerID: partnerID, Name: "Juan"}, "test-secret")
	require.NoError(t, err)
	return token
}

func doAuthedJSON(r *Router, token, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func invoiceRow(partnerID int64) []map[string]interface{} {
	return []map[string]interface{}{{
		"id": 9, "name": "F001-9", "partner_id": []interface{}{partnerID, "Juan"},
		"amount_total": 1500.0, "amount_residual": 1200.5,
		"payment_reference": "E01MZQ102P-C005-20260130",
		"invoice_date_due":  "2026-03-15", "payment_state": "not_paid", "state": "posted",
	}}
}

func niubizTestServer(t *testing.T, actionCode string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if strings.HasPrefix(req.URL.Path, "/api.security") {
			json.NewEncoder(w).Encode(map[string]interface{}{"sessionKey": "sk-77"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"order": map[string]interface{}{
				"transactionId": "T-1", "amount": "120050", "currency": "PEN",
			},
			"dataMap": map[string]interface{}{
				"ACTION_CODE":        actionCode,
				"ACTION_DESCRIPTION": "Operacion Denegada",
				"CARD":               "455170******8329",
				"BRAND":              "visa",
			},
		})
	}))
}

func attachGateway(r *Router, url string) {
	r.niubiz = &niubiz.Client{
		BaseURL:    url,
		MerchantID: "456879852",
		AccessKey:  "secret",
		HTTPClient: http.DefaultClient,
	}
}

func TestNiubizCreateSessionChecksInvoiceOwnership(t *testing.T) {
	rpc := &fakeRPC{
		read: func(model string, ids []int64, fields []string) (interface{}, error) {
			return invoiceRow(8), nil // someone else's invoice
		},
	}
	r := testRouter(rpc)
	srv := niubizTestServer(t, "000")
	defer srv.Close()
	attachGateway(r, srv.URL)

	rr := doAuthedJSON(r, customerToken(t, 7), http.MethodPost, "/api/payments/niubiz/create-session", `{"invoice_id":9}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestNiubizCreateSessionReturnsKey(t *testing.T) {
	rpc := &fakeRPC{
		read: func(model string, ids []int64, fields []string) (interface{}, error) {
			return invoiceRow(7), nil
		},
	}
	r := testRouter(rpc)
	srv := niubizTestServer(t, "000")
	defer srv.Close()
	attachGateway(r, srv.URL)

	rr := doAuthedJSON(r, customerToken(t, 7), http.MethodPost, "/api/payments/niubiz/create-session", `{"invoice_id":9}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		SessionKey string  `json:"sessionKey"`
		MerchantID string  `json:"merchantId"`
		Amount     float64 `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "sk-77", resp.SessionKey)
	assert.Equal(t, "456879852", resp.MerchantID)
	assert.Equal(t, 1200.5, resp.Amount)
}

func TestNiubizAuthorizeValidatesParams(t *testing.T) {
	rpc := &fakeRPC{}
	r := testRouter(rpc)
	token := customerToken(t, 7)

	for _, body := range []string{
		`{}`,
		`{"transactionToken":"tok","amount":10,"paymentReference":"REF"}`,
		`{"transactionToken":"","amount":10,"paymentReference":"REF","invoiceId":9}`,
	} {
		rr := doAuthedJSON(r, token, http.MethodPost, "/api/payments/niubiz/authorize", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "body %s", body)
	}
	assert.Zero(t, rpc.calls)
}

func TestNiubizAuthorizeRejectedCard(t *testing.T) {
	rpc := &fakeRPC{}
	r := testRouter(rpc)
	srv := niubizTestServer(t, "101")
	defer srv.Close()
	attachGateway(r, srv.URL)

	body := `{"transactionToken":"tok","amount":1200.5,"paymentReference":"REF-1","invoiceId":9}`
	rr := doAuthedJSON(r, customerToken(t, 7), http.MethodPost, "/api/payments/niubiz/authorize", body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var resp struct {
		Error             string `json:"error"`
		AuthorizationCode string `json:"authorizationCode"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Operacion Denegada", resp.Error)
	assert.Equal(t, "101", resp.AuthorizationCode)
	assert.Zero(t, rpc.calls, "a rejected card must not touch the ERP")
}

func TestNiubizAuthorizeRegistersPayment(t *testing.T) {
	var paymentValues map[string]interface{}
	var methods []string
	rpc := &fakeRPC{
		create: func(model string, values map[string]interface{}) (int64, error) {
			if model == "account.payment" {
				paymentValues = values
			}
			return 31, nil
		},
		callMethod: func(model, method string, ids []int64) (interface{}, error) {
			methods = append(methods, method)
			return true, nil
		},
	}
	r := testRouter(rpc)
	r.cfg.Niubiz = config.NiubizConfig{JournalID: 3, PaymentMethodID: 2}
	srv := niubizTestServer(t, "000")
	defer srv.Close()
	attachGateway(r, srv.URL)

	body := `{"transactionToken":"tok","amount":1200.5,"paymentReference":"REF-1","invoiceId":9}`
	rr := doAuthedJSON(r, customerToken(t, 7), http.MethodPost, "/api/payments/niubiz/authorize", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	require.NotNil(t, paymentValues)
	assert.Equal(t, 1200.5, paymentValues["amount"], "gateway centavos convert back to soles")
	assert.Equal(t, 3, paymentValues["journal_id"])
	assert.Contains(t, methods, "action_post")

	var resp struct {
		Success       bool   `json:"success"`
		TransactionID string `json:"transactionId"`
		PaymentID     int64  `json:"paymentId"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "T-1", resp.TransactionID)
	assert.Equal(t, int64(31), resp.PaymentID)
}

type recordingMail struct {
	to      string
	subject string
	html    string
}

func (m *recordingMail) Send(to, subject, html string) error {
	m.to = to
	m.subject = subject
	m.html = html
	return nil
}

func TestWebhookSendsConfirmationEmail(t *testing.T) {
	rpc := &fakeRPC{
		read: func(model string, ids []int64, fields []string) (interface{}, error) {
			if model == "res.partner" {
				return []map[string]interface{}{{"name": "Juan", "email": "juan@example.com"}}, nil
			}
			return invoiceRow(7), nil
		},
		searchRead: func(model string, domain odoo.Domain, fields []string, opts *odoo.Options) (interface{}, error) {
			// the next pending installment
			return []map[string]interface{}{{
				"id": 10, "name": "F001-10", "invoice_date_due": "2026-04-01",
				"payment_reference": false,
			}}, nil
		},
	}
	r := testRouter(rpc)
	mail := &recordingMail{}
	r.mailer = email.NewService(mail)

	rr := doJSON(r, http.MethodPost, "/api/webhooks/odoo", `{"invoice_id":9,"event":"payment_validated","secret":"hook-secret"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	assert.Equal(t, "juan@example.com", mail.to)
	assert.Contains(t, mail.html, "F001-9")
	assert.Contains(t, mail.html, "01 de abril de 2026")
	assert.Contains(t, rr.Body.String(), "juan@example.com")
}

func TestRequestCodeFallsBackToEmail(t *testing.T) {
	rpc := &fakeRPC{
		searchRead: func(model string, domain odoo.Domain, fields []string, opts *odoo.Options) (interface{}, error) {
			return []map[string]interface{}{{
				"id": 7, "name": "Juan Perez", "email": "juan@example.com",
				"vat": "12345678", "mobile": false, "phone": false,
			}}, nil
		},
	}
	r := testRouter(rpc)
	mail := &recordingMail{}
	r.verifier = sms.NewVerifier(sms.NewMemoryStore(), silentSender{}).WithMailer(email.NewService(mail))

	rr := doJSON(r, http.MethodPost, "/api/auth/request-code", `{"dni":"12345678"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Success     bool   `json:"success"`
		MaskedEmail string `json:"maskedEmail"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "ju***@example.com", resp.MaskedEmail)
	assert.NotContains(t, rr.Body.String(), "juan@example.com", "full address must not leak")
	assert.Equal(t, "juan@example.com", mail.to)
}

func TestHealthEndpoint(t *testing.T) {
	r := testRouter(&fakeRPC{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)
}
