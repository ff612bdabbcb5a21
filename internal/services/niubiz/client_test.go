package niubiz

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/terralima/portalgo/internal/apperr"
)

func testClient(url string) *Client {
	return &Client{
		BaseURL:    url,
		MerchantID: "456879852",
		AccessKey:  "secret",
		HTTPClient: http.DefaultClient,
	}
}

func TestCreateSessionSendsBasicAuthAndCentavos(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"sessionKey":     "sk-123",
			"expirationTime": 1200000,
		})
	}))
	defer srv.Close()

	key, err := testClient(srv.URL).CreateSession(context.Background(), 1500.50, "E01MZQ102P-C005-20260130", "10.0.0.1")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if key != "sk-123" {
		t.Errorf("sessionKey = %q", key)
	}
	// base64("456879852:secret")
	if gotAuth != "Basic NDU2ODc5ODUyOnNlY3JldA==" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["amount"] != "150050" {
		t.Errorf("amount = %v, want centavos string", gotBody["amount"])
	}
}

func TestCreateSessionEmptyKeyIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{})
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).CreateSession(context.Background(), 10, "ref", "10.0.0.1"); err == nil {
		t.Fatal("expected an error for an empty session key")
	}
}

func TestAuthorizeDecodesDataMap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"order": map[string]interface{}{
				"transactionId":  "T-99",
				"purchaseNumber": "REF-1",
				"amount":         "150050",
				"currency":       "PEN",
			},
			"dataMap": map[string]interface{}{
				"ACTION_CODE":        "000",
				"ACTION_DESCRIPTION": "Approved",
				"CARD":               "455170******8329",
				"BRAND":              "visa",
			},
		})
	}))
	defer srv.Close()

	auth, err := testClient(srv.URL).Authorize(context.Background(), "tok", 1500.50, "REF-1")
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if !auth.Approved() {
		t.Error("ACTION_CODE 000 should be approved")
	}
	soles, err := auth.AmountSoles()
	if err != nil {
		t.Fatalf("AmountSoles failed: %v", err)
	}
	if soles != 1500.50 {
		t.Errorf("AmountSoles = %v", soles)
	}
}

func TestRejectedCardIsNotApproved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"dataMap": map[string]interface{}{
				"ACTION_CODE":        "101",
				"ACTION_DESCRIPTION": "Operacion Denegada",
			},
		})
	}))
	defer srv.Close()

	auth, err := testClient(srv.URL).Authorize(context.Background(), "tok", 10, "REF-1")
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	if auth.Approved() {
		t.Error("ACTION_CODE 101 must not be approved")
	}
}

func TestGatewayErrorMapsToUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).CreateSession(context.Background(), 10, "ref", "10.0.0.1")
	if err == nil {
		t.Fatal("expected an error from the gateway")
	}
	if apperr.StatusCode(err) != 500 {
		t.Errorf("gateway failures should map to 500, got %d", apperr.StatusCode(err))
	}
}
