// Package niubiz integrates the Niubiz card-payment gateway: session
// tokens for the checkout widget and the server-side authorization that
// follows it. Amounts cross the wire in centavos.
package niubiz

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/terralima/portalgo/internal/apperr"
	"github.com/terralima/portalgo/internal/config"
)

// Client talks to the Niubiz REST endpoints with Basic credentials
type Client struct {
	BaseURL    string
	MerchantID string
	AccessKey  string
	HTTPClient *http.Client
}

// NewClient creates a gateway client from the injected configuration
func NewClient(cfg config.NiubizConfig) *Client {
	return &Client{
		BaseURL:    cfg.BaseURL,
		MerchantID: cfg.MerchantID,
		AccessKey:  cfg.AccessKey,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether merchant credentials are present
func (c *Client) Configured() bool {
	return c.MerchantID != "" && c.AccessKey != ""
}

// Authorization is the gateway's transaction payload, returned both by
// the authorize call and the status lookup
type Authorization struct {
	Order struct {
		TransactionID  string `json:"transactionId"`
		PurchaseNumber string `json:"purchaseNumber"`
		Amount         string `json:"amount"`
		Currency       string `json:"currency"`
	} `json:"order"`
	DataMap struct {
		ActionCode        string `json:"ACTION_CODE"`
		ActionDescription string `json:"ACTION_DESCRIPTION"`
		Card              string `json:"CARD"`
		Brand             string `json:"BRAND"`
		TraceNumber       string `json:"TRACE_NUMBER"`
	} `json:"dataMap"`
}

// Approved reports whether the gateway accepted the transaction
func (a *Authorization) Approved() bool {
	return a.DataMap.ActionCode == "000"
}

// AmountSoles converts the centavo amount string back to soles
func (a *Authorization) AmountSoles() (float64, error) {
	cents, err := strconv.ParseFloat(a.Order.Amount, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable gateway amount %q: %w", a.Order.Amount, err)
	}
	return cents / 100, nil
}

// CreateSession obtains a session key for the checkout widget
func (c *Client) CreateSession(ctx context.Context, amount float64, orderID, clientIP string) (string, error) {
	body := map[string]interface{}{
		"channel": "web",
		"amount":  cents(amount),
		"antifraud": map[string]interface{}{
			"clientIp": clientIP,
			"merchantDefineData": map[string]interface{}{
				"MDD4":  orderID,
				"MDD21": "0",
				"MDD32": truncate(orderID, 20),
			},
		},
	}

	var session struct {
		SessionKey     string `json:"sessionKey"`
		ExpirationTime int64  `json:"expirationTime"`
	}
	if err := c.post(ctx, "/api.security/v1/security", body, &session); err != nil {
		return "", err
	}
	if session.SessionKey == "" {
		return "", apperr.New(apperr.Upstream, "gateway returned an empty session key")
	}
	return session.SessionKey, nil
}

// Authorize captures a transaction after the customer entered card data
func (c *Client) Authorize(ctx context.Context, transactionToken string, amount float64, purchaseNumber string) (*Authorization, error) {
	body := map[string]interface{}{
		"channel":     "web",
		"captureType": "manual",
		"countable":   true,
		"order": map[string]interface{}{
			"tokenId":        transactionToken,
			"purchaseNumber": purchaseNumber,
			"amount":         cents(amount),
			"currency":       "PEN",
		},
	}

	var auth Authorization
	if err := c.post(ctx, "/api.authorization/v3/authorization/ecommerce/"+c.MerchantID, body, &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

// TransactionStatus looks up a previously authorized transaction
func (c *Client) TransactionStatus(ctx context.Context, transactionID string) (*Authorization, error) {
	url := c.BaseURL + "/api.authorization/v3/authorization/ecommerce/" + c.MerchantID + "/" + transactionID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+c.basicAuth())

	var auth Authorization
	if err := c.do(req, &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

// post sends one JSON request and decodes the response into result
func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+c.basicAuth())
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result interface{}) error {
	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, "payment gateway unreachable", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return apperr.Newf(apperr.Upstream, "gateway error %d: %s", res.StatusCode, strings.TrimSpace(string(text)))
	}
	if err := json.NewDecoder(res.Body).Decode(result); err != nil {
		return apperr.Wrap(apperr.Upstream, "invalid gateway response", err)
	}
	return nil
}

func (c *Client) basicAuth() string {
	return base64.StdEncoding.EncodeToString([]byte(c.MerchantID + ":" + c.AccessKey))
}

// cents renders a sol amount as a whole-centavo string
func cents(amount float64) string {
	return fmt.Sprintf("%.0f", amount*100)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
