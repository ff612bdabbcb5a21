package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kolo/xmlrpc"
	"github.com/terralima/portalgo/internal/apperr"
	"github.com/terralima/portalgo/internal/config"
)

// RPC is the remote-procedure surface the route handlers and services
// depend on. *Client is the production implementation; tests substitute
// their own.
type RPC interface {
	ExecuteKw(ctx context.Context, model, method string, args []interface{}, kwargs map[string]interface{}) (interface{}, error)
	SearchRead(ctx context.Context, model string, domain Domain, fields []string, opts *Options, result interface{}) error
	Read(ctx context.Context, model string, ids []int64, fields []string, result interface{}) error
	Create(ctx context.Context, model string, values map[string]interface{}) (int64, error)
	Write(ctx context.Context, model string, ids []int64, values map[string]interface{}) error
	CallMethod(ctx context.Context, model, method string, ids []int64, kwargs map[string]interface{}) (interface{}, error)
	SearchCount(ctx context.Context, model string, domain Domain) (int64, error)
	ReadGroup(ctx context.Context, model string, domain Domain, fields, groupBy []string) ([]map[string]interface{}, error)
	SessionAuthenticate(ctx context.Context, login, password string) (*SessionInfo, error)
}

// Client talks JSON-RPC to the ERP's object-execution endpoint. It is
// stateless per invocation: credentials ride along in every envelope.
type Client struct {
	URL        string // JSON-RPC endpoint (.../jsonrpc)
	Database   string
	Username   string
	Password   string
	HTTPClient *http.Client

	uid   int64
	reqID int64
}

// NewClient creates a new ERP client from the injected configuration
func NewClient(cfg config.OdooConfig) *Client {
	return &Client{
		URL:        cfg.URL,
		Database:   cfg.Database,
		Username:   cfg.Username,
		Password:   cfg.Password,
		uid:        int64(cfg.UserID),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// UID returns the numeric user id used for execute_kw calls
func (c *Client) UID() int64 {
	return atomic.LoadInt64(&c.uid)
}

// ResolveUID authenticates against the XML-RPC common endpoint and stores
// the resulting numeric uid. Called at startup when ODOO_USER_ID is not
// configured.
func (c *Client) ResolveUID() (int64, error) {
	client, err := xmlrpc.NewClient(c.baseURL()+"/xmlrpc/2/common", nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create XML-RPC client: %w", err)
	}
	defer client.Close()

	args := []interface{}{c.Database, c.Username, c.Password, make(map[string]interface{})}
	var uid int64
	if err := client.Call("authenticate", args, &uid); err != nil {
		return 0, fmt.Errorf("authentication failed: %w", err)
	}
	if uid == 0 {
		return 0, apperr.New(apperr.Auth, "invalid ERP credentials")
	}

	atomic.StoreInt64(&c.uid, uid)
	return uid, nil
}

// baseURL strips the /jsonrpc suffix from the configured endpoint
func (c *Client) baseURL() string {
	return strings.TrimSuffix(strings.TrimSuffix(c.URL, "/"), "/jsonrpc")
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      int64       `json:"id"`
}

type objectParams struct {
	Service string        `json:"service"`
	Method  string        `json:"method"`
	Args    []interface{} `json:"args"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// call posts one JSON-RPC envelope and returns the raw result payload
func (c *Client) call(ctx context.Context, url string, params interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  params,
		ID:      atomic.AddInt64(&c.reqID, 1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal RPC request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build RPC request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "ERP unreachable", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, apperr.Newf(apperr.Upstream, "ERP HTTP error %d: %s", res.StatusCode, strings.TrimSpace(string(text)))
	}

	var rpcRes rpcResponse
	if err := json.NewDecoder(res.Body).Decode(&rpcRes); err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "invalid ERP response", err)
	}
	if rpcRes.Error != nil {
		return nil, apperr.Wrap(apperr.Upstream, rpcRes.Error.Error(), rpcRes.Error)
	}

	return rpcRes.Result, nil
}

// executeKw runs a named method on a named model via the object service
func (c *Client) executeKw(ctx context.Context, model, method string, args []interface{}, kwargs map[string]interface{}) (json.RawMessage, error) {
	if args == nil {
		args = []interface{}{}
	}
	if kwargs == nil {
		kwargs = map[string]interface{}{}
	}
	return c.call(ctx, c.URL, objectParams{
		Service: "object",
		Method:  "execute_kw",
		Args: []interface{}{
			c.Database, c.UID(), c.Password,
			model, method, args, kwargs,
		},
	})
}

// ExecuteKw runs a named method and returns the result payload verbatim
func (c *Client) ExecuteKw(ctx context.Context, model, method string, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	raw, err := c.executeKw(ctx, model, method, args, kwargs)
	if err != nil {
		return nil, err
	}
	var result interface{}
	if len(raw) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "invalid ERP result", err)
	}
	return result, nil
}

// Options are common keyword arguments for search-style methods
type Options struct {
	Fields []string
	Limit  int
	Offset int
	Order  string
}

func (o *Options) kwargs() map[string]interface{} {
	kw := map[string]interface{}{}
	if o == nil {
		return kw
	}
	if o.Fields != nil {
		kw["fields"] = o.Fields
	}
	if o.Limit > 0 {
		kw["limit"] = o.Limit
	}
	if o.Offset > 0 {
		kw["offset"] = o.Offset
	}
	if o.Order != "" {
		kw["order"] = o.Order
	}
	return kw
}

// SearchRead fetches records matching a domain directly into result, a
// pointer to a slice of structs with json tags.
func (c *Client) SearchRead(ctx context.Context, model string, domain Domain, fields []string, opts *Options, result interface{}) error {
	if opts == nil {
		opts = &Options{}
	}
	if fields != nil {
		opts.Fields = fields
	}
	if domain == nil {
		domain = Domain{}
	}

	raw, err := c.executeKw(ctx, model, "search_read", []interface{}{domain}, opts.kwargs())
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return apperr.Wrap(apperr.Upstream, "failed to decode search_read result", err)
	}
	return nil
}

// Read reads records by ids into result
func (c *Client) Read(ctx context.Context, model string, ids []int64, fields []string, result interface{}) error {
	kwargs := map[string]interface{}{}
	if fields != nil {
		kwargs["fields"] = fields
	}
	raw, err := c.executeKw(ctx, model, "read", []interface{}{ids}, kwargs)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return apperr.Wrap(apperr.Upstream, "failed to decode read result", err)
	}
	return nil
}

// Create creates a record and returns its id
func (c *Client) Create(ctx context.Context, model string, values map[string]interface{}) (int64, error) {
	raw, err := c.executeKw(ctx, model, "create", []interface{}{values}, nil)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, apperr.Wrap(apperr.Upstream, "failed to decode create result", err)
	}
	return id, nil
}

// Write updates existing records
func (c *Client) Write(ctx context.Context, model string, ids []int64, values map[string]interface{}) error {
	raw, err := c.executeKw(ctx, model, "write", []interface{}{ids, values}, nil)
	if err != nil {
		return err
	}
	var ok bool
	if err := json.Unmarshal(raw, &ok); err != nil {
		return apperr.Wrap(apperr.Upstream, "failed to decode write result", err)
	}
	if !ok {
		return apperr.New(apperr.Upstream, "ERP write operation returned false")
	}
	return nil
}

// CallMethod calls a custom action method on records (e.g. action_confirm)
func (c *Client) CallMethod(ctx context.Context, model, method string, ids []int64, kwargs map[string]interface{}) (interface{}, error) {
	return c.ExecuteKw(ctx, model, method, []interface{}{ids}, kwargs)
}

// SearchCount counts records matching a domain
func (c *Client) SearchCount(ctx context.Context, model string, domain Domain) (int64, error) {
	if domain == nil {
		domain = Domain{}
	}
	raw, err := c.executeKw(ctx, model, "search_count", []interface{}{domain}, nil)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, apperr.Wrap(apperr.Upstream, "failed to decode search_count result", err)
	}
	return n, nil
}

// ReadGroup aggregates records matching a domain
func (c *Client) ReadGroup(ctx context.Context, model string, domain Domain, fields, groupBy []string) ([]map[string]interface{}, error) {
	if domain == nil {
		domain = Domain{}
	}
	raw, err := c.executeKw(ctx, model, "read_group", []interface{}{domain}, map[string]interface{}{
		"fields":  fields,
		"groupby": groupBy,
	})
	if err != nil {
		return nil, err
	}
	var groups []map[string]interface{}
	if err := json.Unmarshal(raw, &groups); err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "failed to decode read_group result", err)
	}
	return groups, nil
}

// SessionInfo is the normalized user payload from web session auth
type SessionInfo struct {
	UID       int64  `json:"uid"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	SessionID string `json:"session_id"`
	PartnerID int64  `json:"partner_id"`
	CompanyID int64  `json:"company_id"`
	IsSystem  bool   `json:"is_system"`
}

// SessionAuthenticate verifies a salesperson's ERP credentials against the
// web session endpoint and returns the normalized user payload.
func (c *Client) SessionAuthenticate(ctx context.Context, login, password string) (*SessionInfo, error) {
	raw, err := c.call(ctx, c.baseURL()+"/web/session/authenticate", map[string]interface{}{
		"db":       c.Database,
		"login":    login,
		"password": password,
	})
	if err != nil {
		var rpcErr *RPCError
		if ok := asRPCError(err, &rpcErr); ok {
			return nil, apperr.Wrap(apperr.Auth, rpcErr.Error(), rpcErr)
		}
		return nil, err
	}

	// uid, partner_id and company_id come back as false on failure or
	// for users without the relation set
	var payload struct {
		UID       json.RawMessage `json:"uid"`
		Name      string          `json:"name"`
		Username  string          `json:"username"`
		SessionID string          `json:"session_id"`
		PartnerID json.RawMessage `json:"partner_id"`
		CompanyID json.RawMessage `json:"company_id"`
		IsSystem  bool            `json:"is_system"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "invalid session payload", err)
	}

	info := SessionInfo{
		Name:      payload.Name,
		Username:  payload.Username,
		SessionID: payload.SessionID,
		UID:       looseInt(payload.UID),
		PartnerID: looseInt(payload.PartnerID),
		CompanyID: looseInt(payload.CompanyID),
		IsSystem:  payload.IsSystem,
	}
	if info.UID == 0 {
		return nil, apperr.New(apperr.Auth, "invalid credentials")
	}
	return &info, nil
}

// looseInt decodes an integer field that may arrive as false
func looseInt(raw json.RawMessage) int64 {
	var n int64
	if raw == nil || json.Unmarshal(raw, &n) != nil {
		return 0
	}
	return n
}
