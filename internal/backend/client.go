package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kiwari-pos/tablepos/internal/apperr"
	"github.com/kiwari-pos/tablepos/internal/logger"
	"github.com/shopspring/decimal"
)

// ClientOptions configures the HTTP backend client.
type ClientOptions struct {
	BaseURL  string
	Email    string
	Password string
	Timeout  time.Duration
	Logger   *logger.Logger
	// HTTPClient overrides the default transport, mainly for tests.
	HTTPClient *http.Client
}

// Client implements Backend over the data service's JSON API.
type Client struct {
	baseURL  string
	email    string
	password string
	http     *http.Client
	log      *logger.Logger

	mu      sync.Mutex
	access  string
	refresh string
	user    User
}

var _ Backend = (*Client)(nil)

// User is the account the terminal is logged in as.
type User struct {
	ID       string `json:"id"`
	Profile  string `json:"pos_profile"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func NewClient(opts ClientOptions) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		email:    opts.Email,
		password: opts.Password,
		http:     hc,
		log:      log,
	}
}

// --- Request / Response types ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type openShiftRequest struct {
	Profile     string          `json:"profile"`
	OpeningCash decimal.Decimal `json:"opening_cash"`
}

type shiftResponse struct {
	ID string `json:"id"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type transferRequest struct {
	To string `json:"to"`
}

type invoiceCreatedResponse struct {
	ID string `json:"id"`
}

// --- Auth ---

// Login authenticates with the configured credentials and returns the user.
func (c *Client) Login(ctx context.Context) (User, error) {
	var resp tokenResponse
	err := c.send(ctx, http.MethodPost, "/auth/login", loginRequest{Email: c.email, Password: c.password}, &resp, false)
	if err != nil {
		return User{}, err
	}
	c.setTokens(resp)
	return resp.User, nil
}

// CurrentUser returns the user from the last login or refresh.
func (c *Client) CurrentUser() User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

func (c *Client) refreshTokens(ctx context.Context) error {
	c.mu.Lock()
	token := c.refresh
	c.mu.Unlock()
	if token == "" {
		return apperr.New(apperr.CodeUnauthorized, "not logged in")
	}
	var resp tokenResponse
	if err := c.send(ctx, http.MethodPost, "/auth/refresh", refreshRequest{RefreshToken: token}, &resp, false); err != nil {
		return err
	}
	c.setTokens(resp)
	return nil
}

func (c *Client) setTokens(resp tokenResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.access = resp.AccessToken
	c.refresh = resp.RefreshToken
	c.user = resp.User
}

// --- Backend ---

func (c *Client) GetSessionState(ctx context.Context, profile string) (SessionState, error) {
	var st SessionState
	err := c.do(ctx, http.MethodGet, "/session?profile="+url.QueryEscape(profile), nil, &st)
	return st, err
}

func (c *Client) OpenShift(ctx context.Context, profile string, openingCash decimal.Decimal) (string, error) {
	var resp shiftResponse
	err := c.do(ctx, http.MethodPost, "/shifts", openShiftRequest{Profile: profile, OpeningCash: openingCash}, &resp)
	return resp.ID, err
}

func (c *Client) CloseShift(ctx context.Context, shiftID string) (ShiftSummary, error) {
	var summary ShiftSummary
	err := c.do(ctx, http.MethodPost, "/shifts/"+url.PathEscape(shiftID)+"/close", nil, &summary)
	return summary, err
}

func (c *Client) ShiftSummary(ctx context.Context, shiftID string) (ShiftSummary, error) {
	var summary ShiftSummary
	err := c.do(ctx, http.MethodGet, "/shifts/"+url.PathEscape(shiftID)+"/summary", nil, &summary)
	return summary, err
}

func (c *Client) ListTables(ctx context.Context) ([]Table, error) {
	var tables []Table
	err := c.do(ctx, http.MethodGet, "/tables", nil, &tables)
	return tables, err
}

func (c *Client) SetTableStatus(ctx context.Context, table, status string) error {
	return c.do(ctx, http.MethodPut, tablePath(table, "status"), statusRequest{Status: status}, nil)
}

func (c *Client) TransferTable(ctx context.Context, from, to string) error {
	return c.do(ctx, http.MethodPost, tablePath(from, "transfer"), transferRequest{To: to}, nil)
}

func (c *Client) GetFiredLines(ctx context.Context, table string) ([]OrderLine, error) {
	var lines []OrderLine
	err := c.do(ctx, http.MethodGet, tablePath(table, "lines"), nil, &lines)
	return lines, err
}

func (c *Client) FireLines(ctx context.Context, req FireRequest) (FireResult, error) {
	var res FireResult
	err := c.do(ctx, http.MethodPost, tablePath(req.Table, "kots"), req, &res)
	return res, err
}

func (c *Client) LookupItemByCode(ctx context.Context, code string) (Item, error) {
	var item Item
	err := c.do(ctx, http.MethodGet, "/items/lookup/"+url.PathEscape(code), nil, &item)
	return item, err
}

func (c *Client) CreateInvoice(ctx context.Context, req InvoiceRequest) (string, error) {
	var resp invoiceCreatedResponse
	err := c.do(ctx, http.MethodPost, "/invoices", req, &resp)
	return resp.ID, err
}

func (c *Client) GetInvoice(ctx context.Context, id string) (Invoice, error) {
	var inv Invoice
	err := c.do(ctx, http.MethodGet, "/invoices/"+url.PathEscape(id), nil, &inv)
	return inv, err
}

func (c *Client) ListRecentInvoices(ctx context.Context, limit int) ([]InvoiceSummary, error) {
	var invoices []InvoiceSummary
	path := "/invoices"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	err := c.do(ctx, http.MethodGet, path, nil, &invoices)
	return invoices, err
}

// --- Helpers ---

func tablePath(table, action string) string {
	return "/tables/" + url.PathEscape(table) + "/" + action
}

// do sends an authenticated request. A 401 triggers one token refresh; the
// request was rejected before reaching any handler, so it is resent once.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	err := c.send(ctx, method, path, body, out, true)
	if !apperr.Is(err, apperr.CodeUnauthorized) {
		return err
	}
	if rerr := c.refreshTokens(ctx); rerr != nil {
		if _, lerr := c.Login(ctx); lerr != nil {
			return err
		}
	}
	return c.send(ctx, method, path, body, out, true)
}

func (c *Client) send(ctx context.Context, method, path string, body, out any, authed bool) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		c.mu.Lock()
		token := c.access
		c.mu.Unlock()
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.CodeDependency, err, "backend unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.decodeError(ctx, method, path, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Wrap(apperr.CodeDependency, err, "invalid backend response")
	}
	return nil
}

func (c *Client) decodeError(ctx context.Context, method, path string, resp *http.Response) error {
	var body errorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)

	code := apperr.Code(body.Code)
	if body.Code == "" || apperr.MetadataFor(code).HTTPStatus != resp.StatusCode {
		code = apperr.CodeForStatus(resp.StatusCode)
	}
	msg := body.Error
	if msg == "" {
		msg = apperr.MetadataFor(code).PublicMessage
	}

	c.log.Debug(c.log.WithFields(ctx, map[string]any{
		"method": method,
		"path":   path,
		"status": resp.StatusCode,
	}), "backend request failed")
	return apperr.New(code, msg)
}
