// Package client is the programmatic consumer of the PulseWatch API: a
// single HTTP wrapper with bearer token management and transparent token
// refresh, plus a realtime subscriber for the monitoring hub.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

const apiPrefix = "/api/v1"

// Config configures a Client.
type Config struct {
	// BaseURL is the API origin, e.g. "https://api.pulsewatch.io".
	BaseURL string

	// HTTPClient overrides the transport. Defaults to a client with
	// Timeout applied.
	HTTPClient *http.Client

	// Timeout applies when HTTPClient is nil. Default 30s.
	Timeout time.Duration

	// OnAuthExpired is invoked after a failed token refresh, once the
	// stored tokens have been cleared. Optional.
	OnAuthExpired func()
}

// Client is the PulseWatch API client. It is safe for concurrent use;
// when multiple requests hit a 401 at once only one refresh call is
// made and the rest are replayed with the new token.
type Client struct {
	baseURL       string
	http          *http.Client
	onAuthExpired func()

	mu           sync.RWMutex
	accessToken  string
	refreshToken string

	// refreshMu serializes token refresh. Holders of refreshMu must
	// not hold mu.
	refreshMu sync.Mutex
}

// New creates a Client.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:       cfg.BaseURL,
		http:          httpClient,
		onAuthExpired: cfg.OnAuthExpired,
	}
}

// SetTokens stores a token pair, e.g. restored from a previous session.
func (c *Client) SetTokens(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = access
	c.refreshToken = refresh
}

// Tokens returns the current token pair.
func (c *Client) Tokens() (access, refresh string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken, c.refreshToken
}

// ClearTokens drops the stored token pair.
func (c *Client) ClearTokens() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = ""
	c.refreshToken = ""
}

// Login authenticates with email and password and stores the returned
// token pair on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	body := map[string]string{"email": email, "password": password}

	var tokens TokenResponse
	if err := c.doPlain(ctx, http.MethodPost, apiPrefix+"/auth/login", body, &tokens); err != nil {
		return nil, err
	}
	c.SetTokens(tokens.AccessToken, tokens.RefreshToken)
	return &tokens, nil
}

// Logout revokes the stored refresh token and clears the token pair.
func (c *Client) Logout(ctx context.Context) error {
	_, refresh := c.Tokens()
	defer c.ClearTokens()
	if refresh == "" {
		return nil
	}
	return c.doPlain(ctx, http.MethodPost, apiPrefix+"/auth/logout",
		map[string]string{"refreshToken": refresh}, nil)
}

// doPlain performs a request against an endpoint that does not use the
// response envelope (the auth endpoints).
func (c *Client) doPlain(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return typedError(resp.StatusCode, problemMessage(data), nil)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// envelope mirrors the server's response wrapper.
type envelope struct {
	IsSuccess    bool            `json:"isSuccess"`
	Data         json.RawMessage `json:"data"`
	ErrorMessage string          `json:"errorMessage"`
}

// do performs an authenticated request against an envelope endpoint. A
// 401 triggers a single-flight token refresh and one replay.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token, _ := c.Tokens()

	resp, err := c.send(ctx, method, path, body, token)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		_ = resp.Body.Close()

		newToken, refreshErr := c.freshToken(ctx, token)
		if refreshErr != nil {
			return refreshErr
		}
		resp, err = c.send(ctx, method, path, body, newToken)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		// Infra errors (problem+json, proxies) bypass the envelope.
		if resp.StatusCode >= 400 {
			return typedError(resp.StatusCode, problemMessage(data), nil)
		}
		return fmt.Errorf("decode envelope: %w", err)
	}

	if !env.IsSuccess {
		return typedError(resp.StatusCode, env.ErrorMessage, data)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
	}
	return nil
}

// freshToken returns a token differing from usedToken, refreshing at
// most once regardless of how many callers arrive with the same stale
// token.
func (c *Client) freshToken(ctx context.Context, usedToken string) (string, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	current, refresh := c.Tokens()
	if current != usedToken && current != "" {
		// Another caller already refreshed while we queued.
		return current, nil
	}
	if refresh == "" {
		c.expireAuth()
		return "", &AuthenticationError{ApiError{StatusCode: http.StatusUnauthorized, Message: "no refresh token"}}
	}

	var tokens TokenResponse
	err := c.doPlain(ctx, http.MethodPost, apiPrefix+"/auth/refresh",
		map[string]string{"refreshToken": refresh}, &tokens)
	if err != nil {
		c.expireAuth()
		return "", &AuthenticationError{ApiError{StatusCode: http.StatusUnauthorized, Message: "token refresh failed: " + err.Error()}}
	}

	c.SetTokens(tokens.AccessToken, tokens.RefreshToken)
	return tokens.AccessToken, nil
}

func (c *Client) expireAuth() {
	c.ClearTokens()
	if c.onAuthExpired != nil {
		c.onAuthExpired()
	}
}

func (c *Client) send(ctx context.Context, method, path string, body any, token string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// problemMessage extracts the detail from an RFC7807 body, falling back
// to the raw text.
func problemMessage(data []byte) string {
	var problem struct {
		Detail string `json:"detail"`
		Title  string `json:"title"`
	}
	if err := json.Unmarshal(data, &problem); err == nil {
		if problem.Detail != "" {
			return problem.Detail
		}
		if problem.Title != "" {
			return problem.Title
		}
	}
	return string(data)
}

// typedError maps a status code to the matching error type. raw, when
// non-nil, is inspected for field-level validation errors.
func typedError(status int, message string, raw []byte) error {
	base := ApiError{StatusCode: status, Message: message}
	switch {
	case status == http.StatusBadRequest:
		ve := &ValidationError{ApiError: base}
		if raw != nil {
			var body struct {
				Errors []struct {
					Field   string `json:"field"`
					Message string `json:"message"`
				} `json:"errors"`
			}
			if err := json.Unmarshal(raw, &body); err == nil && len(body.Errors) > 0 {
				ve.Fields = make(map[string][]string, len(body.Errors))
				for _, fe := range body.Errors {
					ve.Fields[fe.Field] = append(ve.Fields[fe.Field], fe.Message)
				}
			}
		}
		return ve
	case status == http.StatusUnauthorized:
		return &AuthenticationError{base}
	case status == http.StatusForbidden:
		return &AuthorizationError{base}
	case status == http.StatusNotFound:
		return &NotFoundError{base}
	case status == http.StatusConflict:
		return &ConflictError{base}
	case status >= 500:
		return &ServerError{base}
	default:
		return &base
	}
}

// ListIndicatorsOptions filters and paginates ListIndicators.
type ListIndicatorsOptions struct {
	Page       int
	PageSize   int
	ActiveOnly bool
}

// ListIndicators retrieves a page of indicators.
func (c *Client) ListIndicators(ctx context.Context, opts ListIndicatorsOptions) (*IndicatorPage, error) {
	q := url.Values{}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	if opts.ActiveOnly {
		q.Set("activeOnly", "true")
	}
	path := apiPrefix + "/indicators"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page IndicatorPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetIndicator retrieves a single indicator.
func (c *Client) GetIndicator(ctx context.Context, id string) (*Indicator, error) {
	var ind Indicator
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/indicators/"+url.PathEscape(id), nil, &ind); err != nil {
		return nil, err
	}
	return &ind, nil
}

// CreateIndicator creates an indicator.
func (c *Client) CreateIndicator(ctx context.Context, req IndicatorCreateRequest) (*Indicator, error) {
	var ind Indicator
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/indicators", req, &ind); err != nil {
		return nil, err
	}
	return &ind, nil
}

// UpdateIndicator updates an indicator.
func (c *Client) UpdateIndicator(ctx context.Context, id string, req IndicatorUpdateRequest) (*Indicator, error) {
	var ind Indicator
	if err := c.do(ctx, http.MethodPut, apiPrefix+"/indicators/"+url.PathEscape(id), req, &ind); err != nil {
		return nil, err
	}
	return &ind, nil
}

// DeleteIndicator deletes an indicator.
func (c *Client) DeleteIndicator(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, apiPrefix+"/indicators/"+url.PathEscape(id), nil, nil)
}

// ExecuteIndicator starts an on-demand execution. Progress arrives over
// the realtime subscriber.
func (c *Client) ExecuteIndicator(ctx context.Context, id string) (*ExecutionResult, error) {
	var result ExecutionResult
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/indicators/"+url.PathEscape(id)+"/execute", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeactivateIndicator takes an indicator out of scheduling.
func (c *Client) DeactivateIndicator(ctx context.Context, id string) (*Indicator, error) {
	var ind Indicator
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/indicators/"+url.PathEscape(id)+"/deactivate", nil, &ind); err != nil {
		return nil, err
	}
	return &ind, nil
}

// SetIndicatorContacts replaces the indicator's notification contacts.
func (c *Client) SetIndicatorContacts(ctx context.Context, id string, contactIDs []string) error {
	body := map[string][]string{"contactIds": contactIDs}
	return c.do(ctx, http.MethodPut, apiPrefix+"/indicators/"+url.PathEscape(id)+"/contacts", body, nil)
}

// ListCollectors retrieves all collectors.
func (c *Client) ListCollectors(ctx context.Context) ([]Collector, error) {
	var cols []Collector
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/collectors", nil, &cols); err != nil {
		return nil, err
	}
	return cols, nil
}

// ListCollectorItems retrieves the item names of a collector.
func (c *Client) ListCollectorItems(ctx context.Context, id string) ([]string, error) {
	var names []string
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/collectors/"+url.PathEscape(id)+"/items", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// ListSchedules retrieves all schedules.
func (c *Client) ListSchedules(ctx context.Context) ([]Schedule, error) {
	var scheds []Schedule
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/schedules", nil, &scheds); err != nil {
		return nil, err
	}
	return scheds, nil
}

// ListAlertsOptions filters and paginates ListAlerts.
type ListAlertsOptions struct {
	Page           int
	PageSize       int
	UnresolvedOnly bool
	IndicatorID    string
}

// ListAlerts retrieves a page of alerts.
func (c *Client) ListAlerts(ctx context.Context, opts ListAlertsOptions) (*AlertPage, error) {
	q := url.Values{}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	if opts.UnresolvedOnly {
		q.Set("unresolvedOnly", "true")
	}
	if opts.IndicatorID != "" {
		q.Set("indicatorId", opts.IndicatorID)
	}
	path := apiPrefix + "/alerts"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page AlertPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ResolveAlert marks an alert resolved.
func (c *Client) ResolveAlert(ctx context.Context, id, resolvedBy string) (*Alert, error) {
	body := map[string]string{"resolvedBy": resolvedBy}

	var a Alert
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/alerts/"+url.PathEscape(id)+"/resolve", body, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListContacts retrieves all contacts.
func (c *Client) ListContacts(ctx context.Context) ([]Contact, error) {
	var contacts []Contact
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/contacts", nil, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

// CreateContact creates a contact.
func (c *Client) CreateContact(ctx context.Context, req ContactRequest) (*Contact, error) {
	var contact Contact
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/contacts", req, &contact); err != nil {
		return nil, err
	}
	return &contact, nil
}

// WorkerStatus retrieves the execution worker's current state.
func (c *Client) WorkerStatus(ctx context.Context) (*WorkerStatus, error) {
	var status WorkerStatus
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/worker/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// TriggerWorker runs a scheduling pass immediately.
func (c *Client) TriggerWorker(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, apiPrefix+"/worker/trigger", nil, nil)
}
