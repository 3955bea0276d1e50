// Package api implements the request pipeline: the one HTTP client every
// page uses to reach the remote ChMS API. Authentication and branch-scope
// headers are injected here so callers never attach them by hand.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/parishdesk/console/internal/credential"
	"github.com/parishdesk/console/internal/errors"
	"github.com/parishdesk/console/internal/httputil"
	"github.com/parishdesk/console/internal/logging"
	"github.com/parishdesk/console/internal/scope"
)

const (
	// AuthorizationHeader carries the bearer credential.
	AuthorizationHeader = "Authorization"
	// BranchHeader carries the tenant scope. It is present on every
	// request, scope.Headquarters when no branch has been chosen.
	BranchHeader = "X-Branch-Id"

	maxResponseBytes  = 8 << 20
	maxErrorBodyBytes = 32 << 10
)

// RequestHook runs before a request leaves the process. Hooks must be
// synchronous and in-memory; they run in registration order.
type RequestHook func(*http.Request)

// ResponseHook inspects every received response, in registration order.
type ResponseHook func(*http.Response)

// Config configures the pipeline client.
type Config struct {
	BaseURL     string
	Credentials credential.Store
	Scope       *scope.Register
	Timeout     time.Duration
	Logger      *logging.Logger
	// OnAuthFailure runs whenever the remote API answers 401. The failure
	// is still returned to the caller afterwards.
	OnAuthFailure func()
}

// Client is the decorated HTTP client.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	logger       *logging.Logger
	beforeSend   []RequestHook
	afterReceive []ResponseHook
}

// NewClient builds the pipeline and registers the two standard hooks:
// credential injection and branch scoping on the way out, authorization
// failure detection on the way in.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
	}

	creds := cfg.Credentials
	register := cfg.Scope
	c.OnRequest(func(req *http.Request) {
		if creds != nil {
			if token, ok := creds.Read(); ok {
				req.Header.Set(AuthorizationHeader, "Bearer "+token)
			}
		}
		branch := scope.Headquarters
		if register != nil {
			branch = register.Get()
		}
		req.Header.Set(BranchHeader, strconv.Itoa(branch))
	})

	onAuthFailure := cfg.OnAuthFailure
	c.OnResponse(func(resp *http.Response) {
		if resp.StatusCode == http.StatusUnauthorized && onAuthFailure != nil {
			onAuthFailure()
		}
	})

	return c
}

// OnRequest appends a before-send hook.
func (c *Client) OnRequest(h RequestHook) {
	c.beforeSend = append(c.beforeSend, h)
}

// OnResponse appends an after-receive hook.
func (c *Client) OnResponse(h ResponseHook) {
	c.afterReceive = append(c.afterReceive, h)
}

// Do executes a request through the pipeline. On a 401 the auth-failure
// hook has already run by the time the error is returned; the caller's own
// error path still fires because the failure is never swallowed here.
func (c *Client) Do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for _, hook := range c.beforeSend {
		hook(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}

	for _, hook := range c.afterReceive {
		hook(resp)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if c.logger != nil {
			c.logger.WithContext(ctx).WithFields(map[string]interface{}{
				"method": method,
				"path":   path,
			}).Warn("authorization failure from upstream")
		}
		return resp, errors.Unauthorized("Session rejected by the API")
	}

	return resp, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	return c.Do(ctx, http.MethodPut, path, body)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*http.Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil)
}

// DecodeResponse decodes a JSON response into target, translating error
// statuses into ServiceErrors with the message pulled from the API's error
// envelope when present.
func DecodeResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, truncated, err := httputil.ReadAllWithLimit(resp.Body, maxErrorBodyBytes)
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		msg := errorMessage(body)
		if truncated {
			msg += "...(truncated)"
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return errors.Unauthorized(msg)
		}
		return errors.Upstream(resp.StatusCode, msg)
	}

	if target == nil {
		if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes)); err != nil {
			return fmt.Errorf("discard response body: %w", err)
		}
		return nil
	}

	body, err := httputil.ReadAllStrict(resp.Body, maxResponseBytes)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage pulls a human-readable message out of the API's error body.
// The API answers either {"error":{"message":...}} or {"message":...};
// anything else falls back to the raw body.
func errorMessage(body []byte) string {
	if m := gjson.GetBytes(body, "error.message"); m.Exists() {
		return m.String()
	}
	if m := gjson.GetBytes(body, "message"); m.Exists() {
		return m.String()
	}
	return strings.TrimSpace(string(body))
}
