package gatesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SessionHeader carries the gateway session id on authenticated calls.
const SessionHeader = "X-Session-ID"

// Client is a Go client for the portal gateway.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a gateway client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Login starts a login attempt. When the answer carries a SecondFactor,
// follow up with SubmitCode.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/login", "", LoginRequest{
		Username: username,
		Password: password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitCode answers a pending challenge with the SMS code.
func (c *Client) SubmitCode(ctx context.Context, tempID, code string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/login/code", "", CodeRequest{
		TempID: tempID,
		Code:   code,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Resend asks for a fresh SMS on a pending challenge.
func (c *Client) Resend(ctx context.Context, tempID string) (*ResendResponse, error) {
	var out ResendResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/login/resend", "", ResendRequest{TempID: tempID}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout discards the session.
func (c *Client) Logout(ctx context.Context, sessionID string) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/logout", sessionID, nil, nil)
}

// Session returns the cached profile for an established session.
func (c *Client) Session(ctx context.Context, sessionID string) (*SessionResponse, error) {
	var out SessionResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/session", sessionID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status returns the gateway's health summary.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/status", "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Proxy performs one portal call through the session and returns the raw
// body. Non-2xx answers come back as *APIError.
func (c *Client) Proxy(ctx context.Context, sessionID, path string) ([]byte, error) {
	target := "/v1/proxy?path=" + url.QueryEscape(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(SessionHeader, sessionID)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeAPIError(resp.StatusCode, data)
	}
	return data, nil
}

func (c *Client) doJSON(ctx context.Context, method, path, sessionID string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		return decodeAPIError(resp.StatusCode, data)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func decodeAPIError(status int, body []byte) error {
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		apiErr.StatusCode = status
		return &apiErr
	}
	return &APIError{
		StatusCode:  status,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("unexpected HTTP %d", status),
	}
}
