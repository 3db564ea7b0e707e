// Package upstream implements the HTTP client for the wholesale portal:
// the multi-step login protocol and cookie-authenticated business calls.
// Every request made through a jar absorbs the response's Set-Cookie
// headers back into that jar, so the jar always reflects the most recent
// server state.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/denkrupka/portalgate/pkg/cookiejar"
)

const (
	// DefaultTimeout bounds every portal call.
	DefaultTimeout = 20 * time.Second

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/145.0.0.0 Safari/537.36"

	loginPath    = "/api/login"
	userInfoPath = "/api/userinfo?query=user,availableCustomers,salesman,storelc,pricetype"
)

// Client talks to the portal. It is safe for concurrent use; per-session
// serialization is the caller's concern.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a portal client with the default timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// loginRequest is the portal's unified login-endpoint body. Only the
// fields for the current step are populated.
type loginRequest struct {
	Username            string `json:"userName,omitempty"`
	Password            string `json:"password,omitempty"`
	Code2FA             string `json:"code2Fa,omitempty"`
	RememberWorkstation bool   `json:"rememberWorkstation,omitempty"`
	Step                int    `json:"step,omitempty"`
	SendAgain           bool   `json:"sendAgainType,omitempty"`
}

// Bootstrap fetches the portal homepage over the jar to collect the
// anonymous cookies the login endpoint expects.
func (c *Client) Bootstrap(ctx context.Context, jar *cookiejar.Jar) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/", nil)
	if err != nil {
		return err
	}
	c.setHeaders(req, jar)
	req.Header.Set("Accept", "text/html,*/*")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return wrapTransport(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	jar.Absorb(resp.Header)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Status: resp.StatusCode}
	}
	return nil
}

// Login submits the first factor.
func (c *Client) Login(ctx context.Context, jar *cookiejar.Jar, username, password string) (LoginReply, error) {
	return c.postLogin(ctx, jar, loginRequest{Username: username, Password: password})
}

// VerifyCode submits an SMS code over a challenge's jar. The remember
// flag asks the portal to skip the second factor for later logins from
// this workstation, which is what makes silent refresh viable.
func (c *Client) VerifyCode(ctx context.Context, jar *cookiejar.Jar, code string) (LoginReply, error) {
	return c.postLogin(ctx, jar, loginRequest{Code2FA: code, RememberWorkstation: true, Step: 1})
}

// ResendCode asks the portal to send a fresh SMS for the pending login.
func (c *Client) ResendCode(ctx context.Context, jar *cookiejar.Jar) (LoginReply, error) {
	return c.postLogin(ctx, jar, loginRequest{SendAgain: true})
}

func (c *Client) postLogin(ctx context.Context, jar *cookiejar.Jar, body loginRequest) (LoginReply, error) {
	var reply LoginReply
	if err := c.doJSON(ctx, http.MethodPost, loginPath, body, jar, &reply); err != nil {
		return LoginReply{}, err
	}
	return reply, nil
}

// UserInfo fetches the authenticated account's profile fields.
func (c *Client) UserInfo(ctx context.Context, jar *cookiejar.Jar) (UserInfoReply, error) {
	var reply UserInfoReply
	if err := c.doJSON(ctx, http.MethodGet, userInfoPath, nil, jar, &reply); err != nil {
		return UserInfoReply{}, err
	}
	return reply, nil
}

// Get performs one business call against the portal, optionally over a
// session's jar (nil for anonymous), and returns the raw response.
func (c *Client) Get(ctx context.Context, path string, jar *cookiejar.Jar) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, jar)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, wrapTransport(err)
	}
	defer resp.Body.Close()

	if jar != nil {
		jar.Absorb(resp.Header)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapTransport(err)
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

// doJSON performs one JSON call over the jar, absorbing response cookies
// before any status check so failed calls still update session state.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, jar *cookiejar.Jar, out any) error {
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
		return err
	}
	c.setHeaders(req, jar)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Origin", c.BaseURL)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return wrapTransport(err)
	}
	defer resp.Body.Close()

	jar.Absorb(resp.Header)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Status: resp.StatusCode}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request, jar *cookiejar.Jar) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Referer", c.BaseURL+"/")
	if jar != nil && jar.Len() > 0 {
		req.Header.Set("Cookie", jar.Serialize())
	}
}
