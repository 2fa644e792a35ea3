package authsdk

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// Client talks to the portal auth service. It keeps the session cookie in
// its own jar, so one Client is one signed-in browser.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a client with a fresh cookie jar. Redirects are not
// followed, so gate responses can be inspected.
func NewClient(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Signup creates an account. It does not sign the user in.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*UserResponse, error) {
	var out UserResponse
	if err := c.postJSON(ctx, "/api/auth/signup", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login submits credentials. When the response has NeedMFA set, finish with
// VerifyMFA; otherwise the client is already signed in.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.postJSON(ctx, "/api/auth/login", LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyMFA answers the login challenge with an email or authenticator code.
func (c *Client) VerifyMFA(ctx context.Context, email, method, code string) error {
	var out SuccessResponse
	return c.postJSON(ctx, "/api/auth/mfa/verify", MFAVerifyRequest{Email: email, Method: method, Code: code}, &out)
}

// SetupMFA asks for a new authenticator secret. Requires a verified session.
func (c *Client) SetupMFA(ctx context.Context) (*MFASetupResponse, error) {
	var out MFASetupResponse
	if err := c.postJSON(ctx, "/api/auth/mfa/setup", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EnableMFA stores secret once code proves the authenticator produces it.
func (c *Client) EnableMFA(ctx context.Context, secret, code string) error {
	var out SuccessResponse
	return c.postJSON(ctx, "/api/auth/mfa/enable", MFAEnableRequest{Secret: secret, Code: code}, &out)
}

// Logout clears the session cookie. It never fails on the server side.
func (c *Client) Logout(ctx context.Context) error {
	var out SuccessResponse
	return c.postJSON(ctx, "/api/auth/logout", nil, &out)
}

// Me returns the current session. A signed-out client gets an *APIError
// with status 401.
func (c *Client) Me(ctx context.Context) (*SessionUser, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/auth/me", nil, nil)
	if err != nil {
		return nil, err
	}

	var out MeResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Page requests a dashboard path and returns the status and, for redirects,
// the Location header. Useful for checking access rules.
func (c *Client) Page(ctx context.Context, path string) (int, string, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	return resp.StatusCode, resp.Header.Get("Location"), nil
}

// SessionCookie returns the session token held in the jar, or "".
func (c *Client) SessionCookie() string {
	if c.HTTPClient.Jar == nil {
		return ""
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return ""
	}
	for _, ck := range c.HTTPClient.Jar.Cookies(u) {
		if ck.Name == "session" {
			return ck.Value
		}
	}
	return ""
}
