package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	pathPrefix = "/api/auth"

	headerRequestedWith = "X-Requested-With"
	headerRequestID     = "X-Request-ID"
	xhrMarker           = "XMLHttpRequest"

	// maxErrorBody caps how much of an error response is read when looking
	// for a structured message.
	maxErrorBody = 64 << 10
)

// DefaultTimeout is the per-request timeout applied when Config.Timeout is
// zero. A timeout is a transient failure, never an implicit logout.
const DefaultTimeout = 30 * time.Second

// Config carries the settings needed to construct a [Client].
type Config struct {
	// BaseURL is the scheme://host[:port] of the authentication API,
	// without the /api/auth prefix.
	BaseURL string

	// Timeout bounds each request. Zero means [DefaultTimeout].
	Timeout time.Duration
}

// TokenSource returns the bearer token to attach to outgoing requests, or
// the empty string when none is held.
type TokenSource func() string

// Client is the HTTP client for the remote authentication API. It is safe
// for concurrent use.
type Client struct {
	base   string
	http   *http.Client
	tokens TokenSource
}

// NewClient builds a [Client] from cfg. The underlying http.Client gets a
// fresh cookie jar so the server's session cookie is carried across calls;
// pass a custom client through WithHTTPClient to override that.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, errors.New("transport: base URL required")
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("transport: invalid base URL %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{base: base}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("transport: cookie jar: %w", err)
		}
		c.http = &http.Client{Jar: jar, Timeout: timeout}
	} else if c.http.Timeout == 0 {
		c.http.Timeout = timeout
	}

	return c, nil
}

// Option configures a [Client] during construction.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client. The caller keeps
// responsibility for cookie handling and timeouts.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTokenSource installs the bearer token fallback. The source is invoked
// per request; an empty result means no Authorization header.
func WithTokenSource(src TokenSource) Option {
	return func(c *Client) { c.tokens = src }
}

// User is the wire representation of an authenticated principal.
type User struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"isAdmin,omitempty"`
}

// AuthResponse is the body returned by every session-establishing endpoint.
// Data is the server-defined auxiliary payload, passed through unchanged.
type AuthResponse struct {
	User  *User           `json:"user"`
	Data  json.RawMessage `json:"data,omitempty"`
	Token string          `json:"token,omitempty"`
}

// SessionResponse is the body of the session liveness endpoint.
type SessionResponse struct {
	Authenticated bool            `json:"authenticated"`
	User          *User           `json:"user,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type googleRequest struct {
	Credential string `json:"credential"`
}

type adminLoginRequest struct {
	Email         string `json:"email"`
	AdminPassword string `json:"adminPassword"`
}

// Login exchanges email/password credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/login", loginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and, on success, establishes a session.
func (c *Client) Register(ctx context.Context, email, password, name string) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/register", registerRequest{Email: email, Password: password, Name: name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GoogleLogin exchanges an opaque identity-provider credential for a session.
func (c *Client) GoogleLogin(ctx context.Context, credential string) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/google", googleRequest{Credential: credential}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminLogin authenticates with the elevated-privilege credential pair.
func (c *Client) AdminLogin(ctx context.Context, email, adminPassword string) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/admin/login", adminLoginRequest{Email: email, AdminPassword: adminPassword}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout tells the server to end the session. The response body is ignored.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil)
}

// Refresh rotates the session credential and returns the current user.
func (c *Client) Refresh(ctx context.Context) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/refresh", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Session asks the server whether the current credentials identify an
// authenticated principal.
func (c *Client) Session(ctx context.Context) (*SessionResponse, error) {
	var out SessionResponse
	if err := c.do(ctx, http.MethodGet, "/session", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &APIError{Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+pathPrefix+path, body)
	if err != nil {
		return &APIError{Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerRequestedWith, xhrMarker)
	req.Header.Set(headerRequestID, uuid.NewString())
	if c.tokens != nil {
		if tok := c.tokens(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return apiErr
	}

	var body struct {
		Message string `json:"message"`
		Reason  string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		apiErr.Message = body.Message
		apiErr.Reason = body.Reason
	}
	return apiErr
}
