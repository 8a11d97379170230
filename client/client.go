package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	on "github.com/panyam/otpnotes"
)

// ExpiryMargin is how close to expiry a stored credential stops being used
const ExpiryMargin = time.Minute

// ErrNoPendingChallenge is returned by the verify calls when no email is
// given and the store has no live challenge of that purpose
var ErrNoPendingChallenge = errors.New("no pending challenge for this server")

// APIError is a non 2xx response from the server
type APIError struct {
	Status  int             `json:"-"`
	Message string          `json:"message"`
	Code    string          `json:"code,omitempty"`
	Errors  []on.FieldError `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		parts := make([]string, len(e.Errors))
		for i, fe := range e.Errors {
			parts[i] = fe.Field + ": " + fe.Message
		}
		return fmt.Sprintf("%s (HTTP %d): %s", e.Message, e.Status, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// ChallengeResponse is returned when a code has been emailed
type ChallengeResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

type credentialResponse struct {
	Message   string         `json:"message"`
	Token     string         `json:"token"`
	ExpiresIn int64          `json:"expires_in"`
	User      on.AccountView `json:"user"`
}

// Client talks to one notes server
type Client struct {
	mu            sync.Mutex
	serverURL     string
	store         CredentialStore
	httpClient    *http.Client
	baseTransport http.RoundTripper
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom base HTTP client (for timeouts, TLS config, etc.)
// The transport from this client will be wrapped with auth handling.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil && client.Transport != nil {
			c.baseTransport = client.Transport
		}
		if client != nil {
			c.httpClient.Timeout = client.Timeout
			c.httpClient.CheckRedirect = client.CheckRedirect
			c.httpClient.Jar = client.Jar
		}
	}
}

// WithTransport sets a custom base transport (for connection pooling, proxies, etc.)
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.baseTransport = transport
	}
}

// NewClient creates a client for serverURL that keeps its credential in store
func NewClient(serverURL string, store CredentialStore, opts ...ClientOption) *Client {
	u, err := url.Parse(serverURL)
	if err == nil && u.Scheme != "" && u.Host != "" {
		serverURL = fmt.Sprintf("%s://%s", u.Scheme, u.Host)
	}

	c := &Client{
		serverURL:     serverURL,
		store:         store,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		baseTransport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient.Transport = &storeTransport{client: c, base: c.baseTransport}
	return c
}

// HTTPClient returns the underlying HTTP client with auth handling
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// ServerURL returns the server URL this client is configured for
func (c *Client) ServerURL() string {
	return c.serverURL
}

// GetToken returns the stored credential, or "" when there is none or it is
// about to expire
func (c *Client) GetToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cred, err := c.store.GetCredential(c.serverURL)
	if err != nil || cred == nil {
		return "", err
	}
	if cred.IsExpiringSoon(ExpiryMargin) {
		return "", nil
	}
	return cred.AccessToken, nil
}

// GetCredential returns the stored credential for this server
func (c *Client) GetCredential() (*ServerCredential, error) {
	return c.store.GetCredential(c.serverURL)
}

// IsLoggedIn returns true if there is a valid (non-expired) credential
func (c *Client) IsLoggedIn() bool {
	cred, err := c.store.GetCredential(c.serverURL)
	if err != nil || cred == nil {
		return false
	}
	return !cred.IsExpired()
}

// Signup asks the server to email a signup code. dob is YYYY-MM-DD.
func (c *Client) Signup(ctx context.Context, name, email, dob string) (*ChallengeResponse, error) {
	var out ChallengeResponse
	err := c.do(ctx, http.MethodPost, "/auth/signup", on.SignupRequest{Name: name, Email: email, DOB: dob}, &out)
	if err != nil {
		return nil, err
	}
	if err := c.rememberChallenge(on.PurposeSignup, out.Email); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifySignup submits the emailed code and stores the returned credential.
// An empty email means the one remembered by the last Signup.
func (c *Client) VerifySignup(ctx context.Context, email, otp string) (*ServerCredential, error) {
	email, err := c.challengeEmail(on.PurposeSignup, email)
	if err != nil {
		return nil, err
	}
	return c.login(ctx, "/auth/verify-signup-otp", on.OTPRequest{Email: email, OTP: otp})
}

// Login asks the server to email a login code
func (c *Client) Login(ctx context.Context, email string) (*ChallengeResponse, error) {
	var out ChallengeResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", on.LoginRequest{Email: email}, &out); err != nil {
		return nil, err
	}
	if err := c.rememberChallenge(on.PurposeLogin, out.Email); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyLogin submits the emailed code and stores the returned credential.
// An empty email means the one remembered by the last Login.
func (c *Client) VerifyLogin(ctx context.Context, email, otp string) (*ServerCredential, error) {
	email, err := c.challengeEmail(on.PurposeLogin, email)
	if err != nil {
		return nil, err
	}
	return c.login(ctx, "/auth/verify-login-otp", on.OTPRequest{Email: email, OTP: otp})
}

// GoogleLogin exchanges a Google ID token for a notes credential
func (c *Client) GoogleLogin(ctx context.Context, idToken string) (*ServerCredential, error) {
	return c.login(ctx, "/auth/google", on.GoogleLoginRequest{Token: idToken})
}

func (c *Client) login(ctx context.Context, path string, body any) (*ServerCredential, error) {
	var resp credentialResponse
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	now := time.Now()
	cred := &ServerCredential{
		AccessToken:  resp.Token,
		TokenType:    "Bearer",
		AccountID:    resp.User.ID,
		AccountEmail: resp.User.Email,
		AccountName:  resp.User.Name,
		ExpiresAt:    now.Add(time.Duration(resp.ExpiresIn) * time.Second),
		CreatedAt:    now,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.SetCredential(c.serverURL, cred); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}
	if cs, ok := c.store.(ChallengeStore); ok {
		if err := cs.SetPendingChallenge(c.serverURL, nil); err != nil {
			return nil, fmt.Errorf("failed to clear challenge: %w", err)
		}
	}
	if err := c.store.Save(); err != nil {
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}
	return cred, nil
}

// PendingChallenge returns the live challenge remembered for this server, or
// nil when the store keeps none
func (c *Client) PendingChallenge() (*PendingChallenge, error) {
	cs, ok := c.store.(ChallengeStore)
	if !ok {
		return nil, nil
	}
	p, err := cs.GetPendingChallenge(c.serverURL)
	if err != nil || p == nil || p.IsStale() {
		return nil, err
	}
	return p, nil
}

func (c *Client) rememberChallenge(purpose on.ChallengePurpose, email string) error {
	cs, ok := c.store.(ChallengeStore)
	if !ok {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	err := cs.SetPendingChallenge(c.serverURL, &PendingChallenge{
		Purpose:     purpose,
		Email:       email,
		RequestedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return c.store.Save()
}

func (c *Client) challengeEmail(purpose on.ChallengePurpose, email string) (string, error) {
	if email != "" {
		return email, nil
	}
	p, err := c.PendingChallenge()
	if err != nil {
		return "", err
	}
	if p == nil || p.Purpose != purpose {
		return "", ErrNoPendingChallenge
	}
	return p.Email, nil
}

// Logout tells the server to drop its session and forgets the local
// credential. The local credential is removed even if the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	serverErr := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.RemoveCredential(c.serverURL); err != nil {
		return err
	}
	if err := c.store.Save(); err != nil {
		return err
	}
	return serverErr
}

// Me returns the logged in account
func (c *Client) Me(ctx context.Context) (*on.AccountView, error) {
	var out on.AccountView
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListNotes returns the caller's notes
func (c *Client) ListNotes(ctx context.Context) ([]on.Note, error) {
	var out []on.Note
	if err := c.do(ctx, http.MethodGet, "/notes", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateNote creates a note owned by the caller
func (c *Client) CreateNote(ctx context.Context, title, content string) (*on.Note, error) {
	var out on.Note
	body := map[string]string{"title": title, "content": content}
	if err := c.do(ctx, http.MethodPost, "/notes", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateNote applies patch to one of the caller's notes
func (c *Client) UpdateNote(ctx context.Context, id string, patch on.NotePatch) (*on.Note, error) {
	var out on.Note
	if err := c.do(ctx, http.MethodPut, "/notes/"+url.PathEscape(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteNote removes one of the caller's notes
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/notes/"+url.PathEscape(id), nil, nil)
}

// do sends body as JSON and decodes a 2xx response into out
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("invalid response from server: %w", err)
	}
	return nil
}
