package otpnotes

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
)

type accountIDKey struct{}

// Middleware resolves the calling account from a bearer credential (or the
// credential mirrored into the cookie session) and guards protected routes.
type Middleware struct {
	// Header carrying "Bearer <credential>". Defaults to Authorization.
	AuthTokenHeaderName string

	// Session variable holding the credential for browser clients
	AuthTokenSessionVar string

	// Optional. When set, requests must pass through Session.LoadAndSave.
	Session *scs.SessionManager

	// Returns the account id for a credential
	VerifyToken func(tokenString string) (accountID string, err error)

	// Called instead of the default 401 JSON response
	OnAuthError func(w http.ResponseWriter, r *http.Request, err error)
}

/**
 * Ensures that config values have reasonable defaults.
 */
func (m *Middleware) EnsureReasonableDefaults() {
	if m.AuthTokenHeaderName == "" {
		m.AuthTokenHeaderName = "Authorization"
	}
	if m.AuthTokenSessionVar == "" {
		m.AuthTokenSessionVar = "otpnotesAuthToken"
	}
}

// AccountIDFromContext returns the account id set by the middleware, or ""
func AccountIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(accountIDKey{}).(string)
	return id
}

// SetAccountIDInContext makes accountID available to downstream handlers
func SetAccountIDInContext(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountIDKey{}, accountID)
}

// candidateTokens lists credentials presented by the request, header first
func (m *Middleware) candidateTokens(r *http.Request) []string {
	var out []string
	for _, h := range r.Header.Values(m.AuthTokenHeaderName) {
		h = strings.TrimSpace(h)
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			h = strings.TrimSpace(h[7:])
		}
		if h != "" {
			out = append(out, h)
		}
	}
	if m.Session != nil {
		if tok := m.Session.GetString(r.Context(), m.AuthTokenSessionVar); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// GetLoggedInAccountID returns the verified account id for the request
func (m *Middleware) GetLoggedInAccountID(r *http.Request) (string, error) {
	if id := AccountIDFromContext(r.Context()); id != "" {
		return id, nil
	}
	if m.VerifyToken == nil {
		slog.Warn("No auth token verifier found.  Please set one")
		return "", unauthorized(errors.New("no token verifier configured"))
	}

	tokens := m.candidateTokens(r)
	if len(tokens) == 0 {
		return "", unauthorized(errors.New("no credential presented"))
	}
	var lastErr error
	for _, tok := range tokens {
		id, err := m.VerifyToken(tok)
		if err == nil && id != "" {
			return id, nil
		}
		if err != nil {
			slog.Debug("Error verifying token", "error", err)
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = unauthorized(errors.New("empty subject"))
	}
	return "", lastErr
}

// ExtractAccount sets the account id when a valid credential is present but
// lets anonymous requests through.
func (m *Middleware) ExtractAccount(next http.Handler) http.Handler {
	m.EnsureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := m.GetLoggedInAccountID(r); err == nil {
			r = r.WithContext(SetAccountIDInContext(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// EnsureAccount rejects requests without a valid credential with a 401
func (m *Middleware) EnsureAccount(next http.Handler) http.Handler {
	m.EnsureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := m.GetLoggedInAccountID(r)
		if err != nil {
			m.handleAuthError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(SetAccountIDInContext(r.Context(), id)))
	})
}

func (m *Middleware) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	if m.OnAuthError != nil {
		m.OnAuthError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Unauthorized",
		"code":    string(ErrCodeUnauthorized),
	})
}
