package otpnotes

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
)

// DefaultMaxBodyBytes bounds JSON request bodies
const DefaultMaxBodyBytes = 1 << 20

// App wires the challenge engine, credential issuer, federated bridge and
// note layer to HTTP routes.
type App struct {
	// Must be passed in
	Challenges  *ChallengeEngine
	Notes       *NoteService
	Accounts    AccountStore
	Credentials *CredentialIssuer

	// Optional. Without it POST /auth/google answers 500.
	Federated *FederatedBridge

	// Optional cookie session mirroring the credential for browser clients
	Session *scs.SessionManager

	// Optional server side Google redirect flow, mounted at /auth/google/
	GoogleRedirect http.Handler

	// Where the redirect flow lands after a successful login. Defaults to "/".
	LoginRedirectURL string

	Middleware   Middleware
	MaxBodyBytes int64
	Metrics      *Metrics

	router *mux.Router
}

func (a *App) EnsureDefaults() *App {
	if a.Credentials == nil {
		a.Credentials = &CredentialIssuer{}
	}
	a.Credentials.EnsureDefaults()
	if a.Challenges != nil {
		if a.Challenges.Metrics == nil {
			a.Challenges.Metrics = a.Metrics
		}
		a.Challenges.EnsureDefaults()
	}
	if a.Federated != nil {
		if a.Federated.Metrics == nil {
			a.Federated.Metrics = a.Metrics
		}
		a.Federated.EnsureDefaults()
	}
	if a.Notes != nil {
		a.Notes.EnsureDefaults()
	}
	if a.MaxBodyBytes <= 0 {
		a.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if a.LoginRedirectURL == "" {
		a.LoginRedirectURL = "/"
	}
	if a.Middleware.Session == nil {
		a.Middleware.Session = a.Session
	}
	if a.Middleware.VerifyToken == nil {
		a.Middleware.VerifyToken = a.Credentials.VerifyTokenFunc()
	}
	a.Middleware.EnsureReasonableDefaults()
	return a
}

// Handler returns the routed API, wrapped in the session loader when a
// session manager is configured
func (a *App) Handler() http.Handler {
	var h http.Handler = a.Router()
	if a.Session != nil {
		h = a.Session.LoadAndSave(h)
	}
	return h
}

// Router builds (once) and returns the gorilla router for the API
func (a *App) Router() *mux.Router {
	if a.router != nil {
		return a.router
	}
	a.EnsureDefaults()
	protected := func(h http.HandlerFunc) http.Handler {
		return a.Middleware.EnsureAccount(h)
	}

	r := mux.NewRouter()
	r.Use(logRequests)
	r.HandleFunc("/", a.onHealth).Methods(http.MethodGet)

	r.HandleFunc("/auth/signup", a.onSignup).Methods(http.MethodPost)
	r.HandleFunc("/auth/verify-signup-otp", a.onVerifySignup).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", a.onLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/verify-login-otp", a.onVerifyLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/google", a.onGoogleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", a.onLogout).Methods(http.MethodPost)
	r.Handle("/auth/me", protected(a.onMe)).Methods(http.MethodGet)
	if a.GoogleRedirect != nil {
		r.PathPrefix("/auth/google/").Handler(http.StripPrefix("/auth/google", a.GoogleRedirect))
	}

	r.Handle("/notes", protected(a.onListNotes)).Methods(http.MethodGet)
	r.Handle("/notes", protected(a.onCreateNote)).Methods(http.MethodPost)
	r.Handle("/notes/{id}", protected(a.onUpdateNote)).Methods(http.MethodPut, http.MethodPatch)
	r.Handle("/notes/{id}", protected(a.onDeleteNote)).Methods(http.MethodDelete)

	a.router = r
	return r
}

func (a *App) onHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "API is running...")
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("request", "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
	})
}

// decodeJSON reads a bounded JSON body into v
func (a *App) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, a.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return ValidationErrors{{Field: "body", Message: "Invalid request body"}}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("error encoding response", "error", err)
	}
}

// writeError maps err to a status and a client safe body. Details of server
// faults only go to the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "Validation failed",
			"errors":  verrs,
		})
		return
	}

	status := HTTPStatus(err)
	body := map[string]any{"message": "Server error"}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		body["message"] = authErr.Message
		body["code"] = authErr.Code
		if authErr.Field != "" {
			body["field"] = authErr.Field
		}
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, body)
}
