package otpnotes

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/panyam/otpnotes/oauth2"
)

// credentialResponse is returned by every flow that ends in a login
type credentialResponse struct {
	Message   string      `json:"message"`
	Token     string      `json:"token"`
	ExpiresIn int64       `json:"expires_in"`
	User      AccountView `json:"user"`
}

type challengeResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

func (a *App) onSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	dob, _ := ParseDOB(req.DOB)
	email, err := a.Challenges.RequestSignupChallenge(r.Context(), req.Name, req.Email, dob)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, challengeResponse{
		Message: "OTP sent to email for signup verification",
		Email:   email,
	})
}

func (a *App) onVerifySignup(w http.ResponseWriter, r *http.Request) {
	var req OTPRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	acct, err := a.Challenges.VerifySignupChallenge(r.Context(), req.Email, req.OTP)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.respondWithCredential(w, r, acct, "signup", "Signup successful")
}

func (a *App) onLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	email, err := a.Challenges.RequestLoginChallenge(r.Context(), req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, challengeResponse{
		Message: "OTP sent to email for login",
		Email:   email,
	})
}

func (a *App) onVerifyLogin(w http.ResponseWriter, r *http.Request) {
	var req OTPRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	acct, err := a.Challenges.VerifyLoginChallenge(r.Context(), req.Email, req.OTP)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.respondWithCredential(w, r, acct, "otp", "Login successful")
}

func (a *App) onGoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req GoogleLoginRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	if a.Federated == nil {
		writeError(w, r, errGoogleUpstream.WithCause(errors.New("federated login not configured")))
		return
	}
	acct, err := a.Federated.Login(r.Context(), req.Token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.respondWithCredential(w, r, acct, "google", "Google login successful")
}

// HandleGoogleIDToken finishes the server side redirect flow: the ID token
// returned by the code exchange goes through the same bridge as
// POST /auth/google, then the browser is sent to LoginRedirectURL with the
// credential in its session.
func (a *App) HandleGoogleIDToken(idToken string, w http.ResponseWriter, r *http.Request) {
	if a.Federated == nil {
		writeError(w, r, errGoogleUpstream.WithCause(errors.New("federated login not configured")))
		return
	}
	acct, err := a.Federated.Login(r.Context(), idToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, _, err := a.issueCredential(r, acct, "google"); err != nil {
		writeError(w, r, err)
		return
	}

	callbackURL := a.LoginRedirectURL
	if c, _ := r.Cookie(oauth2.CallbackURLCookieName); c != nil && c.Value != "" {
		if oauth2.IsLocalPath(c.Value) {
			callbackURL = c.Value
		} else {
			slog.Warn("ignoring non local callback cookie", "callbackURL", c.Value)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:    oauth2.CallbackURLCookieName,
		Value:   "",
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Now(),
	})
	http.Redirect(w, r, callbackURL, http.StatusFound)
}

// issueCredential mints a credential for acct and, when a session manager is
// configured, mirrors it into the session
func (a *App) issueCredential(r *http.Request, acct *Account, method string) (string, int64, error) {
	token, expiresIn, err := a.Credentials.Issue(acct.ID)
	if err != nil {
		return "", 0, err
	}
	if a.Session != nil {
		if err := a.Session.RenewToken(r.Context()); err != nil {
			slog.Warn("error renewing session token", "error", err)
		}
		a.Session.Put(r.Context(), a.Middleware.AuthTokenSessionVar, token)
	}
	a.Metrics.credentialIssued(method)
	return token, expiresIn, nil
}

func (a *App) respondWithCredential(w http.ResponseWriter, r *http.Request, acct *Account, method, message string) {
	token, expiresIn, err := a.issueCredential(r, acct, method)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, credentialResponse{
		Message:   message,
		Token:     token,
		ExpiresIn: expiresIn,
		User:      acct.View(),
	})
}

// onLogout drops the session copy of the credential. Bearer credentials are
// not revocable and stay valid until they expire.
func (a *App) onLogout(w http.ResponseWriter, r *http.Request) {
	if a.Session != nil {
		if err := a.Session.Destroy(r.Context()); err != nil {
			slog.Warn("error clearing session ", "err", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (a *App) onMe(w http.ResponseWriter, r *http.Request) {
	id := AccountIDFromContext(r.Context())
	acct, err := a.Accounts.GetAccountByID(r.Context(), id)
	if errors.Is(err, ErrAccountNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"message": "User not found",
			"code":    ErrCodeUserNotFound,
		})
		return
	}
	if err != nil {
		writeError(w, r, infraError("loading account", err))
		return
	}
	writeJSON(w, http.StatusOK, acct.View())
}
