package oauth2

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// HandleIDTokenFunc receives the ID token returned by a successful code
// exchange and owns the rest of the response
type HandleIDTokenFunc func(idToken string, w http.ResponseWriter, r *http.Request)

// CallbackURLCookieName holds the local path to land on after login
const CallbackURLCookieName = "oauthCallbackURL"

const (
	stateCookieName     = "oauthstate"
	stateCookieLifetime = 10 * time.Minute
)

func generateStateOauthCookie(w http.ResponseWriter) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		slog.Error("error generating oauth state", "error", err)
	}
	state := base64.URLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(stateCookieLifetime),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return state
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
}

// IsLocalPath accepts only same-origin paths like "/notes". Anything that a
// browser could resolve to another host is refused.
func IsLocalPath(u string) bool {
	if !strings.HasPrefix(u, "/") || strings.HasPrefix(u, "//") || strings.ContainsAny(u, "\\\r\n\t") {
		return false
	}
	parsed, err := url.Parse(u)
	return err == nil && parsed.Scheme == "" && parsed.Host == ""
}

// OauthRedirector starts the flow: it drops a state cookie (and the optional
// callbackURL query parameter as a cookie) and redirects to the provider.
func OauthRedirector(oauthConfig *oauth2.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if callbackURL := r.URL.Query().Get("callbackURL"); callbackURL != "" {
			if IsLocalPath(callbackURL) {
				http.SetCookie(w, &http.Cookie{
					Name:     CallbackURLCookieName,
					Value:    callbackURL,
					Path:     "/",
					MaxAge:   120,
					HttpOnly: true,
				})
			} else {
				slog.Warn("ignoring non local oauth callbackURL", "callbackURL", callbackURL)
			}
		}
		oauthState := generateStateOauthCookie(w)
		http.Redirect(w, r, oauthConfig.AuthCodeURL(oauthState), http.StatusFound)
	}
}
