package oauth2

import (
	"errors"
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/oauth2/google"
)

var errMissingIDToken = errors.New("token response carried no id_token")

type GoogleOAuth2 struct {
	*BaseOAuth2
	HandleIDToken HandleIDTokenFunc

	// Where failed callbacks are redirected. Empty answers with an error
	// status instead.
	FailureURL string
}

// NewGoogleOAuth2 builds the redirect flow. Empty arguments fall back to
// GOOGLE_CLIENT_ID (or OAUTH2_GOOGLE_CLIENT_ID), GOOGLE_CLIENT_SECRET (or
// OAUTH2_GOOGLE_CLIENT_SECRET) and GOOGLE_CALLBACK_URL (or
// OAUTH2_GOOGLE_CALLBACK_URL).
func NewGoogleOAuth2(clientId string, clientSecret string, callbackUrl string, handleIDToken HandleIDTokenFunc) *GoogleOAuth2 {
	clientId = firstNonEmpty(clientId, os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("OAUTH2_GOOGLE_CLIENT_ID"))
	clientSecret = firstNonEmpty(clientSecret, os.Getenv("GOOGLE_CLIENT_SECRET"), os.Getenv("OAUTH2_GOOGLE_CLIENT_SECRET"))
	callbackUrl = firstNonEmpty(callbackUrl, os.Getenv("GOOGLE_CALLBACK_URL"), os.Getenv("OAUTH2_GOOGLE_CALLBACK_URL"))

	out := &GoogleOAuth2{
		BaseOAuth2:    NewBaseOAuth2(clientId, clientSecret, callbackUrl, google.Endpoint, "openid", "email", "profile"),
		HandleIDToken: handleIDToken,
	}
	out.mux.HandleFunc("/callback/", out.handleCallback)
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (g *GoogleOAuth2) handleCallback(w http.ResponseWriter, r *http.Request) {
	oauthState, _ := r.Cookie(stateCookieName)
	if oauthState == nil {
		http.Error(w, "OauthState is nil", http.StatusBadRequest)
		return
	}
	clearCookie(w, stateCookieName)
	if r.FormValue("state") != oauthState.Value {
		http.Error(w, "invalid oauth google state", http.StatusBadRequest)
		return
	}

	token, err := g.exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		slog.Warn("google code exchange failed", "error", err)
		g.fail(w, r, http.StatusBadGateway)
		return
	}
	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		slog.Warn("google code exchange failed", "error", errMissingIDToken)
		g.fail(w, r, http.StatusBadGateway)
		return
	}
	g.HandleIDToken(idToken, w, r)
}

func (g *GoogleOAuth2) fail(w http.ResponseWriter, r *http.Request, status int) {
	if g.FailureURL != "" {
		http.Redirect(w, r, g.FailureURL, http.StatusFound)
		return
	}
	http.Error(w, "Google login failed", status)
}
