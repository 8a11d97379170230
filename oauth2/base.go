// Package oauth2 implements the browser redirect variant of Google login:
// the server sends the user to Google, exchanges the returned code and hands
// the ID token to the same bridge that serves POST /auth/google.
package oauth2

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

type BaseOAuth2 struct {
	ClientId     string
	ClientSecret string
	CallbackURL  string

	// Used for the code exchange when set
	HTTPClient *http.Client

	oauthConfig oauth2.Config
	mux         *http.ServeMux
}

func NewBaseOAuth2(clientId string, clientSecret string, callbackUrl string, endpoint oauth2.Endpoint, scopes ...string) *BaseOAuth2 {
	out := &BaseOAuth2{
		ClientId:     clientId,
		ClientSecret: clientSecret,
		CallbackURL:  callbackUrl,
		mux:          http.NewServeMux(),
		oauthConfig: oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  callbackUrl,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
	}
	out.mux.HandleFunc("/", OauthRedirector(&out.oauthConfig))
	return out
}

// Config exposes the underlying oauth2 config, mostly to point it at a
// different endpoint
func (b *BaseOAuth2) Config() *oauth2.Config {
	return &b.oauthConfig
}

// Handler serves "/" (start the flow) and whatever callback routes the
// provider registered. Mount it under a prefix with http.StripPrefix.
func (b *BaseOAuth2) Handler() http.Handler {
	return b.mux
}

func (b *BaseOAuth2) exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if b.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, b.HTTPClient)
	}
	return b.oauthConfig.Exchange(ctx, code)
}
