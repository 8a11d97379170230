package otpnotes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
)

// FederatedDOB is the date of birth recorded for accounts created through a
// federated login, since providers do not share one.
var FederatedDOB = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// FederatedProfile holds the identity claims taken from a verified ID token
type FederatedProfile struct {
	Subject string
	Email   string
	Name    string
}

// IDTokenVerifier checks an ID token's signature and audience. Errors wrap
// ErrUpstream when the provider could not be reached and ErrInvalidToken
// otherwise.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*FederatedProfile, error)
}

// IDTokenVerifierFunc adapts a plain function to IDTokenVerifier
type IDTokenVerifierFunc func(ctx context.Context, idToken string) (*FederatedProfile, error)

func (f IDTokenVerifierFunc) VerifyIDToken(ctx context.Context, idToken string) (*FederatedProfile, error) {
	return f(ctx, idToken)
}

// GoogleIDTokenVerifier validates Google ID tokens against one OAuth client id.
// Build it once at startup; the underlying validator caches Google's keys.
type GoogleIDTokenVerifier struct {
	ClientID  string
	validator *idtoken.Validator
}

// NewGoogleIDTokenVerifier creates a verifier for clientID. When clientID is
// empty it falls back to GOOGLE_CLIENT_ID (or OAUTH2_GOOGLE_CLIENT_ID).
func NewGoogleIDTokenVerifier(ctx context.Context, clientID string, opts ...option.ClientOption) (*GoogleIDTokenVerifier, error) {
	if clientID == "" {
		clientID = GoogleClientIDFromEnv()
	}
	if clientID == "" {
		return nil, errors.New("google client id is required")
	}
	v, err := idtoken.NewValidator(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating id token validator: %w", err)
	}
	return &GoogleIDTokenVerifier{ClientID: clientID, validator: v}, nil
}

func (g *GoogleIDTokenVerifier) VerifyIDToken(ctx context.Context, idToken string) (*FederatedProfile, error) {
	payload, err := g.validator.Validate(ctx, idToken, g.ClientID)
	if err != nil {
		if isTransportError(err) {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return profileFromClaims(payload.Subject, payload.Claims)
}

func profileFromClaims(subject string, claims map[string]any) (*FederatedProfile, error) {
	email, _ := claims["email"].(string)
	if email == "" {
		return nil, fmt.Errorf("%w: token has no email claim", ErrInvalidToken)
	}
	if verified, ok := claims["email_verified"].(bool); ok && !verified {
		return nil, fmt.Errorf("%w: email not verified by provider", ErrInvalidToken)
	}
	name, _ := claims["name"].(string)
	return &FederatedProfile{Subject: subject, Email: email, Name: name}, nil
}

// isTransportError reports whether err came from fetching the provider's keys
// rather than from the token itself
func isTransportError(err error) bool {
	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return strings.Contains(err.Error(), "unable to retrieve cert")
}

// FederatedBridge logs an account in with a provider vouched identity
// instead of a one-time code
type FederatedBridge struct {
	// Must be passed in
	Accounts AccountStore
	Verifier IDTokenVerifier

	Now     func() time.Time
	Metrics *Metrics
}

func (b *FederatedBridge) EnsureDefaults() *FederatedBridge {
	if b.Now == nil {
		b.Now = time.Now
	}
	return b
}

var (
	errGoogleInvalid  = NewAuthError(ErrInvalidToken, ErrCodeInvalidToken, "Google login failed")
	errGoogleUpstream = NewAuthError(ErrUpstream, ErrCodeUpstream, "Google login failed")
)

// Login verifies idToken and returns the matching account, creating a
// verified account on first use. An existing unverified account is marked
// verified and any pending code on it is cleared.
func (b *FederatedBridge) Login(ctx context.Context, idToken string) (*Account, error) {
	b.EnsureDefaults()
	profile, err := b.Verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		if errors.Is(err, ErrUpstream) {
			b.Metrics.federatedLogin("upstream_error")
			slog.Error("identity provider unavailable", "error", err)
			return nil, errGoogleUpstream.WithCause(err)
		}
		b.Metrics.federatedLogin("invalid_token")
		slog.Warn("rejected id token", "error", err)
		return nil, errGoogleInvalid.WithCause(err)
	}

	email := NormalizeEmail(profile.Email)
	if email == "" {
		b.Metrics.federatedLogin("invalid_token")
		return nil, errGoogleInvalid.WithCause(errors.New("empty email"))
	}

	for attempt := 0; ; attempt++ {
		acct, err := b.Accounts.GetAccountByEmail(ctx, email)
		if errors.Is(err, ErrAccountNotFound) {
			acct = b.newAccount(email, profile)
			if err := b.Accounts.CreateAccount(ctx, acct); err != nil {
				if errors.Is(err, ErrAccountExists) && attempt == 0 {
					continue
				}
				return nil, infraError("creating account", err)
			}
			b.Metrics.federatedLogin("created")
			slog.Info("federated account created", "account_id", acct.ID, "email", email)
			return acct, nil
		}
		if err != nil {
			return nil, infraError("loading account", err)
		}

		if !acct.Verified || acct.HasChallenge() {
			acct.Verified = true
			acct.ClearChallenge()
			acct.UpdatedAt = b.Now()
			if err := b.Accounts.SaveAccount(ctx, acct); err != nil {
				return nil, infraError("saving account", err)
			}
		}
		b.Metrics.federatedLogin("existing")
		return acct, nil
	}
}

func (b *FederatedBridge) newAccount(email string, profile *FederatedProfile) *Account {
	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	now := b.Now()
	return &Account{
		ID:          uuid.NewString(),
		Email:       email,
		Name:        name,
		DateOfBirth: FederatedDOB,
		Verified:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// GoogleClientIDFromEnv returns the configured Google OAuth client id
func GoogleClientIDFromEnv() string {
	if id := strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID")); id != "" {
		return id
	}
	return strings.TrimSpace(os.Getenv("OAUTH2_GOOGLE_CLIENT_ID"))
}
