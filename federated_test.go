package otpnotes_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	on "github.com/panyam/otpnotes"
)

// staticVerifier accepts exactly the tokens in its map
type staticVerifier map[string]*on.FederatedProfile

func (v staticVerifier) VerifyIDToken(ctx context.Context, idToken string) (*on.FederatedProfile, error) {
	if idToken == "upstream-down" {
		return nil, fmt.Errorf("%w: dial tcp: connection refused", on.ErrUpstream)
	}
	p, ok := v[idToken]
	if !ok {
		return nil, fmt.Errorf("%w: bad signature", on.ErrInvalidToken)
	}
	return p, nil
}

func newBridge(env *testEnv) *on.FederatedBridge {
	return (&on.FederatedBridge{
		Accounts: env.Accounts,
		Verifier: staticVerifier{
			"good-token":  {Subject: "g-1", Email: "Kim@Example.com", Name: "Kim"},
			"nameless":    {Subject: "g-2", Email: "noname@example.com"},
			"grace-token": {Subject: "g-3", Email: "grace@example.com", Name: "Grace G"},
		},
		Now: env.Clock.Now,
	}).EnsureDefaults()
}

func TestFederatedLoginCreatesVerifiedAccount(t *testing.T) {
	env := setupEnv(t)
	bridge := newBridge(env)
	ctx := context.Background()

	acct, err := bridge.Login(ctx, "good-token")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !acct.Verified {
		t.Error("Federated account should be verified")
	}
	if acct.Email != "kim@example.com" || acct.Name != "Kim" {
		t.Errorf("Unexpected account: %+v", acct)
	}
	if got := on.FormatDOB(acct.DateOfBirth); got != "2000-01-01" {
		t.Errorf("Expected sentinel dob 2000-01-01, got %s", got)
	}

	again, err := bridge.Login(ctx, "good-token")
	if err != nil {
		t.Fatalf("second Login: %v", err)
	}
	if again.ID != acct.ID {
		t.Error("Second login should find the same account")
	}

	nameless, err := bridge.Login(ctx, "nameless")
	if err != nil {
		t.Fatalf("nameless Login: %v", err)
	}
	if nameless.Name != "noname" {
		t.Errorf("Expected name from email local part, got %q", nameless.Name)
	}
}

func TestFederatedLoginVerifiesPendingAccount(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	env.Engine.RequestSignupChallenge(ctx, "Grace", "grace@example.com", mustDOB(t, "1988-08-08"))
	pending, _ := env.Accounts.GetAccountByEmail(ctx, "grace@example.com")

	acct, err := newBridge(env).Login(ctx, "grace-token")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if acct.ID != pending.ID {
		t.Error("Should reuse the pending account")
	}
	stored, _ := env.Accounts.GetAccountByEmail(ctx, "grace@example.com")
	if !stored.Verified || stored.HasChallenge() {
		t.Errorf("Pending account should be verified with its code cleared: %+v", stored)
	}
	if stored.Name != "Grace" || on.FormatDOB(stored.DateOfBirth) != "1988-08-08" {
		t.Error("Existing profile fields should be kept")
	}
}

func TestFederatedLoginErrors(t *testing.T) {
	env := setupEnv(t)
	bridge := newBridge(env)

	_, err := bridge.Login(context.Background(), "forged")
	if !errors.Is(err, on.ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
	if on.HTTPStatus(err) != 500 {
		t.Errorf("Expected 500, got %d", on.HTTPStatus(err))
	}

	_, err = bridge.Login(context.Background(), "upstream-down")
	if !errors.Is(err, on.ErrUpstream) {
		t.Errorf("Expected ErrUpstream, got %v", err)
	}
	var authErr *on.AuthError
	if !errors.As(err, &authErr) || authErr.Message != "Google login failed" {
		t.Errorf("Expected 'Google login failed', got %v", err)
	}
}
