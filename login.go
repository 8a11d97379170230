package otpnotes

import (
	"context"
	"log/slog"
)

// RequestLoginChallenge sends a fresh login code to a verified account,
// replacing any code still pending on it.
func (e *ChallengeEngine) RequestLoginChallenge(ctx context.Context, email string) (string, error) {
	e.EnsureDefaults()
	email = NormalizeEmail(email)
	acct, err := e.loadExisting(ctx, email)
	if err != nil {
		return "", err
	}
	if !acct.Verified {
		return "", e.reject(PurposeLogin, errUserNotVerified)
	}
	if err := e.arm(acct); err != nil {
		return "", err
	}
	if err := e.Accounts.SaveAccount(ctx, acct); err != nil {
		return "", infraError("saving account", err)
	}
	if err := e.deliver(ctx, acct, PurposeLogin); err != nil {
		return "", err
	}
	return email, nil
}

// VerifyLoginChallenge checks code against the pending login code for email
// and clears it on success. An unverified account only holds a signup code,
// which is refused here and left in place for VerifySignupChallenge.
func (e *ChallengeEngine) VerifyLoginChallenge(ctx context.Context, email, code string) (*Account, error) {
	e.EnsureDefaults()
	acct, err := e.loadExisting(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	err = e.verify(ctx, acct, code, PurposeLogin,
		func(a *Account) error {
			if !a.Verified {
				return e.reject(PurposeLogin, errUserNotVerified)
			}
			return nil
		}, nil)
	if err != nil {
		return nil, err
	}
	slog.Info("login verified", "account_id", acct.ID)
	return acct, nil
}
