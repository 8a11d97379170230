package otpnotes

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// RequestSignupChallenge starts (or restarts) signup for email and sends a
// fresh code. It returns the normalized email the code was sent to.
//
// The account for email is in one of three states:
//
//   - absent: a new unverified account is created
//   - unverified: name and date of birth are overwritten (signup retry)
//   - verified: the request is rejected with ErrAlreadyExists
//
// The code is persisted before delivery, so a delivery fault leaves a live
// code behind that a later request will overwrite.
func (e *ChallengeEngine) RequestSignupChallenge(ctx context.Context, name, email string, dob time.Time) (string, error) {
	e.EnsureDefaults()
	email = NormalizeEmail(email)

	// A create that loses a race on the email key re-runs the switch once
	// against the now existing account.
	for attempt := 0; ; attempt++ {
		acct, state, err := e.lookup(ctx, email)
		if err != nil {
			return "", err
		}

		switch state {
		case accountVerified:
			return "", e.reject(PurposeSignup, errUserExists)

		case accountAbsent:
			now := e.Now()
			acct = &Account{
				ID:          uuid.NewString(),
				Email:       email,
				Name:        name,
				DateOfBirth: dob,
				CreatedAt:   now,
			}
			if err := e.arm(acct); err != nil {
				return "", err
			}
			if err := e.Accounts.CreateAccount(ctx, acct); err != nil {
				if errors.Is(err, ErrAccountExists) && attempt == 0 {
					slog.Info("signup create lost race, retrying", "email", email)
					continue
				}
				return "", infraError("creating account", err)
			}

		case accountUnverified:
			acct.Name = name
			acct.DateOfBirth = dob
			if err := e.arm(acct); err != nil {
				return "", err
			}
			if err := e.Accounts.SaveAccount(ctx, acct); err != nil {
				return "", infraError("saving account", err)
			}
		}

		if err := e.deliver(ctx, acct, PurposeSignup); err != nil {
			return "", err
		}
		return email, nil
	}
}

// VerifySignupChallenge checks code against the pending signup code for
// email. On success the account becomes verified and the code is cleared.
//
// The code is checked before the verified flag: replaying a consumed code is
// ErrInvalidOrExpired, while a live code presented for an account that is
// already verified is ErrAlreadyVerified and is left in place.
func (e *ChallengeEngine) VerifySignupChallenge(ctx context.Context, email, code string) (*Account, error) {
	e.EnsureDefaults()
	acct, err := e.loadExisting(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	err = e.verify(ctx, acct, code, PurposeSignup,
		func(a *Account) error {
			if a.Verified {
				return e.reject(PurposeSignup, errUserVerified)
			}
			return nil
		},
		func(a *Account) {
			a.Verified = true
		})
	if err != nil {
		return nil, err
	}
	slog.Info("signup verified", "account_id", acct.ID, "email", acct.Email)
	return acct, nil
}
