package otpnotes

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"
)

// Default one-time code settings
const (
	OTPLength        = 6
	DefaultOTPExpiry = 10 * time.Minute
)

var otpSpace = big.NewInt(1_000_000)

// Client facing errors produced by the challenge flows
var (
	errUserExists      = NewAuthError(ErrAlreadyExists, ErrCodeUserExists, "User already exists")
	errUserNotFound    = NewAuthError(ErrNotFound, ErrCodeUserNotFound, "User not found")
	errUserVerified    = NewAuthError(ErrAlreadyVerified, ErrCodeAlreadyVerified, "User already verified")
	errUserNotVerified = NewAuthError(ErrNotVerified, ErrCodeNotVerified, "User not verified")
	errInvalidOTP      = NewAuthError(ErrInvalidOrExpired, ErrCodeInvalidOTP, "Invalid or expired OTP")
)

// GenerateOTP returns a uniformly random 6 digit code. Leading zeros are kept.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", OTPLength, n.Int64()), nil
}

// ChallengeEngine issues, delivers and verifies one-time codes for the signup
// and login flows. Pending codes are stored on the account record, so an
// account has at most one live code and a new request overwrites it.
type ChallengeEngine struct {
	// Must be passed in
	Accounts AccountStore

	// Delivers codes. Defaults to ConsoleEmailSender.
	EmailSender SendEmail

	// How long a code stays valid. Defaults to 10 minutes.
	OTPExpiry time.Duration

	// Clock and code source, replaceable in tests
	Now         func() time.Time
	GenerateOTP func() (string, error)

	// Optional
	Metrics *Metrics
}

func (e *ChallengeEngine) EnsureDefaults() *ChallengeEngine {
	if e.OTPExpiry <= 0 {
		e.OTPExpiry = DefaultOTPExpiry
	}
	if e.Now == nil {
		e.Now = time.Now
	}
	if e.GenerateOTP == nil {
		e.GenerateOTP = GenerateOTP
	}
	if e.EmailSender == nil {
		e.EmailSender = &ConsoleEmailSender{}
	}
	return e
}

type accountState int

const (
	accountAbsent accountState = iota
	accountUnverified
	accountVerified
)

func (s accountState) String() string {
	switch s {
	case accountUnverified:
		return "unverified"
	case accountVerified:
		return "verified"
	}
	return "absent"
}

// lookup fetches the account for email and classifies it
func (e *ChallengeEngine) lookup(ctx context.Context, email string) (*Account, accountState, error) {
	acct, err := e.Accounts.GetAccountByEmail(ctx, email)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, accountAbsent, nil
	}
	if err != nil {
		return nil, accountAbsent, infraError("loading account", err)
	}
	if acct.Verified {
		return acct, accountVerified, nil
	}
	return acct, accountUnverified, nil
}

// loadExisting is lookup for flows where a missing account is an error
func (e *ChallengeEngine) loadExisting(ctx context.Context, email string) (*Account, error) {
	acct, state, err := e.lookup(ctx, email)
	if err != nil {
		return nil, err
	}
	if state == accountAbsent {
		return nil, errUserNotFound
	}
	return acct, nil
}

// arm puts a fresh code on the account. Nothing is persisted.
func (e *ChallengeEngine) arm(acct *Account) error {
	code, err := e.GenerateOTP()
	if err != nil {
		return infraError("generating otp", err)
	}
	now := e.Now()
	acct.SetChallenge(code, now.Add(e.OTPExpiry))
	acct.UpdatedAt = now
	return nil
}

func (e *ChallengeEngine) deliver(ctx context.Context, acct *Account, purpose ChallengePurpose) error {
	msg := OTPMessage{
		To:       acct.Email,
		Code:     acct.OTP,
		Purpose:  purpose,
		ValidFor: e.OTPExpiry,
	}
	if err := e.EmailSender.SendOTPEmail(ctx, msg); err != nil {
		slog.Error("otp delivery failed", "email", acct.Email, "purpose", purpose, "error", err)
		return infraError("sending otp email", err)
	}
	e.Metrics.challengeIssued(purpose)
	slog.Info("otp challenge issued", "email", acct.Email, "purpose", purpose, "expires_at", acct.OTPExpiresAt)
	return nil
}

// verify checks code against the pending challenge. guard, when set, runs
// only after the code matched and may still refuse. On success the challenge
// is cleared and the account is handed to onSuccess before it is saved.
// A refused attempt never writes.
func (e *ChallengeEngine) verify(ctx context.Context, acct *Account, code string, purpose ChallengePurpose, guard func(*Account) error, onSuccess func(*Account)) error {
	now := e.Now()
	if !acct.ChallengeMatches(code, now) {
		e.Metrics.challengeRejected(purpose, ErrCodeInvalidOTP)
		return errInvalidOTP
	}
	if guard != nil {
		if err := guard(acct); err != nil {
			return err
		}
	}
	acct.ClearChallenge()
	if onSuccess != nil {
		onSuccess(acct)
	}
	acct.UpdatedAt = now
	if err := e.Accounts.SaveAccount(ctx, acct); err != nil {
		return infraError("saving account", err)
	}
	e.Metrics.challengeVerified(purpose)
	return nil
}

func (e *ChallengeEngine) reject(purpose ChallengePurpose, err *AuthError) error {
	e.Metrics.challengeRejected(purpose, err.Code)
	return err
}
