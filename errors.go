package otpnotes

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Callers test for these with errors.Is; the concrete error is
// usually an *AuthError carrying a code and a client facing message.
var (
	ErrValidation       = errors.New("validation failed")
	ErrAlreadyExists    = errors.New("already exists")
	ErrAlreadyVerified  = errors.New("already verified")
	ErrNotFound         = errors.New("not found")
	ErrNotVerified      = errors.New("not verified")
	ErrInvalidOrExpired = errors.New("invalid or expired code")
	ErrInvalidToken     = errors.New("invalid identity token")
	ErrUpstream         = errors.New("identity provider unavailable")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrSigning          = errors.New("credential signing failed")
	ErrInfrastructure   = errors.New("infrastructure fault")
)

type ErrCode string

const (
	ErrCodeValidation      ErrCode = "validation_failed"
	ErrCodeUserExists      ErrCode = "user_exists"
	ErrCodeAlreadyVerified ErrCode = "already_verified"
	ErrCodeUserNotFound    ErrCode = "user_not_found"
	ErrCodeNoteNotFound    ErrCode = "note_not_found"
	ErrCodeNotVerified     ErrCode = "not_verified"
	ErrCodeInvalidOTP      ErrCode = "invalid_otp"
	ErrCodeInvalidToken    ErrCode = "invalid_token"
	ErrCodeUpstream        ErrCode = "upstream_error"
	ErrCodeUnauthorized    ErrCode = "unauthorized"
	ErrCodeSigning         ErrCode = "signing_error"
	ErrCodeInternal        ErrCode = "internal_error"
)

// AuthError is the error type returned by the challenge engine, the
// credential issuer, the federated bridge and the note layer.
type AuthError struct {
	Code    ErrCode `json:"code"`
	Message string  `json:"message"`
	Field   string  `json:"field,omitempty"`

	// Kind is one of the Err* sentinels above
	Kind error `json:"-"`

	// Err is the underlying cause, if any. Never shown to clients.
	Err error `json:"-"`
}

func NewAuthError(kind error, code ErrCode, message string) *AuthError {
	return &AuthError{Kind: kind, Code: code, Message: message}
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AuthError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// WithCause returns a copy of e wrapping err
func (e *AuthError) WithCause(err error) *AuthError {
	out := *e
	out.Err = err
	return &out
}

// infraError wraps a store or transport fault. The client only ever sees
// "Server error"; the cause is kept for logging.
func infraError(op string, err error) *AuthError {
	return &AuthError{
		Kind:    ErrInfrastructure,
		Code:    ErrCodeInternal,
		Message: "Server error",
		Err:     fmt.Errorf("%s: %w", op, err),
	}
}

// HTTPStatus maps an error returned by this package to a response status
func HTTPStatus(err error) int {
	var authErr *AuthError
	if errors.As(err, &authErr) && authErr.Code == ErrCodeNoteNotFound {
		return http.StatusNotFound
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrAlreadyExists),
		errors.Is(err, ErrAlreadyVerified),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrNotVerified),
		errors.Is(err, ErrInvalidOrExpired):
		return http.StatusBadRequest
	default:
		// ErrInvalidToken, ErrUpstream, ErrSigning, ErrInfrastructure
		return http.StatusInternalServerError
	}
}
