package otpnotes

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"
)

// Errors returned by store implementations
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
	ErrNoteNotFound    = errors.New("note not found")
)

// Account is the persisted record for one email address
type Account struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	DateOfBirth  time.Time  `json:"dob"`
	Verified     bool       `json:"verified"`
	OTP          string     `json:"otp,omitempty"`
	OTPExpiresAt *time.Time `json:"otp_expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// HasChallenge reports whether a code is pending on the account
func (a *Account) HasChallenge() bool {
	return a.OTP != "" && a.OTPExpiresAt != nil
}

// SetChallenge replaces any pending code with a new one
func (a *Account) SetChallenge(code string, expiresAt time.Time) {
	a.OTP = code
	a.OTPExpiresAt = &expiresAt
}

// ClearChallenge removes the pending code and its expiry
func (a *Account) ClearChallenge() {
	a.OTP = ""
	a.OTPExpiresAt = nil
}

// ChallengeMatches is true iff a code is pending, equals code exactly and
// now is strictly before its expiry.
func (a *Account) ChallengeMatches(code string, now time.Time) bool {
	if !a.HasChallenge() || code == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(a.OTP), []byte(code)) != 1 {
		return false
	}
	return now.Before(*a.OTPExpiresAt)
}

// AccountView is the public shape of an account returned to clients
type AccountView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	DOB   string `json:"dob"`
}

func (a *Account) View() AccountView {
	return AccountView{
		ID:    a.ID,
		Name:  a.Name,
		Email: a.Email,
		DOB:   FormatDOB(a.DateOfBirth),
	}
}

// Note is a single note owned by an account
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NotePatch carries a partial note update. Nil fields are left unchanged.
type NotePatch struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// Apply copies the set fields of the patch onto note
func (p NotePatch) Apply(note *Note) {
	if p.Title != nil {
		note.Title = *p.Title
	}
	if p.Content != nil {
		note.Content = *p.Content
	}
}

// AccountStore persists accounts keyed by email
type AccountStore interface {
	// GetAccountByEmail returns ErrAccountNotFound if no account has this email
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)

	// GetAccountByID returns ErrAccountNotFound if no account has this id
	GetAccountByID(ctx context.Context, id string) (*Account, error)

	// CreateAccount inserts a new account, returning ErrAccountExists if the
	// email is already taken
	CreateAccount(ctx context.Context, account *Account) error

	// SaveAccount updates an existing account (last write wins)
	SaveAccount(ctx context.Context, account *Account) error
}

// NoteStore persists notes. Every lookup is scoped by owner: a note that
// exists under a different owner is reported as ErrNoteNotFound.
type NoteStore interface {
	CreateNote(ctx context.Context, note *Note) error

	// ListNotes returns the owner's notes in store order
	ListNotes(ctx context.Context, ownerID string) ([]*Note, error)

	GetNote(ctx context.Context, id, ownerID string) (*Note, error)

	// SaveNote updates a note that must already exist under note.OwnerID
	SaveNote(ctx context.Context, note *Note) error

	DeleteNote(ctx context.Context, id, ownerID string) error
}

// NormalizeEmail lowercases and trims an email so it can be used as a key
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
