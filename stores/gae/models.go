//go:build !wasm
// +build !wasm

package gae

import (
	"time"

	"cloud.google.com/go/datastore"

	on "github.com/panyam/otpnotes"
)

// AccountEntity is the Datastore entity for accounts.
// Key format: normalized email
type AccountEntity struct {
	Key          *datastore.Key `datastore:"__key__"`
	ID           string         `datastore:"id"`
	Email        string         `datastore:"email"`
	Name         string         `datastore:"name,noindex"`
	DateOfBirth  time.Time      `datastore:"dob,noindex"`
	Verified     bool           `datastore:"verified"`
	OTP          string         `datastore:"otp,noindex"`
	OTPExpiresAt time.Time      `datastore:"otp_expires_at,noindex"` // zero when no code is pending
	CreatedAt    time.Time      `datastore:"created_at"`
	UpdatedAt    time.Time      `datastore:"updated_at"`
}

func (e *AccountEntity) ToAccount() *on.Account {
	a := &on.Account{
		ID:          e.ID,
		Email:       e.Email,
		Name:        e.Name,
		DateOfBirth: e.DateOfBirth.UTC(),
		Verified:    e.Verified,
		OTP:         e.OTP,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if !e.OTPExpiresAt.IsZero() {
		exp := e.OTPExpiresAt
		a.OTPExpiresAt = &exp
	}
	return a
}

func AccountToEntity(a *on.Account, key *datastore.Key) *AccountEntity {
	e := &AccountEntity{
		Key:         key,
		ID:          a.ID,
		Email:       on.NormalizeEmail(a.Email),
		Name:        a.Name,
		DateOfBirth: a.DateOfBirth,
		Verified:    a.Verified,
		OTP:         a.OTP,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	if a.OTPExpiresAt != nil {
		e.OTPExpiresAt = *a.OTPExpiresAt
	}
	return e
}

// NoteEntity is the Datastore entity for notes.
// Key format: Owner(owner id) / Note(note id)
type NoteEntity struct {
	Key       *datastore.Key `datastore:"__key__"`
	OwnerID   string         `datastore:"owner_id"`
	Title     string         `datastore:"title,noindex"`
	Content   string         `datastore:"content,noindex"`
	CreatedAt time.Time      `datastore:"created_at"`
	UpdatedAt time.Time      `datastore:"updated_at"`
}

func (e *NoteEntity) ToNote() *on.Note {
	return &on.Note{
		ID:        e.Key.Name,
		Title:     e.Title,
		Content:   e.Content,
		OwnerID:   e.OwnerID,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func NoteToEntity(n *on.Note, key *datastore.Key) *NoteEntity {
	return &NoteEntity{
		Key:       key,
		OwnerID:   n.OwnerID,
		Title:     n.Title,
		Content:   n.Content,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}
