//go:build !wasm
// +build !wasm

package gorm

import (
	"time"

	on "github.com/panyam/otpnotes"
)

// AccountModel is the GORM model for accounts
type AccountModel struct {
	ID           string     `gorm:"primaryKey;size:64"`
	Email        string     `gorm:"uniqueIndex;size:255;not null"`
	Name         string     `gorm:"size:64"`
	DateOfBirth  time.Time  `gorm:"type:date"`
	Verified     bool       `gorm:"default:false"`
	OTP          string     `gorm:"column:otp;size:6"`
	OTPExpiresAt *time.Time `gorm:"column:otp_expires_at"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (AccountModel) TableName() string {
	return "accounts"
}

func (m *AccountModel) ToAccount() *on.Account {
	return &on.Account{
		ID:           m.ID,
		Email:        m.Email,
		Name:         m.Name,
		DateOfBirth:  m.DateOfBirth.UTC(),
		Verified:     m.Verified,
		OTP:          m.OTP,
		OTPExpiresAt: m.OTPExpiresAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func AccountModelFrom(a *on.Account) *AccountModel {
	return &AccountModel{
		ID:           a.ID,
		Email:        on.NormalizeEmail(a.Email),
		Name:         a.Name,
		DateOfBirth:  a.DateOfBirth,
		Verified:     a.Verified,
		OTP:          a.OTP,
		OTPExpiresAt: a.OTPExpiresAt,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// NoteModel is the GORM model for notes
type NoteModel struct {
	ID        string `gorm:"primaryKey;size:64"`
	OwnerID   string `gorm:"size:64;index;not null"`
	Title     string `gorm:"size:255"`
	Content   string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (NoteModel) TableName() string {
	return "notes"
}

func (m *NoteModel) ToNote() *on.Note {
	return &on.Note{
		ID:        m.ID,
		Title:     m.Title,
		Content:   m.Content,
		OwnerID:   m.OwnerID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func NoteModelFrom(n *on.Note) *NoteModel {
	return &NoteModel{
		ID:        n.ID,
		OwnerID:   n.OwnerID,
		Title:     n.Title,
		Content:   n.Content,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}
