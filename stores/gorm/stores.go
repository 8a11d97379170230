//go:build !wasm
// +build !wasm

package gorm

import (
	"context"
	"errors"

	"gorm.io/gorm"

	on "github.com/panyam/otpnotes"
)

// AutoMigrate runs database migrations for all otpnotes tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&AccountModel{},
		&NoteModel{},
	)
}

// =============================================================================
// AccountStore
// =============================================================================

// AccountStore implements on.AccountStore using GORM
type AccountStore struct {
	db *gorm.DB
}

func NewAccountStore(db *gorm.DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) GetAccountByEmail(ctx context.Context, email string) (*on.Account, error) {
	var model AccountModel
	err := s.db.WithContext(ctx).First(&model, "email = ?", on.NormalizeEmail(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, on.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.ToAccount(), nil
}

func (s *AccountStore) GetAccountByID(ctx context.Context, id string) (*on.Account, error) {
	var model AccountModel
	err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, on.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.ToAccount(), nil
}

// CreateAccount relies on the unique email index. The explicit lookup gives
// a clean error on databases where TranslateError is off.
func (s *AccountStore) CreateAccount(ctx context.Context, account *on.Account) error {
	model := AccountModelFrom(account)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&AccountModel{}).Where("email = ?", model.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return on.ErrAccountExists
		}
		return tx.Create(model).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return on.ErrAccountExists
	}
	if err != nil {
		return err
	}
	account.Email = model.Email
	account.CreatedAt = model.CreatedAt
	account.UpdatedAt = model.UpdatedAt
	return nil
}

func (s *AccountStore) SaveAccount(ctx context.Context, account *on.Account) error {
	model := AccountModelFrom(account)
	result := s.db.WithContext(ctx).Model(&AccountModel{}).
		Where("email = ?", model.Email).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return on.ErrAccountNotFound
	}
	return nil
}

// =============================================================================
// NoteStore
// =============================================================================

// NoteStore implements on.NoteStore using GORM
type NoteStore struct {
	db *gorm.DB
}

func NewNoteStore(db *gorm.DB) *NoteStore {
	return &NoteStore{db: db}
}

func (s *NoteStore) CreateNote(ctx context.Context, note *on.Note) error {
	return s.db.WithContext(ctx).Create(NoteModelFrom(note)).Error
}

func (s *NoteStore) ListNotes(ctx context.Context, ownerID string) ([]*on.Note, error) {
	var models []NoteModel
	if err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at").Find(&models).Error; err != nil {
		return nil, err
	}
	notes := make([]*on.Note, len(models))
	for i := range models {
		notes[i] = models[i].ToNote()
	}
	return notes, nil
}

func (s *NoteStore) GetNote(ctx context.Context, id, ownerID string) (*on.Note, error) {
	var model NoteModel
	err := s.db.WithContext(ctx).First(&model, "id = ? AND owner_id = ?", id, ownerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, on.ErrNoteNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.ToNote(), nil
}

func (s *NoteStore) SaveNote(ctx context.Context, note *on.Note) error {
	result := s.db.WithContext(ctx).Model(&NoteModel{}).
		Where("id = ? AND owner_id = ?", note.ID, note.OwnerID).
		Updates(map[string]any{
			"title":      note.Title,
			"content":    note.Content,
			"updated_at": note.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return on.ErrNoteNotFound
	}
	return nil
}

func (s *NoteStore) DeleteNote(ctx context.Context, id, ownerID string) error {
	result := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&NoteModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return on.ErrNoteNotFound
	}
	return nil
}
