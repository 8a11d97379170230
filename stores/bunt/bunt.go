// Package bunt implements the account and note stores on BuntDB
// (https://github.com/tidwall/buntdb), an embedded key/value store. Records
// are JSON documents under these keys:
//
//	account:<email>          the account
//	account_id:<id>          email of the account with this id
//	note:<owner id>:<id>     a note
//
// Use ":memory:" as the path for a throwaway in-process database.
package bunt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/tidwall/buntdb"

	on "github.com/panyam/otpnotes"
)

// Store implements both on.AccountStore and on.NoteStore on one database
type Store struct {
	db *buntdb.DB
}

func New(path string) (*Store, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening buntdb %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func accountKey(email string) string { return "account:" + on.NormalizeEmail(email) }
func accountIDKey(id string) string  { return "account_id:" + id }
func noteKey(ownerID, id string) string {
	return fmt.Sprintf("note:%s:%s", ownerID, id)
}

func getJSON(tx *buntdb.Tx, key string, v any) error {
	val, err := tx.Get(key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), v)
}

func setJSON(tx *buntdb.Tx, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, _, err = tx.Set(key, string(data), nil)
	return err
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*on.Account, error) {
	var acct on.Account
	err := s.db.View(func(tx *buntdb.Tx) error {
		return getJSON(tx, accountKey(email), &acct)
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil, on.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("problem reading account %s: %w", email, err)
	}
	return &acct, nil
}

func (s *Store) GetAccountByID(ctx context.Context, id string) (*on.Account, error) {
	var acct on.Account
	err := s.db.View(func(tx *buntdb.Tx) error {
		email, err := tx.Get(accountIDKey(id))
		if err != nil {
			return err
		}
		return getJSON(tx, accountKey(email), &acct)
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil, on.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("problem reading account %s: %w", id, err)
	}
	return &acct, nil
}

// CreateAccount checks for and writes the email key in one write
// transaction, so concurrent creates for an email cannot both succeed.
func (s *Store) CreateAccount(ctx context.Context, account *on.Account) error {
	account.Email = on.NormalizeEmail(account.Email)
	return s.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Get(accountKey(account.Email)); err == nil {
			return on.ErrAccountExists
		} else if !errors.Is(err, buntdb.ErrNotFound) {
			return err
		}
		if err := setJSON(tx, accountKey(account.Email), account); err != nil {
			return err
		}
		_, _, err := tx.Set(accountIDKey(account.ID), account.Email, nil)
		return err
	})
}

func (s *Store) SaveAccount(ctx context.Context, account *on.Account) error {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Get(accountKey(account.Email)); err != nil {
			return err
		}
		return setJSON(tx, accountKey(account.Email), account)
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return on.ErrAccountNotFound
	}
	return err
}

func (s *Store) CreateNote(ctx context.Context, note *on.Note) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		return setJSON(tx, noteKey(note.OwnerID, note.ID), note)
	})
}

// ListNotes returns the owner's notes oldest first
func (s *Store) ListNotes(ctx context.Context, ownerID string) ([]*on.Note, error) {
	notes := []*on.Note{}
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(noteKey(ownerID, "*"), func(key, value string) bool {
			var note on.Note
			if err := json.Unmarshal([]byte(value), &note); err == nil {
				notes = append(notes, &note)
			}
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].CreatedAt.Before(notes[j].CreatedAt)
	})
	return notes, nil
}

func (s *Store) GetNote(ctx context.Context, id, ownerID string) (*on.Note, error) {
	var note on.Note
	err := s.db.View(func(tx *buntdb.Tx) error {
		return getJSON(tx, noteKey(ownerID, id), &note)
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil, on.ErrNoteNotFound
	}
	if err != nil {
		return nil, err
	}
	return &note, nil
}

func (s *Store) SaveNote(ctx context.Context, note *on.Note) error {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Get(noteKey(note.OwnerID, note.ID)); err != nil {
			return err
		}
		return setJSON(tx, noteKey(note.OwnerID, note.ID), note)
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return on.ErrNoteNotFound
	}
	return err
}

func (s *Store) DeleteNote(ctx context.Context, id, ownerID string) error {
	err := s.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(noteKey(ownerID, id))
		return err
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return on.ErrNoteNotFound
	}
	return err
}
