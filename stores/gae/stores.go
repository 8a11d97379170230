//go:build !wasm
// +build !wasm

package gae

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/iterator"

	on "github.com/panyam/otpnotes"
)

// Kind constants for Datastore entities
const (
	KindAccount = "Account"
	KindOwner   = "Owner"
	KindNote    = "Note"
)

type base struct {
	client    *datastore.Client
	namespace string
}

func (b *base) namespacedKey(kind, name string, parent *datastore.Key) *datastore.Key {
	key := datastore.NameKey(kind, name, parent)
	key.Namespace = b.namespace
	return key
}

// ============================================================================
// AccountStore
// ============================================================================

// AccountStore implements on.AccountStore using Google Cloud Datastore
type AccountStore struct {
	base
}

// NewAccountStore creates a new Datastore-backed AccountStore
func NewAccountStore(client *datastore.Client, namespace string) *AccountStore {
	return &AccountStore{base{client: client, namespace: namespace}}
}

func (s *AccountStore) accountKey(email string) *datastore.Key {
	return s.namespacedKey(KindAccount, on.NormalizeEmail(email), nil)
}

func (s *AccountStore) GetAccountByEmail(ctx context.Context, email string) (*on.Account, error) {
	var entity AccountEntity
	if err := s.client.Get(ctx, s.accountKey(email), &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, on.ErrAccountNotFound
		}
		return nil, err
	}
	return entity.ToAccount(), nil
}

func (s *AccountStore) GetAccountByID(ctx context.Context, id string) (*on.Account, error) {
	q := datastore.NewQuery(KindAccount).
		Namespace(s.namespace).
		FilterField("id", "=", id).
		Limit(1)
	it := s.client.Run(ctx, q)
	var entity AccountEntity
	if _, err := it.Next(&entity); err != nil {
		if errors.Is(err, iterator.Done) {
			return nil, on.ErrAccountNotFound
		}
		return nil, err
	}
	return entity.ToAccount(), nil
}

// CreateAccount writes the account only if its email key is free. The check
// and the write share one transaction.
func (s *AccountStore) CreateAccount(ctx context.Context, account *on.Account) error {
	key := s.accountKey(account.Email)
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing AccountEntity
		err := tx.Get(key, &existing)
		if err == nil {
			return on.ErrAccountExists
		}
		if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}
		_, err = tx.Put(key, AccountToEntity(account, key))
		return err
	})
	if err != nil {
		return err
	}
	account.Email = key.Name
	return nil
}

func (s *AccountStore) SaveAccount(ctx context.Context, account *on.Account) error {
	key := s.accountKey(account.Email)
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing AccountEntity
		if err := tx.Get(key, &existing); err != nil {
			return err
		}
		_, err := tx.Put(key, AccountToEntity(account, key))
		return err
	})
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return on.ErrAccountNotFound
	}
	return err
}

// ============================================================================
// NoteStore
// ============================================================================

// NoteStore implements on.NoteStore using Google Cloud Datastore
type NoteStore struct {
	base
}

// NewNoteStore creates a new Datastore-backed NoteStore
func NewNoteStore(client *datastore.Client, namespace string) *NoteStore {
	return &NoteStore{base{client: client, namespace: namespace}}
}

func (s *NoteStore) ownerKey(ownerID string) *datastore.Key {
	return s.namespacedKey(KindOwner, ownerID, nil)
}

func (s *NoteStore) noteKey(id, ownerID string) *datastore.Key {
	return s.namespacedKey(KindNote, id, s.ownerKey(ownerID))
}

func (s *NoteStore) CreateNote(ctx context.Context, note *on.Note) error {
	if note.ID == "" || note.OwnerID == "" {
		return fmt.Errorf("note id and owner id are required")
	}
	key := s.noteKey(note.ID, note.OwnerID)
	_, err := s.client.Put(ctx, key, NoteToEntity(note, key))
	return err
}

// ListNotes returns the owner's notes oldest first
func (s *NoteStore) ListNotes(ctx context.Context, ownerID string) ([]*on.Note, error) {
	q := datastore.NewQuery(KindNote).
		Namespace(s.namespace).
		Ancestor(s.ownerKey(ownerID))
	it := s.client.Run(ctx, q)

	notes := []*on.Note{}
	for {
		var entity NoteEntity
		_, err := it.Next(&entity)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		notes = append(notes, entity.ToNote())
	}
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].CreatedAt.Before(notes[j].CreatedAt)
	})
	return notes, nil
}

func (s *NoteStore) GetNote(ctx context.Context, id, ownerID string) (*on.Note, error) {
	if id == "" || ownerID == "" {
		return nil, on.ErrNoteNotFound
	}
	var entity NoteEntity
	if err := s.client.Get(ctx, s.noteKey(id, ownerID), &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, on.ErrNoteNotFound
		}
		return nil, err
	}
	return entity.ToNote(), nil
}

func (s *NoteStore) SaveNote(ctx context.Context, note *on.Note) error {
	if note.ID == "" || note.OwnerID == "" {
		return on.ErrNoteNotFound
	}
	key := s.noteKey(note.ID, note.OwnerID)
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing NoteEntity
		if err := tx.Get(key, &existing); err != nil {
			return err
		}
		_, err := tx.Put(key, NoteToEntity(note, key))
		return err
	})
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return on.ErrNoteNotFound
	}
	return err
}

func (s *NoteStore) DeleteNote(ctx context.Context, id, ownerID string) error {
	if id == "" || ownerID == "" {
		return on.ErrNoteNotFound
	}
	key := s.noteKey(id, ownerID)
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing NoteEntity
		if err := tx.Get(key, &existing); err != nil {
			return err
		}
		return tx.Delete(key)
	})
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return on.ErrNoteNotFound
	}
	return err
}
