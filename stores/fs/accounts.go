package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	on "github.com/panyam/otpnotes"
)

// FSAccountStore stores accounts as JSON files under accounts/, one file per
// email, with a small id -> email index under account_ids/.
type FSAccountStore struct {
	StoragePath string
	mu          sync.Mutex
}

func NewFSAccountStore(storagePath string) *FSAccountStore {
	return &FSAccountStore{StoragePath: storagePath}
}

func (s *FSAccountStore) accountPath(email string) string {
	name, _ := safeName(on.NormalizeEmail(email))
	return filepath.Join(s.StoragePath, "accounts", name+".json")
}

func (s *FSAccountStore) indexPath(id string) (string, bool) {
	name, ok := safeName(id)
	return filepath.Join(s.StoragePath, "account_ids", name), ok
}

func (s *FSAccountStore) GetAccountByEmail(ctx context.Context, email string) (*on.Account, error) {
	var acct on.Account
	if err := readJSONFile(s.accountPath(email), &acct); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, on.ErrAccountNotFound
		}
		return nil, err
	}
	return &acct, nil
}

func (s *FSAccountStore) GetAccountByID(ctx context.Context, id string) (*on.Account, error) {
	path, ok := s.indexPath(id)
	if !ok {
		return nil, on.ErrAccountNotFound
	}
	email, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, on.ErrAccountNotFound
		}
		return nil, err
	}
	return s.GetAccountByEmail(ctx, string(email))
}

func (s *FSAccountStore) CreateAccount(ctx context.Context, account *on.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account.Email = on.NormalizeEmail(account.Email)
	path := s.accountPath(account.Email)
	if _, err := os.Stat(path); err == nil {
		return on.ErrAccountExists
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	idx, ok := s.indexPath(account.ID)
	if !ok {
		return fmt.Errorf("invalid account id: %q", account.ID)
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = account.CreatedAt
	}
	if err := writeJSONFile(path, account); err != nil {
		return err
	}
	return writeAtomicFile(idx, []byte(account.Email))
}

func (s *FSAccountStore) SaveAccount(ctx context.Context, account *on.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.accountPath(account.Email)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return on.ErrAccountNotFound
		}
		return err
	}
	return writeJSONFile(path, account)
}
