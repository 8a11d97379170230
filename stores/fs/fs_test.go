package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	on "github.com/panyam/otpnotes"
	"github.com/panyam/otpnotes/stores/fs"
	"github.com/panyam/otpnotes/stores/storetest"
)

func TestFSAccountStore(t *testing.T) {
	storetest.RunAccountStoreTests(t, fs.NewFSAccountStore(t.TempDir()))
}

func TestFSNoteStore(t *testing.T) {
	storetest.RunNoteStoreTests(t, fs.NewFSNoteStore(t.TempDir()))
}

func TestFSAccountStoreLayout(t *testing.T) {
	dir := t.TempDir()
	store := fs.NewFSAccountStore(dir)
	acct := &on.Account{ID: "acct-1", Email: "Dave@Example.com"}
	require.NoError(t, store.CreateAccount(context.Background(), acct))

	_, err := os.Stat(filepath.Join(dir, "accounts", "dave@example.com.json"))
	assert.NoError(t, err)
	idx, err := os.ReadFile(filepath.Join(dir, "account_ids", "acct-1"))
	require.NoError(t, err)
	assert.Equal(t, "dave@example.com", string(idx))
}

func TestFSNoteStoreRejectsTraversal(t *testing.T) {
	store := fs.NewFSNoteStore(t.TempDir())
	_, err := store.GetNote(context.Background(), "../../etc/passwd", "owner")
	assert.ErrorIs(t, err, on.ErrNoteNotFound)
	assert.ErrorIs(t, store.DeleteNote(context.Background(), "..", "owner"), on.ErrNoteNotFound)
}
