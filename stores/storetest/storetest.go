// Package storetest holds behaviour checks shared by every AccountStore and
// NoteStore implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	on "github.com/panyam/otpnotes"
)

func newAccount(email string) *on.Account {
	now := time.Now().UTC().Truncate(time.Second)
	return &on.Account{
		ID:          uuid.NewString(),
		Email:       email,
		Name:        "Test User",
		DateOfBirth: time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// RunAccountStoreTests exercises store against the AccountStore contract.
// Each call must get a fresh, empty store.
func RunAccountStoreTests(t *testing.T, store on.AccountStore) {
	ctx := context.Background()

	t.Run("missing account", func(t *testing.T) {
		_, err := store.GetAccountByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, on.ErrAccountNotFound)
		_, err = store.GetAccountByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, on.ErrAccountNotFound)
	})

	t.Run("create and fetch", func(t *testing.T) {
		acct := newAccount("alice@example.com")
		acct.SetChallenge("012345", time.Now().Add(10*time.Minute).UTC().Truncate(time.Second))
		require.NoError(t, store.CreateAccount(ctx, acct))

		got, err := store.GetAccountByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, acct.ID, got.ID)
		assert.Equal(t, "Test User", got.Name)
		assert.Equal(t, "1990-05-17", on.FormatDOB(got.DateOfBirth))
		assert.False(t, got.Verified)
		assert.Equal(t, "012345", got.OTP)
		require.NotNil(t, got.OTPExpiresAt)
		assert.True(t, acct.OTPExpiresAt.Equal(*got.OTPExpiresAt))

		byID, err := store.GetAccountByID(ctx, acct.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", byID.Email)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		require.NoError(t, store.CreateAccount(ctx, newAccount("bob@example.com")))
		err := store.CreateAccount(ctx, newAccount("bob@example.com"))
		assert.ErrorIs(t, err, on.ErrAccountExists)
	})

	t.Run("save clears challenge", func(t *testing.T) {
		acct := newAccount("carol@example.com")
		acct.SetChallenge("999999", time.Now().Add(time.Minute))
		require.NoError(t, store.CreateAccount(ctx, acct))

		acct.Verified = true
		acct.ClearChallenge()
		require.NoError(t, store.SaveAccount(ctx, acct))

		got, err := store.GetAccountByEmail(ctx, "carol@example.com")
		require.NoError(t, err)
		assert.True(t, got.Verified)
		assert.Empty(t, got.OTP)
		assert.Nil(t, got.OTPExpiresAt)
	})
}

// RunNoteStoreTests exercises store against the NoteStore contract. Each
// call must get a fresh, empty store.
func RunNoteStoreTests(t *testing.T, store on.NoteStore) {
	ctx := context.Background()
	owner := uuid.NewString()
	other := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Second)

	mk := func(owner, title string, at time.Time) *on.Note {
		return &on.Note{
			ID:        uuid.NewString(),
			Title:     title,
			Content:   title + " content",
			OwnerID:   owner,
			CreatedAt: at,
			UpdatedAt: at,
		}
	}

	first := mk(owner, "first", now)
	second := mk(owner, "second", now.Add(time.Second))
	foreign := mk(other, "foreign", now)
	for _, n := range []*on.Note{first, second, foreign} {
		require.NoError(t, store.CreateNote(ctx, n))
	}

	t.Run("list is owner scoped", func(t *testing.T) {
		notes, err := store.ListNotes(ctx, owner)
		require.NoError(t, err)
		require.Len(t, notes, 2)
		titles := []string{notes[0].Title, notes[1].Title}
		assert.ElementsMatch(t, []string{"first", "second"}, titles)

		empty, err := store.ListNotes(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("get is owner scoped", func(t *testing.T) {
		got, err := store.GetNote(ctx, first.ID, owner)
		require.NoError(t, err)
		assert.Equal(t, "first content", got.Content)

		_, err = store.GetNote(ctx, foreign.ID, owner)
		assert.ErrorIs(t, err, on.ErrNoteNotFound)
	})

	t.Run("save", func(t *testing.T) {
		first.Title = "renamed"
		require.NoError(t, store.SaveNote(ctx, first))
		got, err := store.GetNote(ctx, first.ID, owner)
		require.NoError(t, err)
		assert.Equal(t, "renamed", got.Title)
	})

	t.Run("delete of another owner's note is not found", func(t *testing.T) {
		err := store.DeleteNote(ctx, foreign.ID, owner)
		assert.ErrorIs(t, err, on.ErrNoteNotFound)

		got, err := store.GetNote(ctx, foreign.ID, other)
		require.NoError(t, err)
		assert.Equal(t, "foreign", got.Title)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.DeleteNote(ctx, second.ID, owner))
		_, err := store.GetNote(ctx, second.ID, owner)
		assert.ErrorIs(t, err, on.ErrNoteNotFound)
		assert.ErrorIs(t, store.DeleteNote(ctx, second.ID, owner), on.ErrNoteNotFound)
	})
}
