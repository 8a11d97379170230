//go:build !wasm
// +build !wasm

package gae_test

import (
	"context"
	"os"
	"testing"

	"cloud.google.com/go/datastore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/panyam/otpnotes/stores/gae"
	"github.com/panyam/otpnotes/stores/storetest"
)

// newTestClient connects to the Datastore emulator. Tests are skipped unless
// DATASTORE_EMULATOR_HOST is set. Every test gets its own namespace.
func newTestClient(t *testing.T) (*datastore.Client, string) {
	if os.Getenv("DATASTORE_EMULATOR_HOST") == "" {
		t.Skip("DATASTORE_EMULATOR_HOST not set")
	}
	client, err := datastore.NewClient(context.Background(), "otpnotes-test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, "test-" + uuid.NewString()
}

func TestGAEAccountStore(t *testing.T) {
	client, ns := newTestClient(t)
	storetest.RunAccountStoreTests(t, gae.NewAccountStore(client, ns))
}

func TestGAENoteStore(t *testing.T) {
	client, ns := newTestClient(t)
	storetest.RunNoteStoreTests(t, gae.NewNoteStore(client, ns))
}
