//go:build !wasm
// +build !wasm

package gorm_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	gormstore "github.com/panyam/otpnotes/stores/gorm"
	"github.com/panyam/otpnotes/stores/storetest"
)

// openTestDB connects to OTPNOTES_TEST_POSTGRES_DSN and empties the tables.
// Tests are skipped when the variable is unset.
func openTestDB(t *testing.T) *gorm.DB {
	dsn := os.Getenv("OTPNOTES_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("OTPNOTES_TEST_POSTGRES_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gormstore.AutoMigrate(db))
	require.NoError(t, db.Exec("DELETE FROM notes").Error)
	require.NoError(t, db.Exec("DELETE FROM accounts").Error)
	return db
}

func TestGormAccountStore(t *testing.T) {
	storetest.RunAccountStoreTests(t, gormstore.NewAccountStore(openTestDB(t)))
}

func TestGormNoteStore(t *testing.T) {
	storetest.RunNoteStoreTests(t, gormstore.NewNoteStore(openTestDB(t)))
}
