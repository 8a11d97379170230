//go:build !wasm
// +build !wasm

// Package gorm provides GORM-based implementations of the otpnotes account
// and note stores. It supports any database that GORM supports (PostgreSQL,
// MySQL, SQLite, etc.) and is suitable for production deployments requiring
// relational database storage.
//
// # Database Schema
//
// The package auto-migrates the following tables:
//   - accounts: one row per email, with the pending one-time code inline
//   - notes: notes, indexed by owner
//
// # Usage
//
//	db, _ := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
//	gormstore.AutoMigrate(db)
//	accounts := gormstore.NewAccountStore(db)
//	notes := gormstore.NewNoteStore(db)
package gorm
