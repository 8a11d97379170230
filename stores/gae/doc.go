//go:build !wasm
// +build !wasm

// Package gae provides Google Cloud Datastore implementations of the otpnotes
// account and note stores. It is designed for deployment on Google Cloud
// Platform and supports multi-tenancy through Datastore namespaces.
//
// # Datastore Kinds
//
// The package uses the following Datastore kinds:
//   - Account: keyed by normalized email, so the key itself enforces one
//     account per address
//   - Owner: a key-only parent for notes (no entity is ever stored)
//   - Note: child of its Owner key, so every lookup is owner scoped and
//     listing is a strongly consistent ancestor query
//
// # Namespacing
//
// Pass a namespace when creating stores to isolate data between tenants:
//
//	accounts := gae.NewAccountStore(client, "tenant-123")
//	notes := gae.NewNoteStore(client, "tenant-123")
//
// # Usage
//
//	client, _ := datastore.NewClient(ctx, projectID)
//	accounts := gae.NewAccountStore(client, "") // default namespace
//	notes := gae.NewNoteStore(client, "")
package gae
