// Package otpnotes is a small note-taking service whose accounts authenticate
// with one-time codes sent by email, or with a Google ID token.
//
// # Architecture
//
// Account: one record per email address. An account is either unverified
// (a signup challenge may be pending) or verified. The pending one-time code
// and its expiry live on the account and are cleared after a successful
// verification.
//
// ChallengeEngine: issues, stores, delivers and verifies one-time codes for
// the signup and login flows.
//
// CredentialIssuer: mints and verifies the signed session credential (a JWT)
// handed to clients after a successful verification.
//
// FederatedBridge: trusts a verified third-party ID token instead of a
// one-time code, creating the account on first use.
//
// NoteService: create, list, update and delete notes, always scoped to the
// owning account.
//
// # Basic Usage
//
//	import (
//	    "github.com/panyam/otpnotes"
//	    "github.com/panyam/otpnotes/stores/fs"
//	)
//
//	accounts := fs.NewFSAccountStore("/path/to/storage")
//	notes := fs.NewFSNoteStore("/path/to/storage")
//
//	app := (&otpnotes.App{
//	    Challenges:  &otpnotes.ChallengeEngine{Accounts: accounts, EmailSender: &otpnotes.ConsoleEmailSender{}},
//	    Credentials: &otpnotes.CredentialIssuer{SecretKey: os.Getenv("NOTES_JWT_SECRET_KEY")},
//	    Notes:       &otpnotes.NoteService{Store: notes},
//	    Accounts:    accounts,
//	}).EnsureDefaults()
//
//	http.ListenAndServe(":8080", app.Handler())
//
// # Store Implementations
//
// The stores package tree provides file based stores (stores/fs) for
// development and tests, an embedded BuntDB store (stores/bunt), a GORM store
// (stores/gorm) and a Google Cloud Datastore store (stores/gae).
//
// # Security
//
// One-time codes are 6 digits drawn from crypto/rand and expire 10 minutes
// after they are issued. There is no limit on verification attempts while a
// code is live. Session credentials are HS256 JWTs and are not persisted, so
// they cannot be revoked before they expire.
package otpnotes
