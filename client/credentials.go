// Package client is a Go client for the notes API. It runs the OTP and
// Google login flows, keeps the resulting credential in a CredentialStore
// and attaches it to every notes call.
package client

import (
	"time"

	on "github.com/panyam/otpnotes"
)

// ServerCredential holds the credential issued by a single server
type ServerCredential struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	AccountID    string    `json:"account_id,omitempty"`
	AccountEmail string    `json:"account_email,omitempty"`
	AccountName  string    `json:"account_name,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsExpired returns true if the credential has expired
func (c *ServerCredential) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// IsExpiringSoon returns true if the credential expires within the given duration
func (c *ServerCredential) IsExpiringSoon(within time.Duration) bool {
	return time.Now().Add(within).After(c.ExpiresAt)
}

// CredentialStore defines the interface for storing and retrieving credentials
type CredentialStore interface {
	// GetCredential retrieves a credential for a server URL
	// Returns nil, nil if no credential exists for the server
	GetCredential(serverURL string) (*ServerCredential, error)

	// SetCredential stores a credential for a server URL
	SetCredential(serverURL string, cred *ServerCredential) error

	// RemoveCredential removes a credential for a server URL
	RemoveCredential(serverURL string) error

	// ListServers returns all server URLs with stored credentials
	ListServers() ([]string, error)

	// Save persists any pending changes (for stores that batch writes)
	Save() error
}

// PendingChallenge records where the last emailed code went, so the verify
// step can run in a later process without asking for the email again
type PendingChallenge struct {
	Purpose     on.ChallengePurpose `json:"purpose"`
	Email       string              `json:"email"`
	RequestedAt time.Time           `json:"requested_at"`
}

// IsStale reports whether the emailed code has expired on the server
func (p *PendingChallenge) IsStale() bool {
	return time.Since(p.RequestedAt) >= on.DefaultOTPExpiry
}

// ChallengeStore is implemented by credential stores that can also remember
// a pending challenge per server. A nil challenge clears it.
type ChallengeStore interface {
	GetPendingChallenge(serverURL string) (*PendingChallenge, error)
	SetPendingChallenge(serverURL string, challenge *PendingChallenge) error
}
