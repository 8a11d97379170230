// Package grpc carries notes credentials and account ids across gRPC
// boundaries, for hosts that expose the notes service over gRPC next to (or
// behind) the HTTP API.
package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"

	on "github.com/panyam/otpnotes"
)

// Default metadata keys.
const (
	// DefaultMetadataKeyAuthorization carries "Bearer <credential>"
	DefaultMetadataKeyAuthorization = "authorization"

	// DefaultMetadataKeyAccountID carries an account id that an upstream
	// gateway has already authenticated
	DefaultMetadataKeyAccountID = "x-account-id"
)

// Config holds the metadata key configuration for auth context.
type Config struct {
	// Defaults to "authorization".
	MetadataKeyAuthorization string

	// Defaults to "x-account-id".
	MetadataKeyAccountID string

	// TrustForwardedAccountID accepts MetadataKeyAccountID without a
	// credential. Only enable it when the server is reachable solely through
	// a gateway that authenticates callers itself.
	TrustForwardedAccountID bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MetadataKeyAuthorization: DefaultMetadataKeyAuthorization,
		MetadataKeyAccountID:     DefaultMetadataKeyAccountID,
	}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKeyAuthorization == "" {
		c.MetadataKeyAuthorization = DefaultMetadataKeyAuthorization
	}
	if c.MetadataKeyAccountID == "" {
		c.MetadataKeyAccountID = DefaultMetadataKeyAccountID
	}
}

// AccountIDFromContext returns the account the interceptor authenticated, or
// "" when the call is anonymous.
func AccountIDFromContext(ctx context.Context) string {
	return on.AccountIDFromContext(ctx)
}

// BearerFromIncomingContext returns the credential in the authorization
// metadata, without its "Bearer " prefix.
func BearerFromIncomingContext(ctx context.Context, config *Config) string {
	if config == nil {
		config = DefaultConfig()
	}
	config.EnsureDefaults()

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(config.MetadataKeyAuthorization)
	if len(values) == 0 {
		return ""
	}
	token := strings.TrimSpace(values[0])
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

// forwardedAccountID reads the gateway supplied account id from metadata
func forwardedAccountID(ctx context.Context, config *Config) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(config.MetadataKeyAccountID); len(values) > 0 {
		return values[0]
	}
	return ""
}

// CredentialToOutgoingContext attaches a bearer credential to outgoing calls.
func CredentialToOutgoingContext(ctx context.Context, credential string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeyAuthorization, "Bearer "+credential)
}

// AccountIDToOutgoingContext forwards an already authenticated account id,
// as a gateway in front of a trusting server would.
func AccountIDToOutgoingContext(ctx context.Context, accountID string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultMetadataKeyAccountID, accountID)
}

// IsAuthenticated returns true if there is an authenticated account in the context.
func IsAuthenticated(ctx context.Context) bool {
	return AccountIDFromContext(ctx) != ""
}
