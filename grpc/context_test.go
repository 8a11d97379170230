package grpc

import (
	"context"
	"testing"

	"google.golang.org/grpc/metadata"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.MetadataKeyAuthorization != DefaultMetadataKeyAuthorization {
		t.Errorf("expected MetadataKeyAuthorization %q, got %q", DefaultMetadataKeyAuthorization, config.MetadataKeyAuthorization)
	}
	if config.MetadataKeyAccountID != DefaultMetadataKeyAccountID {
		t.Errorf("expected MetadataKeyAccountID %q, got %q", DefaultMetadataKeyAccountID, config.MetadataKeyAccountID)
	}
	if config.TrustForwardedAccountID {
		t.Error("expected TrustForwardedAccountID to be false by default")
	}
}

func TestEnsureDefaults(t *testing.T) {
	config := &Config{}
	config.EnsureDefaults()
	if config.MetadataKeyAuthorization != DefaultMetadataKeyAuthorization {
		t.Errorf("expected MetadataKeyAuthorization %q, got %q", DefaultMetadataKeyAuthorization, config.MetadataKeyAuthorization)
	}
	if config.MetadataKeyAccountID != DefaultMetadataKeyAccountID {
		t.Errorf("expected MetadataKeyAccountID %q, got %q", DefaultMetadataKeyAccountID, config.MetadataKeyAccountID)
	}
}

func TestBearerFromIncomingContext(t *testing.T) {
	tests := []struct {
		name  string
		md    metadata.MD
		token string
	}{
		{"no metadata", nil, ""},
		{"no header", metadata.Pairs("other", "x"), ""},
		{"bearer prefix", metadata.Pairs("authorization", "Bearer abc.def"), "abc.def"},
		{"lowercase prefix", metadata.Pairs("authorization", "bearer abc.def"), "abc.def"},
		{"raw token", metadata.Pairs("authorization", "abc.def"), "abc.def"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.md != nil {
				ctx = metadata.NewIncomingContext(ctx, tt.md)
			}
			if got := BearerFromIncomingContext(ctx, nil); got != tt.token {
				t.Errorf("expected %q, got %q", tt.token, got)
			}
		})
	}
}

func TestCredentialToOutgoingContext(t *testing.T) {
	ctx := CredentialToOutgoingContext(context.Background(), "tok")
	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		t.Fatal("expected outgoing metadata")
	}
	if values := md.Get(DefaultMetadataKeyAuthorization); len(values) != 1 || values[0] != "Bearer tok" {
		t.Errorf("unexpected authorization metadata: %v", values)
	}
}

func TestAccountIDToOutgoingContext(t *testing.T) {
	ctx := AccountIDToOutgoingContext(context.Background(), "acct-1")
	md, _ := metadata.FromOutgoingContext(ctx)
	if values := md.Get(DefaultMetadataKeyAccountID); len(values) != 1 || values[0] != "acct-1" {
		t.Errorf("unexpected account metadata: %v", values)
	}
}

func TestIsAuthenticated_Anonymous(t *testing.T) {
	if IsAuthenticated(context.Background()) {
		t.Error("expected anonymous context")
	}
}
