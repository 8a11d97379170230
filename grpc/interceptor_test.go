package grpc

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// fakeVerify accepts "good" as the credential for acct-1
func fakeVerify(token string) (string, error) {
	if token == "good" {
		return "acct-1", nil
	}
	return "", errors.New("bad credential")
}

func withAuth(value string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", value))
}

func assertUnauthenticated(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error for unauthenticated request")
	}
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("expected grpc status error, got %v", err)
	}
	if st.Code() != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated code, got %v", st.Code())
	}
}

func TestDefaultInterceptorConfig(t *testing.T) {
	config := DefaultInterceptorConfig(fakeVerify)
	if !config.RequireAuth {
		t.Error("expected RequireAuth to be true by default")
	}
	if config.PublicMethods == nil {
		t.Error("expected PublicMethods to be initialized")
	}
	if config.Config == nil {
		t.Error("expected Config to be initialized")
	}
}

func TestNewPublicMethodsConfig(t *testing.T) {
	config := NewPublicMethodsConfig(fakeVerify, "/notes.Notes/Health", "/notes.Notes/Version")
	if !config.PublicMethods["/notes.Notes/Health"] || !config.PublicMethods["/notes.Notes/Version"] {
		t.Error("expected both methods to be public")
	}
	if config.PublicMethods["/notes.Notes/List"] {
		t.Error("expected List to not be public")
	}
}

func TestUnaryAuthInterceptor_NoCredential(t *testing.T) {
	interceptor := UnaryAuthInterceptor(DefaultInterceptorConfig(fakeVerify))
	info := &grpc.UnaryServerInfo{FullMethod: "/notes.Notes/List"}

	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		t.Error("handler should not be called")
		return nil, nil
	})
	assertUnauthenticated(t, err)
}

func TestUnaryAuthInterceptor_ValidCredential(t *testing.T) {
	interceptor := UnaryAuthInterceptor(DefaultInterceptorConfig(fakeVerify))
	info := &grpc.UnaryServerInfo{FullMethod: "/notes.Notes/List"}

	var seen string
	_, err := interceptor(withAuth("Bearer good"), nil, info, func(ctx context.Context, req any) (any, error) {
		seen = AccountIDFromContext(ctx)
		return "result", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != "acct-1" {
		t.Errorf("expected handler to see acct-1, got %q", seen)
	}
}

func TestUnaryAuthInterceptor_InvalidCredentialOnPublicMethod(t *testing.T) {
	interceptor := UnaryAuthInterceptor(NewPublicMethodsConfig(fakeVerify, "/notes.Notes/Health"))
	info := &grpc.UnaryServerInfo{FullMethod: "/notes.Notes/Health"}

	_, err := interceptor(withAuth("Bearer forged"), nil, info, func(ctx context.Context, req any) (any, error) {
		t.Error("handler should not be called")
		return nil, nil
	})
	assertUnauthenticated(t, err)
}

func TestUnaryAuthInterceptor_PublicMethod(t *testing.T) {
	interceptor := UnaryAuthInterceptor(NewPublicMethodsConfig(fakeVerify, "/notes.Notes/Health"))
	info := &grpc.UnaryServerInfo{FullMethod: "/notes.Notes/Health"}

	handlerCalled := false
	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		handlerCalled = true
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error for public method: %v", err)
	}
	if !handlerCalled {
		t.Error("handler should have been called for public method")
	}
}

func TestUnaryAuthInterceptor_OptionalAuth(t *testing.T) {
	interceptor := UnaryAuthInterceptor(OptionalAuthConfig(fakeVerify))
	info := &grpc.UnaryServerInfo{FullMethod: "/notes.Notes/List"}

	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		if IsAuthenticated(ctx) {
			t.Error("expected anonymous context")
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("unexpected error with optional auth: %v", err)
	}
}

func TestUnaryAuthInterceptor_ForwardedAccountID(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(DefaultMetadataKeyAccountID, "acct-9"))
	info := &grpc.UnaryServerInfo{FullMethod: "/notes.Notes/List"}

	// ignored unless trusted
	_, err := UnaryAuthInterceptor(DefaultInterceptorConfig(fakeVerify))(ctx, nil, info, func(ctx context.Context, req any) (any, error) {
		return nil, nil
	})
	assertUnauthenticated(t, err)

	config := DefaultInterceptorConfig(fakeVerify)
	config.TrustForwardedAccountID = true
	var seen string
	_, err = UnaryAuthInterceptor(config)(ctx, nil, info, func(ctx context.Context, req any) (any, error) {
		seen = AccountIDFromContext(ctx)
		return nil, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != "acct-9" {
		t.Errorf("expected forwarded account acct-9, got %q", seen)
	}
}

// mockServerStream implements grpc.ServerStream for testing
type mockServerStream struct {
	ctx context.Context
}

func (m *mockServerStream) Context() context.Context     { return m.ctx }
func (m *mockServerStream) SetHeader(metadata.MD) error  { return nil }
func (m *mockServerStream) SendHeader(metadata.MD) error { return nil }
func (m *mockServerStream) SetTrailer(metadata.MD)       {}
func (m *mockServerStream) SendMsg(any) error            { return nil }
func (m *mockServerStream) RecvMsg(any) error            { return nil }

func TestStreamAuthInterceptor_NoCredential(t *testing.T) {
	interceptor := StreamAuthInterceptor(DefaultInterceptorConfig(fakeVerify))
	info := &grpc.StreamServerInfo{FullMethod: "/notes.Notes/Watch"}

	err := interceptor(nil, &mockServerStream{ctx: context.Background()}, info, func(srv any, ss grpc.ServerStream) error {
		t.Error("handler should not be called")
		return nil
	})
	assertUnauthenticated(t, err)
}

func TestStreamAuthInterceptor_ValidCredential(t *testing.T) {
	interceptor := StreamAuthInterceptor(DefaultInterceptorConfig(fakeVerify))
	info := &grpc.StreamServerInfo{FullMethod: "/notes.Notes/Watch"}

	var seen string
	err := interceptor(nil, &mockServerStream{ctx: withAuth("Bearer good")}, info, func(srv any, ss grpc.ServerStream) error {
		seen = AccountIDFromContext(ss.Context())
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != "acct-1" {
		t.Errorf("expected stream context to carry acct-1, got %q", seen)
	}
}

func TestInterceptorWithoutVerifier(t *testing.T) {
	interceptor := UnaryAuthInterceptor(nil)
	info := &grpc.UnaryServerInfo{FullMethod: "/notes.Notes/List"}
	_, err := interceptor(withAuth("Bearer good"), nil, info, func(ctx context.Context, req any) (any, error) {
		return nil, nil
	})
	assertUnauthenticated(t, err)
}
