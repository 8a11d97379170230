package grpc

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	on "github.com/panyam/otpnotes"
	"github.com/panyam/otpnotes/stores/fs"
)

type notesHarness struct {
	client *NotesClient
	issuer *on.CredentialIssuer
}

// setupNotesServer runs the notes service behind the auth interceptors on an
// in-memory listener
func setupNotesServer(t *testing.T) *notesHarness {
	t.Helper()
	issuer := (&on.CredentialIssuer{SecretKey: "grpc-test-secret-0123456789abcdef"}).EnsureDefaults()
	notes := (&on.NoteService{Store: fs.NewFSNoteStore(t.TempDir())}).EnsureDefaults()

	auth := DefaultInterceptorConfig(issuer.VerifyTokenFunc())
	srv := grpc.NewServer(
		grpc.UnaryInterceptor(UnaryAuthInterceptor(auth)),
		grpc.StreamInterceptor(StreamAuthInterceptor(auth)),
	)
	RegisterNotesServer(srv, &NotesServer{Notes: notes})

	lis := bufconn.Listen(1 << 20)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &notesHarness{client: NewNotesClient(conn), issuer: issuer}
}

func (h *notesHarness) as(t *testing.T, accountID string) context.Context {
	t.Helper()
	token, _, err := h.issuer.Issue(accountID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return CredentialToOutgoingContext(context.Background(), token)
}

func assertCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	if st, _ := status.FromError(err); st.Code() != want {
		t.Errorf("expected %v, got %v", want, err)
	}
}

func TestNotesServiceRequiresCredential(t *testing.T) {
	h := setupNotesServer(t)

	_, err := h.client.ListNotes(context.Background())
	assertUnauthenticated(t, err)

	_, err = h.client.CreateNote(CredentialToOutgoingContext(context.Background(), "forged"), "t", "c")
	assertUnauthenticated(t, err)

	forged := (&on.CredentialIssuer{SecretKey: "some-other-key"}).EnsureDefaults()
	token, _, _ := forged.Issue("alice")
	_, err = h.client.ListNotes(CredentialToOutgoingContext(context.Background(), token))
	assertUnauthenticated(t, err)
}

func TestNotesServiceOwnerScoped(t *testing.T) {
	h := setupNotesServer(t)
	alice := h.as(t, "alice")
	bob := h.as(t, "bob")

	note, err := h.client.CreateNote(alice, "Groceries", "milk")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if note.ID == "" || note.OwnerID != "alice" || note.CreatedAt.IsZero() {
		t.Errorf("unexpected note %+v", note)
	}

	_, err = h.client.CreateNote(alice, "", "missing title")
	assertCode(t, err, codes.InvalidArgument)

	notes, err := h.client.ListNotes(bob)
	if err != nil || len(notes) != 0 {
		t.Errorf("bob should see no notes, got %v %v", notes, err)
	}
	notes, err = h.client.ListNotes(alice)
	if err != nil || len(notes) != 1 || notes[0].Title != "Groceries" {
		t.Errorf("alice should see her note, got %v %v", notes, err)
	}

	title := "Hijacked"
	_, err = h.client.UpdateNote(bob, note.ID, on.NotePatch{Title: &title})
	assertCode(t, err, codes.NotFound)
	assertCode(t, h.client.DeleteNote(bob, note.ID), codes.NotFound)

	content := "milk, eggs"
	updated, err := h.client.UpdateNote(alice, note.ID, on.NotePatch{Content: &content})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Groceries" || updated.Content != "milk, eggs" {
		t.Errorf("patch should only change content, got %+v", updated)
	}

	if err := h.client.DeleteNote(alice, note.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	assertCode(t, h.client.DeleteNote(alice, note.ID), codes.NotFound)
}
