package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	on "github.com/panyam/otpnotes"
	serverfs "github.com/panyam/otpnotes/stores/fs"
)

// inbox captures the codes the server emails
type inbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (b *inbox) SendOTPEmail(ctx context.Context, msg on.OTPMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.codes[msg.To] = msg.Code
	return nil
}

func (b *inbox) code(email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.codes[email]
}

func newNotesServer(t *testing.T) (*httptest.Server, *inbox) {
	t.Helper()
	dir := t.TempDir()
	accounts := serverfs.NewFSAccountStore(dir)
	box := &inbox{codes: map[string]string{}}
	app := &on.App{
		Challenges:  &on.ChallengeEngine{Accounts: accounts, EmailSender: box},
		Notes:       &on.NoteService{Store: serverfs.NewFSNoteStore(dir)},
		Accounts:    accounts,
		Credentials: &on.CredentialIssuer{SecretKey: "client-test-secret"},
	}
	server := httptest.NewServer(app.Handler())
	t.Cleanup(server.Close)
	return server, box
}

func TestClient_SignupAndNotes(t *testing.T) {
	server, box := newNotesServer(t)
	ctx := context.Background()
	store := newMockCredentialStore()
	c := NewClient(server.URL, store)

	ch, err := c.Signup(ctx, "Alice", "Alice@Example.com", "1995-05-05")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if ch.Email != "alice@example.com" {
		t.Errorf("Signup() email = %s", ch.Email)
	}

	if _, err := c.VerifySignup(ctx, ch.Email, "000000"); err == nil {
		t.Fatal("expected wrong code to fail")
	}
	if c.IsLoggedIn() {
		t.Fatal("failed verification must not store a credential")
	}

	cred, err := c.VerifySignup(ctx, ch.Email, box.code(ch.Email))
	if err != nil {
		t.Fatalf("VerifySignup() error = %v", err)
	}
	if cred.AccountEmail != "alice@example.com" || cred.AccountID == "" || cred.IsExpired() {
		t.Errorf("unexpected credential: %+v", cred)
	}
	if !c.IsLoggedIn() {
		t.Fatal("expected credential to be stored")
	}

	me, err := c.Me(ctx)
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if me.ID != cred.AccountID || me.DOB != "1995-05-05" {
		t.Errorf("unexpected account: %+v", me)
	}

	note, err := c.CreateNote(ctx, "Groceries", "milk")
	if err != nil {
		t.Fatalf("CreateNote() error = %v", err)
	}
	title := "Shopping"
	updated, err := c.UpdateNote(ctx, note.ID, on.NotePatch{Title: &title})
	if err != nil {
		t.Fatalf("UpdateNote() error = %v", err)
	}
	if updated.Title != "Shopping" || updated.Content != "milk" {
		t.Errorf("unexpected note: %+v", updated)
	}

	notes, err := c.ListNotes(ctx)
	if err != nil {
		t.Fatalf("ListNotes() error = %v", err)
	}
	if len(notes) != 1 || notes[0].ID != note.ID {
		t.Errorf("unexpected notes: %+v", notes)
	}

	if err := c.DeleteNote(ctx, note.ID); err != nil {
		t.Fatalf("DeleteNote() error = %v", err)
	}
	err = c.DeleteNote(ctx, note.ID)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Errorf("expected 404 deleting twice, got %v", err)
	}

	if err := c.Logout(ctx); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := c.ListNotes(ctx); err == nil {
		t.Error("expected notes to require a credential after logout")
	}
}

func TestClient_LoginFlow(t *testing.T) {
	server, box := newNotesServer(t)
	ctx := context.Background()
	c := NewClient(server.URL, newMockCredentialStore())

	if _, err := c.Signup(ctx, "Bob", "bob@example.com", "1990-01-01"); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if _, err := c.VerifySignup(ctx, "bob@example.com", box.code("bob@example.com")); err != nil {
		t.Fatalf("VerifySignup() error = %v", err)
	}
	c.Logout(ctx)

	if _, err := c.Login(ctx, "bob@example.com"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if _, err := c.VerifyLogin(ctx, "bob@example.com", box.code("bob@example.com")); err != nil {
		t.Fatalf("VerifyLogin() error = %v", err)
	}
	if !c.IsLoggedIn() {
		t.Error("expected to be logged in")
	}
}

func TestClient_GoogleLoginWithoutBridge(t *testing.T) {
	server, _ := newNotesServer(t)
	_, err := NewClient(server.URL, newMockCredentialStore()).GoogleLogin(context.Background(), "some-id-token")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError || apiErr.Message != "Google login failed" {
		t.Errorf("expected 500 Google login failed, got %v", err)
	}
}

// challengeMemoryStore adds ChallengeStore to the in-memory credential store
type challengeMemoryStore struct {
	*mockCredentialStore
	pending map[string]*PendingChallenge
}

func (m *challengeMemoryStore) GetPendingChallenge(serverURL string) (*PendingChallenge, error) {
	return m.pending[serverURL], nil
}

func (m *challengeMemoryStore) SetPendingChallenge(serverURL string, p *PendingChallenge) error {
	if p == nil {
		delete(m.pending, serverURL)
	} else {
		m.pending[serverURL] = p
	}
	return nil
}

func TestClient_VerifyUsesRememberedEmail(t *testing.T) {
	server, box := newNotesServer(t)
	ctx := context.Background()
	store := &challengeMemoryStore{mockCredentialStore: newMockCredentialStore(), pending: map[string]*PendingChallenge{}}
	c := NewClient(server.URL, store)

	if _, err := c.Signup(ctx, "Cleo", "Cleo@Example.com", "1992-02-02"); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	p, err := c.PendingChallenge()
	if err != nil || p == nil || p.Email != "cleo@example.com" || p.Purpose != on.PurposeSignup {
		t.Fatalf("expected remembered signup challenge, got %+v %v", p, err)
	}
	if _, err := c.VerifyLogin(ctx, "", box.code("cleo@example.com")); !errors.Is(err, ErrNoPendingChallenge) {
		t.Errorf("a signup challenge must not satisfy login verification, got %v", err)
	}

	if _, err := c.VerifySignup(ctx, "", box.code("cleo@example.com")); err != nil {
		t.Fatalf("VerifySignup() error = %v", err)
	}
	if p, _ := c.PendingChallenge(); p != nil {
		t.Errorf("challenge should be cleared after login, got %+v", p)
	}
	c.Logout(ctx)

	if _, err := c.Login(ctx, "cleo@example.com"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if _, err := c.VerifyLogin(ctx, "", box.code("cleo@example.com")); err != nil {
		t.Fatalf("VerifyLogin() error = %v", err)
	}
	if !c.IsLoggedIn() {
		t.Error("expected to be logged in")
	}
}

func TestClient_VerifyWithoutEmailNeedsChallengeStore(t *testing.T) {
	server, _ := newNotesServer(t)
	c := NewClient(server.URL, newMockCredentialStore())
	if _, err := c.VerifySignup(context.Background(), "", "123456"); !errors.Is(err, ErrNoPendingChallenge) {
		t.Errorf("expected ErrNoPendingChallenge, got %v", err)
	}
}
