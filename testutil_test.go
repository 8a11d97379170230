package otpnotes_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	on "github.com/panyam/otpnotes"
	"github.com/panyam/otpnotes/stores/fs"
)

// fakeClock is a settable clock shared by the engine, issuer and note layer
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// captureSender records every message instead of delivering it
type captureSender struct {
	mu   sync.Mutex
	sent []on.OTPMessage
	fail error
}

func (c *captureSender) SendOTPEmail(ctx context.Context, msg on.OTPMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func (c *captureSender) last(t *testing.T) on.OTPMessage {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		t.Fatal("no email was sent")
	}
	return c.sent[len(c.sent)-1]
}

// sequentialCodes hands out 100001, 100002, ... so consecutive codes differ
func sequentialCodes() func() (string, error) {
	var mu sync.Mutex
	n := 100000
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%06d", n), nil
	}
}

type testEnv struct {
	TmpDir   string
	Accounts *fs.FSAccountStore
	Notes    *fs.FSNoteStore
	Clock    *fakeClock
	Sender   *captureSender
	Engine   *on.ChallengeEngine
}

func setupEnv(t *testing.T) *testEnv {
	tmpDir := t.TempDir()
	env := &testEnv{
		TmpDir:   tmpDir,
		Accounts: fs.NewFSAccountStore(tmpDir),
		Notes:    fs.NewFSNoteStore(tmpDir),
		Clock:    newFakeClock(),
		Sender:   &captureSender{},
	}
	env.Engine = (&on.ChallengeEngine{
		Accounts:    env.Accounts,
		EmailSender: env.Sender,
		Now:         env.Clock.Now,
		GenerateOTP: sequentialCodes(),
	}).EnsureDefaults()
	return env
}

func mustDOB(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := on.ParseDOB(s)
	if err != nil {
		t.Fatalf("bad dob %q: %v", s, err)
	}
	return d
}

// signupVerified runs a full signup for email and returns the account
func (env *testEnv) signupVerified(t *testing.T, name, email string) *on.Account {
	t.Helper()
	ctx := context.Background()
	if _, err := env.Engine.RequestSignupChallenge(ctx, name, email, mustDOB(t, "1995-06-15")); err != nil {
		t.Fatalf("signup: %v", err)
	}
	acct, err := env.Engine.VerifySignupChallenge(ctx, email, env.Sender.last(t).Code)
	if err != nil {
		t.Fatalf("verify signup: %v", err)
	}
	return acct
}
