package mailers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	on "github.com/panyam/otpnotes"
)

func testMessage() on.OTPMessage {
	return on.OTPMessage{To: "a@x.com", Code: "123456", Purpose: on.PurposeSignup, ValidFor: 10 * time.Minute}
}

func TestResendMailerPostsEmail(t *testing.T) {
	var got resendRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"em_1"}`))
	}))
	defer srv.Close()

	m := &ResendMailer{APIKey: "re_test", From: "notes@example.com", BaseURL: srv.URL, Client: srv.Client()}
	require.NoError(t, m.SendOTPEmail(context.Background(), testMessage()))

	assert.Equal(t, "Bearer re_test", auth)
	assert.Equal(t, "notes@example.com", got.From)
	assert.Equal(t, []string{"a@x.com"}, got.To)
	assert.Equal(t, "Your OTP Code", got.Subject)
	assert.Contains(t, got.HTML, "123456")
	assert.Contains(t, got.HTML, "10 minutes")
}

func TestResendMailerReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := &ResendMailer{APIKey: "bad", From: "notes@example.com", BaseURL: srv.URL, Client: srv.Client()}
	err := m.SendOTPEmail(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestNewResendMailerRequiresKey(t *testing.T) {
	t.Setenv("RESEND_API_KEY", "")
	_, err := NewResendMailer("notes@example.com")
	assert.Error(t, err)

	t.Setenv("RESEND_API_KEY", "re_123")
	m, err := NewResendMailer("notes@example.com")
	require.NoError(t, err)
	assert.Equal(t, DefaultResendBaseURL, m.BaseURL)
}

func TestSMTPMailerSends(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	m := &SMTPMailer{
		Host:     "smtp.example.com",
		Username: "user",
		Password: "pass",
		From:     "notes@example.com",
		send: func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
			assert.NotNil(t, a)
			return nil
		},
	}
	require.NoError(t, m.SendOTPEmail(context.Background(), testMessage()))

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "notes@example.com", gotFrom)
	assert.Equal(t, []string{"a@x.com"}, gotTo)
	body := string(gotMsg)
	assert.Contains(t, body, "Subject: Your OTP Code\r\n")
	assert.Contains(t, body, "multipart/alternative")
	assert.Contains(t, body, "Use the following code to verify your email: 123456")
	assert.Contains(t, body, `<h1 style="letter-spacing: 4px;">123456</h1>`)
}

func TestSMTPMailerHonoursCancelledContext(t *testing.T) {
	called := false
	m := &SMTPMailer{Host: "smtp.example.com", From: "n@example.com",
		send: func(string, smtp.Auth, string, []string, []byte) error {
			called = true
			return nil
		}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.SendOTPEmail(ctx, testMessage()), context.Canceled)
	assert.False(t, called)
}
