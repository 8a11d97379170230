// Package mailers holds the email transports that deliver one-time codes.
package mailers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	on "github.com/panyam/otpnotes"
)

const DefaultResendBaseURL = "https://api.resend.com"

// ResendMailer sends codes through the Resend HTTP API
type ResendMailer struct {
	APIKey  string
	From    string
	BaseURL string
	Client  *http.Client
}

// NewResendMailer reads the API key from RESEND_API_KEY
func NewResendMailer(from string) (*ResendMailer, error) {
	key := os.Getenv("RESEND_API_KEY")
	if key == "" {
		return nil, errors.New("RESEND_API_KEY not set")
	}
	return &ResendMailer{
		APIKey:  key,
		From:    from,
		BaseURL: DefaultResendBaseURL,
		Client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}, nil
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
}

func (m *ResendMailer) SendOTPEmail(ctx context.Context, msg on.OTPMessage) error {
	html, err := msg.HTML()
	if err != nil {
		return err
	}
	b, err := json.Marshal(resendRequest{
		From:    m.From,
		To:      []string{msg.To},
		Subject: msg.Subject(),
		HTML:    html,
		Text:    msg.Text(),
	})
	if err != nil {
		return err
	}

	baseURL := m.BaseURL
	if baseURL == "" {
		baseURL = DefaultResendBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/emails", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("resend: failed to send otp email (%d): %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
