package otpnotes

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"time"
)

// ChallengePurpose says which flow a one-time code was issued for
type ChallengePurpose string

const (
	PurposeSignup ChallengePurpose = "signup"
	PurposeLogin  ChallengePurpose = "login"
)

// OTPMessage is everything a transport needs to deliver a one-time code
type OTPMessage struct {
	To       string
	Code     string
	Purpose  ChallengePurpose
	ValidFor time.Duration
}

// SendEmail interface allows applications to provide their own email sending implementation
type SendEmail interface {
	SendOTPEmail(ctx context.Context, msg OTPMessage) error
}

// SendEmailFunc adapts a plain function to SendEmail
type SendEmailFunc func(ctx context.Context, msg OTPMessage) error

func (f SendEmailFunc) SendOTPEmail(ctx context.Context, msg OTPMessage) error {
	return f(ctx, msg)
}

var otpEmailTemplate = template.Must(template.New("otp").Parse(`<div style="font-family: sans-serif;">
  <h2>Your OTP Code</h2>
  <p>Use the following code to {{.Action}}:</p>
  <h1 style="letter-spacing: 4px;">{{.Code}}</h1>
  <p>This code is valid for {{.Minutes}} minutes.</p>
</div>`))

// Subject returns the subject line for the message
func (m OTPMessage) Subject() string {
	return "Your OTP Code"
}

func (m OTPMessage) minutes() int {
	mins := int(m.ValidFor / time.Minute)
	if mins <= 0 {
		mins = 1
	}
	return mins
}

func (m OTPMessage) action() string {
	if m.Purpose == PurposeLogin {
		return "log in"
	}
	return "verify your email"
}

// HTML renders the message body
func (m OTPMessage) HTML() (string, error) {
	var buf bytes.Buffer
	err := otpEmailTemplate.Execute(&buf, map[string]any{
		"Action":  m.action(),
		"Code":    m.Code,
		"Minutes": m.minutes(),
	})
	if err != nil {
		return "", fmt.Errorf("rendering otp email: %w", err)
	}
	return buf.String(), nil
}

// Text renders a plain text body for transports without HTML support
func (m OTPMessage) Text() string {
	return fmt.Sprintf("Use the following code to %s: %s\nThis code is valid for %d minutes.", m.action(), m.Code, m.minutes())
}

// ConsoleEmailSender is a development implementation that logs emails to console
type ConsoleEmailSender struct{}

func (c *ConsoleEmailSender) SendOTPEmail(ctx context.Context, msg OTPMessage) error {
	log.Printf("\n=== EMAIL: One-time code (%s) ===", msg.Purpose)
	log.Printf("To: %s", msg.To)
	log.Printf("Subject: %s", msg.Subject())
	log.Printf("Body: %s", msg.Text())
	log.Printf("==================================\n")
	return nil
}
