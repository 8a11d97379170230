package mailers

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	on "github.com/panyam/otpnotes"
)

// SMTPMailer sends codes over SMTP with PLAIN auth when a username is set
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// Defaults to smtp.SendMail
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func (m *SMTPMailer) addr() string {
	port := m.Port
	if port == 0 {
		port = 587
	}
	return net.JoinHostPort(m.Host, strconv.Itoa(port))
}

func (m *SMTPMailer) SendOTPEmail(ctx context.Context, msg on.OTPMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := buildMessage(m.From, msg, time.Now())
	if err != nil {
		return err
	}
	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}
	send := m.send
	if send == nil {
		send = smtp.SendMail
	}
	if err := send(m.addr(), auth, m.From, []string{msg.To}, body); err != nil {
		return fmt.Errorf("smtp: %w", err)
	}
	return nil
}

// buildMessage renders a multipart/alternative message with text and html parts
func buildMessage(from string, msg on.OTPMessage, now time.Time) ([]byte, error) {
	html, err := msg.HTML()
	if err != nil {
		return nil, err
	}

	var parts bytes.Buffer
	mw := multipart.NewWriter(&parts)
	for _, p := range []struct{ ctype, body string }{
		{"text/plain; charset=UTF-8", msg.Text()},
		{"text/html; charset=UTF-8", html},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {p.ctype}})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(p.body)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "From: %s\r\n", from)
	fmt.Fprintf(&out, "To: %s\r\n", msg.To)
	fmt.Fprintf(&out, "Subject: %s\r\n", msg.Subject())
	fmt.Fprintf(&out, "Date: %s\r\n", now.Format(time.RFC1123Z))
	out.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&out, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mw.Boundary())
	out.Write(parts.Bytes())
	return out.Bytes(), nil
}
