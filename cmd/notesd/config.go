package main

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	on "github.com/panyam/otpnotes"
)

var (
	errNoJWTSecret    = errors.New("NOTES_JWT_SECRET_KEY must be set")
	errDevJWTSecret   = errors.New("NOTES_JWT_SECRET_KEY must not be the development key")
	errShortJWTSecret = errors.New("NOTES_JWT_SECRET_KEY must be at least 32 bytes")
)

const minJWTSecretLen = 32

// Config is read from the environment; flags override the listen addresses
type Config struct {
	Addr     string // NOTES_ADDR, default ":5000"
	GRPCAddr string // NOTES_GRPC_ADDR, empty disables the gRPC listener

	// Store selection, in order of precedence:
	// DATABASE_URL (postgres via gorm), DATASTORE_PROJECT_ID (cloud datastore),
	// NOTES_FS_DIR (json files), otherwise NOTES_BUNT_PATH (default "notes.db").
	DatabaseURL        string
	DatastoreProject   string
	DatastoreNamespace string
	FSDir              string
	BuntPath           string

	// Mailer selection: RESEND_API_KEY, then SMTP_HOST, otherwise console
	MailFrom     string
	ResendAPIKey string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPass     string

	OTPExpiry time.Duration // NOTES_OTP_EXPIRY, default 10m

	// NOTES_JWT_SECRET_KEY, required
	JWTSecretKey string

	// Google login is enabled when a client id is present
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	SecureCookies bool // NOTES_SECURE_COOKIES
	LogLevel      string
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func ConfigFromEnv() *Config {
	c := &Config{
		Addr:               getenv("NOTES_ADDR", ""),
		GRPCAddr:           getenv("NOTES_GRPC_ADDR", ""),
		DatabaseURL:        getenv("DATABASE_URL", ""),
		DatastoreProject:   getenv("DATASTORE_PROJECT_ID", ""),
		DatastoreNamespace: getenv("DATASTORE_NAMESPACE", ""),
		FSDir:              getenv("NOTES_FS_DIR", ""),
		BuntPath:           getenv("NOTES_BUNT_PATH", ""),
		MailFrom:           getenv("MAIL_FROM", ""),
		ResendAPIKey:       getenv("RESEND_API_KEY", ""),
		SMTPHost:           getenv("SMTP_HOST", ""),
		SMTPUser:           getenv("SMTP_USER", ""),
		SMTPPass:           os.Getenv("SMTP_PASS"),
		GoogleClientID:     getenv("GOOGLE_CLIENT_ID", getenv("OAUTH2_GOOGLE_CLIENT_ID", "")),
		GoogleClientSecret: getenv("GOOGLE_CLIENT_SECRET", ""),
		GoogleCallbackURL:  getenv("GOOGLE_CALLBACK_URL", ""),
		JWTSecretKey:       getenv("NOTES_JWT_SECRET_KEY", ""),
		LogLevel:           getenv("NOTES_LOG_LEVEL", ""),
	}
	c.SMTPPort, _ = strconv.Atoi(getenv("SMTP_PORT", "0"))
	c.OTPExpiry, _ = time.ParseDuration(getenv("NOTES_OTP_EXPIRY", "0s"))
	c.SecureCookies, _ = strconv.ParseBool(getenv("NOTES_SECURE_COOKIES", "false"))
	return c.EnsureDefaults()
}

func (c *Config) EnsureDefaults() *Config {
	if c.Addr == "" {
		c.Addr = ":5000"
	}
	if c.BuntPath == "" {
		c.BuntPath = "notes.db"
	}
	if c.MailFrom == "" {
		c.MailFrom = "no-reply@otpnotes.local"
	}
	if c.SMTPPort == 0 {
		c.SMTPPort = 587
	}
	if c.OTPExpiry <= 0 {
		c.OTPExpiry = 10 * time.Minute
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return c
}

// Validate rejects configurations the server must not start with
func (c *Config) Validate() error {
	switch {
	case c.JWTSecretKey == "":
		return errNoJWTSecret
	case c.JWTSecretKey == on.DevSecretKey:
		return errDevJWTSecret
	case len(c.JWTSecretKey) < minJWTSecretLen:
		return errShortJWTSecret
	}
	return nil
}
