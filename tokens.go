package otpnotes

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultCredentialExpiry is how long a session credential stays valid
const DefaultCredentialExpiry = 7 * 24 * time.Hour

const credentialType = "access"

// DevSecretKey signs credentials when no key is configured. It is public, so
// deployments must set their own.
const DevSecretKey = "MyTestJWTSecretKey123456"

// CredentialIssuer mints and verifies session credentials. Credentials are
// HS256 (or HS384/HS512) JWTs carrying the account id as subject. They are
// not stored anywhere, so verifying one needs no store lookup.
type CredentialIssuer struct {
	// HMAC key. Falls back to NOTES_JWT_SECRET_KEY, then a development key.
	SecretKey string

	// iss claim. Defaults to "otpnotes".
	Issuer string

	// Credential lifetime. Defaults to DefaultCredentialExpiry.
	Expiry time.Duration

	// "HS256" (default), "HS384" or "HS512"
	SigningAlg string

	Now func() time.Time
}

func (c *CredentialIssuer) EnsureDefaults() *CredentialIssuer {
	if c.SecretKey == "" {
		c.SecretKey = strings.TrimSpace(os.Getenv("NOTES_JWT_SECRET_KEY"))
		if c.SecretKey == "" {
			c.SecretKey = DevSecretKey
		}
	}
	if c.Issuer == "" {
		c.Issuer = "otpnotes"
	}
	if c.Expiry <= 0 {
		c.Expiry = DefaultCredentialExpiry
	}
	if c.SigningAlg == "" {
		c.SigningAlg = "HS256"
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

func (c *CredentialIssuer) signingMethod() jwt.SigningMethod {
	switch c.SigningAlg {
	case "HS384":
		return jwt.SigningMethodHS384
	case "HS512":
		return jwt.SigningMethodHS512
	}
	return jwt.SigningMethodHS256
}

// Issue mints a credential for accountID. expiresIn is in seconds.
func (c *CredentialIssuer) Issue(accountID string) (token string, expiresIn int64, err error) {
	c.EnsureDefaults()
	if accountID == "" {
		return "", 0, NewAuthError(ErrSigning, ErrCodeSigning, "Server error").WithCause(errors.New("empty account id"))
	}

	now := c.Now()
	claims := jwt.MapClaims{
		"sub":  accountID,
		"iss":  c.Issuer,
		"type": credentialType,
		"iat":  now.Unix(),
		"exp":  now.Add(c.Expiry).Unix(),
	}
	token, err = jwt.NewWithClaims(c.signingMethod(), claims).SignedString([]byte(c.SecretKey))
	if err != nil {
		return "", 0, NewAuthError(ErrSigning, ErrCodeSigning, "Server error").WithCause(fmt.Errorf("failed to sign token: %w", err))
	}
	return token, int64(c.Expiry.Seconds()), nil
}

// Verify checks the signature, expiry, issuer and type of a credential and
// returns the account id it was issued for. Any failure is ErrUnauthorized.
func (c *CredentialIssuer) Verify(tokenString string) (string, error) {
	c.EnsureDefaults()
	tokenString = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tokenString), "Bearer "))
	if tokenString == "" {
		return "", unauthorized(errors.New("missing token"))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(c.SecretKey), nil
	},
		jwt.WithIssuer(c.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.Now),
	)
	if err != nil {
		return "", unauthorized(err)
	}
	if !token.Valid {
		return "", unauthorized(errors.New("invalid token"))
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", unauthorized(errors.New("invalid claims"))
	}
	if t, _ := claims["type"].(string); t != credentialType {
		return "", unauthorized(errors.New("invalid token type"))
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", unauthorized(errors.New("missing subject"))
	}
	return sub, nil
}

// VerifyTokenFunc adapts Verify to the shape Middleware.VerifyToken expects
func (c *CredentialIssuer) VerifyTokenFunc() func(tokenString string) (string, error) {
	return c.Verify
}

func unauthorized(cause error) *AuthError {
	return NewAuthError(ErrUnauthorized, ErrCodeUnauthorized, "Unauthorized").WithCause(cause)
}
