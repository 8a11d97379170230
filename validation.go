package otpnotes

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// DOBLayout is the wire format for dates of birth
const DOBLayout = "2006-01-02"

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	otpRegex   = regexp.MustCompile(`^[0-9]{6}$`)
)

// FieldError describes one invalid request field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects every field problem found in a request
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

func (v *ValidationErrors) add(field, message string) {
	*v = append(*v, FieldError{Field: field, Message: message})
}

// err returns nil when nothing was collected so callers never see a typed nil
func (v ValidationErrors) err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func ParseDOB(s string) (time.Time, error) {
	return time.Parse(DOBLayout, strings.TrimSpace(s))
}

func FormatDOB(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DOBLayout)
}

func checkEmail(errs *ValidationErrors, email string) {
	switch {
	case email == "":
		errs.add("email", "Email is required")
	case !emailRegex.MatchString(email):
		errs.add("email", "Invalid email format")
	}
}

func checkOTP(errs *ValidationErrors, otp string) {
	switch {
	case otp == "":
		errs.add("otp", "OTP is required")
	case !otpRegex.MatchString(otp):
		errs.add("otp", "OTP must be 6 digits")
	}
}

// SignupRequest is the body of POST /auth/signup
type SignupRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	DOB   string `json:"dob"`
}

// Validate trims and normalizes the request in place
func (r *SignupRequest) Validate() error {
	var errs ValidationErrors
	r.Name = strings.TrimSpace(r.Name)
	r.Email = NormalizeEmail(r.Email)
	r.DOB = strings.TrimSpace(r.DOB)

	n := utf8.RuneCountInString(r.Name)
	switch {
	case n == 0:
		errs.add("name", "Name is required")
	case n < 2 || n > 30:
		errs.add("name", "Name must be 2-30 characters long")
	}
	checkEmail(&errs, r.Email)
	if r.DOB == "" {
		errs.add("dob", "Date of birth is required")
	} else if _, err := ParseDOB(r.DOB); err != nil {
		errs.add("dob", "Date of birth must be YYYY-MM-DD")
	}
	return errs.err()
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email string `json:"email"`
}

func (r *LoginRequest) Validate() error {
	var errs ValidationErrors
	r.Email = NormalizeEmail(r.Email)
	checkEmail(&errs, r.Email)
	return errs.err()
}

// OTPRequest is the body of both verify endpoints
type OTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (r *OTPRequest) Validate() error {
	var errs ValidationErrors
	r.Email = NormalizeEmail(r.Email)
	r.OTP = strings.TrimSpace(r.OTP)
	checkEmail(&errs, r.Email)
	checkOTP(&errs, r.OTP)
	return errs.err()
}

// GoogleLoginRequest is the body of POST /auth/google
type GoogleLoginRequest struct {
	Token string `json:"token"`
}

func (r *GoogleLoginRequest) Validate() error {
	var errs ValidationErrors
	r.Token = strings.TrimSpace(r.Token)
	if r.Token == "" {
		errs.add("token", "Token is required")
	}
	return errs.err()
}
