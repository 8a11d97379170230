package otpnotes_test

import (
	"errors"
	"strings"
	"testing"

	on "github.com/panyam/otpnotes"
)

func fieldsOf(err error) []string {
	var verrs on.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]string, len(verrs))
	for i, fe := range verrs {
		out[i] = fe.Field
	}
	return out
}

func TestSignupRequestValidate(t *testing.T) {
	tests := []struct {
		name   string
		req    on.SignupRequest
		fields string
	}{
		{"valid", on.SignupRequest{Name: " Alice ", Email: " A@X.com ", DOB: "2000-01-01"}, ""},
		{"short name", on.SignupRequest{Name: "A", Email: "a@x.com", DOB: "2000-01-01"}, "name"},
		{"long name", on.SignupRequest{Name: strings.Repeat("a", 31), Email: "a@x.com", DOB: "2000-01-01"}, "name"},
		{"bad email", on.SignupRequest{Name: "Alice", Email: "not-an-email", DOB: "2000-01-01"}, "email"},
		{"bad dob", on.SignupRequest{Name: "Alice", Email: "a@x.com", DOB: "01/01/2000"}, "dob"},
		{"everything missing", on.SignupRequest{}, "name,email,dob"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			err := req.Validate()
			if tt.fields == "" {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				if req.Name != "Alice" || req.Email != "a@x.com" {
					t.Errorf("Request not normalized: %+v", req)
				}
				return
			}
			if !errors.Is(err, on.ErrValidation) {
				t.Fatalf("Expected ErrValidation, got %v", err)
			}
			if got := strings.Join(fieldsOf(err), ","); got != tt.fields {
				t.Errorf("Expected fields %s, got %s", tt.fields, got)
			}
		})
	}
}

func TestOTPRequestValidate(t *testing.T) {
	tests := []struct {
		otp string
		ok  bool
	}{
		{"123456", true},
		{"012345", true},
		{" 123456 ", true},
		{"12345", false},
		{"1234567", false},
		{"12a456", false},
		{"", false},
	}
	for _, tt := range tests {
		req := on.OTPRequest{Email: "a@x.com", OTP: tt.otp}
		err := req.Validate()
		if tt.ok && err != nil {
			t.Errorf("otp %q: unexpected error %v", tt.otp, err)
		}
		if !tt.ok && !errors.Is(err, on.ErrValidation) {
			t.Errorf("otp %q: expected ErrValidation, got %v", tt.otp, err)
		}
	}
}

func TestGoogleLoginRequestValidate(t *testing.T) {
	req := on.GoogleLoginRequest{Token: "  "}
	err := req.Validate()
	var verrs on.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) != 1 || verrs[0].Message != "Token is required" {
		t.Errorf("Expected 'Token is required', got %v", err)
	}
}
