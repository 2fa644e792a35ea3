package domain

import (
	"fmt"
	"strings"
	"time"
)

// MFA method names accepted on the wire.
const (
	MethodTOTP  = "totp"
	MethodEmail = "email"
)

// MFAChallenge is a second-factor answer. The concrete type selects the
// verifier, so the method string is only inspected by ParseMFAChallenge.
type MFAChallenge interface {
	Method() string
	Code() string
	isMFAChallenge()
}

// TOTPChallenge is a code from an authenticator app.
type TOTPChallenge struct{ Value string }

// EmailChallenge is a code delivered by email at login.
type EmailChallenge struct{ Value string }

func (TOTPChallenge) Method() string { return MethodTOTP }
func (c TOTPChallenge) Code() string { return c.Value }
func (TOTPChallenge) isMFAChallenge() {}

func (EmailChallenge) Method() string { return MethodEmail }
func (c EmailChallenge) Code() string { return c.Value }
func (EmailChallenge) isMFAChallenge() {}

// ParseMFAChallenge maps a wire method name to a challenge. Surrounding
// whitespace is dropped from the code.
func ParseMFAChallenge(method, code string) (MFAChallenge, error) {
	code = strings.TrimSpace(code)
	switch method {
	case MethodTOTP:
		return TOTPChallenge{Value: code}, nil
	case MethodEmail:
		return EmailChallenge{Value: code}, nil
	default:
		return nil, fmt.Errorf("unknown MFA method %q", method)
	}
}

// MFAMethods advertises the second factors available to a user.
type MFAMethods struct {
	TOTP     bool `json:"totp"`
	EmailOTP bool `json:"emailOtp"`
}

// EmailOTPEntry is a pending email challenge, keyed by lowercased email.
type EmailOTPEntry struct {
	Code      string
	ExpiresAt time.Time
	Attempts  int
}

func (e EmailOTPEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// TOTPEnrollment is a generated but not yet persisted authenticator secret.
type TOTPEnrollment struct {
	Secret  string // base32
	OTPAuth string // otpauth:// provisioning URI
}
