// Package otpx wraps TOTP secret generation and windowed code verification
// for authenticator-app enrolment.
package otpx

import (
	"encoding/base32"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	DefaultSecretSize = 20 // bytes of secret entropy
	DefaultStep       = 30 // seconds per time step
	DefaultWindow     = 1  // steps of drift tolerated either side
	Digits            = 6

	maxCode = 1_000_000
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Secret is a freshly generated TOTP shared secret.
type Secret struct {
	Raw    []byte
	Base32 string
	// URL is the otpauth://totp/... provisioning URI for authenticator apps.
	URL string
}

// GenerateSecret creates a random secret of size bytes and its provisioning
// URI labelled with issuer and account.
func GenerateSecret(issuer, account string, size int) (Secret, error) {
	if size <= 0 {
		size = DefaultSecretSize
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      DefaultStep,
		SecretSize:  uint(size),
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return Secret{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	raw, err := encoding.DecodeString(key.Secret())
	if err != nil {
		return Secret{}, fmt.Errorf("failed to decode TOTP secret: %w", err)
	}

	return Secret{Raw: raw, Base32: key.Secret(), URL: key.URL()}, nil
}

// ComputeCode returns the zero-padded 6-digit code for secret at the given time.
func ComputeCode(secretBase32 string, step uint, at time.Time) (string, error) {
	if step == 0 {
		step = DefaultStep
	}
	return totp.GenerateCodeCustom(secretBase32, at, validateOpts(step, 0))
}

// Verify reports whether code matches secret at now, tolerating window steps
// of drift either side. Malformed input is never an error, only a mismatch.
func Verify(code, secretBase32 string, window, step uint, now time.Time) bool {
	normalized, ok := normalize(code)
	if !ok || strings.TrimSpace(secretBase32) == "" {
		return false
	}
	if step == 0 {
		step = DefaultStep
	}
	valid, err := totp.ValidateCustom(normalized, secretBase32, now.UTC(), validateOpts(step, window))
	if err != nil {
		return false
	}
	return valid
}

// normalize parses code as a non-negative integer below one million and
// renders it as a fixed-width 6-digit string, so "012345" and "12345" compare
// equal.
func normalize(code string) (string, bool) {
	code = strings.TrimSpace(code)
	if code == "" || len(code) > 10 {
		return "", false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	n, err := strconv.Atoi(code)
	if err != nil || n >= maxCode {
		return "", false
	}
	return fmt.Sprintf("%06d", n), true
}

func validateOpts(step, window uint) totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    step,
		Skew:      window,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}
