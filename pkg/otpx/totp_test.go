package otpx

import (
	"encoding/base32"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// RFC 6238 appendix B SHA1 seed "12345678901234567890".
var rfcSecret = base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte("12345678901234567890"))

func TestGenerateSecret(t *testing.T) {
	secret, err := GenerateSecret("UI-RND", "admin@example.com", 0)
	require.NoError(t, err)

	require.Len(t, secret.Raw, DefaultSecretSize)
	require.NotContains(t, secret.Base32, "=", "base32 must be unpadded")
	require.Equal(t, encoding.EncodeToString(secret.Raw), secret.Base32)

	u, err := url.Parse(secret.URL)
	require.NoError(t, err)
	require.Equal(t, "otpauth", u.Scheme)
	require.Equal(t, "totp", u.Host)
	q := u.Query()
	require.Equal(t, secret.Base32, q.Get("secret"))
	require.Equal(t, "UI-RND", q.Get("issuer"))
	require.Equal(t, "SHA1", q.Get("algorithm"))
	require.Equal(t, "6", q.Get("digits"))
	require.Equal(t, "30", q.Get("period"))

	other, err := GenerateSecret("UI-RND", "admin@example.com", 0)
	require.NoError(t, err)
	require.NotEqual(t, secret.Base32, other.Base32)
}

func TestGenerateSecret_MissingLabel(t *testing.T) {
	_, err := GenerateSecret("", "someone@example.com", 20)
	require.Error(t, err)
}

func TestComputeCode_RFCVectors(t *testing.T) {
	// RFC 6238 lists 8-digit values; the 6-digit code is their last six digits.
	tests := []struct {
		unix int64
		want string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
		{2000000000, "279037"},
	}

	for _, tt := range tests {
		code, err := ComputeCode(rfcSecret, 30, time.Unix(tt.unix, 0).UTC())
		require.NoError(t, err)
		require.Equal(t, tt.want, code)
	}
}

func TestVerify_Window(t *testing.T) {
	secret, err := GenerateSecret("UI-RND", "talent@example.com", 20)
	require.NoError(t, err)

	at := time.Date(2026, 3, 14, 12, 0, 15, 0, time.UTC)
	code, err := ComputeCode(secret.Base32, 30, at)
	require.NoError(t, err)

	tests := []struct {
		name   string
		offset time.Duration
		want   bool
	}{
		{"same step", 0, true},
		{"one step behind", -30 * time.Second, true},
		{"one step ahead", 30 * time.Second, true},
		{"three steps behind", -90 * time.Second, false},
		{"three steps ahead", 90 * time.Second, false},
		{"far future", time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Verify(code, secret.Base32, 1, 30, at.Add(tt.offset)))
		})
	}
}

func TestVerify_LeadingZeros(t *testing.T) {
	at := time.Unix(1234567890, 0).UTC()
	require.True(t, Verify("005924", rfcSecret, 0, 30, at))
	require.True(t, Verify("5924", rfcSecret, 0, 30, at), "integer form must match the zero-padded code")
	require.True(t, Verify(" 005924 ", rfcSecret, 0, 30, at))
}

func TestVerify_MalformedInput(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name   string
		code   string
		secret string
	}{
		{"empty code", "", rfcSecret},
		{"letters", "abcdef", rfcSecret},
		{"signed", "-12345", rfcSecret},
		{"decimal", "12.345", rfcSecret},
		{"seven digits", "1000000", rfcSecret},
		{"too long", strings.Repeat("1", 20), rfcSecret},
		{"empty secret", "123456", ""},
		{"invalid secret", "123456", "!!!not-base32!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotPanics(t, func() {
				require.False(t, Verify(tt.code, tt.secret, 1, 30, now))
			})
		})
	}
}
