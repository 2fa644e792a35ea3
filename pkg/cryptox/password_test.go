package cryptox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "portal-test-pepper")
	os.Remove(pepperPath)
	SetPepperPath(pepperPath)

	code := m.Run()
	os.Remove(pepperPath)
	os.Exit(code)
}

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"long password", strings.Repeat("a", 100)},
		{"empty password", ""},
		{"unicode password", "пароль🔒密码"},
		{"whitespace password", "   spaces   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password)
			require.NoError(t, err)

			salt, digest, ok := strings.Cut(hash, "$")
			require.True(t, ok, "stored form should be salt$digest")
			require.Len(t, salt, saltLength*2)
			require.Len(t, digest, keyLength*2)
			require.True(t, VerifyPassword(tt.password, hash))
		})
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	password := "samepassword"

	hash1, err := HashPassword(password)
	require.NoError(t, err)
	hash2, err := HashPassword(password)
	require.NoError(t, err)

	require.NotEqual(t, hash1, hash2, "hashes should differ due to unique salts")
	require.True(t, VerifyPassword(password, hash1))
	require.True(t, VerifyPassword(password, hash2))
}

func TestVerifyPassword_WrongPassword(t *testing.T) {
	hash, err := HashPassword("correct-password")
	require.NoError(t, err)

	for _, wrong := range []string{
		"wrong-password",
		"Correct-Password",
		"correct-password ",
		"",
		"correct-passwor",
		strings.Repeat("x", 10000),
	} {
		require.False(t, VerifyPassword(wrong, hash), "password %q should not verify", wrong)
	}
}

func TestVerifyPassword_MalformedStoredForm(t *testing.T) {
	valid, err := HashPassword("test-password")
	require.NoError(t, err)
	salt, digest, _ := strings.Cut(valid, "$")

	tests := []struct {
		name   string
		stored string
	}{
		{"empty", ""},
		{"no separator", salt + digest},
		{"empty salt", "$" + digest},
		{"empty digest", salt + "$"},
		{"extra separator", salt + "$" + digest + "$00"},
		{"salt not hex", "zz$" + digest},
		{"digest not hex", salt + "$not-hex"},
		{"short digest", salt + "$abcd"},
		{"legacy phc", "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotPanics(t, func() {
				require.False(t, VerifyPassword("test-password", tt.stored))
			})
		})
	}
}

func TestHashPassword_PepperChangesDigest(t *testing.T) {
	hash, err := HashPassword("test-password")
	require.NoError(t, err)
	require.True(t, VerifyPassword("test-password", hash))

	otherPepper := filepath.Join(t.TempDir(), "other-pepper")
	original := pepperFile
	SetPepperPath(otherPepper)
	t.Cleanup(func() { SetPepperPath(original) })

	require.False(t, VerifyPassword("test-password", hash), "a different pepper must not verify")
}
