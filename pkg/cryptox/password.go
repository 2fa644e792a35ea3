package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Configuration for Argon2id hashing.
const (
	memory      = 19 * 1024 // Memory usage in KiB (19 MiB)
	iterations  = 2         // Iteration count
	parallelism = 1         // Number of threads
	keyLength   = 32        // Length of the generated digest
	saltLength  = 16        // Length of the salt
)

// HashPassword returns the stored form "salthex$digesthex" for password.
// Every call draws a fresh salt, so hashing the same password twice never
// yields the same string.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	saltHex := hex.EncodeToString(salt)
	digest := passwordDigest(saltHex, password)
	return saltHex + "$" + hex.EncodeToString(digest), nil
}

// VerifyPassword reports whether password matches the stored form.
// Malformed stored forms simply do not match.
func VerifyPassword(password, stored string) bool {
	saltHex, digestHex, ok := strings.Cut(stored, "$")
	if !ok || saltHex == "" || digestHex == "" || strings.Contains(digestHex, "$") {
		return false
	}
	if _, err := hex.DecodeString(saltHex); err != nil {
		return false
	}
	expected, err := hex.DecodeString(digestHex)
	if err != nil || len(expected) != keyLength {
		return false
	}
	return subtle.ConstantTimeCompare(passwordDigest(saltHex, password), expected) == 1
}

// passwordDigest computes argon2id over salt || ":" || password, with the
// pepper appended and the salt doubling as the KDF salt.
func passwordDigest(saltHex, password string) []byte {
	input := saltHex + ":" + password + GetPepper()
	return argon2.IDKey([]byte(input), []byte(saltHex), iterations, memory, parallelism, keyLength)
}
