package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
)

// RandomInt returns a uniformly distributed integer in [low, high].
func RandomInt(low, high int64) (int64, error) {
	if high < low {
		return 0, fmt.Errorf("invalid range [%d, %d]", low, high)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(high-low+1))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random number: %w", err)
	}
	return low + n.Int64(), nil
}

// RandomNumericCode returns a random code of exactly digits digits with no
// leading zero, e.g. 100000..999999 for six digits.
func RandomNumericCode(digits int) (string, error) {
	if digits <= 0 || digits > 18 {
		return "", fmt.Errorf("code length must be between 1 and 18, got %d", digits)
	}
	low := int64(1)
	for range digits - 1 {
		low *= 10
	}
	high := low*10 - 1
	if digits == 1 {
		low = 0
	}
	n, err := RandomInt(low, high)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n), nil
}

// EqualStrings compares two secrets in constant time.
func EqualStrings(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
