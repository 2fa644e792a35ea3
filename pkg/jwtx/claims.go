package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultSessionTTL is the lifetime of a browser session token.
const DefaultSessionTTL = 8 * time.Hour

// Claims are the session-token claims. A token is never mutated: completing
// MFA means issuing a new token with MFAVerified set.
type Claims struct {
	jwt.RegisteredClaims

	Email string `json:"email"`

	// Name is the display name for the user
	Name string `json:"name,omitempty"`

	// Role is one of admin, client or talent
	Role string `json:"role"`

	// MFAVerified is false while the second factor is still pending.
	MFAVerified bool `json:"mfaVerified"`
}

// NewSessionClaims builds minimally-correct claims.
func NewSessionClaims(subject, email, name, role string, mfaVerified bool, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Email:       email,
		Name:        name,
		Role:        role,
		MFAVerified: mfaVerified,
	}
}

// NewJTI returns a random identifier for the "jti" claim.
func NewJTI() string {
	return uuid.NewString()
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf.
func (c *Claims) ValidateExpiry(now time.Time) error {
	if c.ExpiresAt == nil {
		return ErrInvalidClaim
	}
	if !now.Before(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}

// ValidateSubject rejects tokens that do not name a user.
func (c *Claims) ValidateSubject() error {
	if c.Subject == "" || c.Email == "" || c.Role == "" {
		return ErrInvalidClaim
	}
	return nil
}
