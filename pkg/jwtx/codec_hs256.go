package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HS256Codec signs and verifies session tokens with a shared secret.
type HS256Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

var (
	_ Signer   = (*HS256Codec)(nil)
	_ Verifier = (*HS256Codec)(nil)
)

// NewHS256Codec fails with ErrMissingSecret when secret is empty; there is
// no fallback key.
func NewHS256Codec(secret []byte, issuer string) (*HS256Codec, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &HS256Codec{secret: key, issuer: issuer, now: time.Now}, nil
}

// WithClock overrides the time source, for tests.
func (c *HS256Codec) WithClock(now func() time.Time) *HS256Codec {
	cp := *c
	cp.now = now
	return &cp
}

func (c *HS256Codec) Alg() string { return jwt.SigningMethodHS256.Alg() }

func (c *HS256Codec) Issuer() string { return c.issuer }

// Now reports the codec's current time.
func (c *HS256Codec) Now() time.Time { return c.now().UTC() }

// Sign takes your claims and turns them into a signed JWT string.
func (c *HS256Codec) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, nil
}

// Issue builds fresh claims for the subject and signs them.
func (c *HS256Codec) Issue(subject, email, name, role string, mfaVerified bool, ttl time.Duration) (string, Claims, error) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	claims := NewSessionClaims(subject, email, name, role, mfaVerified, c.issuer, ttl, c.Now())
	token, err := c.Sign(claims)
	if err != nil {
		return "", Claims{}, err
	}
	return token, claims, nil
}

// Verify validates the JWT string and returns its parsed Claims. Any failure
// returns zero claims.
func (c *HS256Codec) Verify(tokenStr string) (Claims, error) {
	if tokenStr == "" {
		return Claims{}, ErrMalformed
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.Now),
		jwt.WithExpirationRequired(),
	)

	var claims Claims
	token, err := parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return Claims{}, mapParseError(err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidSig
	}

	if err := claims.ValidateIssuer(c.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiry(c.Now()); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateSubject(); err != nil {
		return Claims{}, err
	}

	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrAlgMismatch
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	default:
		return fmt.Errorf("%w: %v", ErrInvalidClaim, err)
	}
}
