package service

import (
	"time"

	"github.com/aussiebroadwan/portal/internal/auth/domain"
	"github.com/aussiebroadwan/portal/pkg/jwtx"
)

// SessionService mints and checks the signed session token.
type SessionService struct {
	Codec *jwtx.HS256Codec
	TTL   time.Duration
}

// Issue signs a new session for u. Completing MFA is a new Issue call, never
// an update of an existing token.
func (s *SessionService) Issue(u domain.User, mfaVerified bool) (domain.Session, error) {
	token, claims, err := s.Codec.Issue(u.ID, u.Email, u.Name, string(u.Role), mfaVerified, s.ttl())
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{
		Token:     token,
		Payload:   sessionPayload(claims),
		ExpiresAt: claims.ExpiresAt.Time,
		TTL:       s.ttl(),
	}, nil
}

// Verify returns the payload of a valid token. Any failure yields an error
// and a zero payload.
func (s *SessionService) Verify(token string) (domain.SessionPayload, error) {
	claims, err := s.Codec.Verify(token)
	if err != nil {
		return domain.SessionPayload{}, err
	}
	return PayloadFromClaims(claims)
}

func (s *SessionService) ttl() time.Duration {
	if s.TTL <= 0 {
		return jwtx.DefaultSessionTTL
	}
	return s.TTL
}

// PayloadFromClaims converts claims that already passed signature checks,
// rejecting roles this service does not know.
func PayloadFromClaims(c jwtx.Claims) (domain.SessionPayload, error) {
	p := sessionPayload(c)
	if !p.Role.Valid() {
		return domain.SessionPayload{}, jwtx.ErrInvalidClaim
	}
	return p, nil
}

func sessionPayload(c jwtx.Claims) domain.SessionPayload {
	return domain.SessionPayload{
		Subject:     c.Subject,
		Email:       c.Email,
		Name:        c.Name,
		Role:        domain.Role(c.Role),
		MFAVerified: c.MFAVerified,
	}
}
