package service

import (
	"context"
	"time"

	"github.com/aussiebroadwan/portal/internal/auth/domain"
	"github.com/aussiebroadwan/portal/pkg/otpx"
)

// MFAService handles authenticator-app enrolment for signed-in users.
type MFAService struct {
	Users  *UserService
	Issuer string // shown in authenticator apps, e.g. "UI-RND"
	Now    func() time.Time
}

// Setup generates a secret and its otpauth URI. Nothing is persisted until
// Enable proves the user can produce codes from it.
func (s *MFAService) Setup(ctx context.Context, session domain.SessionPayload) (domain.TOTPEnrollment, error) {
	if err := requireVerified(session); err != nil {
		return domain.TOTPEnrollment{}, err
	}

	secret, err := otpx.GenerateSecret(s.Issuer, session.Email, otpx.DefaultSecretSize)
	if err != nil {
		return domain.TOTPEnrollment{}, err
	}
	return domain.TOTPEnrollment{Secret: secret.Base32, OTPAuth: secret.URL}, nil
}

// Enable verifies code against the submitted secret and only then stores the
// secret for the session's user.
func (s *MFAService) Enable(ctx context.Context, session domain.SessionPayload, secretBase32, code string) error {
	if err := requireVerified(session); err != nil {
		return err
	}

	// the subject is stable; the email claim is only a display copy
	u, err := s.Users.GetUserByID(ctx, session.Subject)
	if err != nil {
		return err
	}

	if !otpx.Verify(code, secretBase32, otpx.DefaultWindow, otpx.DefaultStep, s.now()) {
		return ErrInvalidCode
	}

	return s.Users.EnableMFA(ctx, u.Email, secretBase32)
}

// requireVerified only admits fully signed-in users; a session still waiting
// on its second factor cannot change factors.
func requireVerified(session domain.SessionPayload) error {
	if session.Subject == "" {
		return ErrUnauthenticated
	}
	if !session.MFAVerified {
		return ErrMFANotVerified
	}
	return nil
}

func (s *MFAService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
