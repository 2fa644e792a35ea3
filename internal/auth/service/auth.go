package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/portal/internal/auth/domain"
	"github.com/aussiebroadwan/portal/pkg/otpx"
	"github.com/aussiebroadwan/portal/pkg/slogx"
)

// AuthService drives a login attempt from credentials to an authenticated
// session, with an optional MFA step in between.
type AuthService struct {
	Users    *UserService
	EmailOTP *EmailOTPService
	Sessions *SessionService
	Mailer   Mailer
	Now      func() time.Time
}

// LoginResult is the outcome of a successful password check. Exactly one of
// Session and NeedMFA is set.
type LoginResult struct {
	User    domain.User
	NeedMFA bool
	Methods domain.MFAMethods

	// EmailOTP is the code just issued, for non-production hints only.
	EmailOTP string

	Session *domain.Session
}

// Login checks credentials. Users without MFA get a verified session at once;
// users with MFA get an email code and must call CompleteMFA.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	log := slogx.FromContext(ctx)

	u, err := s.Users.VerifyCredentials(ctx, email, password)
	if err != nil {
		return LoginResult{}, err
	}

	if !u.MFAEnabled {
		sess, err := s.Sessions.Issue(u, true)
		if err != nil {
			return LoginResult{}, fmt.Errorf("failed to issue session: %w", err)
		}
		return LoginResult{User: u, Session: &sess}, nil
	}

	code, err := s.EmailOTP.Issue(ctx, u.Email)
	if err != nil {
		return LoginResult{}, err
	}
	if s.Mailer != nil {
		if err := s.Mailer.SendLoginCode(ctx, u.Email, code); err != nil {
			log.Error("failed to deliver email otp", slog.String("user_id", u.ID), slog.Any("err", err))
		}
	}

	return LoginResult{
		User:     u,
		NeedMFA:  true,
		Methods:  domain.MFAMethods{TOTP: u.HasTOTP(), EmailOTP: true},
		EmailOTP: code,
	}, nil
}

// CompleteMFA checks a second-factor answer for email and, on success,
// issues a session with MFAVerified set.
func (s *AuthService) CompleteMFA(ctx context.Context, email string, challenge domain.MFAChallenge) (domain.Session, error) {
	u, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		return domain.Session{}, err
	}

	var ok bool
	switch c := challenge.(type) {
	case domain.EmailChallenge:
		ok = s.EmailOTP.Verify(ctx, u.Email, c.Value)
	case domain.TOTPChallenge:
		if !u.HasTOTP() {
			return domain.Session{}, ErrTOTPNotConfigured
		}
		ok = otpx.Verify(c.Value, u.MFASecret, otpx.DefaultWindow, otpx.DefaultStep, s.now())
	default:
		return domain.Session{}, errors.New("unsupported MFA challenge")
	}
	if !ok {
		return domain.Session{}, ErrInvalidCode
	}

	return s.Sessions.Issue(u, true)
}

// Authenticate resolves a session token to its payload.
func (s *AuthService) Authenticate(token string) (domain.SessionPayload, error) {
	if token == "" {
		return domain.SessionPayload{}, ErrUnauthenticated
	}
	payload, err := s.Sessions.Verify(token)
	if err != nil {
		return domain.SessionPayload{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return payload, nil
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
