package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/portal/internal/auth/domain"
	"github.com/aussiebroadwan/portal/internal/auth/store"
	"github.com/aussiebroadwan/portal/pkg/cryptox"
	"github.com/aussiebroadwan/portal/pkg/slogx"
)

const (
	EmailOTPTTL         = 5 * time.Minute
	EmailOTPMaxAttempts = 5
	emailOTPDigits      = 6
)

// EmailOTPService issues and checks short-lived single-use codes keyed by
// lowercased email. At most one code is live per email.
type EmailOTPService struct {
	Codes       store.OTPCodes
	TTL         time.Duration
	MaxAttempts int
	Now         func() time.Time
}

func NewEmailOTPService(codes store.OTPCodes) *EmailOTPService {
	return &EmailOTPService{
		Codes:       codes,
		TTL:         EmailOTPTTL,
		MaxAttempts: EmailOTPMaxAttempts,
		Now:         time.Now,
	}
}

// Issue stores a fresh code for email, replacing any earlier one, and returns
// it for delivery.
func (s *EmailOTPService) Issue(ctx context.Context, email string) (string, error) {
	code, err := cryptox.RandomNumericCode(emailOTPDigits)
	if err != nil {
		return "", err
	}

	entry := domain.EmailOTPEntry{
		Code:      code,
		ExpiresAt: s.Now().UTC().Add(s.TTL),
	}
	if err := s.Codes.PutOTPCode(ctx, normalizeEmail(email), entry); err != nil {
		return "", fmt.Errorf("failed to store email otp: %w", err)
	}
	return code, nil
}

// Verify reports whether code is the live code for email. Expired entries
// are removed; once MaxAttempts checks have been made the entry stops
// matching, and a match consumes it. Store failures count as a mismatch.
func (s *EmailOTPService) Verify(ctx context.Context, email, code string) bool {
	now := s.Now().UTC()

	var ok bool
	err := s.Codes.UpdateOTPCode(ctx, normalizeEmail(email), func(e *domain.EmailOTPEntry) store.OTPAction {
		ok = false
		if e.Expired(now) {
			return store.OTPDelete
		}
		if e.Attempts >= s.MaxAttempts {
			return store.OTPKeep
		}
		e.Attempts++
		if cryptox.EqualStrings(e.Code, code) {
			ok = true
			return store.OTPDelete
		}
		return store.OTPSave
	})
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slogx.FromContext(ctx).Error("email otp lookup failed", slog.Any("err", err))
		}
		return false
	}
	return ok
}

// PurgeExpired removes entries past their expiry. Verify already ignores
// them; this only bounds storage.
func (s *EmailOTPService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.Codes.DeleteExpiredOTPCodes(ctx, s.Now().UTC())
}
