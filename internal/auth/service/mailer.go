package service

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/portal/pkg/slogx"
)

// Mailer delivers email one-time codes.
type Mailer interface {
	SendLoginCode(ctx context.Context, email, code string) error
}

// LogMailer writes codes to the debug log instead of sending mail.
type LogMailer struct{}

func (LogMailer) SendLoginCode(ctx context.Context, email, code string) error {
	slogx.FromContext(ctx).Debug("email otp issued", slog.String("email", email), slog.String("code", code))
	return nil
}
