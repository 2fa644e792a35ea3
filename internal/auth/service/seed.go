package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/portal/internal/auth/domain"
)

// DemoUsers are the accounts a development instance starts with.
var DemoUsers = []NewUser{
	{Email: "admin@example.com", Name: "Admin User", Password: "Admin123!", Role: domain.RoleAdmin},
	{Email: "client@example.com", Name: "Client User", Password: "Client123!", Role: domain.RoleClient},
	{Email: "talent@example.com", Name: "Talent User", Password: "Talent123!", Role: domain.RoleTalent},
}

// SeedUsers creates each user that does not exist yet. Existing accounts are
// left untouched, so seeding is safe on every start.
func (s *UserService) SeedUsers(ctx context.Context, logger *slog.Logger, users []NewUser) error {
	for _, in := range users {
		u, err := s.Create(ctx, in)
		switch {
		case errors.Is(err, ErrUserExists):
			continue
		case err != nil:
			return err
		}
		logger.Info("seeded user", slog.String("email", u.Email), slog.String("role", string(u.Role)))
	}
	return nil
}
