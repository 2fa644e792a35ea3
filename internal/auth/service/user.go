package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/portal/internal/auth/domain"
	"github.com/aussiebroadwan/portal/internal/auth/store"
	"github.com/aussiebroadwan/portal/pkg/cryptox"
	"github.com/aussiebroadwan/portal/pkg/idx"
)

// UserService is the credential store: user records, password checks and
// MFA enrolment state.
type UserService struct {
	Store store.Store
}

// NewUser is the input to Create.
type NewUser struct {
	Email    string
	Name     string
	Password string
	Role     domain.Role
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// timingHash returns a real stored form so that a lookup miss costs the
// same as a password mismatch.
func timingHash() string {
	dummyHashOnce.Do(func() {
		dummyHash, _ = cryptox.HashPassword("portal-timing-equaliser")
	})
	return dummyHash
}

// Create registers a user with MFA disabled.
func (s *UserService) Create(ctx context.Context, in NewUser) (domain.User, error) {
	if !in.Role.Valid() {
		return domain.User{}, fmt.Errorf("invalid role %q", in.Role)
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	u := domain.User{
		ID:           idx.New(),
		Email:        normalizeEmail(in.Email),
		Name:         strings.TrimSpace(in.Name),
		Role:         in.Role,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUserExists
		}
		return domain.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// FindByEmail is a case-insensitive lookup.
func (s *UserService) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByID fetches a user by id. Malformed ids are simply not found.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	if !idx.Valid(userID) {
		return domain.User{}, ErrUserNotFound
	}
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return u, err
}

// VerifyCredentials returns the user when the password matches. Unknown
// emails and wrong passwords both yield ErrInvalidCredentials.
func (s *UserService) VerifyCredentials(ctx context.Context, email, password string) (domain.User, error) {
	u, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			cryptox.VerifyPassword(password, timingHash())
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if !cryptox.VerifyPassword(password, u.PasswordHash) {
		return domain.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// EnableMFA stores a verified TOTP secret for the user. Enrolling again
// replaces the previous secret.
func (s *UserService) EnableMFA(ctx context.Context, email, secretBase32 string) error {
	if secretBase32 == "" {
		return errors.New("empty TOTP secret")
	}
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetUserByEmail(ctx, normalizeEmail(email))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to get user: %w", err)
		}
		if err := tx.Users().EnableMFA(ctx, u.ID, secretBase32); err != nil {
			return fmt.Errorf("failed to enable MFA: %w", err)
		}
		return nil
	})
}

// UpdatePassword replaces the stored hash. Sessions already issued stay valid
// until they expire.
func (s *UserService) UpdatePassword(ctx context.Context, email, newPassword string) error {
	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetUserByEmail(ctx, normalizeEmail(email))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to get user: %w", err)
		}
		return tx.Users().UpdatePasswordHash(ctx, u.ID, hash)
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
