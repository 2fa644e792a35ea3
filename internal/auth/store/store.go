package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/portal/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (memory, sqlite)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and so transactions cannot be nested by accident.
type Store interface {
	Users() Users
	OTPCodes() OTPCodes

	ApplyMigrations() error

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backing store is still reachable.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It exposes the same repos as Store.
type Tx interface {
	Users() Users
	OTPCodes() OTPCodes
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks up by lowercased email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID). Returns
	// ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// EnableMFA stores the TOTP secret and marks MFA as enabled in one write.
	EnableMFA(ctx context.Context, userID string, secret string) error

	// CountUsers returns the number of registered users.
	CountUsers(ctx context.Context) (int, error)
}

// OTPAction tells UpdateOTPCode what to do with an entry once fn returns.
type OTPAction int

const (
	OTPKeep   OTPAction = iota // leave the stored entry untouched
	OTPSave                    // write the modified entry back
	OTPDelete                  // remove the entry
)

// OTPCodes holds pending email challenges keyed by lowercased email. At most
// one entry exists per key.
type OTPCodes interface {
	// PutOTPCode stores e under key, replacing any previous entry.
	PutOTPCode(ctx context.Context, key string, e domain.EmailOTPEntry) error

	GetOTPCode(ctx context.Context, key string) (domain.EmailOTPEntry, error)

	DeleteOTPCode(ctx context.Context, key string) error

	// UpdateOTPCode runs fn on the entry for key as one atomic
	// read-modify-write. fn may run more than once if the driver retries, so
	// it must not have side effects beyond its return value and the entry.
	// Returns ErrNotFound without calling fn when there is no entry.
	UpdateOTPCode(ctx context.Context, key string, fn func(e *domain.EmailOTPEntry) OTPAction) error

	// DeleteExpiredOTPCodes removes entries that expired before now.
	DeleteExpiredOTPCodes(ctx context.Context, now time.Time) (int64, error)
}
