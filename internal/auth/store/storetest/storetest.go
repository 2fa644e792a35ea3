// Package storetest holds behaviour checks shared by every store driver.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/portal/internal/auth/domain"
	"github.com/aussiebroadwan/portal/internal/auth/store"
	"github.com/stretchr/testify/require"
)

// RunUsers exercises a store.Store's user repository. newStore must return an
// empty, migrated store.
func RunUsers(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("create and lookup", func(t *testing.T) {
		ctx := context.Background()
		users := newStore(t).Users()

		u := domain.User{ID: "01HUSER1", Email: "Mixed@Example.com", Name: "Mixed", Role: domain.RoleClient, PasswordHash: "aa$bb"}
		require.NoError(t, users.CreateUser(ctx, u))

		got, err := users.GetUserByEmail(ctx, "mixed@example.com")
		require.NoError(t, err)
		require.Equal(t, "01HUSER1", got.ID)
		require.Equal(t, "mixed@example.com", got.Email)
		require.Equal(t, domain.RoleClient, got.Role)
		require.False(t, got.MFAEnabled)
		require.Empty(t, got.MFASecret)

		byID, err := users.GetUserByID(ctx, "01HUSER1")
		require.NoError(t, err)
		require.Equal(t, got.Email, byID.Email)

		n, err := users.CountUsers(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, n)
	})

	t.Run("duplicate email any case", func(t *testing.T) {
		ctx := context.Background()
		users := newStore(t).Users()

		require.NoError(t, users.CreateUser(ctx, domain.User{ID: "a", Email: "dup@example.com", Role: domain.RoleAdmin, PasswordHash: "x$y"}))
		err := users.CreateUser(ctx, domain.User{ID: "b", Email: "DUP@example.com", Role: domain.RoleAdmin, PasswordHash: "x$y"})
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("not found", func(t *testing.T) {
		ctx := context.Background()
		users := newStore(t).Users()

		_, err := users.GetUserByEmail(ctx, "nobody@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = users.GetUserByID(ctx, "missing")
		require.ErrorIs(t, err, store.ErrNotFound)
		require.ErrorIs(t, users.EnableMFA(ctx, "missing", "SECRET"), store.ErrNotFound)
		require.ErrorIs(t, users.UpdatePasswordHash(ctx, "missing", "a$b"), store.ErrNotFound)
	})

	t.Run("enable mfa overwrites secret", func(t *testing.T) {
		ctx := context.Background()
		users := newStore(t).Users()
		require.NoError(t, users.CreateUser(ctx, domain.User{ID: "u", Email: "mfa@example.com", Role: domain.RoleTalent, PasswordHash: "x$y"}))

		require.NoError(t, users.EnableMFA(ctx, "u", "FIRSTSECRET"))
		require.NoError(t, users.EnableMFA(ctx, "u", "SECONDSECRET"))

		got, err := users.GetUserByID(ctx, "u")
		require.NoError(t, err)
		require.True(t, got.MFAEnabled)
		require.Equal(t, "SECONDSECRET", got.MFASecret)
	})

	t.Run("update password hash", func(t *testing.T) {
		ctx := context.Background()
		users := newStore(t).Users()
		require.NoError(t, users.CreateUser(ctx, domain.User{ID: "u", Email: "pw@example.com", Role: domain.RoleTalent, PasswordHash: "old$hash"}))

		require.NoError(t, users.UpdatePasswordHash(ctx, "u", "new$hash"))
		got, err := users.GetUserByID(ctx, "u")
		require.NoError(t, err)
		require.Equal(t, "new$hash", got.PasswordHash)
	})

	t.Run("transaction rollback", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		boom := errors.New("boom")

		err := s.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.Users().CreateUser(ctx, domain.User{ID: "tx", Email: "tx@example.com", Role: domain.RoleAdmin, PasswordHash: "x$y"}); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		_, err = s.Users().GetUserByEmail(ctx, "tx@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)

		err = s.WithTx(ctx, func(tx store.Tx) error {
			return tx.Users().CreateUser(ctx, domain.User{ID: "tx", Email: "tx@example.com", Role: domain.RoleAdmin, PasswordHash: "x$y"})
		})
		require.NoError(t, err)
		_, err = s.Users().GetUserByEmail(ctx, "tx@example.com")
		require.NoError(t, err)
	})
}

// RunOTPCodes exercises an OTPCodes implementation. newCodes must return an
// empty repository.
func RunOTPCodes(t *testing.T, newCodes func(t *testing.T) store.OTPCodes) {
	t.Run("put get delete", func(t *testing.T) {
		ctx := context.Background()
		codes := newCodes(t)
		exp := time.Now().Add(5 * time.Minute).UTC().Truncate(time.Millisecond)

		require.NoError(t, codes.PutOTPCode(ctx, "a@example.com", domain.EmailOTPEntry{Code: "123456", ExpiresAt: exp}))
		got, err := codes.GetOTPCode(ctx, "a@example.com")
		require.NoError(t, err)
		require.Equal(t, "123456", got.Code)
		require.True(t, exp.Equal(got.ExpiresAt))
		require.Zero(t, got.Attempts)

		require.NoError(t, codes.DeleteOTPCode(ctx, "a@example.com"))
		_, err = codes.GetOTPCode(ctx, "a@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)

		require.NoError(t, codes.DeleteOTPCode(ctx, "a@example.com"), "delete is idempotent")
	})

	t.Run("put overwrites", func(t *testing.T) {
		ctx := context.Background()
		codes := newCodes(t)
		exp := time.Now().Add(5 * time.Minute)

		require.NoError(t, codes.PutOTPCode(ctx, "a@example.com", domain.EmailOTPEntry{Code: "111111", ExpiresAt: exp, Attempts: 3}))
		require.NoError(t, codes.PutOTPCode(ctx, "a@example.com", domain.EmailOTPEntry{Code: "222222", ExpiresAt: exp}))

		got, err := codes.GetOTPCode(ctx, "a@example.com")
		require.NoError(t, err)
		require.Equal(t, "222222", got.Code)
		require.Zero(t, got.Attempts)
	})

	t.Run("update actions", func(t *testing.T) {
		ctx := context.Background()
		codes := newCodes(t)
		require.NoError(t, codes.PutOTPCode(ctx, "k", domain.EmailOTPEntry{Code: "123456", ExpiresAt: time.Now().Add(time.Minute)}))

		require.NoError(t, codes.UpdateOTPCode(ctx, "k", func(e *domain.EmailOTPEntry) store.OTPAction {
			e.Attempts++
			return store.OTPSave
		}))
		got, err := codes.GetOTPCode(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, 1, got.Attempts)

		require.NoError(t, codes.UpdateOTPCode(ctx, "k", func(e *domain.EmailOTPEntry) store.OTPAction {
			e.Attempts = 99
			return store.OTPKeep
		}))
		got, err = codes.GetOTPCode(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, 1, got.Attempts, "keep must not write")

		require.NoError(t, codes.UpdateOTPCode(ctx, "k", func(e *domain.EmailOTPEntry) store.OTPAction {
			return store.OTPDelete
		}))
		_, err = codes.GetOTPCode(ctx, "k")
		require.ErrorIs(t, err, store.ErrNotFound)

		called := false
		err = codes.UpdateOTPCode(ctx, "k", func(e *domain.EmailOTPEntry) store.OTPAction {
			called = true
			return store.OTPSave
		})
		require.ErrorIs(t, err, store.ErrNotFound)
		require.False(t, called)
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		ctx := context.Background()
		codes := newCodes(t)
		require.NoError(t, codes.PutOTPCode(ctx, "k", domain.EmailOTPEntry{Code: "123456", ExpiresAt: time.Now().Add(time.Minute)}))

		const workers = 3
		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = codes.UpdateOTPCode(ctx, "k", func(e *domain.EmailOTPEntry) store.OTPAction {
					e.Attempts++
					return store.OTPSave
				})
			}()
		}
		wg.Wait()

		got, err := codes.GetOTPCode(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, workers, got.Attempts)
	})
}
