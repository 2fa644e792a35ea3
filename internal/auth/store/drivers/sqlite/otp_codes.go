package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aussiebroadwan/portal/internal/auth/domain"
	"github.com/aussiebroadwan/portal/internal/auth/store"
)

type otpCodesRepo struct {
	q  dbtx
	db *sql.DB // nil inside a transaction
}

func (r *otpCodesRepo) PutOTPCode(ctx context.Context, key string, e domain.EmailOTPEntry) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO email_otp_codes (email, code, expires_at, attempts) VALUES (?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET code = excluded.code, expires_at = excluded.expires_at, attempts = excluded.attempts`,
		key, e.Code, toMillis(e.ExpiresAt), e.Attempts)
	return err
}

func (r *otpCodesRepo) GetOTPCode(ctx context.Context, key string) (domain.EmailOTPEntry, error) {
	return getOTPCode(ctx, r.q, key)
}

func (r *otpCodesRepo) DeleteOTPCode(ctx context.Context, key string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM email_otp_codes WHERE email = ?`, key)
	return err
}

func (r *otpCodesRepo) UpdateOTPCode(ctx context.Context, key string, fn func(e *domain.EmailOTPEntry) store.OTPAction) error {
	if r.db == nil {
		return updateOTPCode(ctx, r.q, key, fn)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := updateOTPCode(ctx, tx, key, fn); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *otpCodesRepo) DeleteExpiredOTPCodes(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM email_otp_codes WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func getOTPCode(ctx context.Context, q dbtx, key string) (domain.EmailOTPEntry, error) {
	var (
		e         domain.EmailOTPEntry
		expiresAt int64
	)
	err := q.QueryRowContext(ctx, `SELECT code, expires_at, attempts FROM email_otp_codes WHERE email = ?`, key).
		Scan(&e.Code, &expiresAt, &e.Attempts)
	if err != nil {
		return domain.EmailOTPEntry{}, mapNotFound(err)
	}
	e.ExpiresAt = fromMillis(expiresAt)
	return e, nil
}

func updateOTPCode(ctx context.Context, q dbtx, key string, fn func(e *domain.EmailOTPEntry) store.OTPAction) error {
	e, err := getOTPCode(ctx, q, key)
	if err != nil {
		return err
	}

	switch fn(&e) {
	case store.OTPSave:
		_, err = q.ExecContext(ctx, `UPDATE email_otp_codes SET code = ?, expires_at = ?, attempts = ? WHERE email = ?`,
			e.Code, toMillis(e.ExpiresAt), e.Attempts, key)
	case store.OTPDelete:
		_, err = q.ExecContext(ctx, `DELETE FROM email_otp_codes WHERE email = ?`, key)
	}
	if err != nil {
		return fmt.Errorf("failed to write otp code: %w", err)
	}
	return nil
}
