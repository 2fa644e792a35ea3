package memory

import (
	"context"
	"time"

	"github.com/aussiebroadwan/portal/internal/auth/domain"
	"github.com/aussiebroadwan/portal/internal/auth/store"
)

type otpCodesRepo struct {
	s accessor
}

func (r *otpCodesRepo) PutOTPCode(ctx context.Context, key string, e domain.EmailOTPEntry) error {
	r.s.update(func(d *data) { d.codes[key] = e })
	return nil
}

func (r *otpCodesRepo) GetOTPCode(ctx context.Context, key string) (e domain.EmailOTPEntry, err error) {
	err = store.ErrNotFound
	r.s.view(func(d *data) {
		if found, ok := d.codes[key]; ok {
			e, err = found, nil
		}
	})
	return e, err
}

func (r *otpCodesRepo) DeleteOTPCode(ctx context.Context, key string) error {
	r.s.update(func(d *data) { delete(d.codes, key) })
	return nil
}

func (r *otpCodesRepo) UpdateOTPCode(ctx context.Context, key string, fn func(e *domain.EmailOTPEntry) store.OTPAction) (err error) {
	r.s.update(func(d *data) {
		e, ok := d.codes[key]
		if !ok {
			err = store.ErrNotFound
			return
		}
		switch fn(&e) {
		case store.OTPSave:
			d.codes[key] = e
		case store.OTPDelete:
			delete(d.codes, key)
		}
	})
	return err
}

func (r *otpCodesRepo) DeleteExpiredOTPCodes(ctx context.Context, now time.Time) (n int64, err error) {
	r.s.update(func(d *data) {
		for key, e := range d.codes {
			if e.Expired(now) {
				delete(d.codes, key)
				n++
			}
		}
	})
	return n, nil
}
