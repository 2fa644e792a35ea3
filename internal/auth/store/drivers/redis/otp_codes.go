// Package redis keeps pending email OTP entries in Redis so several auth
// instances can share them. Users stay in the primary store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/portal/internal/auth/domain"
	"github.com/aussiebroadwan/portal/internal/auth/store"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "portal:otp"
	maxRetries    = 4
)

// ErrBackend wraps Redis failures so callers can tell them from a missing entry.
var ErrBackend = errors.New("otp store backend unavailable")

type record struct {
	Code      string `json:"code"`
	ExpiresAt int64  `json:"exp"` // unix millis
	Attempts  int    `json:"attempts"`
}

// OTPCodes implements store.OTPCodes on Redis. Entries carry a key TTL equal
// to their remaining lifetime, so expired codes disappear on their own.
type OTPCodes struct {
	redis  goredis.UniversalClient
	prefix string
	now    func() time.Time
}

var _ store.OTPCodes = (*OTPCodes)(nil)

func NewOTPCodes(client goredis.UniversalClient, prefix string) *OTPCodes {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &OTPCodes{redis: client, prefix: prefix, now: time.Now}
}

func (s *OTPCodes) key(email string) string {
	return s.prefix + ":" + email
}

func (s *OTPCodes) PutOTPCode(ctx context.Context, key string, e domain.EmailOTPEntry) error {
	ttl := e.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.DeleteOTPCode(ctx, key)
	}
	encoded, err := encode(e)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(key), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}

func (s *OTPCodes) GetOTPCode(ctx context.Context, key string) (domain.EmailOTPEntry, error) {
	data, err := s.redis.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return domain.EmailOTPEntry{}, store.ErrNotFound
		}
		return domain.EmailOTPEntry{}, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return decode(data)
}

func (s *OTPCodes) DeleteOTPCode(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}

// UpdateOTPCode applies fn under WATCH/MULTI and retries when another client
// touched the key in between.
func (s *OTPCodes) UpdateOTPCode(ctx context.Context, key string, fn func(e *domain.EmailOTPEntry) store.OTPAction) error {
	rkey := s.key(key)

	for range maxRetries {
		err := s.redis.Watch(ctx, func(tx *goredis.Tx) error {
			data, err := tx.Get(ctx, rkey).Bytes()
			if err != nil {
				return err
			}
			e, err := decode(data)
			if err != nil {
				return err
			}

			action := fn(&e)
			if action == store.OTPKeep {
				return nil
			}
			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				switch action {
				case store.OTPSave:
					ttl := e.ExpiresAt.Sub(s.now())
					if ttl <= 0 {
						pipe.Del(ctx, rkey)
						return nil
					}
					encoded, err := encode(e)
					if err != nil {
						return err
					}
					pipe.Set(ctx, rkey, encoded, ttl)
				case store.OTPDelete:
					pipe.Del(ctx, rkey)
				}
				return nil
			})
			return err
		}, rkey)

		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				return store.ErrNotFound
			}
			return fmt.Errorf("%w: %v", ErrBackend, err)
		}
		return nil
	}

	return fmt.Errorf("%w: too much contention on %s", ErrBackend, key)
}

// DeleteExpiredOTPCodes is a no-op; Redis expires keys itself.
func (s *OTPCodes) DeleteExpiredOTPCodes(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

// Ping verifies the Redis connection is still alive.
func (s *OTPCodes) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

func encode(e domain.EmailOTPEntry) ([]byte, error) {
	return json.Marshal(record{Code: e.Code, ExpiresAt: e.ExpiresAt.UnixMilli(), Attempts: e.Attempts})
}

func decode(data []byte) (domain.EmailOTPEntry, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return domain.EmailOTPEntry{}, fmt.Errorf("decode otp record: %w", err)
	}
	return domain.EmailOTPEntry{
		Code:      r.Code,
		ExpiresAt: time.UnixMilli(r.ExpiresAt).UTC(),
		Attempts:  r.Attempts,
	}, nil
}
