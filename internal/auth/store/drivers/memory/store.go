// Package memory is a process-local store. It is the default driver and the
// one used by tests; nothing survives a restart.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/aussiebroadwan/portal/internal/auth/domain"
	"github.com/aussiebroadwan/portal/internal/auth/store"
)

type data struct {
	users   map[string]domain.User // by id
	byEmail map[string]string      // lowercased email -> id
	codes   map[string]domain.EmailOTPEntry
}

func newData() *data {
	return &data{
		users:   make(map[string]domain.User),
		byEmail: make(map[string]string),
		codes:   make(map[string]domain.EmailOTPEntry),
	}
}

func (d *data) clone() *data {
	return &data{
		users:   maps.Clone(d.users),
		byEmail: maps.Clone(d.byEmail),
		codes:   maps.Clone(d.codes),
	}
}

// Store guards all state with one RWMutex, which serializes writes per key
// (and globally).
type Store struct {
	mu sync.RWMutex
	d  *data
}

var _ store.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{d: newData()}
}

func (s *Store) Users() store.Users       { return &usersRepo{s: s} }
func (s *Store) OTPCodes() store.OTPCodes { return &otpCodesRepo{s: s} }

func (s *Store) ApplyMigrations() error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// WithTx runs fn against a private copy of the data while holding the write
// lock, and publishes the copy only when fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txStore{d: s.d.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.d = tx.d
	return nil
}

// view and update give repos uniform access to data under the right lock.
func (s *Store) view(fn func(d *data)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.d)
}

func (s *Store) update(fn func(d *data)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.d)
}

// txStore owns its data exclusively, so it needs no locking.
type txStore struct {
	d *data
}

func (t *txStore) Users() store.Users       { return &usersRepo{s: t} }
func (t *txStore) OTPCodes() store.OTPCodes { return &otpCodesRepo{s: t} }

func (t *txStore) view(fn func(d *data))   { fn(t.d) }
func (t *txStore) update(fn func(d *data)) { fn(t.d) }

type accessor interface {
	view(fn func(d *data))
	update(fn func(d *data))
}
