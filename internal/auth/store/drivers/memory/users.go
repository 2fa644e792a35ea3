package memory

import (
	"context"
	"strings"
	"time"

	"github.com/aussiebroadwan/portal/internal/auth/domain"
	"github.com/aussiebroadwan/portal/internal/auth/store"
)

type usersRepo struct {
	s accessor
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (u domain.User, err error) {
	err = store.ErrNotFound
	r.s.view(func(d *data) {
		if found, ok := d.users[id]; ok {
			u, err = found, nil
		}
	})
	return u, err
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (u domain.User, err error) {
	key := strings.ToLower(email)
	err = store.ErrNotFound
	r.s.view(func(d *data) {
		if id, ok := d.byEmail[key]; ok {
			u, err = d.users[id], nil
		}
	})
	return u, err
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) (err error) {
	u.Email = strings.ToLower(u.Email)
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = u.CreatedAt

	r.s.update(func(d *data) {
		if _, taken := d.byEmail[u.Email]; taken {
			err = store.ErrAlreadyExists
			return
		}
		if _, taken := d.users[u.ID]; taken {
			err = store.ErrAlreadyExists
			return
		}
		d.users[u.ID] = u
		d.byEmail[u.Email] = u.ID
	})
	return err
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	return r.modify(userID, func(u *domain.User) {
		u.PasswordHash = newHash
	})
}

func (r *usersRepo) EnableMFA(ctx context.Context, userID string, secret string) error {
	return r.modify(userID, func(u *domain.User) {
		u.MFAEnabled = true
		u.MFASecret = secret
	})
}

func (r *usersRepo) CountUsers(ctx context.Context) (n int, err error) {
	r.s.view(func(d *data) { n = len(d.users) })
	return n, nil
}

func (r *usersRepo) modify(userID string, fn func(u *domain.User)) (err error) {
	r.s.update(func(d *data) {
		u, ok := d.users[userID]
		if !ok {
			err = store.ErrNotFound
			return
		}
		fn(&u)
		u.UpdatedAt = time.Now().UTC()
		d.users[userID] = u
	})
	return err
}
