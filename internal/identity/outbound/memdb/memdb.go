// Package memdb is a test double for the Postgres identity store. It keeps
// the store's semantics (unique phones, conditional rotation and idempotent
// revocation) in memory and is imported only from _test.go files; internal/app
// never wires it. PutUser and RefreshTokens exist for test fixtures.
package memdb

import (
	"context"
	"sync"
	"time"

	"github.com/shandysiswandi/phoneauth/internal/identity/entity"
	"github.com/shandysiswandi/phoneauth/internal/pkg/goerror"
)

type DB struct {
	mu     sync.Mutex
	users  map[int64]entity.User
	tokens map[string]entity.RefreshToken
}

func New() *DB {
	return &DB{
		users:  make(map[int64]entity.User),
		tokens: make(map[string]entity.RefreshToken),
	}
}

// PutUser stores u as is, replacing any user with the same id.
func (d *DB) PutUser(u entity.User) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.users[u.ID] = u
}

// RefreshTokens lists every token row of userID.
func (d *DB) RefreshTokens(userID int64) []entity.RefreshToken {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []entity.RefreshToken
	for _, rt := range d.tokens {
		if rt.UserID == userID {
			out = append(out, rt)
		}
	}
	return out
}

func (d *DB) userByPhone(phone string) (entity.User, bool) {
	for _, u := range d.users {
		if u.Phone == phone {
			return u, true
		}
	}
	return entity.User{}, false
}

func (d *DB) GetUserByPhone(_ context.Context, phone string) (*entity.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.userByPhone(phone)
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &u, nil
}

func (d *DB) GetUserByID(_ context.Context, id int64) (*entity.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &u, nil
}

func (d *DB) GetOrCreateUser(_ context.Context, in entity.User) (*entity.User, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if u, ok := d.userByPhone(in.Phone); ok {
		return &u, false, nil
	}
	if _, ok := d.users[in.ID]; ok {
		return nil, false, goerror.ErrConflict
	}

	d.users[in.ID] = in
	return &in, true, nil
}

func (d *DB) UpdateUserLastLogin(_ context.Context, id int64, at time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[id]
	if !ok {
		return goerror.ErrNotFound
	}
	u.LastLoginAt = &at
	u.UpdatedAt = at
	d.users[id] = u
	return nil
}

func (d *DB) UpdateUserPhone(_ context.Context, id int64, phone string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[id]
	if !ok {
		return goerror.ErrNotFound
	}
	if other, taken := d.userByPhone(phone); taken && other.ID != id {
		return goerror.ErrConflict
	}
	u.Phone = phone
	d.users[id] = u
	return nil
}

func (d *DB) CreateRefreshToken(_ context.Context, in entity.RefreshToken) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.insertToken(in)
}

func (d *DB) insertToken(in entity.RefreshToken) error {
	if _, ok := d.users[in.UserID]; !ok {
		return goerror.ErrNotFound
	}
	if _, ok := d.tokens[in.Token]; ok {
		return goerror.ErrConflict
	}
	d.tokens[in.Token] = in
	return nil
}

func (d *DB) GetUserRefreshToken(_ context.Context, token string) (*entity.UserRefreshToken, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rt, ok := d.tokens[token]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	u := d.users[rt.UserID]

	return &entity.UserRefreshToken{
		RefreshToken: rt,
		UserPhone:    u.Phone,
		UserIsActive: u.IsActive,
	}, nil
}

func (d *DB) RotateRefreshToken(_ context.Context, ro entity.RotateRefreshToken) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for digest, rt := range d.tokens {
		if rt.ID != ro.OldID {
			continue
		}
		if rt.RevokedAt != nil {
			return goerror.ErrNotFound
		}

		if err := d.insertToken(entity.RefreshToken{
			ID:        ro.NewID,
			UserID:    ro.UserID,
			Token:     ro.NewToken,
			ExpiresAt: ro.NewExpiresAt,
			CreatedAt: ro.RotatedAt,
		}); err != nil {
			return err
		}

		at, next := ro.RotatedAt, ro.NewID
		rt.RevokedAt = &at
		rt.ReplacedByTokenID = &next
		d.tokens[digest] = rt
		return nil
	}

	return goerror.ErrNotFound
}

func (d *DB) RevokeRefreshToken(_ context.Context, token string, userID int64, at time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	rt, ok := d.tokens[token]
	if !ok || rt.UserID != userID || rt.RevokedAt != nil {
		return nil
	}
	rt.RevokedAt = &at
	d.tokens[token] = rt
	return nil
}

func (d *DB) RevokeAllRefreshToken(_ context.Context, userID int64, at time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for digest, rt := range d.tokens {
		if rt.UserID != userID || rt.RevokedAt != nil {
			continue
		}
		revokedAt := at
		rt.RevokedAt = &revokedAt
		d.tokens[digest] = rt
	}
	return nil
}
