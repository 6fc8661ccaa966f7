package db

import (
	"context"
	"errors"

	"github.com/shandysiswandi/phoneauth/internal/identity/entity"
	"github.com/shandysiswandi/phoneauth/internal/pkg/goerror"
)

// GetOrCreateUser inserts in unless its phone is taken, in which case the
// holder is returned with created false.
func (s *DB) GetOrCreateUser(ctx context.Context, in entity.User) (_ *entity.User, created bool, err error) {
	ctx, span := s.startSpan(ctx, "GetOrCreateUser")
	defer func() { s.endSpan(span, err) }()

	u, err := scanUser(s.conn.QueryRow(ctx, `
		INSERT INTO identity_users (id, phone, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT identity_users_phone_key DO NOTHING
		RETURNING `+userColumns,
		in.ID, in.Phone, in.IsActive, in.CreatedAt, in.UpdatedAt,
	))
	if err == nil {
		return u, true, nil
	}

	err = s.mapError(err)
	if !errors.Is(err, goerror.ErrNotFound) {
		return nil, false, err
	}

	u, err = s.GetUserByPhone(ctx, in.Phone)
	if err != nil {
		return nil, false, err
	}

	return u, false, nil
}

func (s *DB) CreateRefreshToken(ctx context.Context, in entity.RefreshToken) (err error) {
	ctx, span := s.startSpan(ctx, "CreateRefreshToken")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `
		INSERT INTO identity_refresh_tokens (id, user_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		in.ID, in.UserID, in.Token, in.ExpiresAt, in.CreatedAt,
	)
	err = s.mapError(err)
	return err
}
