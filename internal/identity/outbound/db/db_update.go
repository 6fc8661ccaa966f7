package db

import (
	"context"
	"time"

	"github.com/shandysiswandi/phoneauth/internal/pkg/goerror"
)

func (s *DB) UpdateUserLastLogin(ctx context.Context, id int64, at time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateUserLastLogin")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `UPDATE identity_users SET last_login_at = $2, updated_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		err = s.mapError(err)
		return err
	}
	if tag.RowsAffected() == 0 {
		err = goerror.ErrNotFound
	}
	return err
}

// UpdateUserPhone relies on the unique constraint: of two concurrent changes to
// the same phone exactly one commits, the other gets goerror.ErrConflict.
func (s *DB) UpdateUserPhone(ctx context.Context, id int64, phone string) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateUserPhone")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `UPDATE identity_users SET phone = $2, updated_at = NOW() WHERE id = $1`, id, phone)
	if err != nil {
		err = s.mapError(err)
		return err
	}
	if tag.RowsAffected() == 0 {
		err = goerror.ErrNotFound
	}
	return err
}

// RevokeRefreshToken is a no-op for unknown, foreign or already revoked tokens.
func (s *DB) RevokeRefreshToken(ctx context.Context, token string, userID int64, at time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "RevokeRefreshToken")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `
		UPDATE identity_refresh_tokens SET revoked_at = $3
		WHERE token = $1 AND user_id = $2 AND revoked_at IS NULL`,
		token, userID, at,
	)
	err = s.mapError(err)
	return err
}

func (s *DB) RevokeAllRefreshToken(ctx context.Context, userID int64, at time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "RevokeAllRefreshToken")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `
		UPDATE identity_refresh_tokens SET revoked_at = $2
		WHERE user_id = $1 AND revoked_at IS NULL`,
		userID, at,
	)
	err = s.mapError(err)
	return err
}
