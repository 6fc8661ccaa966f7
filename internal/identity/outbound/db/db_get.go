package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/phoneauth/internal/identity/entity"
)

const userColumns = `id, phone, COALESCE(first_name, ''), COALESCE(last_name, ''), is_active, is_staff, is_admin,
	last_login_at, created_at, updated_at`

func scanUser(row pgx.Row) (*entity.User, error) {
	var u entity.User
	if err := row.Scan(
		&u.ID, &u.Phone, &u.FirstName, &u.LastName, &u.IsActive, &u.IsStaff, &u.IsAdmin,
		&u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *DB) GetUserByPhone(ctx context.Context, phone string) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByPhone")
	defer func() { s.endSpan(span, err) }()

	u, err := scanUser(s.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM identity_users WHERE phone = $1`, phone))
	if err != nil {
		return nil, s.mapError(err)
	}

	return u, nil
}

func (s *DB) GetUserByID(ctx context.Context, id int64) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByID")
	defer func() { s.endSpan(span, err) }()

	u, err := scanUser(s.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM identity_users WHERE id = $1`, id))
	if err != nil {
		return nil, s.mapError(err)
	}

	return u, nil
}

func (s *DB) GetUserRefreshToken(ctx context.Context, token string) (_ *entity.UserRefreshToken, err error) {
	ctx, span := s.startSpan(ctx, "GetUserRefreshToken")
	defer func() { s.endSpan(span, err) }()

	var rt entity.UserRefreshToken
	err = s.conn.QueryRow(ctx, `
		SELECT rt.id, rt.user_id, rt.token, rt.expires_at, rt.revoked_at, rt.replaced_by_token_id, rt.created_at,
			u.phone, u.is_active
		FROM identity_refresh_tokens rt
		JOIN identity_users u ON u.id = rt.user_id
		WHERE rt.token = $1`, token).Scan(
		&rt.ID, &rt.UserID, &rt.Token, &rt.ExpiresAt, &rt.RevokedAt, &rt.ReplacedByTokenID, &rt.CreatedAt,
		&rt.UserPhone, &rt.UserIsActive,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &rt, nil
}
