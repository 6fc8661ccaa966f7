package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/phoneauth/internal/identity/entity"
	"github.com/shandysiswandi/phoneauth/internal/pkg/goerror"
)

// RotateRefreshToken revokes ro.OldID and inserts its replacement in one
// transaction. goerror.ErrNotFound means the old token was no longer active,
// so a concurrent rotation already won.
func (s *DB) RotateRefreshToken(ctx context.Context, ro entity.RotateRefreshToken) (err error) {
	ctx, span := s.startSpan(ctx, "RotateRefreshToken")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			slog.ErrorContext(ctx, "failed to rolback", "error", rErr)
		}
	}()

	if _, err = tx.Exec(ctx, `
		INSERT INTO identity_refresh_tokens (id, user_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		ro.NewID, ro.UserID, ro.NewToken, ro.NewExpiresAt, ro.RotatedAt,
	); err != nil {
		err = s.mapError(err)
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE identity_refresh_tokens SET revoked_at = $2, replaced_by_token_id = $3
		WHERE id = $1 AND revoked_at IS NULL`,
		ro.OldID, ro.RotatedAt, ro.NewID,
	)
	if err != nil {
		err = s.mapError(err)
		return err
	}
	if tag.RowsAffected() == 0 {
		err = goerror.ErrNotFound
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		err = s.mapError(err)
		return err
	}

	return nil
}
