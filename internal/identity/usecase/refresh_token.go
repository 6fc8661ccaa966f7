package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/phoneauth/internal/identity/entity"
	"github.com/shandysiswandi/phoneauth/internal/pkg/goerror"
	"github.com/shandysiswandi/phoneauth/internal/pkg/uid"
)

type RefreshTokenInput struct {
	RefreshToken string
}

type RefreshTokenOutput struct {
	Session Session
}

func (s *Usecase) RefreshToken(ctx context.Context, in RefreshTokenInput) (*RefreshTokenOutput, error) {
	ctx, span := s.startSpan(ctx, "RefreshToken")
	defer span.End()

	if in.RefreshToken == "" {
		return nil, goerror.NewBusiness(msgAuthRequired, goerror.CodeForbidden)
	}

	if !uid.IsToken(in.RefreshToken) {
		slog.WarnContext(ctx, "refresh token is malformed")
		return nil, goerror.NewBusiness(msgInvalidToken, goerror.CodeUnauthorized)
	}

	oldRefreshTokenHash, err := s.hmac.Hash(in.RefreshToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash old refresh token", "error", err)
		return nil, goerror.NewServer(err)
	}

	rt, err := s.repoDB.GetUserRefreshToken(ctx, string(oldRefreshTokenHash))
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user refresh token not found")
		return nil, goerror.NewBusiness(msgInvalidToken, goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user refresh token", "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()

	if rt.Rotated() {
		if err := s.repoDB.RevokeAllRefreshToken(ctx, rt.UserID, now); err != nil {
			slog.ErrorContext(ctx, "failed to repo revoke all refresh token", "user_id", rt.UserID, "error", err)
			return nil, goerror.NewServer(err)
		}

		slog.WarnContext(ctx, "refresh token reuse detected, all sessions revoked", "user_id", rt.UserID, "refresh_token_id", rt.ID)
		return nil, goerror.NewBusiness(msgTokenReused, goerror.CodeForbidden)
	}

	if rt.Revoked() {
		slog.WarnContext(ctx, "refresh token is revoked", "refresh_token_id", rt.ID)
		return nil, goerror.NewBusiness(msgInvalidToken, goerror.CodeUnauthorized)
	}

	if rt.Expired(now) {
		slog.WarnContext(ctx, "user refresh token is expired", "refresh_token_id", rt.ID)
		return nil, goerror.NewBusiness(msgInvalidToken, goerror.CodeUnauthorized)
	}

	if !rt.UserIsActive {
		slog.WarnContext(ctx, "user account is disabled", "user_id", rt.UserID)
		return nil, goerror.NewBusiness(msgUserDisabled, goerror.CodeForbidden)
	}

	newRefreshToken := s.token.Generate()
	newRefreshTokenHash, err := s.hmac.Hash(newRefreshToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash new refresh token", "error", err)
		return nil, goerror.NewServer(err)
	}

	acToken, err := s.jwt.Generate(rt.UserID, rt.UserPhone)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate access jwt token", "user_id", rt.UserID, "error", err)
		return nil, goerror.NewServer(err)
	}

	newExpiresAt := now.Add(s.refreshTTL())
	err = s.repoDB.RotateRefreshToken(ctx, entity.RotateRefreshToken{
		OldID:        rt.ID,
		NewID:        s.uid.Generate(),
		UserID:       rt.UserID,
		NewToken:     string(newRefreshTokenHash),
		NewExpiresAt: newExpiresAt,
		RotatedAt:    now,
	})
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "refresh token already rotated or revoked", "refresh_token_id", rt.ID)
		return nil, goerror.NewBusiness(msgInvalidToken, goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo rotate refresh token", "error", err)
		return nil, goerror.NewServer(err)
	}

	return &RefreshTokenOutput{Session: Session{
		AccessToken:      acToken,
		AccessExpiresAt:  now.Add(s.jwt.TTL()),
		RefreshToken:     newRefreshToken,
		RefreshExpiresAt: newExpiresAt,
	}}, nil
}
