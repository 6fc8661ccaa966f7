package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/phoneauth/internal/identity/entity"
	"github.com/shandysiswandi/phoneauth/internal/pkg/goerror"
)

// Session is what a successful login or refresh hands back to the client.
type Session struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	CSRFToken        string
}

func (s *Usecase) refreshTTL() time.Duration {
	return s.cfg.GetDay("jwt.refresh_ttl_days")
}

// mintSession signs an access token, stores a fresh refresh token digest and
// rotates the CSRF token.
func (s *Usecase) mintSession(ctx context.Context, user entity.User) (*Session, error) {
	acToken, err := s.jwt.Generate(user.ID, user.Phone)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate access jwt token", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	refToken := s.token.Generate()
	refTokenHash, err := s.hmac.Hash(refToken)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash refresh token", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	refExpiresAt := now.Add(s.refreshTTL())

	if err := s.repoDB.CreateRefreshToken(ctx, entity.RefreshToken{
		ID:        s.uid.Generate(),
		UserID:    user.ID,
		Token:     string(refTokenHash),
		ExpiresAt: refExpiresAt,
		CreatedAt: now,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo create refresh token user", "user_id", user.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &Session{
		AccessToken:      acToken,
		AccessExpiresAt:  now.Add(s.jwt.TTL()),
		RefreshToken:     refToken,
		RefreshExpiresAt: refExpiresAt,
		CSRFToken:        s.uuid.Generate(),
	}, nil
}
