package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/phoneauth/internal/identity/entity"
	"github.com/shandysiswandi/phoneauth/internal/pkg/goerror"
	"github.com/shandysiswandi/phoneauth/internal/pkg/jwt"
	"github.com/shandysiswandi/phoneauth/internal/pkg/otp"
)

type VerifyOTPInput struct {
	Phone string `validate:"required,phone"`
	OTP   string `validate:"required,otp"`
}

type VerifyOTPOutput struct {
	Created bool
	Phone   string
	Session Session
}

func (s *Usecase) VerifyOTP(ctx context.Context, in VerifyOTPInput) (*VerifyOTPOutput, error) {
	ctx, span := s.startSpan(ctx, "VerifyOTP")
	defer span.End()

	if jwt.GetAuth(ctx) != nil {
		return nil, goerror.NewBusiness(msgAlreadyAuthenticated, goerror.CodeForbidden)
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if !s.otp.Verify(in.Phone, in.OTP, otp.PurposeAuth) {
		slog.WarnContext(ctx, "otp does not match", "phone", in.Phone)
		return nil, goerror.NewInvalidInput(nil, "otp", msgInvalidOTP)
	}

	key := otpConsumedKey(otp.PurposeAuth, in.Phone, "", in.OTP)
	ok, err := s.consumeOTP(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		slog.WarnContext(ctx, "otp already used", "phone", in.Phone)
		return nil, goerror.NewInvalidInput(nil, "otp", msgInvalidOTP)
	}

	now := s.clock.Now()
	user, created, err := s.repoDB.GetOrCreateUser(ctx, entity.User{
		ID:        s.uid.Generate(),
		Phone:     in.Phone,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get or create user", "phone", in.Phone, "error", err)
		s.releaseOTP(ctx, key)
		return nil, goerror.NewServer(err)
	}

	if !user.IsActive {
		slog.WarnContext(ctx, "user account is disabled", "user_id", user.ID)
		return nil, goerror.NewBusiness(msgUserDisabled, goerror.CodeForbidden)
	}

	sess, err := s.mintSession(ctx, *user)
	if err != nil {
		s.releaseOTP(ctx, key)
		return nil, err
	}

	if err := s.repoDB.UpdateUserLastLogin(ctx, user.ID, now); err != nil {
		slog.ErrorContext(ctx, "failed to repo update user last login", "user_id", user.ID, "error", err)
	}

	if created {
		slog.InfoContext(ctx, "user account created", "user_id", user.ID)
	}

	return &VerifyOTPOutput{
		Created: created,
		Phone:   user.Phone,
		Session: *sess,
	}, nil
}
