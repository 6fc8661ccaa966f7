package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/shandysiswandi/phoneauth/internal/pkg/goerror"
	"github.com/shandysiswandi/phoneauth/internal/pkg/otp"
)

type PhoneChangeVerifyInput struct {
	Phone string `validate:"required,phone"`
	OTP   string `validate:"required,otp"`
}

type PhoneChangeVerifyOutput struct {
	Detail string
	Phone  string
}

func (s *Usecase) PhoneChangeVerify(ctx context.Context, in PhoneChangeVerifyInput) (*PhoneChangeVerifyOutput, error) {
	ctx, span := s.startSpan(ctx, "PhoneChangeVerify")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if err := s.ensurePhoneUnused(ctx, in.Phone); err != nil {
		return nil, err
	}

	if !s.otp.Verify(in.Phone, in.OTP, otp.PurposeChangePhone) {
		slog.WarnContext(ctx, "phone change otp does not match", "user_id", clm.UserID, "new_phone", in.Phone)
		return nil, goerror.NewInvalidInput(nil, "otp", msgInvalidChangeOTP)
	}

	key := otpConsumedKey(otp.PurposeChangePhone, in.Phone, strconv.FormatInt(clm.UserID, 10), in.OTP)
	ok, err := s.consumeOTP(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		slog.WarnContext(ctx, "phone change otp already used", "user_id", clm.UserID, "new_phone", in.Phone)
		return nil, goerror.NewInvalidInput(nil, "otp", msgInvalidChangeOTP)
	}

	err = s.repoDB.UpdateUserPhone(ctx, clm.UserID, in.Phone)
	if errors.Is(err, goerror.ErrConflict) {
		slog.WarnContext(ctx, "phone taken by a concurrent change", "user_id", clm.UserID, "new_phone", in.Phone)
		return nil, goerror.NewInvalidInput(nil, "phone", msgPhoneInUse)
	}
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "user account not found", "user_id", clm.UserID)
		return nil, goerror.NewBusiness(msgInvalidToken, goerror.CodeUnauthorized)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo update user phone", "user_id", clm.UserID, "error", err)
		s.releaseOTP(ctx, key)
		return nil, goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "user phone changed", "user_id", clm.UserID, "new_phone", in.Phone)

	return &PhoneChangeVerifyOutput{
		Detail: msgPhoneChanged,
		Phone:  in.Phone,
	}, nil
}

func (s *Usecase) ensurePhoneUnused(ctx context.Context, phone string) error {
	_, err := s.repoDB.GetUserByPhone(ctx, phone)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by phone", "phone", phone, "error", err)
		return goerror.NewServer(err)
	}

	return goerror.NewInvalidInput(nil, "phone", msgPhoneInUse)
}
