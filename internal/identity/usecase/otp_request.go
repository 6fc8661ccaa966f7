package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/phoneauth/internal/pkg/goerror"
	"github.com/shandysiswandi/phoneauth/internal/pkg/jwt"
	"github.com/shandysiswandi/phoneauth/internal/pkg/otp"
	"github.com/shandysiswandi/phoneauth/internal/pkg/ratelimit"
)

type RequestOTPInput struct {
	Phone    string `validate:"required,phone"`
	ClientIP string
}

type RequestOTPOutput struct {
	// Created is true when no identity holds the phone yet.
	Created bool
	// OTP is only set in debug mode.
	OTP string
}

func (s *Usecase) RequestOTP(ctx context.Context, in RequestOTPInput) (*RequestOTPOutput, error) {
	ctx, span := s.startSpan(ctx, "RequestOTP")
	defer span.End()

	if jwt.GetAuth(ctx) != nil {
		return nil, goerror.NewBusiness(msgAlreadyAuthenticated, goerror.CodeForbidden)
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if err := s.gate(ctx, ratelimit.ClassOTPAuth, in.Phone, in.ClientIP); err != nil {
		return nil, err
	}

	exists := true
	_, err := s.repoDB.GetUserByPhone(ctx, in.Phone)
	if errors.Is(err, goerror.ErrNotFound) {
		exists = false
	} else if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by phone", "phone", in.Phone, "error", err)
		return nil, goerror.NewServer(err)
	}

	code, err := s.otp.Generate(in.Phone, otp.PurposeAuth)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate otp", "phone", in.Phone, "error", err)
		return nil, goerror.NewServer(err)
	}

	s.dispatchOTP(ctx, in.Phone, code, otp.PurposeAuth)

	out := &RequestOTPOutput{Created: !exists}
	if s.cfg.GetBool("app.debug") {
		out.OTP = code
	}

	return out, nil
}
