package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/phoneauth/internal/pkg/goerror"
	"github.com/shandysiswandi/phoneauth/internal/pkg/otp"
	"github.com/shandysiswandi/phoneauth/internal/pkg/ratelimit"
)

type PhoneChangeRequestInput struct {
	Phone    string `validate:"required,phone"`
	ClientIP string
}

type PhoneChangeRequestOutput struct {
	// OTP is only set in debug mode.
	OTP string
}

func (s *Usecase) PhoneChangeRequest(ctx context.Context, in PhoneChangeRequestInput) (*PhoneChangeRequestOutput, error) {
	ctx, span := s.startSpan(ctx, "PhoneChangeRequest")
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

	if err := s.gate(ctx, ratelimit.ClassOTPChangePhone, in.Phone, in.ClientIP); err != nil {
		return nil, err
	}

	code, err := s.otp.Generate(in.Phone, otp.PurposeChangePhone)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate otp", "user_id", clm.UserID, "new_phone", in.Phone, "error", err)
		return nil, goerror.NewServer(err)
	}

	s.dispatchOTP(ctx, in.Phone, code, otp.PurposeChangePhone)

	out := &PhoneChangeRequestOutput{}
	if s.cfg.GetBool("app.debug") {
		out.OTP = code
	}

	return out, nil
}
