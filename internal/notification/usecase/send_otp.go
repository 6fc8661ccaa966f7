package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/phoneauth/internal/notification/entity"
	"github.com/shandysiswandi/phoneauth/internal/pkg/goerror"
	"github.com/shandysiswandi/phoneauth/internal/pkg/sms"
	"github.com/shandysiswandi/phoneauth/internal/pkg/valueobject"
)

type (
	SendOTPInput struct {
		EventID string `validate:"required"`
		Phone   string `validate:"required,phone"`
		Code    string `validate:"required,otp"`
		Purpose string `validate:"required,oneof=AUTH CHANGE_PHONE"`
	}

	otpTemplateData struct {
		Code  string
		Phone string
	}
)

// SendOTP delivers one dispatch event as an SMS. A malformed event or a
// permanent provider refusal is recorded and swallowed. Transient failures are
// returned so the broker redelivers; a redelivery resumes the existing log row.
func (s *Usecase) SendOTP(ctx context.Context, in SendOTPInput) error {
	ctx, span := s.startSpan(ctx, "SendOTP")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "invalid otp dispatch event", "event_id", in.EventID, "phone", in.Phone, "error", err)
		return nil
	}

	logID, done, err := s.openSMSLog(ctx, in)
	if err != nil {
		return err
	}
	if done {
		slog.InfoContext(ctx, "otp dispatch already delivered", "event_id", in.EventID)
		return nil
	}

	key := "modules.notification.sms.templates." + strings.ToLower(in.Purpose)
	text, err := s.renderTemplate(in.Purpose, s.cfg.GetString(key), otpTemplateData{Code: in.Code, Phone: in.Phone})
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty sms template " + key)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to render sms template", "event_id", in.EventID, "purpose", in.Purpose, "error", err)
		s.markFailed(ctx, logID, err)
		return nil
	}

	receipt, err := s.repoSMS.Send(ctx, sms.Message{To: in.Phone, Text: text})
	if err != nil {
		s.markFailed(ctx, logID, err)
		if errors.Is(err, sms.ErrRejected) {
			slog.WarnContext(ctx, "sms rejected by provider", "event_id", in.EventID, "phone", in.Phone, "error", err)
			return nil
		}

		slog.ErrorContext(ctx, "failed to send sms", "event_id", in.EventID, "phone", in.Phone, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.repoDB.MarkSMSSent(ctx, entity.MarkSMSSent{
		ID:                logID,
		ProviderMessageID: receipt.ProviderID,
		ProviderResponse:  valueobject.JSONMap(receipt.Response),
		UpdatedAt:         s.clock.Now(),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo mark sms sent", "log_id", logID, "error", err)
	}

	slog.InfoContext(ctx, "otp sms sent", "event_id", in.EventID, "phone", in.Phone, "provider_id", receipt.ProviderID)

	return nil
}

// openSMSLog inserts the queued row for the event, or finds the row a previous
// delivery left behind. done reports that the SMS already went out.
func (s *Usecase) openSMSLog(ctx context.Context, in SendOTPInput) (_ int64, done bool, _ error) {
	id := s.uid.Generate()
	err := s.repoDB.CreateSMSLog(ctx, entity.CreateSMSLog{
		ID:        id,
		EventID:   in.EventID,
		Phone:     in.Phone,
		Purpose:   in.Purpose,
		CreatedAt: s.clock.Now(),
	})
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, goerror.ErrConflict) {
		slog.ErrorContext(ctx, "failed to repo create sms log", "event_id", in.EventID, "error", err)
		return 0, false, goerror.NewServer(err)
	}

	existing, err := s.repoDB.GetSMSLogByEventID(ctx, in.EventID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get sms log by event id", "event_id", in.EventID, "error", err)
		return 0, false, goerror.NewServer(err)
	}

	return existing.ID, existing.Status == entity.SMSStatusSent, nil
}

func (s *Usecase) markFailed(ctx context.Context, id int64, cause error) {
	if err := s.repoDB.MarkSMSFailed(ctx, entity.MarkSMSFailed{
		ID:        id,
		Error:     cause.Error(),
		UpdatedAt: s.clock.Now(),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo mark sms failed", "log_id", id, "error", err)
	}
}
