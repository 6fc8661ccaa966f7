package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/phoneauth/internal/notification/usecase"
	"github.com/shandysiswandi/phoneauth/internal/pkg/idempotency"
	"github.com/shandysiswandi/phoneauth/internal/pkg/instrument"
	"github.com/shandysiswandi/phoneauth/internal/pkg/messaging"
	"github.com/shandysiswandi/phoneauth/internal/pkg/uid"
	"github.com/shandysiswandi/phoneauth/internal/shared/event"
)

type MQHandler struct {
	uc   uc
	idem idempotency.Idempotency
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context) context.Context {
	if instrument.GetCorrelationID(ctx) != "" {
		return ctx
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

func (h *MQHandler) OTPDispatch(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx)

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "OTPDispatch")
	defer span.End()

	slog.InfoContext(ctx, "consume: otp dispatch", "msg_id", msg.ID())

	var payload event.OTPDispatchMessage
	if err := json.Unmarshal(msg.Body(), &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of otp dispatch", "msg_id", msg.ID(), "error", err)
		return nil
	}
	if payload.ID == "" {
		slog.ErrorContext(ctx, "otp dispatch without event id", "msg_id", msg.ID())
		return nil
	}

	err := h.idem.Exec(ctx, "sms:otp:"+payload.ID, func(ctx context.Context) error {
		return h.uc.SendOTP(ctx, usecase.SendOTPInput{
			EventID: payload.ID,
			Phone:   payload.Phone,
			Code:    payload.Code,
			Purpose: payload.Purpose,
		})
	}, idempotency.WithReleaseOnError())

	switch {
	case err == nil:
		return nil
	case errors.Is(err, idempotency.ErrAlreadyCompleted), errors.Is(err, idempotency.ErrAlreadyFailed):
		slog.InfoContext(ctx, "otp dispatch already handled", "event_id", payload.ID)
		return nil
	case errors.Is(err, idempotency.ErrAlreadyInProgress):
		slog.WarnContext(ctx, "otp dispatch in progress elsewhere", "event_id", payload.ID)
		return err
	default:
		slog.ErrorContext(ctx, "failed to consume otp dispatch", "event_id", payload.ID, "error", err)
		return err
	}
}
