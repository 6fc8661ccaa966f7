package mq

import (
	"context"
	"encoding/json"

	"github.com/shandysiswandi/phoneauth/internal/identity/usecase"
	"github.com/shandysiswandi/phoneauth/internal/pkg/instrument"
	"github.com/shandysiswandi/phoneauth/internal/pkg/messaging"
	"github.com/shandysiswandi/phoneauth/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

type Messaging struct {
	client messaging.Publisher
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishOTPDispatch(ctx context.Context, msg usecase.OTPDispatchEvent) error {
	ctx, span := m.ins.Tracer("identity.outbound.mq").Start(ctx, "PublishOTPDispatch")
	defer span.End()

	body, err := json.Marshal(event.OTPDispatchMessage{
		ID:          msg.ID,
		Phone:       msg.Phone,
		Code:        msg.Code,
		Purpose:     msg.Purpose.String(),
		RequestedAt: msg.RequestedAt,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if _, err := m.client.Publish(ctx, event.OTPDispatchDestination, messaging.OutgoingMessage{
		Body: body,
		Key:  []byte(msg.Phone),
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
