package gateway

import (
	"context"
	"errors"

	"github.com/shandysiswandi/phoneauth/internal/pkg/instrument"
	"github.com/shandysiswandi/phoneauth/internal/pkg/sms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type SMS struct {
	client sms.Sender
	ins    instrument.Instrumentation
}

func New(client sms.Sender, ins instrument.Instrumentation) *SMS {
	return &SMS{client: client, ins: ins}
}

func (g *SMS) Send(ctx context.Context, msg sms.Message) (sms.Receipt, error) {
	ctx, span := g.ins.Tracer("notification.outbound.sms").Start(ctx, "Send")
	defer span.End()

	receipt, err := g.client.Send(ctx, msg)
	if err != nil {
		span.SetAttributes(attribute.Bool("sms.rejected", errors.Is(err, sms.ErrRejected)))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return sms.Receipt{}, err
	}
	span.SetAttributes(attribute.String("sms.provider_id", receipt.ProviderID))

	return receipt, nil
}
