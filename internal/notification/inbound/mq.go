package inbound

import (
	"context"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shandysiswandi/phoneauth/internal/notification/usecase"
	"github.com/shandysiswandi/phoneauth/internal/pkg/config"
	"github.com/shandysiswandi/phoneauth/internal/pkg/goroutine"
	"github.com/shandysiswandi/phoneauth/internal/pkg/idempotency"
	"github.com/shandysiswandi/phoneauth/internal/pkg/instrument"
	"github.com/shandysiswandi/phoneauth/internal/pkg/messaging"
	"github.com/shandysiswandi/phoneauth/internal/pkg/uid"
	"github.com/shandysiswandi/phoneauth/internal/shared/event"
)

type uc interface {
	SendOTP(ctx context.Context, in usecase.SendOTPInput) error
}

type mqConsumer struct {
	name    string
	topic   string // destination where publisher sent message
	handler messaging.Handler
}

// RegisterMQConsumer starts every consumer listed in
// modules.notification.consumer_names. Each runs until ctx is canceled.
func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	consumer messaging.Consumer,
	idem idempotency.Idempotency,
	uuid uid.StringID,
	uc uc,
	ins instrument.Instrumentation,
) {
	h := &MQHandler{uc: uc, idem: idem, uuid: uuid, ins: ins}

	enabled := cfg.GetArray("modules.notification.consumer_names")

	consumers := []mqConsumer{
		{
			name:    event.OTPDispatchConsumerNotification,
			topic:   event.OTPDispatchDestination,
			handler: h.OTPDispatch,
		},
	}

	for _, c := range consumers {
		if !lo.Contains(enabled, c.name) {
			slog.InfoContext(ctx, "consumer disabled", "consumer", c.name)
			continue
		}

		routine.Go(ctx, "notification.consumer."+c.name, func(pCtx context.Context) error {
			slog.InfoContext(pCtx, "Running job for handling consumer", "consumer", c.name, "topic", c.topic)
			return consumer.Consume(pCtx,
				c.topic,
				c.handler,
				messaging.WithGroup(c.name),
				messaging.WithAutoAck(true),
				messaging.WithConcurrency(10),
				messaging.WithMaxInFlight(10),
			)
		})
	}
}
