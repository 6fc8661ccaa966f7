package messaging

import (
	"context"
	"log/slog"

	"go.uber.org/atomic"
)

// settlement records whether a message was acked or nacked. Drivers embed it
// so a handler may settle manually without the auto-ack doing it twice.
type settlement struct {
	done atomic.Bool
}

// claim reports true for the first caller only.
func (s *settlement) claim() bool {
	return !s.done.Swap(true)
}

func (s *settlement) settled() bool {
	return s.done.Load()
}

type settleable interface {
	Message
	settled() bool
}

// dispatch runs handler for msg and, with autoAck, settles it from the result.
// Handler failures are logged; only a failed ack or nack is returned.
func dispatch(ctx context.Context, kind string, handler Handler, msg settleable, autoAck bool) error {
	ctx = consumeContext(ctx, msg)

	herr := callHandlerWithRecover(ctx, kind, func() error {
		return handler(ctx, msg)
	})
	if herr != nil {
		slog.WarnContext(ctx, "message handler failed", "kind", kind, "topic", msg.Topic(), "message_id", msg.ID(), "error", herr)
	}

	if !autoAck || msg.settled() {
		return nil
	}
	if herr == nil {
		return msg.Ack(ctx)
	}
	return msg.Nack(ctx)
}
