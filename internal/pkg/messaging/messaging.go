package messaging

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/shandysiswandi/phoneauth/internal/pkg/instrument"
)

// HeaderCorrelationID carries the publisher's correlation id to consumers.
const HeaderCorrelationID = "cID"

var (
	// ErrUnsupported is returned when the selected broker cannot honor a
	// publish setting, for example a delay.
	ErrUnsupported = errors.New("messaging: unsupported operation")
	// ErrTopicRequired is returned for an empty destination or source.
	ErrTopicRequired = errors.New("messaging: topic is required")
	// ErrHandlerRequired is returned when Consume is called with a nil handler.
	ErrHandlerRequired = errors.New("messaging: handler is required")
	// ErrGroupRequired is returned by brokers that need a consumer group.
	ErrGroupRequired = errors.New("messaging: consumer group is required")
)

// Messaging is a broker client that can publish and consume.
type Messaging interface {
	io.Closer
	Publisher
	Consumer
}

// Publisher publishes messages to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg OutgoingMessage) (PublishResult, error)
}

// Consumer consumes a topic until ctx is canceled.
type Consumer interface {
	Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes one message. With auto-ack enabled a nil error acks the
// message and a non-nil error asks the broker for a redelivery.
type Handler func(ctx context.Context, msg Message) error

// OutgoingMessage is a message to be published.
type OutgoingMessage struct {
	Body    []byte
	Key     []byte
	Headers map[string]string
	Delay   time.Duration
}

// PublishResult carries what the broker reports back, when it reports it.
type PublishResult struct {
	MessageID string
	Topic     string
	Timestamp time.Time
}

// Message is a received message.
type Message interface {
	ID() string
	Topic() string
	Body() []byte
	Key() []byte
	Headers() map[string]string
	Timestamp() time.Time

	Ack(ctx context.Context) error
	Nack(ctx context.Context) error
}

// outgoingHeaders copies h and adds the correlation id found in ctx.
func outgoingHeaders(ctx context.Context, h map[string]string) map[string]string {
	out := make(map[string]string, len(h)+1)
	for k, v := range h {
		out[k] = v
	}
	if cid := instrument.GetCorrelationID(ctx); cid != "" {
		if _, ok := out[HeaderCorrelationID]; !ok {
			out[HeaderCorrelationID] = cid
		}
	}
	return out
}

func consumeContext(ctx context.Context, msg Message) context.Context {
	if cid := msg.Headers()[HeaderCorrelationID]; cid != "" {
		return instrument.SetCorrelationID(ctx, cid)
	}
	return ctx
}
