package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/phoneauth/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Cache struct {
	client redis.UniversalClient
	ins    instrument.Instrumentation
}

func NewCache(client redis.UniversalClient, ins instrument.Instrumentation) *Cache {
	return &Cache{client: client, ins: ins}
}

func (c *Cache) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return c.ins.Tracer("identity.outbound.cache").Start(ctx, name)
}

func (c *Cache) endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// ConsumeOTP stores key with SET NX. Only the first caller for a key gets true
// until ttl elapses.
func (c *Cache) ConsumeOTP(ctx context.Context, key string, ttl time.Duration) (_ bool, err error) {
	ctx, span := c.startSpan(ctx, "ConsumeOTP")
	defer func() { c.endSpan(span, err) }()

	ok, err := c.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (c *Cache) ReleaseOTP(ctx context.Context, key string) (err error) {
	ctx, span := c.startSpan(ctx, "ReleaseOTP")
	defer func() { c.endSpan(span, err) }()

	err = c.client.Del(ctx, key).Err()
	return err
}
