// Package ratelimit implements the dual-window admission gate in front of OTP
// issuance.
//
// A key is admitted only if the last recorded request is at least Cooldown
// old and fewer than Limit requests were recorded within the trailing Window.
// Check and record run as one Lua script so concurrent callers on any
// instance cannot both pass.
package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/phoneauth/internal/pkg/clock"
	"github.com/shandysiswandi/phoneauth/internal/pkg/instrument"
	"github.com/shandysiswandi/phoneauth/internal/pkg/uid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// KeyPrefix namespaces every limiter key in Redis.
const KeyPrefix = "ratelimit"

var ErrInvalidConfig = errors.New("ratelimit: cooldown, window and limit must be positive")

// KEYS[1]  sorted set of request timestamps (ms) for one key
// ARGV[1]  now (ms)
// ARGV[2]  cooldown (ms)
// ARGV[3]  window (ms)
// ARGV[4]  limit
// ARGV[5]  unique member for this request
//
// Returns {allowed, retry_after_ms, count_after}.
var gateScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local cooldown = tonumber(ARGV[2])
local window = tonumber(ARGV[3])
local limit = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local last = redis.call('ZRANGE', key, -1, -1, 'WITHSCORES')
if last[2] ~= nil then
  local elapsed = now - tonumber(last[2])
  if elapsed < cooldown then
    return {0, cooldown - elapsed, redis.call('ZCARD', key)}
  end
end

local count = redis.call('ZCARD', key)
if count >= limit then
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  return {0, tonumber(oldest[2]) + window - now, count}
end

redis.call('ZADD', key, now, ARGV[5])
redis.call('PEXPIRE', key, window)
return {1, 0, count + 1}
`)

// Class names an independent keyspace.
type Class string

const (
	ClassOTPAuth        Class = "otp_auth"
	ClassOTPChangePhone Class = "otp_change_phone"
)

// Config holds the gate parameters.
type Config struct {
	Cooldown time.Duration
	Window   time.Duration
	Limit    int64
}

// Decision is the outcome of one Gate call.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	// Count is the number of requests recorded in the window after this call.
	Count int64
}

// Limiter gates requests per key.
type Limiter interface {
	Gate(ctx context.Context, key string) (*Decision, error)
}

// Redis is a Limiter shared by every instance using the same Redis.
type Redis struct {
	client    redis.UniversalClient
	cfg       Config
	clock     clock.Clocker
	member    uid.StringID
	tracer    trace.Tracer
	decisions metric.Int64Counter
}

// NewRedis returns a Redis limiter.
func NewRedis(client redis.UniversalClient, cfg Config, clk clock.Clocker, member uid.StringID, ins instrument.Instrumentation) (*Redis, error) {
	if cfg.Cooldown <= 0 || cfg.Window <= 0 || cfg.Limit <= 0 {
		return nil, ErrInvalidConfig
	}

	counter, err := ins.Meter("ratelimit").Int64Counter("ratelimit.decisions",
		metric.WithDescription("Rate limit gate decisions"))
	if err != nil {
		return nil, err
	}

	return &Redis{
		client:    client,
		cfg:       cfg,
		clock:     clk,
		member:    member,
		tracer:    ins.Tracer("ratelimit"),
		decisions: counter,
	}, nil
}

// Key builds the store key for class and phone. ip is appended when not empty.
func Key(class Class, phone, ip string) string {
	parts := []string{KeyPrefix, string(class), phone}
	if ip != "" {
		parts = append(parts, ip)
	}
	return strings.Join(parts, ":")
}

// Gate atomically checks both rules and, when admitted, records the request.
// A denied request leaves the store untouched.
func (r *Redis) Gate(ctx context.Context, key string) (_ *Decision, err error) {
	ctx, span := r.tracer.Start(ctx, "ratelimit.Gate")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	now := r.clock.Now().UnixMilli()
	member := strconv.FormatInt(now, 10) + ":" + r.member.Generate()

	res, err := gateScript.Run(ctx, r.client, []string{key},
		now,
		r.cfg.Cooldown.Milliseconds(),
		r.cfg.Window.Milliseconds(),
		r.cfg.Limit,
		member,
	).Int64Slice()
	if err != nil {
		return nil, err
	}
	if len(res) != 3 {
		return nil, errors.New("ratelimit: unexpected script reply")
	}

	d := &Decision{
		Allowed:    res[0] == 1,
		RetryAfter: time.Duration(res[1]) * time.Millisecond,
		Count:      res[2],
	}

	span.SetAttributes(attribute.Bool("ratelimit.allowed", d.Allowed), attribute.Int64("ratelimit.count", d.Count))
	r.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("class", classOf(key)),
		attribute.Bool("allowed", d.Allowed),
	))

	return d, nil
}

func classOf(key string) string {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
