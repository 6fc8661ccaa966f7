package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/phoneauth/internal/pkg/clock"
	"github.com/shandysiswandi/phoneauth/internal/pkg/instrument"
	"github.com/shandysiswandi/phoneauth/internal/pkg/uid"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newLimiter(t *testing.T, cfg Config) (*Redis, *clock.Manual, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clk := clock.NewManual(t0)
	l, err := NewRedis(client, cfg, clk, uid.NewUUID(), instrument.NewNoop())
	if err != nil {
		t.Fatalf("NewRedis() error = %v", err)
	}
	return l, clk, mr
}

func mustGate(t *testing.T, l *Redis, key string) *Decision {
	t.Helper()

	d, err := l.Gate(context.Background(), key)
	if err != nil {
		t.Fatalf("Gate() error = %v", err)
	}
	return d
}

func TestGate_Cooldown(t *testing.T) {
	// Arrange
	l, clk, _ := newLimiter(t, Config{Cooldown: 2 * time.Minute, Window: 2 * time.Hour, Limit: 15})
	key := Key(ClassOTPAuth, "+989123456789", "")

	// Act & Assert
	if d := mustGate(t, l, key); !d.Allowed {
		t.Fatalf("first request must be admitted")
	}

	clk.Advance(time.Minute)
	d := mustGate(t, l, key)
	if d.Allowed {
		t.Fatalf("request inside cooldown must be denied")
	}
	if d.RetryAfter != time.Minute {
		t.Fatalf("RetryAfter = %s, want 1m", d.RetryAfter)
	}

	clk.Advance(time.Minute)
	if d := mustGate(t, l, key); !d.Allowed {
		t.Fatalf("request exactly one cooldown later must be admitted")
	}
}

func TestGate_LongWindowCap(t *testing.T) {
	// Arrange
	const limit = 5
	l, clk, _ := newLimiter(t, Config{Cooldown: 2 * time.Minute, Window: time.Hour, Limit: limit})
	key := Key(ClassOTPAuth, "+989123456789", "")

	// Act: limit requests spaced beyond the cooldown
	for i := range limit {
		if d := mustGate(t, l, key); !d.Allowed {
			t.Fatalf("request %d must be admitted", i+1)
		}
		clk.Advance(3 * time.Minute)
	}

	// Assert: the (N+1)th is denied
	d := mustGate(t, l, key)
	if d.Allowed {
		t.Fatalf("request %d must be denied", limit+1)
	}
	if d.RetryAfter != 45*time.Minute {
		t.Fatalf("RetryAfter = %s, want 45m", d.RetryAfter)
	}

	// once the first request leaves the window a new one is admitted
	clk.Set(t0.Add(time.Hour))
	if d := mustGate(t, l, key); !d.Allowed {
		t.Fatalf("request after the window elapsed must be admitted")
	}
}

func TestGate_HourlyScenario(t *testing.T) {
	l, clk, _ := newLimiter(t, Config{Cooldown: time.Minute, Window: 2 * time.Hour, Limit: 20})
	key := Key(ClassOTPAuth, "+989123456789", "")

	for i := range 20 {
		if d := mustGate(t, l, key); !d.Allowed {
			t.Fatalf("request %d must be admitted", i+1)
		}
		clk.Advance(time.Minute)
	}
	if d := mustGate(t, l, key); d.Allowed {
		t.Fatalf("21st request inside two hours must be denied")
	}

	clk.Set(t0.Add(2*time.Hour + time.Second))
	if d := mustGate(t, l, key); !d.Allowed {
		t.Fatalf("request after the first one expired must be admitted")
	}

	clk.Advance(time.Second)
	if d := mustGate(t, l, key); d.Allowed {
		t.Fatalf("request one second later must hit the cooldown")
	}
}

func TestGate_DenialHasNoSideEffect(t *testing.T) {
	// Arrange
	l, clk, mr := newLimiter(t, Config{Cooldown: 2 * time.Minute, Window: time.Hour, Limit: 10})
	key := Key(ClassOTPAuth, "+989123456789", "")
	mustGate(t, l, key)

	// Act
	for range 5 {
		clk.Advance(10 * time.Second)
		if d := mustGate(t, l, key); d.Allowed {
			t.Fatalf("expected denial inside cooldown")
		}
	}

	// Assert
	members, err := mr.ZMembers(key)
	if err != nil {
		t.Fatalf("ZMembers() error = %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("denied requests were recorded: %d members", len(members))
	}

	// the cooldown still counts from the first request, not the denied ones
	clk.Set(t0.Add(2 * time.Minute))
	if d := mustGate(t, l, key); !d.Allowed {
		t.Fatalf("denied requests must not extend the cooldown")
	}
}

func TestGate_IndependentKeyspaces(t *testing.T) {
	l, _, _ := newLimiter(t, Config{Cooldown: 2 * time.Minute, Window: time.Hour, Limit: 10})
	phone := "+989123456789"

	keys := []string{
		Key(ClassOTPAuth, phone, ""),
		Key(ClassOTPChangePhone, phone, ""),
		Key(ClassOTPAuth, "+989123456780", ""),
		Key(ClassOTPAuth, phone, "10.0.0.1"),
	}
	for _, key := range keys {
		if d := mustGate(t, l, key); !d.Allowed {
			t.Fatalf("first request for %s must be admitted", key)
		}
	}
}

func TestGate_ConcurrentSingleAdmission(t *testing.T) {
	// Arrange
	l, _, _ := newLimiter(t, Config{Cooldown: 2 * time.Minute, Window: time.Hour, Limit: 10})
	key := Key(ClassOTPAuth, "+989123456789", "")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)

	// Act
	for range 20 {
		wg.Go(func() {
			d, err := l.Gate(context.Background(), key)
			if err != nil {
				t.Errorf("Gate() error = %v", err)
				return
			}
			if d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	// Assert
	if allowed != 1 {
		t.Fatalf("allowed = %d, want exactly 1", allowed)
	}
}

func TestGate_SetsExpiry(t *testing.T) {
	l, _, mr := newLimiter(t, Config{Cooldown: time.Minute, Window: time.Hour, Limit: 3})
	key := Key(ClassOTPAuth, "+989123456789", "")

	mustGate(t, l, key)

	if ttl := mr.TTL(key); ttl != time.Hour {
		t.Fatalf("TTL = %s, want 1h", ttl)
	}
}

func TestKey(t *testing.T) {
	if got := Key(ClassOTPAuth, "+989123456789", ""); got != "ratelimit:otp_auth:+989123456789" {
		t.Fatalf("Key() = %q", got)
	}
	if got := Key(ClassOTPChangePhone, "+989123456789", "1.2.3.4"); got != "ratelimit:otp_change_phone:+989123456789:1.2.3.4" {
		t.Fatalf("Key() = %q", got)
	}
}

func TestNewRedis_InvalidConfig(t *testing.T) {
	_, err := NewRedis(nil, Config{}, clock.New(), uid.NewUUID(), instrument.NewNoop())
	if err != ErrInvalidConfig {
		t.Fatalf("NewRedis() error = %v", err)
	}
}
