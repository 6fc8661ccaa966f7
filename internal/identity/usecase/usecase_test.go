package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/phoneauth/internal/identity/outbound/cache"
	"github.com/shandysiswandi/phoneauth/internal/identity/outbound/memdb"
	"github.com/shandysiswandi/phoneauth/internal/pkg/clock"
	"github.com/shandysiswandi/phoneauth/internal/pkg/config"
	"github.com/shandysiswandi/phoneauth/internal/pkg/goerror"
	"github.com/shandysiswandi/phoneauth/internal/pkg/goroutine"
	"github.com/shandysiswandi/phoneauth/internal/pkg/hash"
	"github.com/shandysiswandi/phoneauth/internal/pkg/instrument"
	"github.com/shandysiswandi/phoneauth/internal/pkg/jwt"
	"github.com/shandysiswandi/phoneauth/internal/pkg/otp"
	"github.com/shandysiswandi/phoneauth/internal/pkg/ratelimit"
	"github.com/shandysiswandi/phoneauth/internal/pkg/uid"
	"github.com/shandysiswandi/phoneauth/internal/pkg/validator"
)

const (
	phoneA   = "+989123456789"
	phoneB   = "+989123456780"
	authCode = "123456"
	moveCode = "654321"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// fixedOTP issues one code per purpose regardless of phone.
type fixedOTP struct{}

func (fixedOTP) Generate(_ string, p otp.Purpose) (string, error) {
	if p == otp.PurposeChangePhone {
		return moveCode, nil
	}
	return authCode, nil
}

func (f fixedOTP) Verify(phone, code string, p otp.Purpose) bool {
	want, _ := f.Generate(phone, p)
	return code == want
}

func (fixedOTP) ValidFor() time.Duration { return 90 * time.Second }

type recordingMessaging struct {
	mu     sync.Mutex
	events []OTPDispatchEvent
}

func (r *recordingMessaging) PublishOTPDispatch(_ context.Context, msg OTPDispatchEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, msg)
	return nil
}

func (r *recordingMessaging) Events() []OTPDispatchEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]OTPDispatchEvent(nil), r.events...)
}

type counterID struct {
	mu sync.Mutex
	n  int64
}

func (c *counterID) Generate() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n
}

type fixture struct {
	uc    *Usecase
	db    *memdb.DB
	msg   *recordingMessaging
	clock *clock.Manual
	jwt   *jwt.Symmetric
	gr    *goroutine.Manager
	mr    *miniredis.Miniredis
}

func newFixture(t *testing.T, yaml string) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml))
	if err != nil {
		t.Fatalf("NewViperFromBytes() error = %v", err)
	}

	clk := clock.NewManual(t0)
	ins := instrument.NewNoop()

	limiter, err := ratelimit.NewRedis(client, ratelimit.Config{
		Cooldown: 2 * time.Minute,
		Window:   2 * time.Hour,
		Limit:    15,
	}, clk, uid.NewUUID(), ins)
	if err != nil {
		t.Fatalf("NewRedis() error = %v", err)
	}

	signer, err := jwt.NewHS512(jwt.Config{
		Secret:    []byte(strings.Repeat("k", 64)),
		Issuer:    "phoneauth",
		Audiences: []string{"phoneauth"},
		TTL:       15 * time.Minute,
		Clock:     clk,
		UUID:      uid.NewUUID(),
	})
	if err != nil {
		t.Fatalf("NewHS512() error = %v", err)
	}

	hmac, err := hash.NewHMACSHA256([]byte("refresh-secret"))
	if err != nil {
		t.Fatalf("NewHMACSHA256() error = %v", err)
	}

	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("NewV10Validator() error = %v", err)
	}

	db := memdb.New()
	msg := &recordingMessaging{}
	gr := goroutine.NewManager(10)

	uc := New(Dependency{
		RepoDB:        db,
		RepoCache:     cache.NewCache(client, ins),
		RepoMessaging: msg,
		Limiter:       limiter,
		Validator:     v,
		Config:        cfg,
		HMAC:          hmac,
		UID:           &counterID{n: 100},
		UUID:          uid.NewUUID(),
		Token:         uid.NewToken(),
		OTP:           fixedOTP{},
		Clock:         clk,
		JWT:           signer,
		Instrument:    ins,
		Goroutine:     gr,
	})

	return &fixture{uc: uc, db: db, msg: msg, clock: clk, jwt: signer, gr: gr, mr: mr}
}

func (f *fixture) login(t *testing.T, phone string) *VerifyOTPOutput {
	t.Helper()

	out, err := f.uc.VerifyOTP(context.Background(), VerifyOTPInput{Phone: phone, OTP: authCode})
	if err != nil {
		t.Fatalf("VerifyOTP(%s) error = %v", phone, err)
	}
	return out
}

func (f *fixture) authCtx(t *testing.T, access string) context.Context {
	t.Helper()

	clm, err := f.jwt.Verify(access)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	return jwt.SetAuth(context.Background(), clm)
}

func assertCode(t *testing.T, err error, want goerror.Code) *goerror.Error {
	t.Helper()

	gerr, ok := goerror.As(err)
	if !ok {
		t.Fatalf("error = %v, want goerror with code %v", err, want)
	}
	if gerr.Code() != want {
		t.Fatalf("code = %v (%q), want %v", gerr.Code(), gerr.Msg(), want)
	}
	return gerr
}

func assertField(t *testing.T, err error, field, msg string) {
	t.Helper()

	gerr := assertCode(t, err, goerror.CodeInvalidInput)
	if got := gerr.Fields()[field]; got != msg {
		t.Fatalf("field %q = %q, want %q", field, got, msg)
	}
}
