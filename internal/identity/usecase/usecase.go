package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/shandysiswandi/phoneauth/internal/identity/entity"
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
	"go.opentelemetry.io/otel/trace"
)

const (
	msgAlreadyAuthenticated = "You are already authenticated. Please logout first to access this page."
	msgAuthRequired         = "Authentication credentials were not provided."
	msgInvalidOTP           = "Invalid OTP provided. Please try again."
	msgInvalidChangeOTP     = "Invalid OTP provided for phone change. Please try again."
	msgPhoneInUse           = "This phone number is already in use. Please use a different number."
	msgPhoneChanged         = "Your phone number has been changed successfully."
	msgInvalidToken         = "Token is invalid or expired"
	msgTokenReused          = "Token reuse detected, please log in again."
	msgUserDisabled         = "User account is disabled."
)

type OTPDispatchEvent struct {
	ID          string
	Phone       string
	Code        string
	Purpose     otp.Purpose
	RequestedAt time.Time
}

type repoMessaging interface {
	PublishOTPDispatch(ctx context.Context, msg OTPDispatchEvent) error
}

type repoCache interface {
	// ConsumeOTP records key once and reports whether this call recorded it.
	ConsumeOTP(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseOTP(ctx context.Context, key string) error
}

type repoDB interface {
	GetUserByPhone(ctx context.Context, phone string) (*entity.User, error)
	GetUserByID(ctx context.Context, id int64) (*entity.User, error)
	GetUserRefreshToken(ctx context.Context, token string) (*entity.UserRefreshToken, error)

	GetOrCreateUser(ctx context.Context, in entity.User) (*entity.User, bool, error)
	CreateRefreshToken(ctx context.Context, in entity.RefreshToken) error

	UpdateUserLastLogin(ctx context.Context, id int64, at time.Time) error
	UpdateUserPhone(ctx context.Context, id int64, phone string) error
	RotateRefreshToken(ctx context.Context, ro entity.RotateRefreshToken) error
	RevokeRefreshToken(ctx context.Context, token string, userID int64, at time.Time) error
	RevokeAllRefreshToken(ctx context.Context, userID int64, at time.Time) error
}

type Usecase struct {
	repoDB        repoDB
	repoCache     repoCache
	repoMessaging repoMessaging
	limiter       ratelimit.Limiter
	validator     validator.Validator
	cfg           config.Config
	hmac          hash.Hash
	uid           uid.NumberID
	uuid          uid.StringID
	token         uid.StringID
	otp           otp.OTP
	clock         clock.Clocker
	jwt           jwt.JWT
	ins           instrument.Instrumentation
	goroutine     *goroutine.Manager
}

type Dependency struct {
	RepoDB        repoDB
	RepoCache     repoCache
	RepoMessaging repoMessaging
	Limiter       ratelimit.Limiter
	Validator     validator.Validator
	Config        config.Config
	HMAC          hash.Hash
	UID           uid.NumberID
	UUID          uid.StringID
	Token         uid.StringID
	OTP           otp.OTP
	Clock         clock.Clocker
	JWT           jwt.JWT
	Instrument    instrument.Instrumentation
	Goroutine     *goroutine.Manager
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:        dep.RepoDB,
		repoCache:     dep.RepoCache,
		repoMessaging: dep.RepoMessaging,
		limiter:       dep.Limiter,
		validator:     dep.Validator,
		cfg:           dep.Config,
		hmac:          dep.HMAC,
		uid:           dep.UID,
		uuid:          dep.UUID,
		token:         dep.Token,
		otp:           dep.OTP,
		clock:         dep.Clock,
		jwt:           dep.JWT,
		ins:           dep.Instrument,
		goroutine:     dep.Goroutine,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("identity.usecase").Start(ctx, name)
}

func (s *Usecase) authenticated(ctx context.Context) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness(msgAuthRequired, goerror.CodeUnauthorized)
	}

	return clm, nil
}

// gate admits or throttles an OTP issue for phone under class.
func (s *Usecase) gate(ctx context.Context, class ratelimit.Class, phone, ip string) error {
	if !s.cfg.GetBool("rate_limit.otp.include_ip") {
		ip = ""
	}

	d, err := s.limiter.Gate(ctx, ratelimit.Key(class, phone, ip))
	if err != nil {
		slog.ErrorContext(ctx, "failed to check otp rate limit", "phone", phone, "class", class, "error", err)
		return goerror.NewServer(err)
	}

	if !d.Allowed {
		slog.WarnContext(ctx, "otp request throttled", "phone", phone, "class", class, "retry_after", d.RetryAfter)
		secs := int64(math.Ceil(d.RetryAfter.Seconds()))
		return goerror.NewTooManyRequests(fmt.Sprintf("Request was throttled. Expected available in %d seconds.", secs), d.RetryAfter)
	}

	return nil
}

// dispatchOTP hands the code to the notifier without waiting on it.
func (s *Usecase) dispatchOTP(ctx context.Context, phone, code string, purpose otp.Purpose) {
	ev := OTPDispatchEvent{
		ID:          s.uuid.Generate(),
		Phone:       phone,
		Code:        code,
		Purpose:     purpose,
		RequestedAt: s.clock.Now(),
	}

	s.goroutine.Go(context.WithoutCancel(ctx), "identity.otp_dispatch", func(ctx context.Context) error {
		return s.repoMessaging.PublishOTPDispatch(ctx, ev)
	})
}

// consumeOTP marks code as used. A false result means it was already used.
func (s *Usecase) consumeOTP(ctx context.Context, key string) (bool, error) {
	ok, err := s.repoCache.ConsumeOTP(ctx, key, s.otp.ValidFor())
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo consume otp", "error", err)
		return false, goerror.NewServer(err)
	}

	return ok, nil
}

// releaseOTP gives a consumed code back after a server-side failure so the
// caller can retry with it.
func (s *Usecase) releaseOTP(ctx context.Context, key string) {
	if err := s.repoCache.ReleaseOTP(context.WithoutCancel(ctx), key); err != nil {
		slog.ErrorContext(ctx, "failed to repo release otp", "error", err)
	}
}

func otpConsumedKey(purpose otp.Purpose, phone, subject, code string) string {
	return strings.Join([]string{"otp", "consumed", purpose.String(), phone, subject, code}, ":")
}
