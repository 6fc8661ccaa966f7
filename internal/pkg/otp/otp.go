package otp

import (
	"crypto/sha256"
	"encoding/base32"
	"errors"
	"io"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/shandysiswandi/phoneauth/internal/pkg/clock"
	"golang.org/x/crypto/hkdf"
)

// MaxValidWindow bounds how many steps either side of now are accepted.
const MaxValidWindow = 5

const (
	defaultPeriod = 30
	keySize       = 20
	minSecretSize = 32
)

var (
	ErrSecretTooShort   = errors.New("otp: server secret must be at least 32 bytes")
	ErrWindowOutOfRange = errors.New("otp: valid window must be between 0 and 5")
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// Purpose separates the contexts a code can be used in. A code issued for one
// purpose never verifies for another.
type Purpose string

const (
	PurposeAuth        Purpose = "AUTH"
	PurposeChangePhone Purpose = "CHANGE_PHONE"
)

func (p Purpose) String() string {
	return string(p)
}

// OTP is what the auth flow needs from the engine.
type OTP interface {
	Generate(phone string, purpose Purpose) (string, error)
	Verify(phone, code string, purpose Purpose) bool
	ValidFor() time.Duration
}

// Config builds an Engine. A zero Period means 30 seconds.
type Config struct {
	Secret      []byte
	Period      uint
	ValidWindow uint
	Clock       clock.Clocker
}

// Engine derives TOTP codes per (phone, purpose).
type Engine struct {
	secret []byte
	opts   totp.ValidateOpts
	clock  clock.Clocker
}

// NewEngine validates cfg and returns an Engine.
func NewEngine(cfg Config) (*Engine, error) {
	if len(cfg.Secret) < minSecretSize {
		return nil, ErrSecretTooShort
	}
	if cfg.ValidWindow > MaxValidWindow {
		return nil, ErrWindowOutOfRange
	}
	if cfg.Period == 0 {
		cfg.Period = defaultPeriod
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	return &Engine{
		secret: append([]byte(nil), cfg.Secret...),
		opts: totp.ValidateOpts{
			Period:    cfg.Period,
			Skew:      cfg.ValidWindow,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		},
		clock: cfg.Clock,
	}, nil
}

// Generate returns the code for phone and purpose at the current step.
func (e *Engine) Generate(phone string, purpose Purpose) (string, error) {
	return e.GenerateAt(phone, purpose, e.clock.Now())
}

// GenerateAt returns the code for phone and purpose at the step containing at.
func (e *Engine) GenerateAt(phone string, purpose Purpose, at time.Time) (string, error) {
	key, err := e.deriveKey(phone, purpose)
	if err != nil {
		return "", err
	}

	return totp.GenerateCodeCustom(key, at, e.opts)
}

// Verify reports whether code is valid for phone and purpose now.
func (e *Engine) Verify(phone, code string, purpose Purpose) bool {
	return e.VerifyAt(phone, code, purpose, e.clock.Now())
}

// VerifyAt reports whether code matches any step in [T-W, T+W] where T is the
// step containing at.
func (e *Engine) VerifyAt(phone, code string, purpose Purpose, at time.Time) bool {
	key, err := e.deriveKey(phone, purpose)
	if err != nil {
		return false
	}

	ok, err := totp.ValidateCustom(code, key, at.UTC(), e.opts)
	return ok && err == nil
}

// ValidFor is the longest time a single code can keep verifying.
func (e *Engine) ValidFor() time.Duration {
	steps := 2*e.opts.Skew + 1
	return time.Duration(steps*e.opts.Period) * time.Second
}

// deriveKey expands the server secret into a base32 TOTP key bound to the
// purpose and phone.
func (e *Engine) deriveKey(phone string, purpose Purpose) (string, error) {
	info := make([]byte, 0, len(purpose)+1+len(phone))
	info = append(info, string(purpose)...)
	info = append(info, 0)
	info = append(info, phone...)

	raw := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, e.secret, nil, info), raw); err != nil {
		return "", err
	}

	return b32.EncodeToString(raw), nil
}
