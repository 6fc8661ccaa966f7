package inbound

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/phoneauth/internal/identity/outbound/cache"
	"github.com/shandysiswandi/phoneauth/internal/identity/outbound/memdb"
	"github.com/shandysiswandi/phoneauth/internal/identity/outbound/mq"
	"github.com/shandysiswandi/phoneauth/internal/identity/usecase"
	"github.com/shandysiswandi/phoneauth/internal/pkg/clock"
	"github.com/shandysiswandi/phoneauth/internal/pkg/config"
	"github.com/shandysiswandi/phoneauth/internal/pkg/goroutine"
	"github.com/shandysiswandi/phoneauth/internal/pkg/hash"
	"github.com/shandysiswandi/phoneauth/internal/pkg/instrument"
	"github.com/shandysiswandi/phoneauth/internal/pkg/jwt"
	"github.com/shandysiswandi/phoneauth/internal/pkg/messaging"
	"github.com/shandysiswandi/phoneauth/internal/pkg/otp"
	"github.com/shandysiswandi/phoneauth/internal/pkg/ratelimit"
	"github.com/shandysiswandi/phoneauth/internal/pkg/router"
	"github.com/shandysiswandi/phoneauth/internal/pkg/uid"
	"github.com/shandysiswandi/phoneauth/internal/pkg/validator"
)

const (
	phoneA = "+989123456789"
	phoneB = "+989123456780"
	code   = "123456"
)

type staticOTP struct{}

func (staticOTP) Generate(string, otp.Purpose) (string, error) { return code, nil }
func (staticOTP) Verify(_, c string, _ otp.Purpose) bool       { return c == code }
func (staticOTP) ValidFor() time.Duration                      { return 90 * time.Second }

type server struct {
	*httptest.Server
	db *memdb.DB
	mr *miniredis.Miniredis
}

func newServer(t *testing.T, cooldown time.Duration) *server {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg, err := config.NewViperFromBytes("yaml", []byte("app:\n  debug: true\n"))
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	clk := clock.New()
	ins := instrument.NewNoop()

	limiter, err := ratelimit.NewRedis(client, ratelimit.Config{Cooldown: cooldown, Window: time.Hour, Limit: 15}, clk, uid.NewUUID(), ins)
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
	hmac, _ := hash.NewHMACSHA256([]byte("refresh-secret"))
	v, _ := validator.NewV10Validator()
	sf, err := uid.NewSnowflake(1)
	if err != nil {
		t.Fatalf("NewSnowflake() error = %v", err)
	}

	broker := messaging.NewMemory(messaging.MemoryConfig{})
	gr := goroutine.NewManager(10)
	t.Cleanup(func() {
		_ = gr.Wait()
		_ = broker.Close()
	})

	db := memdb.New()
	uc := usecase.New(usecase.Dependency{
		RepoDB:        db,
		RepoCache:     cache.NewCache(client, ins),
		RepoMessaging: mq.NewMessaging(broker, ins),
		Limiter:       limiter,
		Validator:     v,
		Config:        cfg,
		HMAC:          hmac,
		UID:           sf,
		UUID:          uid.NewUUID(),
		Token:         uid.NewToken(),
		OTP:           staticOTP{},
		Clock:         clk,
		JWT:           signer,
		Instrument:    ins,
		Goroutine:     gr,
	})

	r := router.NewRouter(router.Config{Config: cfg, UUID: uid.NewUUID(), JWT: signer, Instrument: ins})
	RegisterHTTPEndpoint(r, uc, cfg)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &server{Server: srv, db: db, mr: mr}
}

type envelope struct {
	Message string            `json:"message"`
	Error   map[string]string `json:"error"`
	Data    map[string]any    `json:"data"`
}

type browser struct {
	t    *testing.T
	srv  *server
	http *http.Client
}

func (s *server) browser(t *testing.T) *browser {
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &browser{t: t, srv: s, http: &http.Client{Jar: jar}}
}

func (b *browser) cookie(name string) string {
	u, _ := url.Parse(b.srv.URL + "/")
	for _, c := range b.http.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func (b *browser) do(method, path string, body any) (*http.Response, envelope) {
	b.t.Helper()

	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			b.t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, b.srv.URL+path, rd)
	if err != nil {
		b.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if csrf := b.cookie(router.CookieCSRFToken); csrf != "" {
		req.Header.Set(router.HeaderCSRFToken, csrf)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		b.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return resp, env
}

func (b *browser) expect(method, path string, body any, status int) envelope {
	b.t.Helper()

	resp, env := b.do(method, path, body)
	if resp.StatusCode != status {
		b.t.Fatalf("%s %s status = %d, want %d (message %q, error %v)", method, path, resp.StatusCode, status, env.Message, env.Error)
	}
	return env
}

func TestHTTP_LoginThenReturningLogin(t *testing.T) {
	// Arrange
	srv := newServer(t, time.Millisecond)
	b := srv.browser(t)

	// Act
	env := b.expect(http.MethodPost, "/api/accounts/auth/otp/request/", map[string]any{"phone": phoneA}, http.StatusOK)
	if env.Data["created"] != true || env.Data["otp"] != code {
		t.Fatalf("request data = %v", env.Data)
	}

	// Assert
	env = b.expect(http.MethodPost, "/api/accounts/auth/otp/verify/", map[string]any{"phone": phoneA, "otp": 123456}, http.StatusCreated)
	if env.Message != "User verified successfully" || env.Data["created"] != true || env.Data["phone"] != phoneA {
		t.Fatalf("verify envelope = %+v", env)
	}
	if b.cookie(router.CookieAccessToken) == "" || b.cookie(router.CookieCSRFToken) == "" {
		t.Fatalf("session cookies missing")
	}

	env = b.expect(http.MethodGet, "/api/accounts/user/profile/", nil, http.StatusOK)
	if env.Data["phone"] != phoneA {
		t.Fatalf("profile = %v", env.Data)
	}

	b.expect(http.MethodPost, "/api/accounts/auth/otp/request/", map[string]any{"phone": phoneA}, http.StatusForbidden)
	b.expect(http.MethodPost, "/api/accounts/auth/logout/", nil, http.StatusOK)
	if b.cookie(router.CookieAccessToken) != "" {
		t.Fatalf("access cookie survived logout")
	}
	b.expect(http.MethodPost, "/api/accounts/auth/logout/", nil, http.StatusUnauthorized)

	// the consumed code expires with its validity window
	srv.mr.FastForward(91 * time.Second)

	other := srv.browser(t)
	env = other.expect(http.MethodPost, "/api/accounts/auth/otp/request/", map[string]any{"phone": phoneA}, http.StatusOK)
	if env.Data["created"] != false {
		t.Fatalf("request created = %v, want false", env.Data["created"])
	}
	env = other.expect(http.MethodPost, "/api/accounts/auth/otp/verify/", map[string]any{"phone": phoneA, "otp": code}, http.StatusOK)
	if env.Data["created"] != false {
		t.Fatalf("verify created = %v, want false", env.Data["created"])
	}
}

func TestHTTP_ChangePhone(t *testing.T) {
	// Arrange
	srv := newServer(t, time.Millisecond)
	b := srv.browser(t)
	b.expect(http.MethodPost, "/api/accounts/auth/otp/verify/", map[string]any{"phone": phoneA, "otp": code}, http.StatusCreated)

	// Act
	env := b.expect(http.MethodPost, "/api/accounts/user/phone/change/request/", map[string]any{"phone": phoneB}, http.StatusOK)
	if env.Data["otp"] != code {
		t.Fatalf("change request data = %v", env.Data)
	}

	// Assert
	env = b.expect(http.MethodPost, "/api/accounts/user/phone/change/verify/", map[string]any{"phone": phoneB, "otp": "000000"}, http.StatusBadRequest)
	if env.Error["otp"] != "Invalid OTP provided for phone change. Please try again." {
		t.Fatalf("wrong code error = %v", env.Error)
	}
	env = b.expect(http.MethodGet, "/api/accounts/user/profile/", nil, http.StatusOK)
	if env.Data["phone"] != phoneA {
		t.Fatalf("phone changed by a wrong code: %v", env.Data["phone"])
	}

	env = b.expect(http.MethodPost, "/api/accounts/user/phone/change/verify/", map[string]any{"phone": phoneB, "otp": code}, http.StatusOK)
	if env.Message != "Your phone number has been changed successfully." || env.Data["detail"] != env.Message {
		t.Fatalf("change verify envelope = %+v", env)
	}
	env = b.expect(http.MethodGet, "/api/accounts/user/profile/", nil, http.StatusOK)
	if env.Data["phone"] != phoneB {
		t.Fatalf("profile phone = %v, want %s", env.Data["phone"], phoneB)
	}
	if u, err := srv.db.GetUserByPhone(context.Background(), phoneA); err == nil {
		t.Fatalf("old phone still held by user %d", u.ID)
	}
}

func TestHTTP_RefreshRotatesCookies(t *testing.T) {
	// Arrange
	srv := newServer(t, time.Millisecond)
	b := srv.browser(t)
	b.expect(http.MethodPost, "/api/accounts/auth/otp/verify/", map[string]any{"phone": phoneA, "otp": code}, http.StatusCreated)

	u, _ := url.Parse(srv.URL + "/api/accounts/auth/")
	refreshOf := func() string {
		for _, c := range b.http.Jar.Cookies(u) {
			if c.Name == router.CookieRefreshToken {
				return c.Value
			}
		}
		return ""
	}
	before := refreshOf()

	// Act
	env := b.expect(http.MethodPost, "/api/accounts/auth/token/refresh/", nil, http.StatusOK)

	// Assert
	if env.Message != "Tokens have been successfully refreshed." {
		t.Fatalf("message = %q", env.Message)
	}
	if after := refreshOf(); after == "" || after == before {
		t.Fatalf("refresh cookie not rotated")
	}

	anon := srv.browser(t)
	anon.expect(http.MethodPost, "/api/accounts/auth/token/refresh/", nil, http.StatusForbidden)
}

func TestHTTP_Throttled(t *testing.T) {
	// Arrange
	srv := newServer(t, 2*time.Minute)
	b := srv.browser(t)
	b.expect(http.MethodPost, "/api/accounts/auth/otp/request/", map[string]any{"phone": phoneA}, http.StatusOK)

	// Act
	resp, env := b.do(http.MethodPost, "/api/accounts/auth/otp/request/", map[string]any{"phone": phoneA})

	// Assert
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" || !strings.HasPrefix(env.Message, "Request was throttled.") {
		t.Fatalf("retry-after %q, message %q", resp.Header.Get("Retry-After"), env.Message)
	}
}

func TestHTTP_CSRFToken(t *testing.T) {
	// Arrange
	srv := newServer(t, time.Millisecond)
	b := srv.browser(t)

	// Act
	first := b.expect(http.MethodGet, "/api/accounts/auth/csrf/", nil, http.StatusOK)
	second := b.expect(http.MethodGet, "/api/accounts/auth/csrf/", nil, http.StatusOK)

	// Assert
	if first.Data["token"] == "" || first.Data["token"] != second.Data["token"] {
		t.Fatalf("tokens = %v, %v, want a stable token", first.Data["token"], second.Data["token"])
	}
	if b.cookie(router.CookieCSRFToken) != first.Data["token"] {
		t.Fatalf("csrf cookie does not match body")
	}
}

func TestOTPCode_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: `"123456"`, want: "123456"},
		{in: `123456`, want: "123456"},
		{in: `12345`, want: "012345"},
		{in: `-1`, wantErr: true},
		{in: `1.5`, wantErr: true},
		{in: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			// Arrange
			var c otpCode

			// Act
			err := json.Unmarshal([]byte(tt.in), &c)

			// Assert
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && string(c) != tt.want {
				t.Fatalf("Unmarshal(%s) = %q, want %q", tt.in, c, tt.want)
			}
		})
	}
}
