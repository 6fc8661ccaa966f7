package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/phoneauth/internal/pkg/config"
	"github.com/shandysiswandi/phoneauth/internal/pkg/goerror"
	"github.com/shandysiswandi/phoneauth/internal/pkg/instrument"
	"github.com/shandysiswandi/phoneauth/internal/pkg/jwt"
	"github.com/shandysiswandi/phoneauth/internal/pkg/uid"
)

type stubJWT struct{}

func (stubJWT) Generate(int64, string) (string, error) { return "good", nil }
func (stubJWT) TTL() time.Duration                     { return time.Minute }

func (stubJWT) Verify(token string) (jwt.Claims, error) {
	if token != "good" {
		return jwt.Claims{}, jwt.ErrInvalidToken
	}
	return jwt.Claims{UserID: 7, UserPhone: "+989123456789"}, nil
}

type cookieResponse struct {
	Created bool `json:"created"`
}

func (cookieResponse) StatusCode() int { return http.StatusCreated }
func (cookieResponse) Message() string { return "User verified successfully" }
func (cookieResponse) Cookies() []*http.Cookie {
	return []*http.Cookie{{Name: CookieAccessToken, Value: "a", HttpOnly: true, Path: "/"}}
}

func newTestRouter(t *testing.T, yaml string) *Router {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml))
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	return NewRouter(Config{
		Config:     cfg,
		UUID:       uid.NewUUID(),
		JWT:        stubJWT{},
		Instrument: instrument.NewNoop(),
	})
}

type envelope struct {
	Message string            `json:"message"`
	Error   map[string]string `json:"error"`
	Data    map[string]any    `json:"data"`
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("invalid JSON body %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func TestRouter_Encoding(t *testing.T) {
	r := newTestRouter(t, "app:\n  name: test\n")
	r.POST("/api/accounts/auth/otp/verify/", func(*Request) (any, error) {
		return cookieResponse{Created: true}, nil
	})
	r.POST("/api/accounts/auth/otp/request/", func(*Request) (any, error) {
		return nil, goerror.NewTooManyRequests("Too many requests", 1500*time.Millisecond)
	})
	r.POST("/api/accounts/auth/token/refresh/", func(*Request) (any, error) {
		return nil, errors.New("driver: bad connection")
	})
	r.GET("/api/accounts/auth/csrf/", func(*Request) (any, error) {
		return nil, goerror.NewInvalidInput(nil, "otp", "Invalid OTP provided. Please try again.")
	})

	t.Run("success with cookies and status", func(t *testing.T) {
		rec, env := do(t, r, httptest.NewRequest(http.MethodPost, "/api/accounts/auth/otp/verify/", nil))

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d", rec.Code)
		}
		if env.Message != "User verified successfully" || env.Data["created"] != true {
			t.Fatalf("unexpected envelope %+v", env)
		}
		if !strings.Contains(rec.Header().Get("Set-Cookie"), "access_token=a") {
			t.Fatalf("cookie not set: %q", rec.Header().Get("Set-Cookie"))
		}
	})

	t.Run("rate limited sets retry-after", func(t *testing.T) {
		rec, _ := do(t, r, httptest.NewRequest(http.MethodPost, "/api/accounts/auth/otp/request/", nil))

		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("status = %d", rec.Code)
		}
		if got := rec.Header().Get("Retry-After"); got != "2" {
			t.Fatalf("Retry-After = %q", got)
		}
	})

	t.Run("plain error is hidden", func(t *testing.T) {
		rec, env := do(t, r, httptest.NewRequest(http.MethodPost, "/api/accounts/auth/token/refresh/", nil))

		if rec.Code != http.StatusInternalServerError || env.Message != "Internal server error" {
			t.Fatalf("got %d %+v", rec.Code, env)
		}
	})

	t.Run("field errors", func(t *testing.T) {
		rec, env := do(t, r, httptest.NewRequest(http.MethodGet, "/api/accounts/auth/csrf/", nil))

		if rec.Code != http.StatusBadRequest || env.Error["otp"] == "" {
			t.Fatalf("got %d %+v", rec.Code, env)
		}
	})
}

func TestRouter_Authentication(t *testing.T) {
	r := newTestRouter(t, "modules:\n  identity:\n    csrf:\n      enabled: true\n")
	r.POST("/api/accounts/user/phone/change/request/", func(req *Request) (any, error) {
		return map[string]any{"user_id": jwt.GetAuth(req.Context()).UserID}, nil
	})
	r.GET("/api/accounts/user/profile/", func(req *Request) (any, error) {
		return map[string]any{"user_id": jwt.GetAuth(req.Context()).UserID}, nil
	})
	r.POST("/api/accounts/auth/otp/request/", func(req *Request) (any, error) {
		return map[string]any{"authenticated": jwt.GetAuth(req.Context()) != nil}, nil
	})

	const protected = "/api/accounts/user/phone/change/request/"

	tests := []struct {
		name   string
		method string
		path   string
		setup  func(*http.Request)
		want   int
	}{
		{name: "no credentials", method: http.MethodPost, path: protected, want: http.StatusUnauthorized},
		{
			name: "bad token", method: http.MethodPost, path: protected, want: http.StatusUnauthorized,
			setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") },
		},
		{
			name: "bearer skips csrf", method: http.MethodPost, path: protected, want: http.StatusOK,
			setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") },
		},
		{
			name: "cookie without csrf", method: http.MethodPost, path: protected, want: http.StatusForbidden,
			setup: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieAccessToken, Value: "good"}) },
		},
		{
			name: "cookie with wrong csrf", method: http.MethodPost, path: protected, want: http.StatusForbidden,
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: CookieAccessToken, Value: "good"})
				r.AddCookie(&http.Cookie{Name: CookieCSRFToken, Value: "csrf-1"})
				r.Header.Set(HeaderCSRFToken, "csrf-2")
			},
		},
		{
			name: "cookie with csrf", method: http.MethodPost, path: protected, want: http.StatusOK,
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: CookieAccessToken, Value: "good"})
				r.AddCookie(&http.Cookie{Name: CookieCSRFToken, Value: "csrf-1"})
				r.Header.Set(HeaderCSRFToken, "csrf-1")
			},
		},
		{
			name: "cookie on safe method", method: http.MethodGet, path: "/api/accounts/user/profile/", want: http.StatusOK,
			setup: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieAccessToken, Value: "good"}) },
		},
		{name: "public anonymous", method: http.MethodPost, path: "/api/accounts/auth/otp/request/", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.setup != nil {
				tt.setup(req)
			}

			rec, _ := do(t, r, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	t.Run("public endpoint sees valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/accounts/auth/otp/request/", nil)
		req.AddCookie(&http.Cookie{Name: CookieAccessToken, Value: "good"})

		_, env := do(t, r, req)

		if env.Data["authenticated"] != true {
			t.Fatalf("expected claims on public endpoint, got %+v", env)
		}
	})
}

func TestRouter_Middleware(t *testing.T) {
	r := newTestRouter(t, "app:\n  maintenance:\n    endpoints: /api/accounts/auth/csrf/,/other/\n")
	r.GET("/api/accounts/auth/csrf/", func(*Request) (any, error) { return map[string]string{}, nil })
	r.POST("/api/accounts/auth/otp/request/", func(*Request) (any, error) { panic("boom") })

	t.Run("maintenance", func(t *testing.T) {
		rec, _ := do(t, r, httptest.NewRequest(http.MethodGet, "/api/accounts/auth/csrf/", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("panic recovered", func(t *testing.T) {
		rec, env := do(t, r, httptest.NewRequest(http.MethodPost, "/api/accounts/auth/otp/request/", nil))
		if rec.Code != http.StatusInternalServerError || env.Message != "Internal server error" {
			t.Fatalf("got %d %+v", rec.Code, env)
		}
	})

	t.Run("correlation id echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(instrument.CorrelationHeader, "cid-42")

		rec, _ := do(t, r, req)

		if rec.Header().Get(instrument.CorrelationHeader) != "cid-42" {
			t.Fatalf("correlation id not echoed: %v", rec.Header())
		}
	})

	t.Run("correlation id generated", func(t *testing.T) {
		rec, _ := do(t, r, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Header().Get(instrument.CorrelationHeader) == "" {
			t.Fatalf("correlation id not generated")
		}
	})

	t.Run("not found", func(t *testing.T) {
		rec, _ := do(t, r, httptest.NewRequest(http.MethodGet, "/nope", nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

func TestRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	if got := realIP(req); got != "10.0.0.9" {
		t.Fatalf("realIP() = %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := realIP(req); got != "203.0.113.7" {
		t.Fatalf("realIP() = %q", got)
	}
}
