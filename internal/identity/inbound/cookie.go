package inbound

import (
	"net/http"
	"time"

	"github.com/shandysiswandi/phoneauth/internal/identity/usecase"
	"github.com/shandysiswandi/phoneauth/internal/pkg/config"
	"github.com/shandysiswandi/phoneauth/internal/pkg/router"
)

const csrfCookieTTL = 365 * 24 * time.Hour

type cookieConfig struct {
	domain      string
	secure      bool
	refreshPath string
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

func newCookieConfig(cfg config.Config) cookieConfig {
	return cookieConfig{
		domain:      cfg.GetString("modules.identity.cookie.domain"),
		secure:      cfg.GetBool("modules.identity.cookie.secure"),
		refreshPath: cfg.GetString("modules.identity.cookie.refresh_path"),
		accessTTL:   cfg.GetMinute("jwt.access_ttl_minutes"),
		refreshTTL:  cfg.GetDay("jwt.refresh_ttl_days"),
	}
}

func (c cookieConfig) build(name, value, path string, expires time.Time, ttl time.Duration, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   c.domain,
		Expires:  expires,
		MaxAge:   int(ttl.Seconds()),
		Secure:   c.secure,
		HttpOnly: httpOnly,
		SameSite: http.SameSiteLaxMode,
	}
}

func (c cookieConfig) csrf(token string) *http.Cookie {
	return c.build(router.CookieCSRFToken, token, "/", time.Time{}, csrfCookieTTL, false)
}

// session sets the access and refresh cookies, plus the csrf cookie when the
// session rotated it.
func (c cookieConfig) session(sess usecase.Session) []*http.Cookie {
	out := []*http.Cookie{
		c.build(router.CookieAccessToken, sess.AccessToken, "/", sess.AccessExpiresAt, c.accessTTL, true),
		c.build(router.CookieRefreshToken, sess.RefreshToken, c.refreshPath, sess.RefreshExpiresAt, c.refreshTTL, true),
	}
	if sess.CSRFToken != "" {
		out = append(out, c.csrf(sess.CSRFToken))
	}
	return out
}

func (c cookieConfig) clear() []*http.Cookie {
	expire := func(name, path string, httpOnly bool) *http.Cookie {
		ck := c.build(name, "", path, time.Unix(0, 0), 0, httpOnly)
		ck.MaxAge = -1
		return ck
	}

	return []*http.Cookie{
		expire(router.CookieAccessToken, "/", true),
		expire(router.CookieRefreshToken, c.refreshPath, true),
		expire(router.CookieCSRFToken, "/", false),
	}
}
