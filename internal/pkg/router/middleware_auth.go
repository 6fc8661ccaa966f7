package router

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/shandysiswandi/phoneauth/internal/pkg/jwt"
)

// Cookie and header names shared with the identity endpoints.
const (
	CookieAccessToken  = "access_token"
	CookieRefreshToken = "refresh_token"
	CookieCSRFToken    = "csrftoken"
	HeaderCSRFToken    = "X-CSRFToken"
)

type authConfig struct {
	verifier    jwt.JWT
	public      map[string]map[string]struct{}
	csrfEnabled bool
}

func (c authConfig) isPublic(method, path string) bool {
	paths, ok := c.public[method]
	if !ok {
		return false
	}
	_, ok = paths[path]
	return ok
}

// accessToken prefers the Authorization header and falls back to the cookie.
func accessToken(r *http.Request) (token string, fromCookie bool) {
	if p := strings.Fields(r.Header.Get("Authorization")); len(p) == 2 && strings.EqualFold(p[0], "Bearer") {
		return p[1], false
	}
	if c, err := r.Cookie(CookieAccessToken); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

func validCSRF(r *http.Request) bool {
	c, err := r.Cookie(CookieCSRFToken)
	if err != nil || c.Value == "" {
		return false
	}
	header := r.Header.Get(HeaderCSRFToken)
	return header != "" && subtle.ConstantTimeCompare([]byte(header), []byte(c.Value)) == 1
}

// middlewareAuthentication verifies the access token. Public endpoints still
// get claims in the context when a valid token is sent, so they can refuse
// callers that are already logged in. Cookie-authenticated unsafe requests
// must pass the double-submit CSRF check.
func middlewareAuthentication(cfg authConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			public := cfg.isPublic(r.Method, matchedRoutePath(r))
			token, fromCookie := accessToken(r)

			if token == "" {
				if public {
					next.ServeHTTP(w, r)
					return
				}
				writeJSON(w, errorResponse{Message: "Authentication credentials were not provided."}, http.StatusUnauthorized)
				return
			}

			claims, err := cfg.verifier.Verify(token)
			if err != nil {
				if public {
					next.ServeHTTP(w, r)
					return
				}
				writeJSON(w, errorResponse{Message: "Invalid or expired token"}, http.StatusUnauthorized)
				return
			}

			if !public && fromCookie && cfg.csrfEnabled && !safeMethod(r.Method) && !validCSRF(r) {
				writeJSON(w, errorResponse{Message: "CSRF Failed: CSRF token missing or incorrect."}, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(jwt.SetAuth(r.Context(), claims)))
		})
	}
}
