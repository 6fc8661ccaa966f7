package inbound

import (
	"strconv"

	"github.com/shandysiswandi/phoneauth/internal/identity/usecase"
	"github.com/shandysiswandi/phoneauth/internal/pkg/router"
)

// HTTPEndpoint exposes the phone login, session and profile handlers.
type HTTPEndpoint struct {
	uc     uc
	cookie cookieConfig
}

// RequestOTP sends a login code to a phone.
// @Summary Request login OTP
// @Description Issues a one-time code for the phone and sends it by SMS. Only anonymous callers may ask.
// @Tags Accounts, Authentication
// @Accept json
// @Produce json
// @Param request body RequestOTPRequest true "Phone payload"
// @Success 200 {object} router.successResponse{data=RequestOTPResponse} "Code issued"
// @Failure 400 {object} router.errorResponse "Validation error"
// @Failure 403 {object} router.errorResponse "Already authenticated"
// @Failure 429 {object} router.errorResponse "Throttled, see Retry-After"
// @Router /api/accounts/auth/otp/request/ [post]
func (h *HTTPEndpoint) RequestOTP(r *router.Request) (any, error) {
	var req RequestOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.RequestOTP(r.Context(), usecase.RequestOTPInput{
		Phone:    req.Phone,
		ClientIP: r.ClientIP(),
	})
	if err != nil {
		return nil, err
	}

	return RequestOTPResponse{Created: resp.Created, OTP: resp.OTP}, nil
}

// VerifyOTP exchanges a login code for a session.
// @Summary Verify login OTP
// @Description Verifies the code, creates the identity on first login and sets the session cookies.
// @Tags Accounts, Authentication
// @Accept json
// @Produce json
// @Param request body VerifyOTPRequest true "Phone and code"
// @Success 200 {object} router.successResponse{data=VerifyOTPResponse} "Logged in"
// @Success 201 {object} router.successResponse{data=VerifyOTPResponse} "Registered and logged in"
// @Failure 400 {object} router.errorResponse "Invalid OTP"
// @Failure 403 {object} router.errorResponse "Already authenticated or disabled"
// @Router /api/accounts/auth/otp/verify/ [post]
func (h *HTTPEndpoint) VerifyOTP(r *router.Request) (any, error) {
	var req VerifyOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.VerifyOTP(r.Context(), usecase.VerifyOTPInput{
		Phone: req.Phone,
		OTP:   string(req.OTP),
	})
	if err != nil {
		return nil, err
	}

	return VerifyOTPResponse{
		withCookies: withCookies{cookies: h.cookie.session(resp.Session)},
		Created:     resp.Created,
		Phone:       resp.Phone,
	}, nil
}

// RefreshToken rotates the refresh cookie and issues a new access cookie.
// @Summary Refresh session
// @Tags Accounts, Authentication
// @Produce json
// @Success 200 {object} router.successResponse{data=RefreshTokenResponse} "Rotated"
// @Failure 401 {object} router.errorResponse "Invalid or expired refresh token"
// @Failure 403 {object} router.errorResponse "Missing cookie or reuse detected"
// @Router /api/accounts/auth/token/refresh/ [post]
func (h *HTTPEndpoint) RefreshToken(r *router.Request) (any, error) {
	resp, err := h.uc.RefreshToken(r.Context(), usecase.RefreshTokenInput{
		RefreshToken: r.GetCookie(router.CookieRefreshToken),
	})
	if err != nil {
		return nil, err
	}

	return RefreshTokenResponse{withCookies{cookies: h.cookie.session(resp.Session)}}, nil
}

// Logout revokes the refresh token and expires every session cookie.
// @Summary Logout
// @Tags Accounts, Authentication
// @Produce json
// @Success 200 {object} router.successResponse{data=LogoutResponse} "Logged out"
// @Failure 401 {object} router.errorResponse "Unauthenticated"
// @Router /api/accounts/auth/logout/ [post]
func (h *HTTPEndpoint) Logout(r *router.Request) (any, error) {
	if err := h.uc.Logout(r.Context(), usecase.LogoutInput{
		RefreshToken: r.GetCookie(router.CookieRefreshToken),
	}); err != nil {
		return nil, err
	}

	return LogoutResponse{withCookies{cookies: h.cookie.clear()}}, nil
}

// CSRFToken returns the double-submit token, setting the cookie when absent.
// @Summary CSRF token
// @Tags Accounts, Authentication
// @Produce json
// @Success 200 {object} router.successResponse{data=CSRFTokenResponse}
// @Router /api/accounts/auth/csrf/ [get]
func (h *HTTPEndpoint) CSRFToken(r *router.Request) (any, error) {
	resp, err := h.uc.CSRFToken(r.Context(), usecase.CSRFTokenInput{
		Current: r.GetCookie(router.CookieCSRFToken),
	})
	if err != nil {
		return nil, err
	}

	out := CSRFTokenResponse{Token: resp.Token}
	if resp.Issued {
		out.cookies = append(out.cookies, h.cookie.csrf(resp.Token))
	}

	return out, nil
}

// PhoneChangeRequest sends a change code to the new phone.
// @Summary Request phone change
// @Tags Accounts, User
// @Accept json
// @Produce json
// @Param request body PhoneChangeRequestRequest true "New phone"
// @Success 200 {object} router.successResponse{data=PhoneChangeRequestResponse}
// @Failure 400 {object} router.errorResponse "Phone already in use"
// @Failure 429 {object} router.errorResponse "Throttled"
// @Router /api/accounts/user/phone/change/request/ [post]
func (h *HTTPEndpoint) PhoneChangeRequest(r *router.Request) (any, error) {
	var req PhoneChangeRequestRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.PhoneChangeRequest(r.Context(), usecase.PhoneChangeRequestInput{
		Phone:    req.Phone,
		ClientIP: r.ClientIP(),
	})
	if err != nil {
		return nil, err
	}

	return PhoneChangeRequestResponse{OTP: resp.OTP}, nil
}

// PhoneChangeVerify moves the caller to the new phone.
// @Summary Verify phone change
// @Tags Accounts, User
// @Accept json
// @Produce json
// @Param request body PhoneChangeVerifyRequest true "New phone and code"
// @Success 200 {object} router.successResponse{data=PhoneChangeVerifyResponse}
// @Failure 400 {object} router.errorResponse "Invalid OTP or phone in use"
// @Router /api/accounts/user/phone/change/verify/ [post]
func (h *HTTPEndpoint) PhoneChangeVerify(r *router.Request) (any, error) {
	var req PhoneChangeVerifyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.PhoneChangeVerify(r.Context(), usecase.PhoneChangeVerifyInput{
		Phone: req.Phone,
		OTP:   string(req.OTP),
	})
	if err != nil {
		return nil, err
	}

	return PhoneChangeVerifyResponse{Detail: resp.Detail, Phone: resp.Phone}, nil
}

// Profile returns the caller's identity.
// @Summary Current user
// @Tags Accounts, User
// @Produce json
// @Success 200 {object} router.successResponse{data=ProfileResponse}
// @Failure 401 {object} router.errorResponse "Unauthenticated"
// @Router /api/accounts/user/profile/ [get]
func (h *HTTPEndpoint) Profile(r *router.Request) (any, error) {
	resp, err := h.uc.Profile(r.Context())
	if err != nil {
		return nil, err
	}

	return ProfileResponse{
		ID:          strconv.FormatInt(resp.ID, 10),
		Phone:       resp.Phone,
		FirstName:   resp.FirstName,
		LastName:    resp.LastName,
		FullName:    resp.FullName,
		IsStaff:     resp.IsStaff,
		LastLoginAt: resp.LastLoginAt,
		DateJoined:  resp.CreatedAt,
	}, nil
}
