package inbound

import (
	"context"

	"github.com/shandysiswandi/phoneauth/internal/identity/usecase"
	"github.com/shandysiswandi/phoneauth/internal/pkg/config"
	"github.com/shandysiswandi/phoneauth/internal/pkg/router"
)

type uc interface {
	RequestOTP(ctx context.Context, in usecase.RequestOTPInput) (*usecase.RequestOTPOutput, error)
	VerifyOTP(ctx context.Context, in usecase.VerifyOTPInput) (*usecase.VerifyOTPOutput, error)
	RefreshToken(ctx context.Context, in usecase.RefreshTokenInput) (*usecase.RefreshTokenOutput, error)
	Logout(ctx context.Context, in usecase.LogoutInput) error
	CSRFToken(ctx context.Context, in usecase.CSRFTokenInput) (*usecase.CSRFTokenOutput, error)

	PhoneChangeRequest(ctx context.Context, in usecase.PhoneChangeRequestInput) (*usecase.PhoneChangeRequestOutput, error)
	PhoneChangeVerify(ctx context.Context, in usecase.PhoneChangeVerifyInput) (*usecase.PhoneChangeVerifyOutput, error)
	Profile(ctx context.Context) (*usecase.ProfileOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc, cfg config.Config) {
	end := &HTTPEndpoint{uc: uc, cookie: newCookieConfig(cfg)}

	// Auth
	r.POST("/api/accounts/auth/otp/request/", end.RequestOTP)
	r.POST("/api/accounts/auth/otp/verify/", end.VerifyOTP)
	r.POST("/api/accounts/auth/token/refresh/", end.RefreshToken)
	r.POST("/api/accounts/auth/logout/", end.Logout) // need authenticated
	r.GET("/api/accounts/auth/csrf/", end.CSRFToken)

	// User (need authenticated)
	r.POST("/api/accounts/user/phone/change/request/", end.PhoneChangeRequest)
	r.POST("/api/accounts/user/phone/change/verify/", end.PhoneChangeVerify)
	r.GET("/api/accounts/user/profile/", end.Profile)
}
