package inbound

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var errOTPFormat = errors.New("otp must be a string or a non-negative integer")

// otpCode accepts "012345" as well as 12345; numbers are zero padded to six
// digits.
type otpCode string

func (c *otpCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = otpCode(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errOTPFormat
	}
	i, err := n.Int64()
	if err != nil || i < 0 {
		return errOTPFormat
	}
	*c = otpCode(fmt.Sprintf("%06d", i))
	return nil
}

type withCookies struct {
	cookies []*http.Cookie
}

func (w withCookies) Cookies() []*http.Cookie { return w.cookies }

type RequestOTPRequest struct {
	Phone string `json:"phone"`
}

type RequestOTPResponse struct {
	Created bool   `json:"created"`
	OTP     string `json:"otp,omitempty"`
}

func (RequestOTPResponse) Message() string {
	return "OTP has been sent to your phone."
}

type VerifyOTPRequest struct {
	Phone string  `json:"phone"`
	OTP   otpCode `json:"otp"`
}

type VerifyOTPResponse struct {
	withCookies
	Created bool   `json:"created"`
	Phone   string `json:"phone"`
}

func (VerifyOTPResponse) Message() string {
	return "User verified successfully"
}

func (r VerifyOTPResponse) StatusCode() int {
	if r.Created {
		return http.StatusCreated
	}
	return http.StatusOK
}

type RefreshTokenResponse struct {
	withCookies
}

func (RefreshTokenResponse) Message() string {
	return "Tokens have been successfully refreshed."
}

type LogoutResponse struct {
	withCookies
}

func (LogoutResponse) Message() string {
	return "Successfully logged out."
}

type CSRFTokenResponse struct {
	withCookies
	Token string `json:"token"`
}

type PhoneChangeRequestRequest struct {
	Phone string `json:"phone"`
}

type PhoneChangeRequestResponse struct {
	OTP string `json:"otp,omitempty"`
}

func (PhoneChangeRequestResponse) Message() string {
	return "OTP has been sent to your new phone."
}

type PhoneChangeVerifyRequest struct {
	Phone string  `json:"phone"`
	OTP   otpCode `json:"otp"`
}

type PhoneChangeVerifyResponse struct {
	Detail string `json:"detail"`
	Phone  string `json:"phone"`
}

func (r PhoneChangeVerifyResponse) Message() string {
	return r.Detail
}

type ProfileResponse struct {
	ID          string     `json:"id"`
	Phone       string     `json:"phone"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	FullName    string     `json:"full_name"`
	IsStaff     bool       `json:"is_staff"`
	LastLoginAt *time.Time `json:"last_login_at"`
	DateJoined  time.Time  `json:"date_joined"`
}
