// Package otp issues and verifies short numeric codes that prove control of a
// phone number.
//
// No code is stored. Each (phone, purpose) pair gets its own TOTP key derived
// from one server secret, so the same time step yields unrelated codes for
// different phones or purposes. Verification accepts the current step and W
// steps on either side.
package otp
