// Package clock abstracts the current time.
//
// The OTP engine, rate limiter and token issuer read time through Clocker so
// that window boundaries can be exercised deterministically with Manual.
package clock
