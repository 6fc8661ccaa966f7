package entity

import "time"

// RefreshToken is a persisted refresh token. Token holds the HMAC digest,
// never the value handed to the client.
type RefreshToken struct {
	ID                int64
	UserID            int64
	Token             string
	ExpiresAt         time.Time
	RevokedAt         *time.Time
	ReplacedByTokenID *int64
	CreatedAt         time.Time
}

// Revoked reports whether the token can no longer mint.
func (r RefreshToken) Revoked() bool {
	return r.RevokedAt != nil
}

// Rotated reports whether the token was revoked by a refresh, so presenting
// it again means it leaked.
func (r RefreshToken) Rotated() bool {
	return r.RevokedAt != nil && r.ReplacedByTokenID != nil
}

// Expired reports whether the token is past its expiry at now.
func (r RefreshToken) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// UserRefreshToken is a refresh token joined with its owner.
type UserRefreshToken struct {
	RefreshToken
	UserPhone    string
	UserIsActive bool
}

// RotateRefreshToken revokes OldID in favor of a new token row.
type RotateRefreshToken struct {
	OldID        int64
	NewID        int64
	UserID       int64
	NewToken     string
	NewExpiresAt time.Time
	RotatedAt    time.Time
}
