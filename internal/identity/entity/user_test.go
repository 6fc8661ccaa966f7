package entity

import (
	"testing"
	"time"
)

func TestUser_FullName(t *testing.T) {
	tests := []struct {
		name  string
		first string
		last  string
		want  string
	}{
		{name: "both", first: "ali", last: "REZAEI", want: "Ali Rezaei"},
		{name: "first only", first: "ali", want: ""},
		{name: "none", want: ""},
		{name: "multibyte", first: "élan", last: "öz", want: "Élan Öz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := User{FirstName: tt.first, LastName: tt.last}
			if got := u.FullName(); got != tt.want {
				t.Fatalf("FullName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRefreshToken_State(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	next := int64(2)

	active := RefreshToken{ExpiresAt: now.Add(time.Hour)}
	if active.Revoked() || active.Rotated() || active.Expired(now) {
		t.Fatalf("active token reported as unusable: %+v", active)
	}

	revoked := RefreshToken{ExpiresAt: now.Add(time.Hour), RevokedAt: &now}
	if !revoked.Revoked() || revoked.Rotated() {
		t.Fatalf("revoked token state wrong")
	}

	rotated := RefreshToken{ExpiresAt: now.Add(time.Hour), RevokedAt: &now, ReplacedByTokenID: &next}
	if !rotated.Rotated() {
		t.Fatalf("rotated token not detected")
	}

	if !active.Expired(now.Add(time.Hour)) {
		t.Fatalf("token must be expired at its expiry instant")
	}
}
