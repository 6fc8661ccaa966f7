package entity

import (
	"strings"
	"time"
)

// User is an identity keyed by its phone number.
type User struct {
	ID          int64
	Phone       string
	FirstName   string
	LastName    string
	IsActive    bool
	IsStaff     bool
	IsAdmin     bool
	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FullName is "First Last" with each part capitalized, or "" unless both
// names are set.
func (u User) FullName() string {
	if u.FirstName == "" || u.LastName == "" {
		return ""
	}
	return capitalize(u.FirstName) + " " + capitalize(u.LastName)
}

func capitalize(s string) string {
	s = strings.ToLower(s)
	for i, r := range s {
		return strings.ToUpper(string(r)) + s[i+len(string(r)):]
	}
	return s
}
