package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrEmptySecret is returned when the HMAC key is empty.
var ErrEmptySecret = errors.New("hash: hmac secret is empty")

// HMACSHA256 is a Hash keyed with a server secret. Digests are hex encoded so
// they can be stored in text columns and used in equality lookups.
type HMACSHA256 struct {
	secret []byte
}

// NewHMACSHA256 returns an HMACSHA256 keyed with secret.
func NewHMACSHA256(secret []byte) (*HMACSHA256, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	return &HMACSHA256{secret: append([]byte(nil), secret...)}, nil
}

// Hash returns the hex encoded HMAC-SHA256 of str.
func (s *HMACSHA256) Hash(str string) ([]byte, error) {
	return s.sum(str), nil
}

// Verify reports whether hashed is the digest of str, in constant time.
func (s *HMACSHA256) Verify(hashed, str string) bool {
	return hmac.Equal([]byte(hashed), s.sum(str))
}

func (s *HMACSHA256) sum(str string) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(str))
	raw := mac.Sum(nil)

	out := make([]byte, hex.EncodedLen(len(raw)))
	hex.Encode(out, raw)
	return out
}
