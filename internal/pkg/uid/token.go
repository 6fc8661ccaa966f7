package uid

import (
	"crypto/rand"
	"encoding/hex"
)

// TokenSize is the number of random bytes in a Token, giving 64 hex chars.
const TokenSize = 32

// Token generates unguessable hex strings for bearer secrets such as refresh
// tokens.
type Token struct{}

// NewToken returns a Token generator.
func NewToken() *Token {
	return &Token{}
}

// Generate returns TokenSize random bytes, hex encoded. crypto/rand.Read
// never returns an error on supported platforms.
func (*Token) Generate() string {
	var raw [TokenSize]byte
	_, _ = rand.Read(raw[:])
	return hex.EncodeToString(raw[:])
}

// IsToken reports whether s has the shape produced by Token.Generate.
func IsToken(s string) bool {
	if len(s) != hex.EncodedLen(TokenSize) {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
