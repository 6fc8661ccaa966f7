package hash

import "testing"

func TestHMACSHA256(t *testing.T) {
	// Arrange
	h, err := NewHMACSHA256([]byte("refresh-secret"))
	if err != nil {
		t.Fatalf("NewHMACSHA256() error = %v", err)
	}

	// Act
	digest, err := h.Hash("token-value")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	// Assert
	if len(digest) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(digest))
	}
	if !h.Verify(string(digest), "token-value") {
		t.Fatalf("Verify() rejected matching digest")
	}
	if h.Verify(string(digest), "other-value") {
		t.Fatalf("Verify() accepted mismatched plaintext")
	}

	again, _ := h.Hash("token-value")
	if string(again) != string(digest) {
		t.Fatalf("digest is not deterministic")
	}
}

func TestHMACSHA256_DifferentKeys(t *testing.T) {
	a, _ := NewHMACSHA256([]byte("a"))
	b, _ := NewHMACSHA256([]byte("b"))

	da, _ := a.Hash("x")
	if b.Verify(string(da), "x") {
		t.Fatalf("digest from another key must not verify")
	}
}

func TestNewHMACSHA256_EmptySecret(t *testing.T) {
	if _, err := NewHMACSHA256(nil); err != ErrEmptySecret {
		t.Fatalf("expected ErrEmptySecret, got %v", err)
	}
}
