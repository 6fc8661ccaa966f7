package hash

// Hash produces a deterministic keyed digest and checks plaintext against it.
type Hash interface {
	Hash(str string) ([]byte, error)
	Verify(hashed, str string) bool
}
