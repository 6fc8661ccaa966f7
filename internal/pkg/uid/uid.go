// Package uid generates identifiers: UUIDv7 strings for events and
// correlation, snowflake integers for primary keys and random hex tokens for
// bearer secrets.
package uid

// StringID generates string identifiers.
type StringID interface {
	Generate() string
}

// NumberID generates int64 identifiers.
type NumberID interface {
	Generate() int64
}
