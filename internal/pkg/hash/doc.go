// Package hash computes keyed digests of secrets that are looked up later,
// such as refresh tokens. Only the digest is ever persisted.
package hash
