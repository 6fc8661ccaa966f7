// Package jwt signs and verifies the short-lived access tokens handed to
// authenticated clients, and carries verified claims through a context.
package jwt
