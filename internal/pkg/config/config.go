// Package config exposes typed access to the service configuration.
package config

import (
	"io"
	"time"
)

// Config reads typed configuration values by dotted key. Missing keys yield
// the zero value unless a default is registered.
type Config interface {
	io.Closer

	GetSecond(key string) time.Duration
	GetMinute(key string) time.Duration
	GetDay(key string) time.Duration

	GetInt(key string) int
	GetInt64(key string) int64
	GetFloat64(key string) float64
	GetBool(key string) bool
	GetString(key string) string

	// GetBinary decodes a base64 value.
	GetBinary(key string) []byte

	// GetArray splits a comma separated value, dropping empty elements.
	GetArray(key string) []string
}
