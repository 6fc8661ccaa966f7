package sms

import (
	"errors"
	"fmt"
	"strings"
)

// Driver names accepted by NewFromDriver.
const (
	DriverLog  = "log"
	DriverHTTP = "http"
)

// ErrUnknownDriver indicates an unsupported sms driver.
var ErrUnknownDriver = errors.New("sms: unknown driver")

// NewFromDriver builds a Sender by name. An empty name selects the log driver.
func NewFromDriver(driver string, cfg GatewayConfig) (Sender, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverLog:
		return NewLog(cfg.From), nil
	case DriverHTTP:
		return NewGateway(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}
