package sms

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNoRecipient is returned when Message.To is empty.
	ErrNoRecipient = errors.New("sms: recipient is required")
	// ErrEmptyText is returned when Message.Text is empty.
	ErrEmptyText = errors.New("sms: text is required")
	// ErrRejected wraps a permanent refusal by the provider. Retrying the same
	// message will not help.
	ErrRejected = errors.New("sms: rejected by provider")
)

// Message is a single text message.
type Message struct {
	// From overrides the configured sender id when set.
	From string
	To   string
	Text string
}

func (m Message) validate() error {
	if m.To == "" {
		return ErrNoRecipient
	}
	if m.Text == "" {
		return ErrEmptyText
	}
	return nil
}

// Receipt is what the provider reported for an accepted message.
type Receipt struct {
	ProviderID string
	Response   map[string]any
}

// Sender delivers text messages.
type Sender interface {
	io.Closer
	Send(ctx context.Context, msg Message) (Receipt, error)
}
