package sms

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/samber/lo"
	"github.com/shandysiswandi/phoneauth/internal/pkg/instrument"
	"go.uber.org/atomic"
)

// Log is a Sender for development: it writes the recipient to the log and
// accepts every message. The text is not logged because it carries codes.
type Log struct {
	from string
	seq  atomic.Int64
}

// NewLog constructs the log driver.
func NewLog(from string) *Log {
	return &Log{from: from}
}

func (l *Log) Send(ctx context.Context, msg Message) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	if err := msg.validate(); err != nil {
		return Receipt{}, err
	}

	id := "log-" + strconv.FormatInt(l.seq.Inc(), 10)
	slog.InfoContext(ctx, "sms accepted by log driver",
		"id", id,
		"from", lo.CoalesceOrEmpty(msg.From, l.from),
		"to", instrument.MaskPhone(msg.To),
		"length", len(msg.Text),
	)

	return Receipt{ProviderID: id, Response: map[string]any{"driver": "log"}}, nil
}

func (l *Log) Close() error { return nil }
