package messaging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/atomic"
)

// ErrBacklogFull is returned when a topic without consumers has buffered as
// many messages as it can hold.
var ErrBacklogFull = errors.New("messaging: memory backlog is full")

const defaultMemoryGroup = "default"

// MemoryConfig configures the in-process broker.
type MemoryConfig struct {
	// Buffer is the queue size of each consumer group and of the backlog kept
	// for topics nobody consumes yet. Defaults to 256.
	Buffer int
	// MaxAttempts bounds redeliveries after a nack. Defaults to 5.
	MaxAttempts int
}

// Memory is a channel based broker living inside the process. Delivery is at
// least once within the process lifetime; nothing survives a restart.
type Memory struct {
	buffer      int
	maxAttempts int

	seq     atomic.Uint64
	dropped atomic.Int64

	mu     sync.Mutex
	topics map[string]*memoryTopic
	closed bool
	done   chan struct{}
}

type memoryTopic struct {
	groups  map[string]chan memoryEnvelope
	backlog []memoryEnvelope
}

type memoryEnvelope struct {
	id        string
	topic     string
	body      []byte
	key       []byte
	headers   map[string]string
	timestamp time.Time
	attempt   int
}

// NewMemory constructs the in-process broker.
func NewMemory(cfg MemoryConfig) *Memory {
	return &Memory{
		buffer:      lo.Ternary(cfg.Buffer > 0, cfg.Buffer, 256),
		maxAttempts: lo.Ternary(cfg.MaxAttempts > 0, cfg.MaxAttempts, 5),
		topics:      map[string]*memoryTopic{},
		done:        make(chan struct{}),
	}
}

// Dropped is the number of messages given up after MaxAttempts.
func (m *Memory) Dropped() int64 {
	return m.dropped.Load()
}

// Close stops every consumer. Pending messages are discarded.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

func (m *Memory) topic(name string) *memoryTopic {
	t, ok := m.topics[name]
	if !ok {
		t = &memoryTopic{groups: map[string]chan memoryEnvelope{}}
		m.topics[name] = t
	}
	return t
}

// Publish hands the message to every group consuming topic. It blocks while a
// group queue is full.
func (m *Memory) Publish(ctx context.Context, topic string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if topic == "" {
		return PublishResult{}, ErrTopicRequired
	}
	if msg.Delay > 0 {
		return PublishResult{}, ErrUnsupported
	}

	env := memoryEnvelope{
		id:        strconv.FormatUint(m.seq.Inc(), 10),
		topic:     topic,
		body:      append([]byte(nil), msg.Body...),
		key:       append([]byte(nil), msg.Key...),
		headers:   outgoingHeaders(ctx, msg.Headers),
		timestamp: time.Now(),
	}
	result := PublishResult{MessageID: env.id, Topic: topic, Timestamp: env.timestamp}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return PublishResult{}, io.ErrClosedPipe
	}
	t := m.topic(topic)
	if len(t.groups) == 0 {
		defer m.mu.Unlock()
		if len(t.backlog) >= m.buffer {
			return PublishResult{}, ErrBacklogFull
		}
		t.backlog = append(t.backlog, env)
		return result, nil
	}
	queues := lo.Values(t.groups)
	m.mu.Unlock()

	for _, q := range queues {
		select {
		case q <- env:
		case <-ctx.Done():
			return PublishResult{}, ctx.Err()
		case <-m.done:
			return PublishResult{}, io.ErrClosedPipe
		}
	}

	return result, nil
}

// Consume reads topic as part of the configured group until ctx is canceled or
// the broker is closed. The first group created on a topic receives its backlog.
func (m *Memory) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrTopicRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}

	co := newConsumeOptions(opts...)
	group := lo.Ternary(co.group != "", co.group, defaultMemoryGroup)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return io.ErrClosedPipe
	}
	t := m.topic(topic)
	queue, ok := t.groups[group]
	if !ok {
		queue = make(chan memoryEnvelope, m.buffer)
		for _, env := range t.backlog {
			queue <- env
		}
		t.backlog = nil
		t.groups[group] = queue
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-m.done:
					return
				case env := <-queue:
					msg := &memoryMessage{env: env, requeue: func(e memoryEnvelope) { m.requeue(queue, e) }}
					if err := dispatch(ctx, "memory", handler, msg, co.autoAck); err != nil {
						slog.ErrorContext(ctx, "failed to settle memory message", "topic", topic, "error", err)
					}
				}
			}
		})
	}
	wg.Wait()

	return ctx.Err()
}

func (m *Memory) requeue(queue chan memoryEnvelope, env memoryEnvelope) {
	env.attempt++
	if env.attempt >= m.maxAttempts {
		m.dropped.Inc()
		slog.Warn("memory message dropped after max attempts", "topic", env.topic, "message_id", env.id, "attempts", env.attempt)
		return
	}

	go func() {
		select {
		case queue <- env:
		case <-m.done:
		}
	}()
}

type memoryMessage struct {
	settlement
	env     memoryEnvelope
	requeue func(memoryEnvelope)
}

func (m *memoryMessage) ID() string                 { return m.env.id }
func (m *memoryMessage) Topic() string              { return m.env.topic }
func (m *memoryMessage) Body() []byte               { return m.env.body }
func (m *memoryMessage) Key() []byte                { return m.env.key }
func (m *memoryMessage) Headers() map[string]string { return m.env.headers }
func (m *memoryMessage) Timestamp() time.Time       { return m.env.timestamp }

func (m *memoryMessage) Ack(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.claim()
	return nil
}

func (m *memoryMessage) Nack(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.claim() {
		m.requeue(m.env)
	}
	return nil
}
