package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sethvargo/go-retry"
)

// ErrGatewayBaseURLRequired is returned when the gateway has no base URL.
var ErrGatewayBaseURLRequired = errors.New("sms: gateway base url is required")

// HeaderAPIKey carries the gateway credential.
const HeaderAPIKey = "X-API-Key"

// GatewayConfig configures the HTTP gateway driver.
type GatewayConfig struct {
	BaseURL    string
	APIKey     string
	From       string
	Timeout    time.Duration
	MaxRetries uint64
	// Backoff is the first retry delay. Defaults to 200ms.
	Backoff time.Duration
	Client  *http.Client
}

// Gateway posts messages as JSON to {BaseURL}/messages. Transport errors and
// 5xx answers are retried with a capped Fibonacci backoff; 4xx answers are
// returned as ErrRejected without retry.
type Gateway struct {
	endpoint   string
	apiKey     string
	from       string
	maxRetries uint64
	backoff    time.Duration
	client     *http.Client
}

type gatewayRequest struct {
	From string `json:"from,omitempty"`
	To   string `json:"to"`
	Text string `json:"text"`
}

// NewGateway constructs the HTTP gateway driver.
func NewGateway(cfg GatewayConfig) (*Gateway, error) {
	if cfg.BaseURL == "" {
		return nil, ErrGatewayBaseURLRequired
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: lo.Ternary(cfg.Timeout > 0, cfg.Timeout, 5*time.Second)}
	}

	return &Gateway{
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + "/messages",
		apiKey:     cfg.APIKey,
		from:       cfg.From,
		maxRetries: cfg.MaxRetries,
		backoff:    lo.Ternary(cfg.Backoff > 0, cfg.Backoff, 200*time.Millisecond),
		client:     client,
	}, nil
}

func (g *Gateway) Send(ctx context.Context, msg Message) (Receipt, error) {
	if err := msg.validate(); err != nil {
		return Receipt{}, err
	}

	payload, err := json.Marshal(gatewayRequest{
		From: lo.CoalesceOrEmpty(msg.From, g.from),
		To:   msg.To,
		Text: msg.Text,
	})
	if err != nil {
		return Receipt{}, err
	}

	b := retry.NewFibonacci(g.backoff)
	b = retry.WithCappedDuration(5*time.Second, b)
	b = retry.WithMaxRetries(g.maxRetries, b)

	var receipt Receipt
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		r, err := g.post(ctx, payload)
		if err != nil {
			if errors.Is(err, ErrRejected) {
				return err
			}
			return retry.RetryableError(err)
		}
		receipt = r
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}

	return receipt, nil
}

func (g *Gateway) post(ctx context.Context, payload []byte) (Receipt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Receipt{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if g.apiKey != "" {
		req.Header.Set(HeaderAPIKey, g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("sms: gateway request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return Receipt{}, fmt.Errorf("sms: gateway read: %w", err)
	}

	body := map[string]any{}
	if len(raw) > 0 && json.Unmarshal(raw, &body) != nil {
		body = map[string]any{"raw": string(raw)}
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return Receipt{}, fmt.Errorf("sms: gateway status %d", resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		return Receipt{}, fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}

	id, _ := body["id"].(string)
	if id == "" {
		id, _ = body["message_id"].(string)
	}

	return Receipt{ProviderID: id, Response: body}, nil
}

func (g *Gateway) Close() error {
	g.client.CloseIdleConnections()
	return nil
}
