// Package delivery sends built messages through a mail transport, retrying
// rate-limited attempts with capped exponential backoff.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mikey/llm-email-agent/internal/core"
	"go.uber.org/zap"
)

// Transport is a mail provider. Each call is a single attempt; rate-limit
// responses must be reported by wrapping core.ErrRateLimited.
type Transport interface {
	// SenderAddress resolves the authenticated account's own address
	SenderAddress(ctx context.Context) (string, error)

	// Send delivers an encoded message and returns the provider id
	Send(ctx context.Context, msg *core.OutboundMessage) (string, error)

	// CreateDraft stores an encoded message as a draft and returns its id
	CreateDraft(ctx context.Context, msg *core.OutboundMessage) (string, error)

	// Name returns the transport name
	Name() string
}

// Options controls the retry policy
type Options struct {
	MaxAttempts int
	BackoffBase float64
	MaxBackoff  time.Duration
	RetryDrafts bool
}

// DefaultOptions returns five attempts sleeping min(30s, 1.5^attempt)
func DefaultOptions() Options {
	return Options{
		MaxAttempts: 5,
		BackoffBase: 1.5,
		MaxBackoff:  30 * time.Second,
	}
}

// Client wraps a transport with the retry policy
type Client struct {
	transport Transport
	opts      Options
	logger    *zap.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewClient creates a new delivery client
func NewClient(transport Transport, opts Options, logger *zap.Logger) *Client {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = DefaultOptions().BackoffBase
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = DefaultOptions().MaxBackoff
	}
	return &Client{
		transport: transport,
		opts:      opts,
		logger:    logger,
		sleep:     sleepWithContext,
	}
}

// SenderAddress returns the transport account's own address
func (c *Client) SenderAddress(ctx context.Context) (string, error) {
	addr, err := c.transport.SenderAddress(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: resolving sender via %s: %w", core.ErrDeliveryFailed, c.transport.Name(), err)
	}
	return addr, nil
}

// Send delivers msg, retrying rate-limited attempts
func (c *Client) Send(ctx context.Context, msg *core.OutboundMessage) (string, error) {
	if msg == nil || msg.Raw == "" {
		return "", core.ErrMissingRaw
	}
	return c.withRetry(ctx, "send", c.opts.MaxAttempts, func() (string, error) {
		return c.transport.Send(ctx, msg)
	})
}

// CreateDraft stores msg as a draft. It makes a single attempt unless
// RetryDrafts is set.
func (c *Client) CreateDraft(ctx context.Context, msg *core.OutboundMessage) (string, error) {
	if msg == nil || msg.Raw == "" {
		return "", core.ErrMissingRaw
	}
	attempts := 1
	if c.opts.RetryDrafts {
		attempts = c.opts.MaxAttempts
	}
	return c.withRetry(ctx, "draft", attempts, func() (string, error) {
		return c.transport.CreateDraft(ctx, msg)
	})
}

func (c *Client) withRetry(ctx context.Context, op string, attempts int, call func() (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		id, err := call()
		if err == nil {
			return id, nil
		}
		lastErr = err

		if !errors.Is(err, core.ErrRateLimited) {
			return "", err
		}
		if attempt == attempts-1 {
			break
		}

		delay := c.backoff(attempt)
		c.logger.Warn("Rate limited, backing off",
			zap.String("transport", c.transport.Name()),
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", attempts),
			zap.Duration("delay", delay))
		if err := c.sleep(ctx, delay); err != nil {
			return "", fmt.Errorf("context cancelled during retry wait: %w", err)
		}
	}
	return "", lastErr
}

// backoff returns min(MaxBackoff, BackoffBase^attempt) seconds
func (c *Client) backoff(attempt int) time.Duration {
	seconds := math.Pow(c.opts.BackoffBase, float64(attempt))
	delay := time.Duration(seconds * float64(time.Second))
	if delay > c.opts.MaxBackoff {
		return c.opts.MaxBackoff
	}
	return delay
}

// sleepWithContext waits for the specified duration or until the context is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
