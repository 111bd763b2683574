// Package generator calls the generative model that writes quizzes. The retry
// policy lives in Client and wraps any Transport, so every transport is retried
// the same way.
package generator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Lllllllleong/quizflow/internal/models"
)

const (
	DefaultMaxAttempts = 5
	DefaultBaseBackoff = 1500 * time.Millisecond
	DefaultGrowth      = 1.8
	DefaultTimeout     = 60 * time.Second
)

// Generation settings every transport sends, so the chosen transport does not
// change what the model is asked for.
const (
	ResponseMIMEType = "application/json"
	Temperature      = float32(0.2)
)

// ErrEmptyResponse is recorded for an attempt that returned no text.
var ErrEmptyResponse = errors.New("model returned no text")

// Transport performs one generation request.
type Transport interface {
	GenerateOnce(ctx context.Context, prompt string) (string, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, prompt string) (string, error)

func (f TransportFunc) GenerateOnce(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryPolicy bounds a generation call.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	Growth      float64
	Timeout     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseBackoff: DefaultBaseBackoff,
		Growth:      DefaultGrowth,
		Timeout:     DefaultTimeout,
	}
}

// Client retries a Transport with exponential backoff.
type Client struct {
	transport Transport
	policy    RetryPolicy
	sleep     SleepFunc
	logger    *slog.Logger
}

type Option func(*Client)

func WithSleep(sleep SleepFunc) Option {
	return func(c *Client) { c.sleep = sleep }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func NewClient(transport Transport, policy RetryPolicy, opts ...Option) *Client {
	def := DefaultRetryPolicy()
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = def.MaxAttempts
	}
	if policy.BaseBackoff <= 0 {
		policy.BaseBackoff = def.BaseBackoff
	}
	if policy.Growth <= 0 {
		policy.Growth = def.Growth
	}
	if policy.Timeout <= 0 {
		policy.Timeout = def.Timeout
	}
	c := &Client{
		transport: transport,
		policy:    policy,
		sleep:     contextSleep,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate returns the model's text for prompt with surrounding whitespace
// trimmed. After MaxAttempts failures it returns a GenerationExhausted error
// wrapping the last failure. Only cancellation of ctx cuts the loop short.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	backoff := c.policy.BaseBackoff
	var lastErr error

	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		text, err := c.attempt(ctx, prompt)
		if err == nil {
			if attempt > 1 {
				c.logger.Info("Generation succeeded after retry.", "attempt", attempt)
			}
			return text, nil
		}
		lastErr = err

		if attempt == c.policy.MaxAttempts {
			break
		}
		c.logger.Warn(
			"Generation failed, will retry.",
			"attempt", attempt,
			"maxAttempts", c.policy.MaxAttempts,
			"backoff", backoff.String(),
			"error", err,
		)
		if err := c.sleep(ctx, backoff); err != nil {
			c.logger.Error("Context cancelled during backoff. Aborting retries.", "error", err)
			return "", models.WrapError(models.KindGenerationExhausted, lastErr, "cancelled after %d attempts", attempt)
		}
		backoff = time.Duration(float64(backoff) * c.policy.Growth)
	}

	c.logger.Error("Generation failed after all attempts.", "attempts", c.policy.MaxAttempts, "error", lastErr)
	return "", models.WrapError(models.KindGenerationExhausted, lastErr, "no usable response after %d attempts", c.policy.MaxAttempts)
}

func (c *Client) attempt(ctx context.Context, prompt string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.policy.Timeout)
	defer cancel()

	text, err := c.transport.GenerateOnce(attemptCtx, prompt)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// BackoffSchedule lists the sleeps a call that fails every attempt would take.
func (p RetryPolicy) BackoffSchedule() []time.Duration {
	if p.MaxAttempts <= 1 {
		return nil
	}
	out := make([]time.Duration, 0, p.MaxAttempts-1)
	backoff := p.BaseBackoff
	for i := 1; i < p.MaxAttempts; i++ {
		out = append(out, backoff)
		backoff = time.Duration(float64(backoff) * p.Growth)
	}
	return out
}

func (c *Client) Policy() RetryPolicy { return c.policy }
