package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// RetryConfig controls retries of a single vendor call.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, first try included.
	// 1 disables retries. Default: 3.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry. Default: 500ms.
	InitialBackoff time.Duration

	// MaxBackoff caps any single delay. Default: 30s.
	MaxBackoff time.Duration

	// Multiplier grows the delay after each retry. Default: 2.0.
	Multiplier float64

	// JitterFraction randomizes each delay by ±fraction. Default: 0.25.
	JitterFraction float64

	// ShouldRetry overrides the IsTransient check when set.
	ShouldRetry func(err error) bool

	// OnRetry runs before each sleep with the 1-based retry number.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig returns the retry policy used for Box API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	}
}

// Do runs fn until it succeeds, returns a non-retryable error, or the
// attempt budget is spent. A cancelled ctx ends the loop.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for functions that return a value.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = applyDefaults(cfg)

	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	op := func() (T, error) {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		if ctx.Err() != nil || !shouldRetry(err) {
			return val, backoff.Permanent(err)
		}
		return val, err
	}

	attempt := 0
	notify := func(err error, _ time.Duration) {
		attempt++
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(NewBackOff(cfg, 0), uint64(cfg.MaxAttempts-1)),
		ctx,
	)
	return backoff.RetryNotifyWithData(op, b, notify)
}

// NewBackOff builds an exponential schedule from cfg. maxElapsed bounds the
// total time spent; zero means no bound.
func NewBackOff(cfg RetryConfig, maxElapsed time.Duration) *backoff.ExponentialBackOff {
	cfg = applyDefaults(cfg)
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialBackoff
	b.MaxInterval = cfg.MaxBackoff
	b.Multiplier = cfg.Multiplier
	b.RandomizationFactor = cfg.JitterFraction
	b.MaxElapsedTime = maxElapsed
	b.Reset()
	return b
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.JitterFraction < 0 {
		cfg.JitterFraction = 0
	}
	if cfg.JitterFraction > 1 {
		cfg.JitterFraction = 1
	}
	return cfg
}

// RetryLogger returns an OnRetry callback that logs each retry.
func RetryLogger(service, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying vendor call",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
