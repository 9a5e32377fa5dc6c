package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/logger"
)

// Config bounds one transport retry loop: MaxRetries re-attempts after
// the initial call, waits growing from InitialInterval by Multiplier up
// to MaxInterval. Zero fields keep the backoff library defaults.
type Config struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

func (c Config) policy(ctx context.Context) backoff.BackOffContext {
	bo := backoff.NewExponentialBackOff()
	if c.InitialInterval > 0 {
		bo.InitialInterval = c.InitialInterval
	}
	if c.MaxInterval > 0 {
		bo.MaxInterval = c.MaxInterval
	}
	if c.Multiplier > 0 {
		bo.Multiplier = c.Multiplier
	}
	bo.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(bo, c.MaxRetries), ctx)
}

// Do runs operation until it succeeds, returns a Permanent error, the
// retry budget runs out, or ctx ends. Every backoff wait is logged.
func Do(ctx context.Context, log logger.Logger, operationName string, operation func() error, cfg Config) error {
	notify := func(err error, wait time.Duration) {
		log.Warn(
			"Operation failed, retrying...",
			"operation", operationName,
			"error", err,
			"next_attempt_in", wait.Round(time.Millisecond).String(),
		)
	}

	return backoff.RetryNotify(operation, cfg.policy(ctx), notify)
}

// Permanent marks err as non-retryable: Do stops immediately and returns it.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
