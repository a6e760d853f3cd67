package reasoning

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryPolicy defines how transient failures are retried. A single policy is
// shared between the debate controller, the analyst stage, and the dataflows
// resolver so backoff behavior is configured in one place.
type RetryPolicy struct {
	MaxRetries    int           `yaml:"max_retries" mapstructure:"max_retries"`
	BackoffBase   time.Duration `yaml:"backoff_base" mapstructure:"backoff_base"`
	BackoffFactor float64       `yaml:"backoff_factor" mapstructure:"backoff_factor"`
}

// DefaultRetryPolicy returns the policy used when the configuration does not
// override it.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    3,
		BackoffBase:   time.Second,
		BackoffFactor: 2.0,
	}
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := float64(p.BackoffBase)
	for i := 0; i < attempt; i++ {
		d *= p.BackoffFactor
	}
	return time.Duration(d)
}

// Do runs fn, retrying transient failures up to MaxRetries additional times
// with exponential backoff. Fatal errors and context cancellation abort
// immediately. The last error is returned when retries are exhausted.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) || attempt >= p.MaxRetries {
			return lastErr
		}
		wait := p.backoff(attempt)
		log.Debug().
			Err(lastErr).
			Int("attempt", attempt+1).
			Dur("backoff", wait).
			Msg("retrying after transient failure")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
