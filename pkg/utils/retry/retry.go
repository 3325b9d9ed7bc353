package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy controls how many times an operation is attempted and how long
// to wait between attempts.
type Policy struct {
	MaxAttempts uint
	Interval    time.Duration
}

// Do runs fn until it succeeds, the attempt budget is exhausted, or the
// context is canceled. The interval between attempts is constant.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Interval), uint64(attempts)-1),
		ctx,
	)

	return backoff.Retry(func() error {
		return fn(ctx)
	}, b)
}
