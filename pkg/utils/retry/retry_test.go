package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/contech-ims/binsight/pkg/utils/retry"
	"github.com/m-mizutani/gt"
)

func TestPolicySucceedsAfterFailures(t *testing.T) {
	p := retry.Policy{MaxAttempts: 5, Interval: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	gt.NoError(t, err)
	gt.Equal(t, calls, 3)
}

func TestPolicyExhaustsAttempts(t *testing.T) {
	p := retry.Policy{MaxAttempts: 3, Interval: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("persistent")
	})

	gt.Error(t, err)
	gt.Equal(t, calls, 3)
}

func TestPolicyHonorsCancel(t *testing.T) {
	p := retry.Policy{MaxAttempts: 10, Interval: 100 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := p.Do(ctx, func(ctx context.Context) error {
		calls++
		return errors.New("transient")
	})

	gt.Error(t, err)
	gt.True(t, calls < 10)
}
