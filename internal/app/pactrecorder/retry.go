package pactrecorder

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
)

var errNotYet = errors.New("not yet")

// retryFor calls do until it succeeds, duration elapses or ctx is done.
func retryFor(ctx context.Context, do func(time.Duration) bool, delay, duration time.Duration) bool {
	start := time.Now()
	err := retry.Do(func() error {
		timeLeft := duration - time.Since(start)
		if !do(timeLeft) {
			return errNotYet
		}
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return err != nil && time.Since(start) <= duration
		}))
	return err == nil
}
