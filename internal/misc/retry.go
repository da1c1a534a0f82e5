package misc

import (
	"context"
	"time"
)

// DefaultBackoff is used for database connects and the startup source probe.
var DefaultBackoff = []time.Duration{
	1 * time.Second,
	3 * time.Second,
	5 * time.Second,
}

// Retry runs op until it succeeds, returns a non-retryable error, or the delays run out.
// The number of attempts is at most len(delays)+1.
func Retry(ctx context.Context, delays []time.Duration, isRetryable func(error) bool, op func(context.Context) error) error {
	var err error
	for i := 0; ; i++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if i >= len(delays) || isRetryable == nil || !isRetryable(err) {
			return err
		}
		t := time.NewTimer(delays[i])
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
