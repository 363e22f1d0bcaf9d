// Package ticker runs a callback at a steady period, subtracting the time
// the callback itself took. It drives display refreshes and makes no
// promise about exact firing times.
package ticker

import (
	"context"
	"time"
)

// Run calls fn immediately and then once per period until ctx is done.
// The wait before each call is period minus the time the previous call
// took, floored at zero. Run returns ctx.Err().
func Run(ctx context.Context, period time.Duration, fn func(now time.Time)) error {
	return run(ctx, period, time.Now, fn)
}

func run(ctx context.Context, period time.Duration, now func() time.Time, fn func(time.Time)) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		began := now()
		fn(began)
		timer.Reset(nextDelay(period, now().Sub(began)))
	}
}

// nextDelay is max(0, period-elapsed).
func nextDelay(period, elapsed time.Duration) time.Duration {
	if d := period - elapsed; d > 0 {
		return d
	}
	return 0
}
