package focus

import (
	"context"
	"errors"
	"time"
)

var errPollTimeout = errors.New("poll timeout")

type backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

var defaultBackoff = backoff{
	Initial:    10 * time.Millisecond,
	Max:        250 * time.Millisecond,
	Multiplier: 2,
}

func (b backoff) next(d time.Duration) time.Duration {
	if b.Multiplier <= 1 {
		return d
	}
	d = time.Duration(float64(d) * b.Multiplier)
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// pollUntil calls cond with growing pauses until it reports done, fails, or
// timeout elapses. Running out of time yields errPollTimeout; cancellation of
// the parent context is returned as is.
func pollUntil(parent context.Context, timeout time.Duration, b backoff, cond func(context.Context) (bool, error)) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	expired := func() bool {
		return parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded)
	}

	delay := b.Initial
	for {
		done, err := cond(ctx)
		if err != nil {
			if expired() {
				return errPollTimeout
			}
			return err
		}
		if done {
			return nil
		}
		if err := sleepWithContext(ctx, delay); err != nil {
			if expired() {
				return errPollTimeout
			}
			return err
		}
		delay = b.next(delay)
	}
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
