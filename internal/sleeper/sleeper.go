package sleeper

import (
	"context"
	"time"
)

// exponentialBackoffSleeper doubles the pause after every Sleep, up to a ceiling.
type exponentialBackoffSleeper struct {
	initial       time.Duration
	ceiling       time.Duration
	sleepDuration time.Duration

	after func(time.Duration) <-chan time.Time
}

// NewExponentialSleeper creates a sleeper that starts at initial
// and never pauses longer than ceiling. A zero ceiling means no limit.
func NewExponentialSleeper(initial, ceiling time.Duration) (*exponentialBackoffSleeper, error) {
	return &exponentialBackoffSleeper{
		initial:       initial,
		ceiling:       ceiling,
		sleepDuration: initial,
		after:         time.After,
	}, nil
}

// Sleep pauses for the current back-off duration.
// It returns the context error if ctx is done before the pause ends.
func (e *exponentialBackoffSleeper) Sleep(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.after(e.sleepDuration):
	}

	e.sleepDuration += e.sleepDuration
	if e.ceiling > 0 && e.sleepDuration > e.ceiling {
		e.sleepDuration = e.ceiling
	}
	return nil
}

// Reset
func (e *exponentialBackoffSleeper) Reset() {
	e.sleepDuration = e.initial
}
