// Package retry paces repeated work: exponential backoff for link
// reconnects and probe dials, and a breaker that pauses the echo
// accept loop while the host is out of descriptors.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// ErrExhausted is returned by [Backoff.Do] once MaxAttempts have failed.
// The last attempt's error is wrapped alongside it.
var ErrExhausted = errors.New("retry budget exhausted")

// ── Permanent errors ─────────────────────────────────────────────────

// PermanentError marks a failure no further attempt can cure.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so that [Backoff.Do] returns it at once.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err carries a [Permanent] mark.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// ── Backoff ──────────────────────────────────────────────────────────

// Backoff retries an operation with exponentially growing pauses.
// The zero value retries forever starting at one second, doubling up
// to one minute, without jitter.
type Backoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// MaxAttempts counts tries including the first.  Zero is unlimited.
	MaxAttempts int

	// Jitter spreads each pause by ±25%.
	Jitter bool

	// OnRetry runs before each pause with the failed attempt number,
	// its error and the pause about to be taken.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Delay returns the pause that follows failed attempt n (1-based),
// before jitter.
func (b *Backoff) Delay(n int) time.Duration {
	initial, maxDelay, mult := b.InitialDelay, b.MaxDelay, b.Multiplier
	if initial <= 0 {
		initial = time.Second
	}
	if maxDelay <= 0 {
		maxDelay = time.Minute
	}
	if mult < 1 {
		mult = 2.0
	}

	d := float64(initial)
	for i := 1; i < n; i++ {
		d *= mult
		if d >= float64(maxDelay) {
			return maxDelay
		}
	}
	return min(time.Duration(d), maxDelay)
}

// Do calls fn until it returns nil.  It stops early when fn returns a
// [Permanent] error (unwrapped and returned), when ctx ends, or when
// MaxAttempts is reached ([ErrExhausted]).
func (b *Backoff) Do(ctx context.Context, fn func(attempt int) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		var pe *PermanentError
		if errors.As(err, &pe) {
			return pe.Err
		}
		if b.MaxAttempts > 0 && attempt >= b.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempt, err)
		}

		wait := b.Delay(attempt)
		if b.Jitter {
			wait = jitter(wait)
		}
		if b.OnRetry != nil {
			b.OnRetry(attempt, err, wait)
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		case <-t.C:
		}
	}
}

// jitter moves d by up to a quarter either way, never below 1ms.
func jitter(d time.Duration) time.Duration {
	quarter := int64(d) / 4
	if quarter <= 0 {
		return max(d, time.Millisecond)
	}
	d += time.Duration(rand.Int64N(2*quarter+1) - quarter)
	return max(d, time.Millisecond)
}
