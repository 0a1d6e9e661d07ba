// internal/platform/retry/retry.go
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrOperationExhausted is matched (errors.Is) by every error returned from Do
// after the attempt budget has been spent.
var ErrOperationExhausted = errors.New("retry: operation exhausted")

// DelayFunc returns how long to wait after the given (1-based) failed attempt.
type DelayFunc func(attempt int) time.Duration

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy is a bounded retry policy.
//
// Any error returned by the operation triggers another attempt until MaxAttempts
// is reached. Only context cancellation stops the loop early.
type Policy struct {
	MaxAttempts int
	Delay       DelayFunc
	Sleep       SleepFunc
}

// ExhaustedError carries the last underlying failure of an exhausted operation.
type ExhaustedError struct {
	Op       string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Op, e.Attempts, e.Last)
}

// Unwrap exposes both the sentinel and the last underlying error.
func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrOperationExhausted, e.Last}
}

// Fixed waits d between every attempt.
func Fixed(d time.Duration) DelayFunc {
	return func(int) time.Duration { return d }
}

// Exponential doubles base after every failed attempt, capped at max. With
// max == 0 the delay saturates at math.MaxInt64 instead of overflowing.
func Exponential(base, max time.Duration) DelayFunc {
	limit := max
	if limit <= 0 {
		limit = time.Duration(math.MaxInt64)
	}
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		d := base
		for i := 1; i < attempt; i++ {
			if d > limit/2 {
				return limit
			}
			d *= 2
		}
		if d > limit {
			return limit
		}
		return d
	}
}

// NoDelay is a zero-delay policy with the given attempt cap (tests, dry runs).
func NoDelay(maxAttempts int) Policy {
	return Policy{MaxAttempts: maxAttempts, Delay: Fixed(0)}
}

// SleepContext is the default SleepFunc.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Wait sleeps for the delay that follows the given failed attempt.
func (p Policy) Wait(ctx context.Context, attempt int) error {
	var d time.Duration
	if p.Delay != nil {
		d = p.Delay(attempt)
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	return sleep(ctx, d)
}

// Do runs op until it succeeds or the policy's attempt budget is spent.
// The first success is returned immediately. On exhaustion the returned error is
// an *ExhaustedError wrapping the most recent failure.
func Do[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	max := p.attempts()

	var last error
	for attempt := 1; attempt <= max; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		log.WithFields(log.Fields{"op": op, "attempt": attempt, "max": max}).Info("[retry] attempt")

		v, err := fn(ctx, attempt)
		if err == nil {
			if attempt > 1 {
				log.WithFields(log.Fields{"op": op, "attempt": attempt}).Info("[retry] succeeded after retry")
			}
			return v, nil
		}
		last = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}

		log.WithFields(log.Fields{"op": op, "attempt": attempt, "max": max}).WithError(err).Warn("[retry] attempt failed")

		if attempt == max {
			break
		}
		if werr := p.Wait(ctx, attempt); werr != nil {
			return zero, werr
		}
	}

	return zero, &ExhaustedError{Op: op, Attempts: max, Last: last}
}
