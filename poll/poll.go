// Package poll provides a bounded, sequential polling primitive.
//
// A wait is described by a Budget: a tick count and an interval, plus a wall-clock
// Timeout that bounds the whole wait even when individual checks are slow. Checks are
// never overlapped: the next check is scheduled only after the previous one returned.
package poll

import (
	"context"
	"time"
)

// CheckFunc performs one condition check.
type CheckFunc[T any] func(ctx context.Context) (T, error)

// Budget bounds a wait
type Budget struct {
	MaxTicks int
	Interval time.Duration
	// Timeout is the wall-clock budget for the whole wait. Zero derives it from
	// MaxTicks and Interval.
	Timeout time.Duration
	// OnTick, when set, is called after every check that did not resolve the wait
	OnTick func(tick, maxTicks int)
}

// Deadline returns the effective wall-clock budget
func (b Budget) Deadline() time.Duration {
	if b.Timeout > 0 {
		return b.Timeout
	}
	return time.Duration(b.MaxTicks+2) * b.Interval
}

// WaitUntil invokes check once per tick until isTarget accepts its value, check returns
// an error, the tick budget or the deadline is exhausted, or ctx is done.
//
// The first check happens one Interval after the call. With a check that never reaches
// the target, exactly MaxTicks+1 checks are performed before TimedOut (unless the
// deadline fires first).
func WaitUntil[T any](ctx context.Context, check CheckFunc[T], isTarget func(T) bool, budget Budget) Outcome[T] {
	start := time.Now()
	deadline := start.Add(budget.Deadline())

	timer := time.NewTimer(budget.Interval)
	defer timer.Stop()

	next := start.Add(budget.Interval)
	tick := 1
	for {
		select {
		case <-ctx.Done():
			return conditionError[T](ctx.Err(), tick-1, start)
		case <-timer.C:
		}
		if err := ctx.Err(); err != nil {
			return conditionError[T](err, tick-1, start)
		}

		value, err := check(ctx)
		if err != nil {
			return conditionError[T](err, tick, start)
		}
		if isTarget(value) {
			return Outcome[T]{
				Status:  Success,
				Value:   value,
				Ticks:   tick,
				Elapsed: time.Since(start),
			}
		}
		if tick > budget.MaxTicks || !time.Now().Before(deadline) {
			return Outcome[T]{
				Status:  TimedOut,
				Value:   value,
				Err:     ErrTimedOut,
				Ticks:   tick,
				Elapsed: time.Since(start),
			}
		}
		if budget.OnTick != nil {
			budget.OnTick(tick, budget.MaxTicks)
		}
		tick++

		// keep the nominal cadence when checks are fast, never overlap when they are slow
		next = next.Add(budget.Interval)
		wait := time.Until(next)
		if wait < 0 {
			next = time.Now()
			wait = 0
		}
		timer.Reset(wait)
	}
}

func conditionError[T any](err error, ticks int, start time.Time) Outcome[T] {
	return Outcome[T]{
		Status:  ConditionError,
		Err:     err,
		Ticks:   ticks,
		Elapsed: time.Since(start),
	}
}
