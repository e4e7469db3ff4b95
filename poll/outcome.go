package poll

import (
	"errors"
	"time"
)

// ErrTimedOut is returned by Outcome.Result when the budget was exhausted
var ErrTimedOut = errors.New("Timeout reached")

// Status tags how a wait resolved
type Status int

const (
	Success Status = iota
	TimedOut
	ConditionError
)

func (s Status) String() string {
	switch s {
	case Success:
		return "Success"
	case TimedOut:
		return "TimedOut"
	case ConditionError:
		return "ConditionError"
	default:
		return "Unknown"
	}
}

// Outcome is the result of a bounded wait
type Outcome[T any] struct {
	Status Status
	// Value holds the last observed value for Success and TimedOut
	Value T
	Err   error
	// Ticks is the number of checks performed
	Ticks   int
	Elapsed time.Duration
}

// Result unwraps the outcome into the usual value/error pair
func (o Outcome[T]) Result() (T, error) {
	if o.Status == Success {
		return o.Value, nil
	}
	if o.Err == nil {
		return o.Value, ErrTimedOut
	}
	return o.Value, o.Err
}

// Ok reports whether the wait reached its target
func (o Outcome[T]) Ok() bool {
	return o.Status == Success
}

// Fail builds a ConditionError outcome for failures that happen before any tick
func Fail[T any](err error) Outcome[T] {
	return Outcome[T]{
		Status: ConditionError,
		Err:    err,
	}
}
