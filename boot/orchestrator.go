// Package boot sequences a cold start: start the instance, wait for it to run, then wait
// for the web system behind it to answer. Progress is published as a Phase that callers poll.
package boot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zllovesuki/launchpad/instance"
	"github.com/zllovesuki/launchpad/poll"
	"github.com/zllovesuki/launchpad/spec"

	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrInProgress is returned by Run when another sequence holds the guard
var ErrInProgress = errors.New("Boot sequence already in progress")

// InstanceStarter starts the managed instance and waits until it is RUNNING
type InstanceStarter interface {
	Start(ctx context.Context) poll.Outcome[instance.StateCode]
}

// LivenessWaiter waits for the web system to become reachable
type LivenessWaiter interface {
	Wait(ctx context.Context, maxTicks int) poll.Outcome[bool]
}

// Transition describes a phase change of a sequence
type Transition struct {
	SequenceID string
	InstanceID string
	From       Phase
	To         Phase
	Err        error
	At         time.Time
}

// Notifier receives every transition. Errors are logged and otherwise ignored.
type Notifier interface {
	Notify(ctx context.Context, t Transition) error
}

// Options contains the configuration for Orchestrator
type Options struct {
	Instance         InstanceStarter
	Liveness         LivenessWaiter
	LivenessMaxTicks int
	InstanceID       string
	Notifier         Notifier
	Logger           *zap.Logger
}

// Orchestrator runs at most one boot sequence at a time
type Orchestrator struct {
	Options

	phase atomic.Int32
	guard atomic.Bool

	mu      sync.Mutex
	current *Sequence
}

// NewOrchestrator validates the options and returns an idle Orchestrator
func NewOrchestrator(option Options) (*Orchestrator, error) {
	if option.Instance == nil {
		return nil, fmt.Errorf("nil Instance is invalid")
	}
	if option.Liveness == nil {
		return nil, fmt.Errorf("nil Liveness is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if option.LivenessMaxTicks <= 0 {
		option.LivenessMaxTicks = spec.LivenessMaxTicks
	}
	o := &Orchestrator{
		Options: option,
	}
	o.phase.Store(int32(PhaseIdle))
	return o, nil
}

// Phase returns the published phase without blocking
func (o *Orchestrator) Phase() Phase {
	return Phase(o.phase.Load())
}

// InProgress reports whether a sequence currently holds the guard
func (o *Orchestrator) InProgress() bool {
	return o.guard.Load()
}

// Current returns the latest sequence, nil if Boot was never called
func (o *Orchestrator) Current() *Sequence {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Boot starts a sequence in the background and returns its handle with true.
// When a sequence is already in flight, it returns that sequence with false and has
// no other effect. The sequence runs until it reaches READY or FAILED, or ctx ends;
// failures are recorded on the handle and in the published phase, never returned.
func (o *Orchestrator) Boot(ctx context.Context) (*Sequence, bool) {
	o.mu.Lock()
	if o.guard.Load() {
		seq := o.current
		o.mu.Unlock()
		return seq, false
	}
	o.guard.Store(true)
	seq := newSequence()
	o.current = seq
	from := Phase(o.phase.Swap(int32(PhaseStartingInstance)))
	o.mu.Unlock()

	go o.run(ctx, seq, from)

	return seq, true
}

// Run is the blocking form of Boot: it returns the sequence error, or ErrInProgress
func (o *Orchestrator) Run(ctx context.Context) error {
	seq, started := o.Boot(ctx)
	if !started {
		return ErrInProgress
	}
	<-seq.Done()
	return seq.Err()
}

func (o *Orchestrator) run(ctx context.Context, seq *Sequence, from Phase) {
	logger := o.Logger.With(zap.String("SequenceID", seq.ID))

	defer func() {
		if r := recover(); r != nil {
			select {
			case <-seq.Done():
				return
			default:
			}
			o.finish(ctx, logger, seq, PhaseFailed, fmt.Errorf("Boot sequence panicked: %v", r))
		}
	}()

	o.notify(ctx, logger, seq, from, PhaseStartingInstance, nil)

	logger.Info("Starting instance")
	started := o.Instance.Start(ctx)
	if !started.Ok() {
		_, err := started.Result()
		o.finish(ctx, logger, seq, PhaseFailed, extErrors.Wrapf(err, "Instance did not reach RUNNING (%s)", started.Status))
		return
	}
	logger.Info("Instance started",
		zap.Int("Ticks", started.Ticks),
	)

	o.transition(ctx, logger, seq, PhaseAwaitingLiveness)

	logger.Info("Waiting for web system")
	alive := o.Liveness.Wait(ctx, o.LivenessMaxTicks)
	if !alive.Ok() {
		_, err := alive.Result()
		o.finish(ctx, logger, seq, PhaseFailed, extErrors.Wrapf(err, "Web system did not come online (%s)", alive.Status))
		return
	}
	logger.Info("Web system online",
		zap.Int("Ticks", alive.Ticks),
	)

	o.finish(ctx, logger, seq, PhaseReady, nil)
}

func (o *Orchestrator) transition(ctx context.Context, logger *zap.Logger, seq *Sequence, to Phase) {
	from := Phase(o.phase.Swap(int32(to)))
	seq.setPhase(to)
	o.notify(ctx, logger, seq, from, to, nil)
}

// finish publishes the terminal phase, releases the guard, then closes the handle
func (o *Orchestrator) finish(ctx context.Context, logger *zap.Logger, seq *Sequence, to Phase, err error) {
	from := Phase(o.phase.Swap(int32(to)))
	if err != nil {
		logger.Error("Error occurred during boot sequence",
			zap.Error(err),
			zap.Stringer("From", from),
		)
	} else {
		logger.Info("Boot sequence completed",
			zap.Duration("Elapsed", time.Since(seq.StartedAt)),
		)
	}
	o.notify(ctx, logger, seq, from, to, err)

	o.mu.Lock()
	o.guard.Store(false)
	o.mu.Unlock()

	seq.finish(to, err)
}

func (o *Orchestrator) notify(ctx context.Context, logger *zap.Logger, seq *Sequence, from, to Phase, err error) {
	logger.Info("Boot phase changed",
		zap.Stringer("From", from),
		zap.Stringer("To", to),
	)
	if o.Notifier == nil {
		return
	}
	t := Transition{
		SequenceID: seq.ID,
		InstanceID: o.InstanceID,
		From:       from,
		To:         to,
		Err:        err,
		At:         time.Now(),
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Boot transition notifier panicked",
				zap.Any("Panic", r),
				zap.Stringer("To", to),
			)
		}
	}()
	// terminal transitions must still be delivered when the sequence was cancelled
	if nErr := o.Notifier.Notify(context.WithoutCancel(ctx), t); nErr != nil {
		logger.Warn("Unable to deliver boot transition",
			zap.Error(nErr),
			zap.Stringer("To", to),
		)
	}
}
