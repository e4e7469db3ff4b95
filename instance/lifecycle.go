package instance

import (
	"context"
	"fmt"
	"time"

	"github.com/zllovesuki/launchpad/poll"
	"github.com/zllovesuki/launchpad/spec"

	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

// ControllerOptions contains the configuration for Controller
type ControllerOptions struct {
	Provider   Provider
	InstanceID string
	Logger     *zap.Logger

	// MaxTicks and Interval bound the wait after a start/stop request.
	// Zero values fall back to spec.InstanceMaxTicks and spec.InstancePollInterval.
	MaxTicks int
	Interval time.Duration
	Timeout  time.Duration
}

// Controller drives the single configured instance
type Controller struct {
	ControllerOptions
}

// NewController validates the options and returns a Controller
func NewController(option ControllerOptions) (*Controller, error) {
	if option.Provider == nil {
		return nil, fmt.Errorf("nil Provider is invalid")
	}
	if len(option.InstanceID) == 0 {
		return nil, fmt.Errorf("empty InstanceID is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if option.MaxTicks <= 0 {
		option.MaxTicks = spec.InstanceMaxTicks
	}
	if option.Interval <= 0 {
		option.Interval = spec.InstancePollInterval
	}
	option.Logger = option.Logger.With(zap.String("InstanceID", option.InstanceID))
	return &Controller{
		ControllerOptions: option,
	}, nil
}

// describe returns the provider description; query failures are reported as not found
func (c *Controller) describe(ctx context.Context) Description {
	desc, err := c.Provider.DescribeState(ctx, c.InstanceID)
	if err != nil {
		c.Logger.Debug("Unable to query instance state",
			zap.Error(err),
		)
		return Description{Code: StateUnknown}
	}
	if !desc.Found {
		return Description{Code: StateUnknown}
	}
	return desc
}

// CurrentState returns the reported state code, or StateUnknown when the query
// failed or returned no matching record
func (c *Controller) CurrentState(ctx context.Context) StateCode {
	return c.describe(ctx).Code
}

// Start requests the instance to start and waits for it to be RUNNING
func (c *Controller) Start(ctx context.Context) poll.Outcome[StateCode] {
	c.Logger.Info("Starting instance")
	if err := c.Provider.Start(ctx, c.InstanceID); err != nil {
		c.Logger.Error("Error occurred starting instance",
			zap.Error(err),
		)
		return poll.Fail[StateCode](extErrors.Wrap(err, "Cannot request START"))
	}
	return c.WaitFor(ctx, StateRunning)
}

// Stop requests the instance to stop and waits for it to be STOPPED
func (c *Controller) Stop(ctx context.Context) poll.Outcome[StateCode] {
	c.Logger.Info("Stopping instance")
	if err := c.Provider.Stop(ctx, c.InstanceID); err != nil {
		c.Logger.Error("Error occurred stopping instance",
			zap.Error(err),
		)
		return poll.Fail[StateCode](extErrors.Wrap(err, "Cannot request STOP"))
	}
	return c.WaitFor(ctx, StateStopped)
}

// WaitFor polls the provider until it reports target, a query fails, or the budget is exhausted
func (c *Controller) WaitFor(ctx context.Context, target StateCode) poll.Outcome[StateCode] {
	logger := c.Logger.With(zap.Stringer("Target", target))
	logger.Info("Waiting for instance to reach state")

	// a failed query ends the wait; a missing record is just another tick
	var last Description
	check := func(ctx context.Context) (StateCode, error) {
		desc, err := c.Provider.DescribeState(ctx, c.InstanceID)
		if err != nil {
			return StateUnknown, extErrors.Wrap(err, "Cannot query instance state")
		}
		if !desc.Found {
			desc = Description{Code: StateUnknown}
		}
		last = desc
		return last.Code, nil
	}
	budget := poll.Budget{
		MaxTicks: c.MaxTicks,
		Interval: c.Interval,
		Timeout:  c.Timeout,
		OnTick: func(tick, maxTicks int) {
			from := last.Code.String()
			if !last.Found {
				from = "NO_DATA"
			}
			logger.Debug(fmt.Sprintf("[%d/%d] Waiting for instance to reach state: %s from %s", tick, maxTicks, target, from))
		},
	}

	outcome := poll.WaitUntil(ctx, check, func(s StateCode) bool { return s == target }, budget)
	switch outcome.Status {
	case poll.Success:
		logger.Info("Instance has reached the state",
			zap.Int("Ticks", outcome.Ticks),
			zap.Duration("Elapsed", outcome.Elapsed),
		)
	case poll.TimedOut:
		logger.Warn("Timeout reached. Instance did not reach state",
			zap.Int("Ticks", outcome.Ticks),
			zap.Stringer("LastState", outcome.Value),
		)
	default:
		logger.Error("Error occurred while waiting for instance to reach state",
			zap.Error(outcome.Err),
		)
	}
	return outcome
}
