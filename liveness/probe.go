package liveness

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zllovesuki/launchpad/poll"
	"github.com/zllovesuki/launchpad/spec"

	"go.uber.org/zap"
)

// Options contains the configuration for Probe
type Options struct {
	URL    string
	Logger *zap.Logger

	// Client is optional; by default a client with Timeout is used
	Client   *http.Client
	Timeout  time.Duration
	Interval time.Duration
}

// Probe checks whether the dependent web system is reachable
type Probe struct {
	Options
}

// NewProbe validates the options and returns a Probe
func NewProbe(option Options) (*Probe, error) {
	if len(option.URL) == 0 {
		return nil, fmt.Errorf("empty URL is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if option.Timeout <= 0 {
		option.Timeout = spec.ProbeTimeout
	}
	if option.Interval <= 0 {
		option.Interval = spec.LivenessPollInterval
	}
	if option.Client == nil {
		option.Client = &http.Client{
			Timeout: option.Timeout,
		}
	}
	option.Logger = option.Logger.With(zap.String("URL", option.URL))
	return &Probe{
		Options: option,
	}, nil
}

// IsAlive performs one request against the probe URL. Any 2xx response is alive;
// every other outcome is reported as not alive.
func (p *Probe) IsAlive(ctx context.Context) bool {
	p.Logger.Debug("Checking for web system")

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		p.Logger.Warn("Web system OFFLINE: INVALID_REQUEST",
			zap.Error(err),
		)
		return false
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		p.Logger.Debug("Web system OFFLINE: CONNECTION_ERROR",
			zap.Error(err),
		)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.Logger.Debug("Web system OFFLINE: STATUS_UNKNOWN",
			zap.Int("StatusCode", resp.StatusCode),
		)
		return false
	}
	p.Logger.Debug("Web system ONLINE")
	return true
}

// Wait polls IsAlive until it reports true or maxTicks is exhausted. It only ever
// resolves to Success or TimedOut, unless ctx ends first.
func (p *Probe) Wait(ctx context.Context, maxTicks int) poll.Outcome[bool] {
	check := func(ctx context.Context) (bool, error) {
		return p.IsAlive(ctx), nil
	}
	budget := poll.Budget{
		MaxTicks: maxTicks,
		Interval: p.Interval,
		// a probe may take up to Timeout on top of the interval
		Timeout: time.Duration(maxTicks+2) * (p.Interval + p.Timeout),
		OnTick: func(tick, maxTicks int) {
			p.Logger.Debug(fmt.Sprintf("[%d/%d] Waiting for web system", tick, maxTicks))
		},
	}
	outcome := poll.WaitUntil(ctx, check, func(alive bool) bool { return alive }, budget)
	if outcome.Ok() {
		p.Logger.Info("Web system online",
			zap.Int("Ticks", outcome.Ticks),
		)
	}
	return outcome
}
