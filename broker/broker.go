package broker

import (
	"context"
	"errors"

	"github.com/zllovesuki/launchpad/boot"
)

var _ boot.Notifier = Multi{}

// Multi delivers a transition to every notifier, joining their errors
type Multi []boot.Notifier

func (m Multi) Notify(ctx context.Context, t boot.Transition) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
