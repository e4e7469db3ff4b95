package instance

import "context"

// Description is what the provider reports about the managed instance
type Description struct {
	Code StateCode
	// Found is false when the provider returned no record for the instance
	Found bool
	// Raw is the provider's own state name, for diagnostics only
	Raw string
}

// Provider is the instance management API for a single remote instance.
// Implementations live in the external package.
type Provider interface {
	DescribeState(ctx context.Context, instanceID string) (Description, error)
	Start(ctx context.Context, instanceID string) error
	Stop(ctx context.Context, instanceID string) error
}
