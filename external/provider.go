package external

import (
	"context"
	"fmt"

	"github.com/zllovesuki/launchpad/instance"
	"github.com/zllovesuki/launchpad/spec"

	"go.uber.org/zap"
)

// NewProvider returns the instance provider for the configured backend
func NewProvider(ctx context.Context, backend spec.Backend, region string, logger *zap.Logger) (instance.Provider, error) {
	switch backend {
	case spec.BackendEC2:
		api, err := NewEC2API(ctx, region)
		if err != nil {
			return nil, err
		}
		return NewEC2Client(EC2Options{
			API:    api,
			Logger: logger,
		})
	case spec.BackendDocker:
		api, err := NewDockerAPI()
		if err != nil {
			return nil, err
		}
		return NewDockerClient(DockerOptions{
			Client: api,
			Logger: logger,
		})
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}
