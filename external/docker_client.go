package external

import (
	"context"
	"fmt"
	"time"

	"github.com/zllovesuki/launchpad/instance"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

var _ instance.Provider = &DockerClient{}

// DockerAPI is the subset of the Docker engine API used by DockerClient
type DockerAPI interface {
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	ContainerStart(ctx context.Context, containerID string, options types.ContainerStartOptions) error
	ContainerStop(ctx context.Context, containerID string, timeout *time.Duration) error
}

type DockerOptions struct {
	Client DockerAPI
	Logger *zap.Logger
	// StopTimeout is the grace period before the container is killed
	StopTimeout time.Duration
}

// DockerClient drives a local container as the managed instance. The instance ID is the
// container name or ID. Useful for development without a cloud account.
type DockerClient struct {
	DockerOptions
}

func NewDockerClient(option DockerOptions) (*DockerClient, error) {
	if option.Client == nil {
		return nil, fmt.Errorf("nil Client is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if option.StopTimeout <= 0 {
		option.StopTimeout = time.Second * 15
	}
	return &DockerClient{
		DockerOptions: option,
	}, nil
}

// NewDockerAPI connects to the engine configured by the DOCKER_* environment
func NewDockerAPI() (*client.Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot connect to Docker")
	}
	return cli, nil
}

// containerStateCode maps a container status onto the instance lifecycle codes
func containerStateCode(status string) instance.StateCode {
	switch status {
	case "created", "exited", "dead":
		return instance.StateStopped
	case "running", "paused":
		return instance.StateRunning
	case "restarting":
		return instance.StatePending
	case "removing":
		return instance.StateShuttingDown
	default:
		return instance.StateUnknown
	}
}

func (c *DockerClient) DescribeState(ctx context.Context, instanceID string) (instance.Description, error) {
	info, err := c.Client.ContainerInspect(ctx, instanceID)
	if client.IsErrNotFound(err) {
		return instance.Description{Code: instance.StateUnknown}, nil
	}
	if err != nil {
		return instance.Description{Code: instance.StateUnknown}, extErrors.Wrap(err, "Cannot inspect container")
	}
	if info.ContainerJSONBase == nil || info.State == nil {
		return instance.Description{Code: instance.StateUnknown}, nil
	}
	return instance.Description{
		Code:  containerStateCode(info.State.Status),
		Found: true,
		Raw:   info.State.Status,
	}, nil
}

func (c *DockerClient) Start(ctx context.Context, instanceID string) error {
	if err := c.Client.ContainerStart(ctx, instanceID, types.ContainerStartOptions{}); err != nil {
		return extErrors.Wrap(err, "Cannot start container")
	}
	return nil
}

func (c *DockerClient) Stop(ctx context.Context, instanceID string) error {
	timeout := c.StopTimeout
	if err := c.Client.ContainerStop(ctx, instanceID, &timeout); err != nil {
		return extErrors.Wrap(err, "Cannot stop container")
	}
	return nil
}
