package external

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zllovesuki/launchpad/instance"
	"github.com/zllovesuki/launchpad/spec"

	"github.com/docker/docker/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeDocker struct {
	info       types.ContainerJSON
	inspectErr error
	startErr   error
	stopped    *time.Duration
}

func (f *fakeDocker) ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error) {
	return f.info, f.inspectErr
}

func (f *fakeDocker) ContainerStart(ctx context.Context, containerID string, options types.ContainerStartOptions) error {
	return f.startErr
}

func (f *fakeDocker) ContainerStop(ctx context.Context, containerID string, timeout *time.Duration) error {
	f.stopped = timeout
	return nil
}

func withStatus(status string) types.ContainerJSON {
	return types.ContainerJSON{
		ContainerJSONBase: &types.ContainerJSONBase{
			State: &types.ContainerState{Status: status},
		},
	}
}

func TestContainerStateCode(t *testing.T) {
	tests := map[string]instance.StateCode{
		"created":    instance.StateStopped,
		"exited":     instance.StateStopped,
		"dead":       instance.StateStopped,
		"running":    instance.StateRunning,
		"paused":     instance.StateRunning,
		"restarting": instance.StatePending,
		"removing":   instance.StateShuttingDown,
		"":           instance.StateUnknown,
	}
	for status, want := range tests {
		assert.Equal(t, want, containerStateCode(status), status)
	}
}

func TestDockerDescribeState(t *testing.T) {
	api := &fakeDocker{info: withStatus("running")}
	c, err := NewDockerClient(DockerOptions{Client: api, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	desc, err := c.DescribeState(context.Background(), "web")
	require.NoError(t, err)
	assert.True(t, desc.Found)
	assert.Equal(t, instance.StateRunning, desc.Code)
	assert.Equal(t, "running", desc.Raw)

	api.info = types.ContainerJSON{}
	desc, err = c.DescribeState(context.Background(), "web")
	require.NoError(t, err)
	assert.False(t, desc.Found)

	api.inspectErr = errors.New("daemon unavailable")
	_, err = c.DescribeState(context.Background(), "web")
	assert.Error(t, err)
}

func TestDockerStartStop(t *testing.T) {
	api := &fakeDocker{startErr: errors.New("no such container")}
	c, err := NewDockerClient(DockerOptions{Client: api, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	assert.Error(t, c.Start(context.Background(), "web"))
	require.NoError(t, c.Stop(context.Background(), "web"))
	require.NotNil(t, api.stopped)
	assert.Equal(t, 15*time.Second, *api.stopped)
}

func TestNewProviderUnknownBackend(t *testing.T) {
	_, err := NewProvider(context.Background(), spec.Backend("lambda"), "", zaptest.NewLogger(t))
	require.Error(t, err)
}
