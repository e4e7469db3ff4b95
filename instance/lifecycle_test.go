package instance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zllovesuki/launchpad/poll"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testInstanceID = "i-0e9bae3f994a49647"

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) DescribeState(ctx context.Context, instanceID string) (Description, error) {
	args := m.Called(ctx, instanceID)
	return args.Get(0).(Description), args.Error(1)
}

func (m *mockProvider) Start(ctx context.Context, instanceID string) error {
	return m.Called(ctx, instanceID).Error(0)
}

func (m *mockProvider) Stop(ctx context.Context, instanceID string) error {
	return m.Called(ctx, instanceID).Error(0)
}

func newTestController(t *testing.T, p Provider, maxTicks int) *Controller {
	c, err := NewController(ControllerOptions{
		Provider:   p,
		InstanceID: testInstanceID,
		Logger:     zaptest.NewLogger(t),
		MaxTicks:   maxTicks,
		Interval:   time.Millisecond,
		Timeout:    time.Minute,
	})
	require.NoError(t, err)
	return c
}

func TestNewControllerValidation(t *testing.T) {
	logger := zaptest.NewLogger(t)
	_, err := NewController(ControllerOptions{InstanceID: testInstanceID, Logger: logger})
	assert.Error(t, err)
	_, err = NewController(ControllerOptions{Provider: &mockProvider{}, Logger: logger})
	assert.Error(t, err)
	_, err = NewController(ControllerOptions{Provider: &mockProvider{}, InstanceID: testInstanceID})
	assert.Error(t, err)

	c, err := NewController(ControllerOptions{Provider: &mockProvider{}, InstanceID: testInstanceID, Logger: logger})
	require.NoError(t, err)
	assert.Equal(t, 60, c.MaxTicks)
	assert.Equal(t, time.Second, c.Interval)
}

func TestCurrentState(t *testing.T) {
	tests := []struct {
		name string
		desc Description
		err  error
		want StateCode
	}{
		{"running", Description{Code: StateRunning, Found: true}, nil, StateRunning},
		{"stopped", Description{Code: StateStopped, Found: true}, nil, StateStopped},
		{"no record", Description{}, nil, StateUnknown},
		{"query error", Description{Code: StateRunning, Found: true}, errors.New("throttled"), StateUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockProvider{}
			p.On("DescribeState", mock.Anything, testInstanceID).Return(tt.desc, tt.err)
			c := newTestController(t, p, 1)

			assert.Equal(t, tt.want, c.CurrentState(context.Background()))
			p.AssertExpectations(t)
		})
	}
}

func TestStartWaitsForRunning(t *testing.T) {
	p := &mockProvider{}
	p.On("Start", mock.Anything, testInstanceID).Return(nil).Once()
	p.On("DescribeState", mock.Anything, testInstanceID).Return(Description{Code: StatePending, Found: true}, nil).Twice()
	p.On("DescribeState", mock.Anything, testInstanceID).Return(Description{Code: StateRunning, Found: true}, nil).Once()

	out := newTestController(t, p, 60).Start(context.Background())

	require.Equal(t, poll.Success, out.Status)
	assert.Equal(t, StateRunning, out.Value)
	assert.Equal(t, 3, out.Ticks)
	p.AssertExpectations(t)
}

func TestStartRequestRejected(t *testing.T) {
	p := &mockProvider{}
	p.On("Start", mock.Anything, testInstanceID).Return(errors.New("IncorrectInstanceState")).Once()

	out := newTestController(t, p, 60).Start(context.Background())

	require.Equal(t, poll.ConditionError, out.Status)
	assert.Contains(t, out.Err.Error(), "IncorrectInstanceState")
	assert.Equal(t, 0, out.Ticks)
	p.AssertNotCalled(t, "DescribeState", mock.Anything, mock.Anything)
}

func TestStopTimesOut(t *testing.T) {
	p := &mockProvider{}
	p.On("Stop", mock.Anything, testInstanceID).Return(nil).Once()
	p.On("DescribeState", mock.Anything, testInstanceID).Return(Description{Code: StateStopping, Found: true}, nil)

	out := newTestController(t, p, 4).Stop(context.Background())

	require.Equal(t, poll.TimedOut, out.Status)
	assert.Equal(t, StateStopping, out.Value)
	p.AssertNumberOfCalls(t, "DescribeState", 5)
}

func TestWaitAbortsOnQueryError(t *testing.T) {
	p := &mockProvider{}
	p.On("DescribeState", mock.Anything, testInstanceID).Return(Description{}, errors.New("AuthFailure")).Once()

	out := newTestController(t, p, 10).WaitFor(context.Background(), StateRunning)

	require.Equal(t, poll.ConditionError, out.Status)
	assert.Equal(t, 1, out.Ticks)
	_, err := out.Result()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AuthFailure")
	p.AssertNumberOfCalls(t, "DescribeState", 1)
}

func TestWaitAbortsOnLaterQueryError(t *testing.T) {
	p := &mockProvider{}
	p.On("DescribeState", mock.Anything, testInstanceID).Return(Description{Code: StatePending, Found: true}, nil).Twice()
	p.On("DescribeState", mock.Anything, testInstanceID).Return(Description{}, errors.New("RequestLimitExceeded")).Once()

	out := newTestController(t, p, 10).WaitFor(context.Background(), StateRunning)

	require.Equal(t, poll.ConditionError, out.Status)
	assert.Equal(t, 3, out.Ticks)
	p.AssertExpectations(t)
}

func TestWaitTicksThroughMissingRecord(t *testing.T) {
	p := &mockProvider{}
	p.On("DescribeState", mock.Anything, testInstanceID).Return(Description{}, nil).Once()
	p.On("DescribeState", mock.Anything, testInstanceID).Return(Description{Code: StateStopped, Found: true}, nil).Once()

	out := newTestController(t, p, 10).WaitFor(context.Background(), StateStopped)

	require.Equal(t, poll.Success, out.Status)
	assert.Equal(t, 2, out.Ticks)
	p.AssertExpectations(t)
}
