package external

import (
	"context"
	"fmt"

	"github.com/zllovesuki/launchpad/instance"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

var _ instance.Provider = &EC2Client{}

// EC2API is the subset of the EC2 API used by EC2Client
type EC2API interface {
	DescribeInstanceStatus(ctx context.Context, params *ec2.DescribeInstanceStatusInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstanceStatusOutput, error)
	StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
}

type EC2Options struct {
	API    EC2API
	Logger *zap.Logger
}

// EC2Client drives an EC2 instance
type EC2Client struct {
	EC2Options
}

func NewEC2Client(option EC2Options) (*EC2Client, error) {
	if option.API == nil {
		return nil, fmt.Errorf("nil API is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &EC2Client{
		EC2Options: option,
	}, nil
}

// NewEC2API loads credentials from the default chain for the given region
func NewEC2API(ctx context.Context, region string) (*ec2.Client, error) {
	cfg, err := awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(region))
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot load AWS configuration")
	}
	return ec2.NewFromConfig(cfg), nil
}

func (c *EC2Client) DescribeState(ctx context.Context, instanceID string) (instance.Description, error) {
	out, err := c.API.DescribeInstanceStatus(ctx, &ec2.DescribeInstanceStatusInput{
		InstanceIds:         []string{instanceID},
		IncludeAllInstances: aws.Bool(true),
	})
	if err != nil {
		return instance.Description{Code: instance.StateUnknown}, extErrors.Wrap(err, "Cannot describe instance status")
	}
	for _, status := range out.InstanceStatuses {
		if aws.ToString(status.InstanceId) != instanceID || status.InstanceState == nil {
			continue
		}
		return instance.Description{
			Code:  instance.StateCode(aws.ToInt32(status.InstanceState.Code) & 0xff),
			Found: true,
			Raw:   string(status.InstanceState.Name),
		}, nil
	}
	return instance.Description{Code: instance.StateUnknown}, nil
}

func (c *EC2Client) Start(ctx context.Context, instanceID string) error {
	out, err := c.API.StartInstances(ctx, &ec2.StartInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return extErrors.Wrap(err, "Cannot start instance")
	}
	for _, change := range out.StartingInstances {
		c.Logger.Debug("Instance state change requested",
			zap.String("InstanceID", aws.ToString(change.InstanceId)),
			zap.String("PreviousState", stateName(change.PreviousState)),
			zap.String("CurrentState", stateName(change.CurrentState)),
		)
	}
	return nil
}

func (c *EC2Client) Stop(ctx context.Context, instanceID string) error {
	out, err := c.API.StopInstances(ctx, &ec2.StopInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return extErrors.Wrap(err, "Cannot stop instance")
	}
	for _, change := range out.StoppingInstances {
		c.Logger.Debug("Instance state change requested",
			zap.String("InstanceID", aws.ToString(change.InstanceId)),
			zap.String("PreviousState", stateName(change.PreviousState)),
			zap.String("CurrentState", stateName(change.CurrentState)),
		)
	}
	return nil
}
