package external

import (
	"github.com/zllovesuki/launchpad/instance"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

func stateName(s *types.InstanceState) string {
	if s == nil {
		return instance.StateUnknown.String()
	}
	return instance.StateCode(aws.ToInt32(s.Code) & 0xff).String()
}
