package spec

import "time"

// Define defaults shared by the gateway and instancectl
const (
	InstanceMaxTicks     int           = 60
	InstancePollInterval time.Duration = time.Second

	LivenessMaxTicks     int           = 20
	LivenessPollInterval time.Duration = time.Millisecond * 5500
	ProbeTimeout         time.Duration = time.Second * 5

	DefaultPort      string = "3000"
	DefaultRegion    string = "ap-southeast-1"
	DefaultPublicDir string = "public"
)

// Backend selects the implementation of the instance API collaborator
type Backend string

const (
	BackendEC2    Backend = "ec2"
	BackendDocker Backend = "docker"
)
