package aws

import "time"

// Stack contains the summarised state of a CloudFormation stack
type Stack struct {
	Name            string
	ID              string
	Status          string
	StatusReason    string
	CreationTime    time.Time
	LastUpdatedTime time.Time
	ParentID        string
	Parameters      map[string]string
	Outputs         map[string]string
	Tags            map[string]string
}

// StackEvent is a single event from a CloudFormation stack
type StackEvent struct {
	EventID              string
	StackName            string
	LogicalResourceID    string
	PhysicalResourceID   string
	ResourceType         string
	ResourceStatus       string
	ResourceStatusReason string
	Timestamp            time.Time
}

// StackResource is a single resource belonging to a CloudFormation stack
type StackResource struct {
	LogicalID  string
	PhysicalID string
	Type       string
	Status     string
}

// Filter is a name and a list of values used to filter EC2 describe calls
type Filter struct {
	Name   string
	Values []string
}

// Instance contains the summarised state of an EC2 instance
type Instance struct {
	ID         string
	Type       string
	State      string
	PublicIP   string
	PrivateIP  string
	LaunchTime time.Time
	Tags       map[string]string
}

// InstanceTypeInfo describes the capabilities of an EC2 instance type
type InstanceTypeInfo struct {
	Name          string
	VCPUs         int
	EfaSupported  bool
	Architectures []string
}

// Subnet contains the summarised state of a VPC subnet
type Subnet struct {
	ID               string
	VpcID            string
	AvailabilityZone string
}

// AMI contains the summarised state of an EC2 machine image
type AMI struct {
	ID           string
	Name         string
	State        string
	Description  string
	Architecture string
	CreationDate time.Time
	SnapshotIDs  []string
	Tags         map[string]string
}

// Snapshot contains the summarised state of an EBS snapshot
type Snapshot struct {
	ID    string
	State string
	Size  int
}

// LogStream contains the summarised state of a CloudWatch log stream
type LogStream struct {
	Name           string
	CreationTime   time.Time
	FirstEventTime time.Time
	LastEventTime  time.Time
}

// LogEvent is a single event from a CloudWatch log stream
type LogEvent struct {
	Timestamp time.Time
	Message   string
}

// ComputeEnvironment contains the summarised state of an AWS Batch
// compute environment
type ComputeEnvironment struct {
	Name         string
	State        string
	Status       string
	StatusReason string
}
