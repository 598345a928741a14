package validators

import (
	"context"
	"testing"

	"github.com/gantry-labs/gantry/pkg/clients/aws"
	"github.com/gantry-labs/gantry/pkg/clients/aws/mocks"
	"github.com/gantry-labs/gantry/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func clusterWithKeyPair(name string) *config.ClusterConfig {
	hn := &config.HeadNode{
		InstanceType: "t3.large",
		Networking:   &config.HeadNodeNetworking{SubnetId: "subnet-0123456789abcdef0"},
	}

	if name != "" {
		hn.Ssh = &config.Ssh{KeyName: name}
	}

	return &config.ClusterConfig{Image: &config.Image{Os: "alinux2"}, HeadNode: hn}
}

func TestMissingKeyPairConfigWarns(t *testing.T) {
	v := &KeyPairValidator{cfg: clusterWithKeyPair(""), ec2: &mocks.MockEC2{}}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Equal(t, FailureLevelWarning, failures[0].Level)
	assert.Contains(t, failures[0].Message, "ssh")
}

func TestUnknownKeyPairFails(t *testing.T) {
	e := &mocks.MockEC2{}
	e.On("KeyPairExists", mock.Anything, "team-keypair").Return(false, nil)

	v := &KeyPairValidator{cfg: clusterWithKeyPair("team-keypair"), ec2: e}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Equal(t, FailureLevelError, failures[0].Level)
	assert.Contains(t, failures[0].Message, "does not exist")
}

func TestExistingKeyPairPasses(t *testing.T) {
	e := &mocks.MockEC2{}
	e.On("KeyPairExists", mock.Anything, "team-keypair").Return(true, nil)

	v := &KeyPairValidator{cfg: clusterWithKeyPair("team-keypair"), ec2: e}

	assert.Empty(t, v.Validate(context.Background()))
	e.AssertCalled(t, "KeyPairExists", mock.Anything, "team-keypair")
}

func TestSubnetsInDifferentVpcsFail(t *testing.T) {
	cfg := &config.ClusterConfig{
		HeadNode: &config.HeadNode{
			Networking: &config.HeadNodeNetworking{SubnetId: "subnet-0123456789abcdef0"},
		},
		Scheduling: &config.Scheduling{
			Scheduler: config.SchedulerSlurm,
			SlurmQueues: []config.SlurmQueue{
				{
					Name:       "compute",
					Networking: &config.QueueNetworking{SubnetIds: []string{"subnet-0123456789abcdef1"}},
				},
			},
		},
	}

	e := &mocks.MockEC2{}
	e.On("DescribeSubnets", mock.Anything, []string{"subnet-0123456789abcdef0", "subnet-0123456789abcdef1"}).
		Return([]aws.Subnet{
			{ID: "subnet-0123456789abcdef0", VpcID: "vpc-111"},
			{ID: "subnet-0123456789abcdef1", VpcID: "vpc-222"},
		}, nil)

	v := &SubnetsValidator{cfg: cfg, ec2: e}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Message, "same VPC")
}

func TestMissingSubnetFails(t *testing.T) {
	cfg := &config.ClusterConfig{
		HeadNode: &config.HeadNode{
			Networking: &config.HeadNodeNetworking{SubnetId: "subnet-0123456789abcdef0"},
		},
	}

	e := &mocks.MockEC2{}
	e.On("DescribeSubnets", mock.Anything, []string{"subnet-0123456789abcdef0"}).
		Return([]aws.Subnet{}, nil)

	v := &SubnetsValidator{cfg: cfg, ec2: e}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Message, "does not exist")
}

func TestUnknownInstanceTypeFails(t *testing.T) {
	cfg := &config.ClusterConfig{
		HeadNode: &config.HeadNode{InstanceType: "t9.gigantic"},
	}

	e := &mocks.MockEC2{}
	e.On("DescribeInstanceTypes", mock.Anything, []string{"t9.gigantic"}).
		Return([]aws.InstanceTypeInfo{}, nil)

	v := &InstanceTypeValidator{cfg: cfg, ec2: e}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Message, "not available")
}

func TestEfaUnsupportedInstanceTypeFails(t *testing.T) {
	cfg := &config.ClusterConfig{
		Scheduling: &config.Scheduling{
			Scheduler: config.SchedulerSlurm,
			SlurmQueues: []config.SlurmQueue{
				{
					Name: "compute",
					ComputeResources: []config.SlurmComputeResource{
						{Name: "general", InstanceType: "t3.large", Efa: &config.Efa{Enabled: boolPtr(true)}},
					},
				},
			},
		},
	}

	e := &mocks.MockEC2{}
	e.On("DescribeInstanceTypes", mock.Anything, []string{"t3.large"}).
		Return([]aws.InstanceTypeInfo{{Name: "t3.large", EfaSupported: false}}, nil)

	v := &InstanceTypeValidator{cfg: cfg, ec2: e}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Message, "elastic fabric adapter")
}

func TestKnownInstanceTypesPass(t *testing.T) {
	cfg := &config.ClusterConfig{
		HeadNode: &config.HeadNode{InstanceType: "t3.large"},
	}

	e := &mocks.MockEC2{}
	e.On("DescribeInstanceTypes", mock.Anything, []string{"t3.large"}).
		Return([]aws.InstanceTypeInfo{{Name: "t3.large"}}, nil)

	v := &InstanceTypeValidator{cfg: cfg, ec2: e}

	assert.Empty(t, v.Validate(context.Background()))
}

func TestMissingCustomAmiFails(t *testing.T) {
	cfg := &config.ClusterConfig{
		Image: &config.Image{Os: "alinux2", CustomAmi: "ami-0123456789abcdef0"},
	}

	e := &mocks.MockEC2{}
	e.On("DescribeImages", mock.Anything, aws.DescribeImagesInput{ImageIDs: []string{"ami-0123456789abcdef0"}}).
		Return([]aws.AMI{}, nil)

	v := &CustomAmiValidator{cfg: cfg, ec2: e}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Message, "does not exist")
}

func TestPendingCustomAmiFails(t *testing.T) {
	cfg := &config.ClusterConfig{
		Image: &config.Image{Os: "alinux2", CustomAmi: "ami-0123456789abcdef0"},
	}

	e := &mocks.MockEC2{}
	e.On("DescribeImages", mock.Anything, mock.Anything).
		Return([]aws.AMI{{ID: "ami-0123456789abcdef0", State: "pending"}}, nil)

	v := &CustomAmiValidator{cfg: cfg, ec2: e}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Message, "pending")
}

func TestWithoutCustomAmiNothingIsChecked(t *testing.T) {
	cfg := &config.ClusterConfig{Image: &config.Image{Os: "alinux2"}}

	e := &mocks.MockEC2{}

	v := &CustomAmiValidator{cfg: cfg, ec2: e}

	assert.Empty(t, v.Validate(context.Background()))
	e.AssertNotCalled(t, "DescribeImages", mock.Anything, mock.Anything)
}

func TestClusterValidatorsCoverConfiguredResources(t *testing.T) {
	cfg := clusterWithKeyPair("team-keypair")

	vs := ClusterValidators("research", cfg, &mocks.MockEC2{})

	names := map[string]bool{}
	for _, v := range vs {
		names[v.Name()] = true
	}

	assert.True(t, names["ClusterNameValidator"])
	assert.True(t, names["KeyPairValidator"])
	assert.True(t, names["EbsVolumeTypeSizeValidator"])
	assert.True(t, names["InstanceTypeValidator"])
}
