package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/clients/aws"
	"github.com/gantry-labs/gantry/pkg/clients/aws/mocks"
	cmdmocks "github.com/gantry-labs/gantry/pkg/clients/command/mocks"
	httpmocks "github.com/gantry-labs/gantry/pkg/clients/http/mocks"
	"github.com/gantry-labs/gantry/pkg/clients/logger"
	"github.com/gantry-labs/gantry/pkg/clients/tar"
	"github.com/gantry-labs/gantry/pkg/utils"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/mock"
)

var testConfigYAML = []byte(`
Region: eu-west-1
Image:
  Os: alinux2
HeadNode:
  InstanceType: t3.micro
  Networking:
    SubnetId: subnet-0f1e2d3c4b5a6978
  Ssh:
    KeyName: lab
Scheduling:
  Scheduler: slurm
  SlurmQueues:
  - Name: compute
    Networking:
      SubnetIds:
      - subnet-0f1e2d3c4b5a6978
    ComputeResources:
    - Name: general
      InstanceType: c5.large
      MinCount: 0
      MaxCount: 8
`)

type commandMocks struct {
	cfn    *mocks.MockCFN
	ec2    *mocks.MockEC2
	logs   *mocks.MockLogs
	s3     *mocks.MockS3
	dynamo *mocks.MockDynamo
	batch  *mocks.MockBatch
	sts    *mocks.MockSTS
	http   *httpmocks.MockHTTP
	exec   *cmdmocks.MockCommand

	// the regions the factory was asked for
	regions []string
}

// testFactory returns a client factory handing out mocked clients, the
// requested regions are recorded
func testFactory(t *testing.T) (clients.Factory, *commandMocks) {
	cm := &commandMocks{
		cfn:    &mocks.MockCFN{},
		ec2:    &mocks.MockEC2{},
		logs:   &mocks.MockLogs{},
		s3:     &mocks.MockS3{},
		dynamo: &mocks.MockDynamo{},
		batch:  &mocks.MockBatch{},
		sts:    &mocks.MockSTS{},
		http:   &httpmocks.MockHTTP{},
		exec:   &cmdmocks.MockCommand{},
	}

	f := func(ctx context.Context, region string) (*clients.Clients, error) {
		cm.regions = append(cm.regions, region)

		if region == "" {
			region = "eu-west-1"
		}

		return &clients.Clients{
			CFN:    cm.cfn,
			EC2:    cm.ec2,
			Logs:   cm.logs,
			S3:     cm.s3,
			Dynamo: cm.dynamo,
			Batch:  cm.batch,
			STS:    cm.sts,
			HTTP:   cm.http,
			TarGz:  &tar.TarGz{},
			Exec:   cm.exec,
			Logger: logger.NewTestLogger(t),
			Region: region,
		}, nil
	}

	return f, cm
}

// executeCommand runs the command capturing stdout and stderr
func executeCommand(cmd *cobra.Command, args ...string) (string, string, error) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return stdout.String(), stderr.String(), err
}

// writeConfigFile writes the test configuration document to a temporary
// file and returns its path
func writeConfigFile(t *testing.T, content []byte) string {
	path := filepath.Join(t.TempDir(), "cluster-config.yaml")

	err := os.WriteFile(path, content, 0644)
	if err != nil {
		t.Fatal(err)
	}

	return path
}

// mockAccountResources satisfies the resource validators for the test
// configuration
func mockAccountResources(cm *commandMocks) {
	cm.ec2.On("KeyPairExists", mock.Anything, "lab").Return(true, nil)
	cm.ec2.On("DescribeSubnets", mock.Anything, mock.Anything).Return(
		[]aws.Subnet{{ID: "subnet-0f1e2d3c4b5a6978", VpcID: "vpc-00aa11bb", AvailabilityZone: "eu-west-1a"}}, nil)
	cm.ec2.On("DescribeInstanceTypes", mock.Anything, mock.Anything).Return(
		[]aws.InstanceTypeInfo{{Name: "t3.micro", VCPUs: 2}, {Name: "c5.large", VCPUs: 2}}, nil)
}

func mockArtifactUpload(cm *commandMocks) {
	cm.sts.On("AccountID", mock.Anything).Return("123456789012", nil)
	cm.s3.On("BucketExists", mock.Anything, mock.Anything).Return(true, nil)
	cm.s3.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	cm.s3.On("ObjectURL", mock.Anything, mock.Anything).Return("https://gantry-eu-west-1-abc.s3.eu-west-1.amazonaws.com/clusters/demo/template.json")
}

func demoStack(status string) *aws.Stack {
	return &aws.Stack{
		Name:            "gantry-demo",
		ID:              "arn:aws:cloudformation:eu-west-1:123456789012:stack/gantry-demo/1",
		Status:          status,
		CreationTime:    time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC),
		LastUpdatedTime: time.Date(2024, 4, 3, 9, 30, 0, 0, time.UTC),
		Tags: map[string]string{
			utils.VersionTag:     "3.7.0",
			utils.ClusterNameTag: "demo",
			utils.SchedulerTag:   "slurm",
		},
	}
}
