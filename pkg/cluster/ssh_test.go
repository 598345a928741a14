package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gantry-labs/gantry/pkg/clients/aws"
	"github.com/gantry-labs/gantry/pkg/utils"
)

func mockHeadNodeInstance(cm *clusterMocks, instances ...aws.Instance) {
	if instances == nil {
		instances = []aws.Instance{}
	}

	cm.ec2.On("DescribeInstances", mock.Anything, mock.Anything, "").
		Return(instances, "", nil)
}

func mockStoredConfig(cm *clusterMocks) {
	bucket := utils.ArtifactBucketName("123456789012", "eu-west-1")

	cm.sts.On("AccountID", mock.Anything).Return("123456789012", nil)
	cm.s3.On("GetObject", mock.Anything, bucket, "clusters/demo/cluster-config.yaml").
		Return(clusterConfigYAML, nil)
}

func TestHeadNodeConnectionPrefersPublicAddress(t *testing.T) {
	m, cm := setupManager(t)
	cm.cfn.On("DescribeStack", mock.Anything, "gantry-demo").Return(slurmStack(StatusCreateComplete), nil)
	mockHeadNodeInstance(cm, aws.Instance{
		ID:        "i-0abc123def456",
		Type:      "t3.micro",
		State:     "running",
		PublicIP:  "54.10.20.30",
		PrivateIP: "10.0.0.12",
	})
	mockStoredConfig(cm)

	conn, err := m.HeadNodeConnection(context.Background(), "demo")

	require.NoError(t, err)
	assert.Equal(t, "54.10.20.30", conn.Host)
	assert.Equal(t, "ec2-user", conn.User)
}

func TestHeadNodeConnectionFallsBackToPrivateAddress(t *testing.T) {
	m, cm := setupManager(t)
	cm.cfn.On("DescribeStack", mock.Anything, "gantry-demo").Return(slurmStack(StatusCreateComplete), nil)
	mockHeadNodeInstance(cm, aws.Instance{
		ID:        "i-0abc123def456",
		State:     "running",
		PrivateIP: "10.0.0.12",
	})
	mockStoredConfig(cm)

	conn, err := m.HeadNodeConnection(context.Background(), "demo")

	require.NoError(t, err)
	assert.Equal(t, "10.0.0.12", conn.Host)
}

func TestHeadNodeConnectionFailsWithoutHeadNode(t *testing.T) {
	m, cm := setupManager(t)
	cm.cfn.On("DescribeStack", mock.Anything, "gantry-demo").Return(slurmStack(StatusCreateComplete), nil)
	mockHeadNodeInstance(cm)

	_, err := m.HeadNodeConnection(context.Background(), "demo")

	require.EqualError(t, err, "cluster demo does not have a running head node")
}

func TestHeadNodeConnectionFailsWhenClusterMissing(t *testing.T) {
	m, cm := setupManager(t)
	cm.cfn.On("DescribeStack", mock.Anything, "gantry-demo").
		Return(nil, aws.StackNotFoundError{StackName: "gantry-demo"})

	_, err := m.HeadNodeConnection(context.Background(), "demo")

	require.EqualError(t, err, "cluster demo does not exist")
}
