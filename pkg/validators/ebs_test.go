package validators

import (
	"context"
	"fmt"
	"testing"

	"github.com/gantry-labs/gantry/pkg/clients/aws"
	"github.com/gantry-labs/gantry/pkg/clients/aws/mocks"
	"github.com/gantry-labs/gantry/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func storageConfig(s config.EbsSettings) *config.ClusterConfig {
	return &config.ClusterConfig{
		SharedStorage: []config.SharedStorage{
			{MountDir: "/shared", Name: "shared-data", StorageType: config.StorageTypeEbs, EbsSettings: &s},
		},
	}
}

func TestEbsSizeWithinBoundsPasses(t *testing.T) {
	v := &EbsVolumeTypeSizeValidator{cfg: storageConfig(config.EbsSettings{VolumeType: "gp3", Size: intPtr(100)})}

	assert.Empty(t, v.Validate(context.Background()))
}

func TestEbsSizeBelowMinimumFails(t *testing.T) {
	v := &EbsVolumeTypeSizeValidator{cfg: storageConfig(config.EbsSettings{VolumeType: "st1", Size: intPtr(100)})}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Equal(t, FailureLevelError, failures[0].Level)
	assert.Contains(t, failures[0].Message, "between 500 GiB and 16384 GiB")
}

func TestEbsSizeAboveMaximumFails(t *testing.T) {
	v := &EbsVolumeTypeSizeValidator{cfg: storageConfig(config.EbsSettings{VolumeType: "standard", Size: intPtr(2048)})}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Message, "between 1 GiB and 1024 GiB")
}

func TestEbsDefaultSettingsPass(t *testing.T) {
	cfg := &config.ClusterConfig{
		SharedStorage: []config.SharedStorage{
			{MountDir: "/shared", Name: "shared-data", StorageType: config.StorageTypeEbs},
		},
	}

	v := &EbsVolumeTypeSizeValidator{cfg: cfg}

	assert.Empty(t, v.Validate(context.Background()))
}

func TestEbsIopsBelowMinimumFails(t *testing.T) {
	v := &EbsVolumeIopsValidator{cfg: storageConfig(config.EbsSettings{VolumeType: "gp3", Size: intPtr(100), Iops: intPtr(1000)})}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Message, "between 3000 and 16000")
}

func TestEbsIopsRatioFails(t *testing.T) {
	v := &EbsVolumeIopsValidator{cfg: storageConfig(config.EbsSettings{VolumeType: "io1", Size: intPtr(100), Iops: intPtr(6000)})}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Message, "iops to size ratio")
}

func TestEbsIopsOnUnsupportedTypeFails(t *testing.T) {
	v := &EbsVolumeIopsValidator{cfg: storageConfig(config.EbsSettings{VolumeType: "gp2", Size: intPtr(100), Iops: intPtr(1000)})}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Message, "does not support provisioned iops")
}

func TestEbsIopsWithinBoundsPasses(t *testing.T) {
	v := &EbsVolumeIopsValidator{cfg: storageConfig(config.EbsSettings{VolumeType: "io2", Size: intPtr(100), Iops: intPtr(8000)})}

	assert.Empty(t, v.Validate(context.Background()))
}

func TestEbsThroughputOutOfRangeFails(t *testing.T) {
	v := &EbsVolumeThroughputValidator{cfg: storageConfig(config.EbsSettings{VolumeType: "gp3", Size: intPtr(100), Throughput: intPtr(2000)})}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Message, "between 125 MiB/s and 1000 MiB/s")
}

func TestEbsThroughputOnUnsupportedTypeFails(t *testing.T) {
	v := &EbsVolumeThroughputValidator{cfg: storageConfig(config.EbsSettings{VolumeType: "gp2", Size: intPtr(100), Throughput: intPtr(200)})}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Message, "does not support provisioned throughput")
}

func TestEbsThroughputIopsRatioFails(t *testing.T) {
	v := &EbsVolumeThroughputIopsValidator{cfg: storageConfig(config.EbsSettings{VolumeType: "gp3", Size: intPtr(100), Iops: intPtr(3000), Throughput: intPtr(800)})}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Message, "throughput to iops ratio")
}

func TestEbsThroughputIopsRatioUsesBaselineIops(t *testing.T) {
	// gp3 volumes have a baseline of 3000 iops when none are provisioned
	v := &EbsVolumeThroughputIopsValidator{cfg: storageConfig(config.EbsSettings{VolumeType: "gp3", Size: intPtr(100), Throughput: intPtr(750)})}

	assert.Empty(t, v.Validate(context.Background()))
}

func TestEbsKmsKeyWithoutEncryptionFails(t *testing.T) {
	v := &EbsVolumeKmsKeyIdValidator{cfg: storageConfig(config.EbsSettings{KmsKeyId: "alias/cluster-key"})}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Equal(t, FailureLevelError, failures[0].Level)
	assert.Contains(t, failures[0].Message, "Encrypted must be set to true")
}

func TestEbsKmsKeyWithEncryptionPasses(t *testing.T) {
	v := &EbsVolumeKmsKeyIdValidator{cfg: storageConfig(config.EbsSettings{KmsKeyId: "alias/cluster-key", Encrypted: boolPtr(true)})}

	assert.Empty(t, v.Validate(context.Background()))
}

func TestEbsSnapshotSmallerVolumeFails(t *testing.T) {
	e := &mocks.MockEC2{}
	e.On("DescribeSnapshot", mock.Anything, "snap-0123456789abcdef0").
		Return(&aws.Snapshot{ID: "snap-0123456789abcdef0", State: "completed", Size: 100}, nil)

	v := &EbsVolumeSizeSnapshotValidator{
		cfg: storageConfig(config.EbsSettings{Size: intPtr(50), SnapshotId: "snap-0123456789abcdef0"}),
		ec2: e,
	}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Message, "at least 100 GiB")
}

func TestEbsSnapshotLargerVolumeWarns(t *testing.T) {
	e := &mocks.MockEC2{}
	e.On("DescribeSnapshot", mock.Anything, "snap-0123456789abcdef0").
		Return(&aws.Snapshot{ID: "snap-0123456789abcdef0", State: "completed", Size: 10}, nil)

	v := &EbsVolumeSizeSnapshotValidator{
		cfg: storageConfig(config.EbsSettings{Size: intPtr(50), SnapshotId: "snap-0123456789abcdef0"}),
		ec2: e,
	}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Equal(t, FailureLevelWarning, failures[0].Level)
	assert.Contains(t, failures[0].Message, "larger than snapshot")
}

func TestEbsSnapshotPendingWarns(t *testing.T) {
	e := &mocks.MockEC2{}
	e.On("DescribeSnapshot", mock.Anything, "snap-0123456789abcdef0").
		Return(&aws.Snapshot{ID: "snap-0123456789abcdef0", State: "pending", Size: 50}, nil)

	v := &EbsVolumeSizeSnapshotValidator{
		cfg: storageConfig(config.EbsSettings{Size: intPtr(50), SnapshotId: "snap-0123456789abcdef0"}),
		ec2: e,
	}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Equal(t, FailureLevelWarning, failures[0].Level)
}

func TestEbsSnapshotLookupErrorFails(t *testing.T) {
	e := &mocks.MockEC2{}
	e.On("DescribeSnapshot", mock.Anything, "snap-0123456789abcdef0").
		Return(nil, fmt.Errorf("boom"))

	v := &EbsVolumeSizeSnapshotValidator{
		cfg: storageConfig(config.EbsSettings{Size: intPtr(50), SnapshotId: "snap-0123456789abcdef0"}),
		ec2: e,
	}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Equal(t, FailureLevelError, failures[0].Level)
}
