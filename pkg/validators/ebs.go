package validators

import (
	"context"
	"fmt"

	"github.com/gantry-labs/gantry/pkg/clients/aws"
	"github.com/gantry-labs/gantry/pkg/config"
)

// volumeSizeBounds holds the allowed size range in GiB per volume type
var volumeSizeBounds = map[string][2]int{
	"standard": {1, 1024},
	"gp2":      {1, 16384},
	"gp3":      {1, 16384},
	"io1":      {4, 16384},
	"io2":      {4, 16384},
	"st1":      {500, 16384},
	"sc1":      {500, 16384},
}

// volumeIopsBounds holds the allowed iops range and the maximum
// iops to size ratio per volume type
var volumeIopsBounds = map[string]struct {
	min, max, maxRatio int
}{
	"io1": {100, 64000, 50},
	"io2": {100, 64000, 500},
	"gp3": {3000, 16000, 500},
}

// gp3 throughput limits in MiB/s
const (
	gp3MinThroughput = 125
	gp3MaxThroughput = 1000
)

// maximum throughput to iops ratio for gp3 volumes
const gp3ThroughputIopsRatio = 0.25

// EbsVolumeTypeSizeValidator checks that volume sizes are within the
// bounds of their volume type
type EbsVolumeTypeSizeValidator struct {
	cfg *config.ClusterConfig
}

func (v *EbsVolumeTypeSizeValidator) Name() string { return "EbsVolumeTypeSizeValidator" }

func (v *EbsVolumeTypeSizeValidator) Validate(ctx context.Context) []Failure {
	failures := []Failure{}

	for _, s := range v.cfg.SharedStorage {
		if s.StorageType != config.StorageTypeEbs {
			continue
		}

		vt := s.EbsSettings.VolumeTypeOrDefault()
		size := s.EbsSettings.SizeOrDefault()

		bounds, ok := volumeSizeBounds[vt]
		if !ok {
			failures = append(failures, Failure{
				Validator: v.Name(),
				Level:     FailureLevelError,
				Message:   fmt.Sprintf("shared storage %q uses unknown volume type %q", s.Name, vt),
			})
			continue
		}

		if size < bounds[0] || size > bounds[1] {
			failures = append(failures, Failure{
				Validator: v.Name(),
				Level:     FailureLevelError,
				Message:   fmt.Sprintf("the size of %s volume %q must be between %d GiB and %d GiB, got %d GiB", vt, s.Name, bounds[0], bounds[1], size),
			})
		}
	}

	return failures
}

// EbsVolumeIopsValidator checks that provisioned iops are within the
// bounds of their volume type and size
type EbsVolumeIopsValidator struct {
	cfg *config.ClusterConfig
}

func (v *EbsVolumeIopsValidator) Name() string { return "EbsVolumeIopsValidator" }

func (v *EbsVolumeIopsValidator) Validate(ctx context.Context) []Failure {
	failures := []Failure{}

	for _, s := range v.cfg.SharedStorage {
		if s.StorageType != config.StorageTypeEbs || s.EbsSettings == nil || s.EbsSettings.Iops == nil {
			continue
		}

		vt := s.EbsSettings.VolumeTypeOrDefault()
		iops := *s.EbsSettings.Iops
		size := s.EbsSettings.SizeOrDefault()

		bounds, ok := volumeIopsBounds[vt]
		if !ok {
			failures = append(failures, Failure{
				Validator: v.Name(),
				Level:     FailureLevelError,
				Message:   fmt.Sprintf("volume type %q of %q does not support provisioned iops", vt, s.Name),
			})
			continue
		}

		if iops < bounds.min || iops > bounds.max {
			failures = append(failures, Failure{
				Validator: v.Name(),
				Level:     FailureLevelError,
				Message:   fmt.Sprintf("iops of %s volume %q must be between %d and %d, got %d", vt, s.Name, bounds.min, bounds.max, iops),
			})
			continue
		}

		if iops > size*bounds.maxRatio {
			failures = append(failures, Failure{
				Validator: v.Name(),
				Level:     FailureLevelError,
				Message:   fmt.Sprintf("iops to size ratio of volume %q is %.2f, the maximum for %s volumes is %d", s.Name, float64(iops)/float64(size), vt, bounds.maxRatio),
			})
		}
	}

	return failures
}

// EbsVolumeThroughputValidator checks that gp3 throughput is within
// bounds
type EbsVolumeThroughputValidator struct {
	cfg *config.ClusterConfig
}

func (v *EbsVolumeThroughputValidator) Name() string { return "EbsVolumeThroughputValidator" }

func (v *EbsVolumeThroughputValidator) Validate(ctx context.Context) []Failure {
	failures := []Failure{}

	for _, s := range v.cfg.SharedStorage {
		if s.StorageType != config.StorageTypeEbs || s.EbsSettings == nil || s.EbsSettings.Throughput == nil {
			continue
		}

		vt := s.EbsSettings.VolumeTypeOrDefault()
		tp := *s.EbsSettings.Throughput

		if vt != "gp3" {
			failures = append(failures, Failure{
				Validator: v.Name(),
				Level:     FailureLevelError,
				Message:   fmt.Sprintf("volume type %q of %q does not support provisioned throughput", vt, s.Name),
			})
			continue
		}

		if tp < gp3MinThroughput || tp > gp3MaxThroughput {
			failures = append(failures, Failure{
				Validator: v.Name(),
				Level:     FailureLevelError,
				Message:   fmt.Sprintf("throughput of volume %q must be between %d MiB/s and %d MiB/s, got %d MiB/s", s.Name, gp3MinThroughput, gp3MaxThroughput, tp),
			})
		}
	}

	return failures
}

// EbsVolumeThroughputIopsValidator checks the gp3 throughput to iops
// ratio
type EbsVolumeThroughputIopsValidator struct {
	cfg *config.ClusterConfig
}

func (v *EbsVolumeThroughputIopsValidator) Name() string { return "EbsVolumeThroughputIopsValidator" }

func (v *EbsVolumeThroughputIopsValidator) Validate(ctx context.Context) []Failure {
	failures := []Failure{}

	for _, s := range v.cfg.SharedStorage {
		if s.StorageType != config.StorageTypeEbs || s.EbsSettings == nil || s.EbsSettings.Throughput == nil {
			continue
		}

		if s.EbsSettings.VolumeTypeOrDefault() != "gp3" {
			continue
		}

		iops := 3000
		if s.EbsSettings.Iops != nil {
			iops = *s.EbsSettings.Iops
		}

		tp := *s.EbsSettings.Throughput
		if float64(tp) > float64(iops)*gp3ThroughputIopsRatio {
			failures = append(failures, Failure{
				Validator: v.Name(),
				Level:     FailureLevelError,
				Message:   fmt.Sprintf("throughput to iops ratio of volume %q is %.2f, the maximum is %.2f MiB/s per provisioned iops", s.Name, float64(tp)/float64(iops), gp3ThroughputIopsRatio),
			})
		}
	}

	return failures
}

// EbsVolumeKmsKeyIdValidator checks that volumes specifying a customer
// managed key are encrypted
type EbsVolumeKmsKeyIdValidator struct {
	cfg *config.ClusterConfig
}

func (v *EbsVolumeKmsKeyIdValidator) Name() string { return "EbsVolumeKmsKeyIdValidator" }

func (v *EbsVolumeKmsKeyIdValidator) Validate(ctx context.Context) []Failure {
	failures := []Failure{}

	for _, s := range v.cfg.SharedStorage {
		if s.StorageType != config.StorageTypeEbs || s.EbsSettings == nil || s.EbsSettings.KmsKeyId == "" {
			continue
		}

		if s.EbsSettings.Encrypted == nil || !*s.EbsSettings.Encrypted {
			failures = append(failures, Failure{
				Validator: v.Name(),
				Level:     FailureLevelError,
				Message:   fmt.Sprintf("volume %q specifies KmsKeyId %q, Encrypted must be set to true", s.Name, s.EbsSettings.KmsKeyId),
			})
		}
	}

	return failures
}

// EbsVolumeSizeSnapshotValidator checks that a volume restored from a
// snapshot is at least the size of the snapshot
type EbsVolumeSizeSnapshotValidator struct {
	cfg *config.ClusterConfig
	ec2 aws.EC2
}

func (v *EbsVolumeSizeSnapshotValidator) Name() string { return "EbsVolumeSizeSnapshotValidator" }

func (v *EbsVolumeSizeSnapshotValidator) Validate(ctx context.Context) []Failure {
	failures := []Failure{}

	for _, s := range v.cfg.SharedStorage {
		if s.StorageType != config.StorageTypeEbs || s.EbsSettings == nil || s.EbsSettings.SnapshotId == "" {
			continue
		}

		snap, err := v.ec2.DescribeSnapshot(ctx, s.EbsSettings.SnapshotId)
		if err != nil {
			failures = append(failures, Failure{
				Validator: v.Name(),
				Level:     FailureLevelError,
				Message:   fmt.Sprintf("unable to describe snapshot %q: %s", s.EbsSettings.SnapshotId, err),
			})
			continue
		}

		if snap.State != "completed" {
			failures = append(failures, Failure{
				Validator: v.Name(),
				Level:     FailureLevelWarning,
				Message:   fmt.Sprintf("snapshot %q is in state %q", snap.ID, snap.State),
			})
		}

		if s.EbsSettings.Size != nil && *s.EbsSettings.Size < snap.Size {
			failures = append(failures, Failure{
				Validator: v.Name(),
				Level:     FailureLevelError,
				Message:   fmt.Sprintf("volume %q is smaller than snapshot %q, the size must be at least %d GiB", s.Name, snap.ID, snap.Size),
			})
		} else if s.EbsSettings.Size != nil && *s.EbsSettings.Size > snap.Size {
			failures = append(failures, Failure{
				Validator: v.Name(),
				Level:     FailureLevelWarning,
				Message:   fmt.Sprintf("volume %q is larger than snapshot %q, the partition must be resized before the extra capacity can be used", s.Name, snap.ID),
			})
		}
	}

	return failures
}
