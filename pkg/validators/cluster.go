package validators

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/gantry-labs/gantry/pkg/clients/aws"
	"github.com/gantry-labs/gantry/pkg/config"
)

var clusterNameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9\-]{0,59}$`)

// reservedMountDirs are paths that cannot be used for shared storage
var reservedMountDirs = []string{
	"/", "/bin", "/boot", "/dev", "/etc", "/home", "/lib", "/lib64",
	"/media", "/opt", "/proc", "/root", "/run", "/sbin", "/srv", "/sys",
	"/tmp", "/usr", "/var",
}

// ClusterNameValidator checks the name given to a cluster
type ClusterNameValidator struct {
	name string
}

func (v *ClusterNameValidator) Name() string { return "ClusterNameValidator" }

func (v *ClusterNameValidator) Validate(ctx context.Context) []Failure {
	if clusterNameRegex.MatchString(v.name) {
		return nil
	}

	return []Failure{{
		Validator: v.Name(),
		Level:     FailureLevelError,
		Message:   fmt.Sprintf("cluster name %q must start with a letter and contain at most 60 letters, digits and hyphens", v.name),
	}}
}

// SchedulerOsValidator checks that the operating system is supported by
// the scheduler
type SchedulerOsValidator struct {
	cfg *config.ClusterConfig
}

func (v *SchedulerOsValidator) Name() string { return "SchedulerOsValidator" }

func (v *SchedulerOsValidator) Validate(ctx context.Context) []Failure {
	if v.cfg.Scheduler() != config.SchedulerAwsBatch {
		return nil
	}

	if v.cfg.Image != nil && v.cfg.Image.Os == "alinux2" {
		return nil
	}

	return []Failure{{
		Validator: v.Name(),
		Level:     FailureLevelError,
		Message:   fmt.Sprintf("the awsbatch scheduler only supports alinux2, got %q", v.cfg.Image.Os),
	}}
}

// ComputeResourceSizeValidator checks that the maximum node count of a
// compute resource is not below its minimum
type ComputeResourceSizeValidator struct {
	cfg *config.ClusterConfig
}

func (v *ComputeResourceSizeValidator) Name() string { return "ComputeResourceSizeValidator" }

func (v *ComputeResourceSizeValidator) Validate(ctx context.Context) []Failure {
	failures := []Failure{}

	if v.cfg.Scheduling == nil {
		return failures
	}

	for _, q := range v.cfg.Scheduling.SlurmQueues {
		for _, cr := range q.ComputeResources {
			if cr.MaxCountOrDefault() < cr.MinCountOrDefault() {
				failures = append(failures, Failure{
					Validator: v.Name(),
					Level:     FailureLevelError,
					Message:   fmt.Sprintf("compute resource %q in queue %q has MaxCount %d below MinCount %d", cr.Name, q.Name, cr.MaxCountOrDefault(), cr.MinCountOrDefault()),
				})
			}
		}
	}

	for _, q := range v.cfg.Scheduling.AwsBatchQueues {
		for _, cr := range q.ComputeResources {
			if cr.MinvCpus != nil && cr.MaxvCpus != nil && *cr.MaxvCpus < *cr.MinvCpus {
				failures = append(failures, Failure{
					Validator: v.Name(),
					Level:     FailureLevelError,
					Message:   fmt.Sprintf("compute resource %q in queue %q has MaxvCpus %d below MinvCpus %d", cr.Name, q.Name, *cr.MaxvCpus, *cr.MinvCpus),
				})
			}
		}
	}

	return failures
}

// SharedStorageMountDirValidator checks that mount dirs do not collide
// with system paths
type SharedStorageMountDirValidator struct {
	cfg *config.ClusterConfig
}

func (v *SharedStorageMountDirValidator) Name() string { return "SharedStorageMountDirValidator" }

func (v *SharedStorageMountDirValidator) Validate(ctx context.Context) []Failure {
	failures := []Failure{}

	for _, s := range v.cfg.SharedStorage {
		dir := strings.TrimSuffix(s.MountDir, "/")
		if dir == "" {
			dir = "/"
		}

		for _, r := range reservedMountDirs {
			if dir == r {
				failures = append(failures, Failure{
					Validator: v.Name(),
					Level:     FailureLevelError,
					Message:   fmt.Sprintf("mount dir %q of shared storage %q is reserved by the operating system", s.MountDir, s.Name),
				})
				break
			}
		}

		if !strings.HasPrefix(s.MountDir, "/") {
			failures = append(failures, Failure{
				Validator: v.Name(),
				Level:     FailureLevelError,
				Message:   fmt.Sprintf("mount dir %q of shared storage %q must be an absolute path", s.MountDir, s.Name),
			})
		}
	}

	return failures
}

// DeletionPolicyValidator reports storage that will be deleted together
// with the cluster
type DeletionPolicyValidator struct {
	cfg *config.ClusterConfig
}

func (v *DeletionPolicyValidator) Name() string { return "DeletionPolicyValidator" }

func (v *DeletionPolicyValidator) Validate(ctx context.Context) []Failure {
	failures := []Failure{}

	for _, s := range v.cfg.SharedStorage {
		if s.StorageType != config.StorageTypeEbs {
			continue
		}

		policy := config.DefaultDeletionPolicy
		if s.EbsSettings != nil && s.EbsSettings.DeletionPolicy != "" {
			policy = s.EbsSettings.DeletionPolicy
		}

		if policy == "Delete" {
			failures = append(failures, Failure{
				Validator: v.Name(),
				Level:     FailureLevelInfo,
				Message:   fmt.Sprintf("shared storage %q will be deleted when the cluster is deleted, set DeletionPolicy to Retain to keep it", s.Name),
			})
		}
	}

	return failures
}

// EfaPlacementGroupValidator recommends a placement group for queues
// with the elastic fabric adapter enabled
type EfaPlacementGroupValidator struct {
	cfg *config.ClusterConfig
}

func (v *EfaPlacementGroupValidator) Name() string { return "EfaPlacementGroupValidator" }

func (v *EfaPlacementGroupValidator) Validate(ctx context.Context) []Failure {
	failures := []Failure{}

	if v.cfg.Scheduling == nil {
		return failures
	}

	for _, q := range v.cfg.Scheduling.SlurmQueues {
		hasEfa := false
		for _, cr := range q.ComputeResources {
			if cr.Efa.IsEnabled() {
				hasEfa = true
				break
			}
		}

		pgEnabled := q.Networking != nil && q.Networking.PlacementGroup.IsEnabled()
		if hasEfa && !pgEnabled {
			failures = append(failures, Failure{
				Validator: v.Name(),
				Level:     FailureLevelWarning,
				Message:   fmt.Sprintf("queue %q enables the elastic fabric adapter without a placement group, network latency between nodes may vary", q.Name),
			})
		}
	}

	return failures
}

// ClusterValidators returns the validators for a cluster definition
func ClusterValidators(name string, cfg *config.ClusterConfig, e aws.EC2) []Validator {
	return []Validator{
		&ClusterNameValidator{name: name},
		&SchedulerOsValidator{cfg: cfg},
		&ComputeResourceSizeValidator{cfg: cfg},
		&SharedStorageMountDirValidator{cfg: cfg},
		&DeletionPolicyValidator{cfg: cfg},
		&EfaPlacementGroupValidator{cfg: cfg},
		&EbsVolumeTypeSizeValidator{cfg: cfg},
		&EbsVolumeIopsValidator{cfg: cfg},
		&EbsVolumeThroughputValidator{cfg: cfg},
		&EbsVolumeThroughputIopsValidator{cfg: cfg},
		&EbsVolumeKmsKeyIdValidator{cfg: cfg},
		&EbsVolumeSizeSnapshotValidator{cfg: cfg, ec2: e},
		&KeyPairValidator{cfg: cfg, ec2: e},
		&SubnetsValidator{cfg: cfg, ec2: e},
		&InstanceTypeValidator{cfg: cfg, ec2: e},
		&CustomAmiValidator{cfg: cfg, ec2: e},
	}
}
