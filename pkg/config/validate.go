package config

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/gantry-labs/gantry/pkg/utils"
)

var (
	amiRegex          = regexp.MustCompile(`^ami-[0-9a-f]{8,17}$`)
	subnetRegex       = regexp.MustCompile(`^subnet-[0-9a-f]{8,17}$`)
	sgRegex           = regexp.MustCompile(`^sg-[0-9a-f]{8,17}$`)
	queueNameRegex    = regexp.MustCompile(`^[a-z][a-z0-9\-]{0,24}$`)
	instanceRoleRegex = regexp.MustCompile(`^arn:.+:(role|instance-profile)/`)
	lambdaRoleRegex   = regexp.MustCompile(`^arn:.+:role/`)
)

// Validate checks the structure of a cluster definition, resource level
// checks are performed separately by the validators
func (c *ClusterConfig) Validate() error {
	if c.Image == nil {
		return fmt.Errorf("Image is a required section")
	}

	if !contains(SupportedOses, c.Image.Os) {
		return fmt.Errorf("Image.Os must be one of %s", strings.Join(SupportedOses, ", "))
	}

	if c.Image.CustomAmi != "" && !amiRegex.MatchString(c.Image.CustomAmi) {
		return fmt.Errorf("Image.CustomAmi %q is not a valid ami id", c.Image.CustomAmi)
	}

	if err := c.validateHeadNode(); err != nil {
		return err
	}

	if err := c.validateScheduling(); err != nil {
		return err
	}

	if err := c.validateSharedStorage(); err != nil {
		return err
	}

	return validateTags(c.Tags)
}

func (c *ClusterConfig) validateHeadNode() error {
	if c.HeadNode == nil {
		return fmt.Errorf("HeadNode is a required section")
	}

	if c.HeadNode.InstanceType == "" {
		return fmt.Errorf("HeadNode.InstanceType is required")
	}

	if c.HeadNode.Networking == nil || c.HeadNode.Networking.SubnetId == "" {
		return fmt.Errorf("HeadNode.Networking.SubnetId is required")
	}

	if !subnetRegex.MatchString(c.HeadNode.Networking.SubnetId) {
		return fmt.Errorf("HeadNode.Networking.SubnetId %q is not a valid subnet id", c.HeadNode.Networking.SubnetId)
	}

	for _, sg := range append(c.HeadNode.Networking.SecurityGroups, c.HeadNode.Networking.AdditionalSecurityGroups...) {
		if !sgRegex.MatchString(sg) {
			return fmt.Errorf("security group %q is not a valid security group id", sg)
		}
	}

	if ip := c.HeadNode.Networking.ElasticIp; ip != "" {
		if ip != "true" && ip != "false" && !strings.HasPrefix(ip, "eipalloc-") {
			return fmt.Errorf("HeadNode.Networking.ElasticIp must be true, false or an allocation id")
		}
	}

	return nil
}

func (c *ClusterConfig) validateScheduling() error {
	if c.Scheduling == nil {
		return fmt.Errorf("Scheduling is a required section")
	}

	switch c.Scheduling.Scheduler {
	case SchedulerSlurm:
		if len(c.Scheduling.AwsBatchQueues) > 0 {
			return fmt.Errorf("AwsBatchQueues cannot be used with the slurm scheduler")
		}

		if len(c.Scheduling.SlurmQueues) == 0 {
			return fmt.Errorf("Scheduling.SlurmQueues requires at least one queue")
		}

		if len(c.Scheduling.SlurmQueues) > MaxQueues {
			return fmt.Errorf("a cluster supports at most %d queues", MaxQueues)
		}

		for _, q := range c.Scheduling.SlurmQueues {
			if err := validateSlurmQueue(q); err != nil {
				return err
			}
		}
	case SchedulerAwsBatch:
		if len(c.Scheduling.SlurmQueues) > 0 {
			return fmt.Errorf("SlurmQueues cannot be used with the awsbatch scheduler")
		}

		if len(c.Scheduling.AwsBatchQueues) != 1 {
			return fmt.Errorf("the awsbatch scheduler requires exactly one queue")
		}

		for _, q := range c.Scheduling.AwsBatchQueues {
			if err := validateBatchQueue(q); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("Scheduling.Scheduler must be %s or %s", SchedulerSlurm, SchedulerAwsBatch)
	}

	return nil
}

func validateSlurmQueue(q SlurmQueue) error {
	if !queueNameRegex.MatchString(q.Name) {
		return fmt.Errorf("queue name %q must start with a lowercase letter and contain at most 25 lowercase letters, digits and hyphens", q.Name)
	}

	if err := validateCapacityType(q.Name, q.CapacityType); err != nil {
		return err
	}

	if err := validateQueueNetworking(q.Name, q.Networking); err != nil {
		return err
	}

	if len(q.ComputeResources) == 0 || len(q.ComputeResources) > MaxComputeResources {
		return fmt.Errorf("queue %q requires between 1 and %d compute resources", q.Name, MaxComputeResources)
	}

	for _, cr := range q.ComputeResources {
		if !queueNameRegex.MatchString(cr.Name) {
			return fmt.Errorf("compute resource name %q must start with a lowercase letter and contain at most 25 lowercase letters, digits and hyphens", cr.Name)
		}

		if cr.InstanceType == "" {
			return fmt.Errorf("compute resource %q requires an InstanceType", cr.Name)
		}

		if cr.MinCount != nil && *cr.MinCount < 0 {
			return fmt.Errorf("compute resource %q MinCount must not be negative", cr.Name)
		}

		if cr.MaxCount != nil && *cr.MaxCount < 1 {
			return fmt.Errorf("compute resource %q MaxCount must be at least 1", cr.Name)
		}
	}

	return nil
}

func validateBatchQueue(q AwsBatchQueue) error {
	if !queueNameRegex.MatchString(q.Name) {
		return fmt.Errorf("queue name %q must start with a lowercase letter and contain at most 25 lowercase letters, digits and hyphens", q.Name)
	}

	if err := validateCapacityType(q.Name, q.CapacityType); err != nil {
		return err
	}

	if err := validateQueueNetworking(q.Name, q.Networking); err != nil {
		return err
	}

	if len(q.ComputeResources) != 1 {
		return fmt.Errorf("queue %q requires exactly one compute resource", q.Name)
	}

	for _, cr := range q.ComputeResources {
		if len(cr.InstanceTypes) == 0 {
			return fmt.Errorf("compute resource %q requires at least one instance type", cr.Name)
		}

		if cr.MinvCpus != nil && *cr.MinvCpus < 0 {
			return fmt.Errorf("compute resource %q MinvCpus must not be negative", cr.Name)
		}
	}

	return nil
}

func validateCapacityType(queue, ct string) error {
	if ct != "" && ct != CapacityTypeOnDemand && ct != CapacityTypeSpot {
		return fmt.Errorf("queue %q CapacityType must be %s or %s", queue, CapacityTypeOnDemand, CapacityTypeSpot)
	}

	return nil
}

func validateQueueNetworking(queue string, n *QueueNetworking) error {
	if n == nil || len(n.SubnetIds) == 0 {
		return fmt.Errorf("queue %q requires Networking.SubnetIds", queue)
	}

	for _, id := range n.SubnetIds {
		if !subnetRegex.MatchString(id) {
			return fmt.Errorf("queue %q subnet %q is not a valid subnet id", queue, id)
		}
	}

	for _, sg := range n.SecurityGroups {
		if !sgRegex.MatchString(sg) {
			return fmt.Errorf("queue %q security group %q is not a valid security group id", queue, sg)
		}
	}

	return nil
}

func (c *ClusterConfig) validateSharedStorage() error {
	mounts := map[string]bool{}
	names := map[string]bool{}

	for _, s := range c.SharedStorage {
		if s.Name == "" {
			return fmt.Errorf("SharedStorage.Name is required")
		}

		if names[s.Name] {
			return fmt.Errorf("shared storage name %q is used more than once", s.Name)
		}
		names[s.Name] = true

		if s.MountDir == "" {
			return fmt.Errorf("shared storage %q requires a MountDir", s.Name)
		}

		if mounts[s.MountDir] {
			return fmt.Errorf("mount dir %q is used more than once", s.MountDir)
		}
		mounts[s.MountDir] = true

		switch s.StorageType {
		case StorageTypeEbs:
			if s.EfsSettings != nil || s.FsxLustreSettings != nil {
				return fmt.Errorf("shared storage %q of type Ebs only supports EbsSettings", s.Name)
			}
		case StorageTypeEfs:
			if s.EbsSettings != nil || s.FsxLustreSettings != nil {
				return fmt.Errorf("shared storage %q of type Efs only supports EfsSettings", s.Name)
			}
		case StorageTypeFsxLustre:
			if s.EbsSettings != nil || s.EfsSettings != nil {
				return fmt.Errorf("shared storage %q of type FsxLustre only supports FsxLustreSettings", s.Name)
			}
		default:
			return fmt.Errorf("shared storage %q StorageType must be %s, %s or %s", s.Name, StorageTypeEbs, StorageTypeEfs, StorageTypeFsxLustre)
		}
	}

	return nil
}

// Validate checks the structure of an image build definition
func (c *ImageConfig) Validate() error {
	if c.Build == nil {
		return fmt.Errorf("Build is a required section")
	}

	if c.Build.InstanceType == "" {
		return fmt.Errorf("Build.InstanceType is required")
	}

	if c.Build.ParentImage == "" {
		return fmt.Errorf("Build.ParentImage is required")
	}

	if !amiRegex.MatchString(c.Build.ParentImage) && !strings.HasPrefix(c.Build.ParentImage, "arn:") {
		return fmt.Errorf("Build.ParentImage must be an ami id or an image arn")
	}

	if c.Build.SubnetId != "" && !subnetRegex.MatchString(c.Build.SubnetId) {
		return fmt.Errorf("Build.SubnetId %q is not a valid subnet id", c.Build.SubnetId)
	}

	for _, sg := range c.Build.SecurityGroupIds {
		if !sgRegex.MatchString(sg) {
			return fmt.Errorf("security group %q is not a valid security group id", sg)
		}
	}

	if len(c.Build.Components) > MaxComponents {
		return fmt.Errorf("an image build supports at most %d components", MaxComponents)
	}

	for _, cp := range c.Build.Components {
		if cp.Type != ComponentTypeArn && cp.Type != ComponentTypeScript {
			return fmt.Errorf("component type %q must be %s or %s", cp.Type, ComponentTypeArn, ComponentTypeScript)
		}

		if cp.Value == "" {
			return fmt.Errorf("components require a Value")
		}

		if cp.Type == ComponentTypeArn && !strings.HasPrefix(cp.Value, "arn:") {
			return fmt.Errorf("component value %q must be an arn when the type is %s", cp.Value, ComponentTypeArn)
		}

		if cp.Type == ComponentTypeScript && !strings.HasPrefix(cp.Value, "https://") && !strings.HasPrefix(cp.Value, "s3://") {
			return fmt.Errorf("component value %q must be an https or s3 url when the type is %s", cp.Value, ComponentTypeScript)
		}
	}

	if c.Build.Iam != nil {
		if r := c.Build.Iam.InstanceRole; r != "" && !instanceRoleRegex.MatchString(r) {
			return fmt.Errorf("Build.Iam.InstanceRole %q must be a role or instance-profile arn", r)
		}

		if r := c.Build.Iam.CleanupLambdaRole; r != "" && !lambdaRoleRegex.MatchString(r) {
			return fmt.Errorf("Build.Iam.CleanupLambdaRole %q must be a role arn", r)
		}
	}

	if d := c.DevSettings.Distribution(); d != nil {
		if d.LaunchPermission != "" && !json.Valid([]byte(d.LaunchPermission)) {
			return fmt.Errorf("DevSettings.DistributionConfiguration.LaunchPermission must be a JSON document")
		}
	}

	if err := validateTags(c.Build.Tags); err != nil {
		return err
	}

	if c.Image != nil {
		return validateTags(c.Image.Tags)
	}

	return nil
}

func validateTags(tags []Tag) error {
	for _, t := range tags {
		if t.Key == "" {
			return fmt.Errorf("tag keys must not be empty")
		}

		if strings.HasPrefix(t.Key, utils.ReservedTagPrefix) {
			return fmt.Errorf("tag key %q uses the reserved prefix %q", t.Key, utils.ReservedTagPrefix)
		}
	}

	return nil
}

func contains(list []string, v string) bool {
	for _, i := range list {
		if i == v {
			return true
		}
	}

	return false
}
