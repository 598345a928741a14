package aws

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/gantry-labs/gantry/pkg/clients/logger"
)

// SnapshotNotFoundError is returned when an EBS snapshot does not exist
type SnapshotNotFoundError struct {
	SnapshotID string
}

func (e SnapshotNotFoundError) Error() string {
	return fmt.Sprintf("snapshot %s does not exist", e.SnapshotID)
}

// DescribeImagesInput contains the filters used when listing machine images
type DescribeImagesInput struct {
	ImageIDs []string
	Owners   []string
	Filters  []Filter
}

// EC2 defines the interactions with the EC2 API
type EC2 interface {
	// DescribeInstances returns one page of instances matching the given
	// filters together with the token for the next page
	DescribeInstances(ctx context.Context, filters []Filter, nextToken string) ([]Instance, string, error)
	// TerminateInstances terminates the given instances, it does not wait
	// for the instances to stop
	TerminateInstances(ctx context.Context, ids []string) error
	// DescribeInstanceTypes returns the capabilities of the given instance
	// types, unknown types are omitted from the result
	DescribeInstanceTypes(ctx context.Context, instanceTypes []string) ([]InstanceTypeInfo, error)
	// KeyPairExists returns true when the named EC2 key pair exists
	KeyPairExists(ctx context.Context, name string) (bool, error)
	// ListKeyPairs returns the names of the EC2 key pairs in the region
	ListKeyPairs(ctx context.Context) ([]string, error)
	// DescribeSubnets returns the given subnets, all subnets when no ids
	// are given
	DescribeSubnets(ctx context.Context, ids []string) ([]Subnet, error)
	// DescribeImages returns the machine images matching the given input
	DescribeImages(ctx context.Context, in DescribeImagesInput) ([]AMI, error)
	// DeregisterImage removes the given machine image
	DeregisterImage(ctx context.Context, id string) error
	// DeleteSnapshot removes the given EBS snapshot
	DeleteSnapshot(ctx context.Context, id string) error
	// DescribeSnapshot returns the given EBS snapshot, returns
	// SnapshotNotFoundError when the snapshot does not exist
	DescribeSnapshot(ctx context.Context, id string) (*Snapshot, error)
	// ImageSharedAccounts returns the accounts and groups the given machine
	// image has been shared with
	ImageSharedAccounts(ctx context.Context, id string) ([]string, error)
}

// EC2Impl is a concrete implementation of the EC2 interface
type EC2Impl struct {
	client *ec2.Client
	log    logger.Logger
}

// NewEC2 creates a new EC2 client
func NewEC2(cfg aws.Config, l logger.Logger) EC2 {
	return &EC2Impl{ec2.NewFromConfig(cfg), l}
}

func (c *EC2Impl) DescribeInstances(ctx context.Context, filters []Filter, nextToken string) ([]Instance, string, error) {
	in := &ec2.DescribeInstancesInput{
		Filters: toEC2Filters(filters),
	}
	if nextToken != "" {
		in.NextToken = aws.String(nextToken)
	}

	out, err := c.client.DescribeInstances(ctx, in)
	if err != nil {
		return nil, "", fmt.Errorf("unable to describe instances: %w", err)
	}

	instances := []Instance{}
	for _, r := range out.Reservations {
		for _, i := range r.Instances {
			instances = append(instances, toInstance(i))
		}
	}

	return instances, aws.ToString(out.NextToken), nil
}

func (c *EC2Impl) TerminateInstances(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	c.log.Debug("Terminating instances", "ids", ids)

	_, err := c.client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: ids,
	})
	if err != nil {
		return fmt.Errorf("unable to terminate instances: %w", err)
	}

	return nil
}

func (c *EC2Impl) DescribeInstanceTypes(ctx context.Context, instanceTypes []string) ([]InstanceTypeInfo, error) {
	names := []types.InstanceType{}
	for _, t := range instanceTypes {
		names = append(names, types.InstanceType(t))
	}

	out, err := c.client.DescribeInstanceTypes(ctx, &ec2.DescribeInstanceTypesInput{
		InstanceTypes: names,
	})
	if err != nil {
		// an unknown instance type fails the whole call, report it as an
		// empty result so callers can treat it as not found
		if apiErrorCode(err, "InvalidInstanceType") {
			return []InstanceTypeInfo{}, nil
		}

		return nil, fmt.Errorf("unable to describe instance types: %w", err)
	}

	infos := []InstanceTypeInfo{}
	for _, it := range out.InstanceTypes {
		info := InstanceTypeInfo{
			Name: string(it.InstanceType),
		}

		if it.VCpuInfo != nil {
			info.VCPUs = int(aws.ToInt32(it.VCpuInfo.DefaultVCpus))
		}

		if it.NetworkInfo != nil {
			info.EfaSupported = aws.ToBool(it.NetworkInfo.EfaSupported)
		}

		if it.ProcessorInfo != nil {
			for _, a := range it.ProcessorInfo.SupportedArchitectures {
				info.Architectures = append(info.Architectures, string(a))
			}
		}

		infos = append(infos, info)
	}

	return infos, nil
}

func (c *EC2Impl) KeyPairExists(ctx context.Context, name string) (bool, error) {
	_, err := c.client.DescribeKeyPairs(ctx, &ec2.DescribeKeyPairsInput{
		KeyNames: []string{name},
	})
	if err != nil {
		if apiErrorCode(err, "InvalidKeyPair.NotFound") {
			return false, nil
		}

		return false, fmt.Errorf("unable to describe key pair %s: %w", name, err)
	}

	return true, nil
}

func (c *EC2Impl) ListKeyPairs(ctx context.Context) ([]string, error) {
	out, err := c.client.DescribeKeyPairs(ctx, &ec2.DescribeKeyPairsInput{})
	if err != nil {
		return nil, fmt.Errorf("unable to list key pairs: %w", err)
	}

	names := []string{}
	for _, k := range out.KeyPairs {
		names = append(names, aws.ToString(k.KeyName))
	}

	sort.Strings(names)

	return names, nil
}

func (c *EC2Impl) DescribeSubnets(ctx context.Context, ids []string) ([]Subnet, error) {
	in := &ec2.DescribeSubnetsInput{}
	if len(ids) > 0 {
		in.SubnetIds = ids
	}

	out, err := c.client.DescribeSubnets(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("unable to describe subnets: %w", err)
	}

	subnets := []Subnet{}
	for _, s := range out.Subnets {
		subnets = append(subnets, Subnet{
			ID:               aws.ToString(s.SubnetId),
			VpcID:            aws.ToString(s.VpcId),
			AvailabilityZone: aws.ToString(s.AvailabilityZone),
		})
	}

	return subnets, nil
}

func (c *EC2Impl) DescribeImages(ctx context.Context, in DescribeImagesInput) ([]AMI, error) {
	out, err := c.client.DescribeImages(ctx, &ec2.DescribeImagesInput{
		ImageIds: in.ImageIDs,
		Owners:   in.Owners,
		Filters:  toEC2Filters(in.Filters),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to describe images: %w", err)
	}

	images := []AMI{}
	for _, i := range out.Images {
		images = append(images, toAMI(i))
	}

	return images, nil
}

func (c *EC2Impl) DeregisterImage(ctx context.Context, id string) error {
	c.log.Debug("Deregistering image", "id", id)

	_, err := c.client.DeregisterImage(ctx, &ec2.DeregisterImageInput{
		ImageId: aws.String(id),
	})
	if err != nil {
		return fmt.Errorf("unable to deregister image %s: %w", id, err)
	}

	return nil
}

func (c *EC2Impl) DeleteSnapshot(ctx context.Context, id string) error {
	c.log.Debug("Deleting snapshot", "id", id)

	_, err := c.client.DeleteSnapshot(ctx, &ec2.DeleteSnapshotInput{
		SnapshotId: aws.String(id),
	})
	if err != nil {
		return fmt.Errorf("unable to delete snapshot %s: %w", id, err)
	}

	return nil
}

func (c *EC2Impl) DescribeSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	out, err := c.client.DescribeSnapshots(ctx, &ec2.DescribeSnapshotsInput{
		SnapshotIds: []string{id},
	})
	if err != nil {
		if apiErrorCode(err, "InvalidSnapshot.NotFound") {
			return nil, SnapshotNotFoundError{SnapshotID: id}
		}

		return nil, fmt.Errorf("unable to describe snapshot %s: %w", id, err)
	}

	if len(out.Snapshots) == 0 {
		return nil, SnapshotNotFoundError{SnapshotID: id}
	}

	s := out.Snapshots[0]

	return &Snapshot{
		ID:    aws.ToString(s.SnapshotId),
		State: string(s.State),
		Size:  int(aws.ToInt32(s.VolumeSize)),
	}, nil
}

func (c *EC2Impl) ImageSharedAccounts(ctx context.Context, id string) ([]string, error) {
	out, err := c.client.DescribeImageAttribute(ctx, &ec2.DescribeImageAttributeInput{
		ImageId:   aws.String(id),
		Attribute: types.ImageAttributeNameLaunchPermission,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to describe launch permissions for image %s: %w", id, err)
	}

	accounts := []string{}
	for _, p := range out.LaunchPermissions {
		if p.UserId != nil {
			accounts = append(accounts, aws.ToString(p.UserId))
			continue
		}

		if p.Group != "" {
			accounts = append(accounts, string(p.Group))
		}
	}

	return accounts, nil
}

func toEC2Filters(filters []Filter) []types.Filter {
	out := []types.Filter{}
	for _, f := range filters {
		out = append(out, types.Filter{
			Name:   aws.String(f.Name),
			Values: f.Values,
		})
	}

	return out
}

func toInstance(i types.Instance) Instance {
	inst := Instance{
		ID:         aws.ToString(i.InstanceId),
		Type:       string(i.InstanceType),
		PublicIP:   aws.ToString(i.PublicIpAddress),
		PrivateIP:  aws.ToString(i.PrivateIpAddress),
		LaunchTime: aws.ToTime(i.LaunchTime),
		Tags:       toEC2Tags(i.Tags),
	}

	if i.State != nil {
		inst.State = string(i.State.Name)
	}

	return inst
}

func toAMI(i types.Image) AMI {
	ami := AMI{
		ID:           aws.ToString(i.ImageId),
		Name:         aws.ToString(i.Name),
		State:        string(i.State),
		Description:  aws.ToString(i.Description),
		Architecture: string(i.Architecture),
		Tags:         toEC2Tags(i.Tags),
	}

	if i.CreationDate != nil {
		if t, err := time.Parse(time.RFC3339, aws.ToString(i.CreationDate)); err == nil {
			ami.CreationDate = t
		}
	}

	for _, b := range i.BlockDeviceMappings {
		if b.Ebs != nil && b.Ebs.SnapshotId != nil {
			ami.SnapshotIDs = append(ami.SnapshotIDs, aws.ToString(b.Ebs.SnapshotId))
		}
	}

	return ami
}

func toEC2Tags(tags []types.Tag) map[string]string {
	out := map[string]string{}
	for _, t := range tags {
		out[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}

	return out
}
