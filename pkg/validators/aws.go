package validators

import (
	"context"
	"fmt"
	"strings"

	"github.com/gantry-labs/gantry/pkg/clients/aws"
	"github.com/gantry-labs/gantry/pkg/clients/http"
	"github.com/gantry-labs/gantry/pkg/config"
)

// KeyPairValidator checks the key pair configured for the head node
type KeyPairValidator struct {
	cfg *config.ClusterConfig
	ec2 aws.EC2
}

func (v *KeyPairValidator) Name() string { return "KeyPairValidator" }

func (v *KeyPairValidator) Validate(ctx context.Context) []Failure {
	if v.cfg.HeadNode == nil {
		return nil
	}

	if v.cfg.HeadNode.Ssh == nil || v.cfg.HeadNode.Ssh.KeyName == "" {
		return []Failure{{
			Validator: v.Name(),
			Level:     FailureLevelWarning,
			Message:   "no key pair configured for the head node, you will not be able to connect with ssh",
		}}
	}

	name := v.cfg.HeadNode.Ssh.KeyName

	exists, err := v.ec2.KeyPairExists(ctx, name)
	if err != nil {
		return []Failure{{
			Validator: v.Name(),
			Level:     FailureLevelError,
			Message:   fmt.Sprintf("unable to describe key pair %q: %s", name, err),
		}}
	}

	if !exists {
		return []Failure{{
			Validator: v.Name(),
			Level:     FailureLevelError,
			Message:   fmt.Sprintf("key pair %q does not exist in the region", name),
		}}
	}

	return nil
}

// SubnetsValidator checks that all referenced subnets exist and belong
// to the same VPC
type SubnetsValidator struct {
	cfg *config.ClusterConfig
	ec2 aws.EC2
}

func (v *SubnetsValidator) Name() string { return "SubnetsValidator" }

func (v *SubnetsValidator) Validate(ctx context.Context) []Failure {
	ids := v.cfg.SubnetIds()
	if len(ids) == 0 {
		return nil
	}

	subnets, err := v.ec2.DescribeSubnets(ctx, ids)
	if err != nil {
		return []Failure{{
			Validator: v.Name(),
			Level:     FailureLevelError,
			Message:   fmt.Sprintf("unable to describe subnets: %s", err),
		}}
	}

	byID := map[string]aws.Subnet{}
	for _, s := range subnets {
		byID[s.ID] = s
	}

	failures := []Failure{}
	vpcs := map[string]bool{}

	for _, id := range ids {
		s, ok := byID[id]
		if !ok {
			failures = append(failures, Failure{
				Validator: v.Name(),
				Level:     FailureLevelError,
				Message:   fmt.Sprintf("subnet %q does not exist in the region", id),
			})
			continue
		}

		vpcs[s.VpcID] = true
	}

	if len(vpcs) > 1 {
		failures = append(failures, Failure{
			Validator: v.Name(),
			Level:     FailureLevelError,
			Message:   "the head node and all queues must use subnets of the same VPC",
		})
	}

	return failures
}

// InstanceTypeValidator checks that all referenced instance types are
// available in the region and support the requested features
type InstanceTypeValidator struct {
	cfg *config.ClusterConfig
	ec2 aws.EC2
}

func (v *InstanceTypeValidator) Name() string { return "InstanceTypeValidator" }

func (v *InstanceTypeValidator) Validate(ctx context.Context) []Failure {
	types := v.cfg.InstanceTypes()
	if len(types) == 0 {
		return nil
	}

	known, err := v.ec2.DescribeInstanceTypes(ctx, types)
	if err != nil {
		return []Failure{{
			Validator: v.Name(),
			Level:     FailureLevelError,
			Message:   fmt.Sprintf("unable to describe instance types: %s", err),
		}}
	}

	byName := map[string]aws.InstanceTypeInfo{}
	for _, it := range known {
		byName[it.Name] = it
	}

	failures := []Failure{}

	for _, t := range types {
		if _, ok := byName[t]; !ok {
			failures = append(failures, Failure{
				Validator: v.Name(),
				Level:     FailureLevelError,
				Message:   fmt.Sprintf("instance type %q is not available in the region", t),
			})
		}
	}

	if v.cfg.Scheduling != nil {
		for _, q := range v.cfg.Scheduling.SlurmQueues {
			for _, cr := range q.ComputeResources {
				it, ok := byName[cr.InstanceType]
				if !ok {
					continue
				}

				if cr.Efa.IsEnabled() && !it.EfaSupported {
					failures = append(failures, Failure{
						Validator: v.Name(),
						Level:     FailureLevelError,
						Message:   fmt.Sprintf("instance type %q of compute resource %q does not support the elastic fabric adapter", cr.InstanceType, cr.Name),
					})
				}
			}
		}
	}

	return failures
}

// CustomAmiValidator checks that a custom image exists and is available
type CustomAmiValidator struct {
	cfg *config.ClusterConfig
	ec2 aws.EC2
}

func (v *CustomAmiValidator) Name() string { return "CustomAmiValidator" }

func (v *CustomAmiValidator) Validate(ctx context.Context) []Failure {
	if v.cfg.Image == nil || v.cfg.Image.CustomAmi == "" {
		return nil
	}

	id := v.cfg.Image.CustomAmi

	images, err := v.ec2.DescribeImages(ctx, aws.DescribeImagesInput{ImageIDs: []string{id}})
	if err != nil || len(images) == 0 {
		return []Failure{{
			Validator: v.Name(),
			Level:     FailureLevelError,
			Message:   fmt.Sprintf("custom ami %q does not exist in the region", id),
		}}
	}

	if images[0].State != "available" {
		return []Failure{{
			Validator: v.Name(),
			Level:     FailureLevelError,
			Message:   fmt.Sprintf("custom ami %q is in state %q, it must be available", id, images[0].State),
		}}
	}

	return nil
}

// UrlValidator checks that urls referenced by a configuration are well
// formed and that the objects or pages they point at can be reached
type UrlValidator struct {
	urls []string
	s3   aws.S3
	http http.HTTP
}

func (v *UrlValidator) Name() string { return "UrlValidator" }

func (v *UrlValidator) Validate(ctx context.Context) []Failure {
	failures := []Failure{}

	for _, u := range v.urls {
		switch {
		case strings.HasPrefix(u, "s3://"):
			bucket, key, ok := splitS3Url(u)
			if !ok {
				failures = append(failures, Failure{
					Validator: v.Name(),
					Level:     FailureLevelError,
					Message:   fmt.Sprintf("%q is not a valid s3 url", u),
				})
				continue
			}

			exists, err := v.s3.ObjectExists(ctx, bucket, key)
			if err != nil {
				failures = append(failures, Failure{
					Validator: v.Name(),
					Level:     FailureLevelError,
					Message:   fmt.Sprintf("unable to check %q: %s", u, err),
				})
				continue
			}

			if !exists {
				failures = append(failures, Failure{
					Validator: v.Name(),
					Level:     FailureLevelError,
					Message:   fmt.Sprintf("object %q does not exist", u),
				})
			}
		case strings.HasPrefix(u, "https://"):
			// unreachable web urls warn rather than block, the build
			// instance fetches them from inside the VPC
			if err := v.http.Head(ctx, u); err != nil {
				failures = append(failures, Failure{
					Validator: v.Name(),
					Level:     FailureLevelWarning,
					Message:   fmt.Sprintf("unable to reach %q: %s", u, err),
				})
			}
		case strings.HasPrefix(u, "file://"):
			// local paths are resolved on the build instance, there is
			// nothing to check from here
		default:
			failures = append(failures, Failure{
				Validator: v.Name(),
				Level:     FailureLevelError,
				Message:   fmt.Sprintf("url %q must use the s3, https or file scheme", u),
			})
		}
	}

	return failures
}

func splitS3Url(u string) (bucket, key string, ok bool) {
	trimmed := strings.TrimPrefix(u, "s3://")

	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}

	return parts[0], parts[1], true
}
