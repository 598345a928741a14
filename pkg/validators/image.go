package validators

import (
	"context"
	"fmt"
	"strings"

	"github.com/gantry-labs/gantry/pkg/clients/aws"
	"github.com/gantry-labs/gantry/pkg/clients/http"
	"github.com/gantry-labs/gantry/pkg/config"
)

// ImageIdValidator checks the id given to an image build
type ImageIdValidator struct {
	id string
}

func (v *ImageIdValidator) Name() string { return "ImageIdValidator" }

func (v *ImageIdValidator) Validate(ctx context.Context) []Failure {
	if clusterNameRegex.MatchString(v.id) {
		return nil
	}

	return []Failure{{
		Validator: v.Name(),
		Level:     FailureLevelError,
		Message:   fmt.Sprintf("image id %q must start with a letter and contain at most 60 letters, digits and hyphens", v.id),
	}}
}

// ParentImageValidator checks that the parent image of a build exists
// and is available
type ParentImageValidator struct {
	cfg *config.ImageConfig
	ec2 aws.EC2
}

func (v *ParentImageValidator) Name() string { return "ParentImageValidator" }

func (v *ParentImageValidator) Validate(ctx context.Context) []Failure {
	if v.cfg.Build == nil || !strings.HasPrefix(v.cfg.Build.ParentImage, "ami-") {
		return nil
	}

	id := v.cfg.Build.ParentImage

	images, err := v.ec2.DescribeImages(ctx, aws.DescribeImagesInput{ImageIDs: []string{id}})
	if err != nil || len(images) == 0 {
		return []Failure{{
			Validator: v.Name(),
			Level:     FailureLevelError,
			Message:   fmt.Sprintf("parent image %q does not exist in the region", id),
		}}
	}

	if images[0].State != "available" {
		return []Failure{{
			Validator: v.Name(),
			Level:     FailureLevelError,
			Message:   fmt.Sprintf("parent image %q is in state %q, it must be available", id, images[0].State),
		}}
	}

	return nil
}

// BuildInstanceTypeValidator checks that the build instance type is
// available in the region
type BuildInstanceTypeValidator struct {
	cfg *config.ImageConfig
	ec2 aws.EC2
}

func (v *BuildInstanceTypeValidator) Name() string { return "BuildInstanceTypeValidator" }

func (v *BuildInstanceTypeValidator) Validate(ctx context.Context) []Failure {
	if v.cfg.Build == nil || v.cfg.Build.InstanceType == "" {
		return nil
	}

	t := v.cfg.Build.InstanceType

	known, err := v.ec2.DescribeInstanceTypes(ctx, []string{t})
	if err != nil {
		return []Failure{{
			Validator: v.Name(),
			Level:     FailureLevelError,
			Message:   fmt.Sprintf("unable to describe instance type %q: %s", t, err),
		}}
	}

	if len(known) == 0 {
		return []Failure{{
			Validator: v.Name(),
			Level:     FailureLevelError,
			Message:   fmt.Sprintf("instance type %q is not available in the region", t),
		}}
	}

	return nil
}

// ImageValidators returns the validators for an image build definition
func ImageValidators(id string, cfg *config.ImageConfig, e aws.EC2, s aws.S3, h http.HTTP) []Validator {
	urls := []string{}
	if cfg.Build != nil {
		for _, c := range cfg.Build.Components {
			if c.Type == config.ComponentTypeScript {
				urls = append(urls, c.Value)
			}
		}
	}

	return []Validator{
		&ImageIdValidator{id: id},
		&ParentImageValidator{cfg: cfg, ec2: e},
		&BuildInstanceTypeValidator{cfg: cfg, ec2: e},
		&UrlValidator{urls: urls, s3: s, http: h},
	}
}
