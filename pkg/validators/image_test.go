package validators

import (
	"context"
	"fmt"
	"testing"

	"github.com/gantry-labs/gantry/pkg/clients/aws"
	"github.com/gantry-labs/gantry/pkg/clients/aws/mocks"
	httpmocks "github.com/gantry-labs/gantry/pkg/clients/http/mocks"
	"github.com/gantry-labs/gantry/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestImageIdPasses(t *testing.T) {
	v := &ImageIdValidator{id: "compute-base-2"}

	assert.Empty(t, v.Validate(context.Background()))
}

func TestImageIdStartingWithDigitFails(t *testing.T) {
	v := &ImageIdValidator{id: "2-compute-base"}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Equal(t, FailureLevelError, failures[0].Level)
}

func TestMissingParentImageFails(t *testing.T) {
	cfg := &config.ImageConfig{
		Build: &config.Build{InstanceType: "c5.xlarge", ParentImage: "ami-0123456789abcdef0"},
	}

	e := &mocks.MockEC2{}
	e.On("DescribeImages", mock.Anything, aws.DescribeImagesInput{ImageIDs: []string{"ami-0123456789abcdef0"}}).
		Return([]aws.AMI{}, nil)

	v := &ParentImageValidator{cfg: cfg, ec2: e}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Message, "does not exist")
}

func TestParentImageArnIsNotChecked(t *testing.T) {
	cfg := &config.ImageConfig{
		Build: &config.Build{
			InstanceType: "c5.xlarge",
			ParentImage:  "arn:aws:imagebuilder:eu-west-1:aws:image/amazon-linux-2-x86/x.x.x",
		},
	}

	e := &mocks.MockEC2{}

	v := &ParentImageValidator{cfg: cfg, ec2: e}

	assert.Empty(t, v.Validate(context.Background()))
	e.AssertNotCalled(t, "DescribeImages", mock.Anything, mock.Anything)
}

func TestUnknownBuildInstanceTypeFails(t *testing.T) {
	cfg := &config.ImageConfig{
		Build: &config.Build{InstanceType: "t9.gigantic", ParentImage: "ami-0123456789abcdef0"},
	}

	e := &mocks.MockEC2{}
	e.On("DescribeInstanceTypes", mock.Anything, []string{"t9.gigantic"}).
		Return([]aws.InstanceTypeInfo{}, nil)

	v := &BuildInstanceTypeValidator{cfg: cfg, ec2: e}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Message, "not available")
}

func TestMissingComponentObjectFails(t *testing.T) {
	s := &mocks.MockS3{}
	s.On("ObjectExists", mock.Anything, "my-bucket", "setup.sh").Return(false, nil)

	v := &UrlValidator{urls: []string{"s3://my-bucket/setup.sh"}, s3: s}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Message, "does not exist")
}

func TestExistingComponentObjectPasses(t *testing.T) {
	s := &mocks.MockS3{}
	s.On("ObjectExists", mock.Anything, "my-bucket", "setup.sh").Return(true, nil)

	v := &UrlValidator{urls: []string{"s3://my-bucket/setup.sh"}, s3: s}

	assert.Empty(t, v.Validate(context.Background()))
}

func TestMalformedS3UrlFails(t *testing.T) {
	v := &UrlValidator{urls: []string{"s3://my-bucket"}, s3: &mocks.MockS3{}}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Message, "not a valid s3 url")
}

func TestReachableWebUrlPasses(t *testing.T) {
	h := &httpmocks.MockHTTP{}
	h.On("Head", mock.Anything, "https://example.com/setup.sh").Return(nil)

	v := &UrlValidator{urls: []string{"https://example.com/setup.sh"}, http: h}

	assert.Empty(t, v.Validate(context.Background()))
}

func TestUnreachableWebUrlWarns(t *testing.T) {
	h := &httpmocks.MockHTTP{}
	h.On("Head", mock.Anything, "https://example.com/setup.sh").Return(
		fmt.Errorf("connection refused"))

	v := &UrlValidator{urls: []string{"https://example.com/setup.sh"}, http: h}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Equal(t, FailureLevelWarning, failures[0].Level)
	assert.Contains(t, failures[0].Message, "unable to reach")
}

func TestFileUrlIsNotChecked(t *testing.T) {
	h := &httpmocks.MockHTTP{}

	v := &UrlValidator{urls: []string{"file:///opt/scripts/setup.sh"}, http: h}

	assert.Empty(t, v.Validate(context.Background()))
	h.AssertNotCalled(t, "Head", mock.Anything, mock.Anything)
}

func TestUnknownUrlSchemeFails(t *testing.T) {
	v := &UrlValidator{urls: []string{"ftp://example.com/setup.sh"}, s3: &mocks.MockS3{}}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Message, "scheme")
}

func TestPlainHttpUrlSchemeFails(t *testing.T) {
	v := &UrlValidator{urls: []string{"http://example.com/setup.sh"}, s3: &mocks.MockS3{}}

	failures := v.Validate(context.Background())

	require.Len(t, failures, 1)
	assert.Equal(t, FailureLevelError, failures[0].Level)
	assert.Contains(t, failures[0].Message, "s3, https or file")
}

func TestImageValidatorsCollectScriptUrls(t *testing.T) {
	cfg := &config.ImageConfig{
		Build: &config.Build{
			InstanceType: "c5.xlarge",
			ParentImage:  "ami-0123456789abcdef0",
			Components: []config.Component{
				{Type: config.ComponentTypeScript, Value: "s3://my-bucket/setup.sh"},
				{Type: config.ComponentTypeArn, Value: "arn:aws:imagebuilder:eu-west-1:123:component/x/1.0.0"},
			},
		},
	}

	vs := ImageValidators("compute-base", cfg, &mocks.MockEC2{}, &mocks.MockS3{}, &httpmocks.MockHTTP{})

	var urlValidator *UrlValidator
	for _, v := range vs {
		if u, ok := v.(*UrlValidator); ok {
			urlValidator = u
		}
	}

	require.NotNil(t, urlValidator)
	assert.Equal(t, []string{"s3://my-bucket/setup.sh"}, urlValidator.urls)
}
