package image

import (
	"strings"
	"time"

	"github.com/gantry-labs/gantry/pkg/config"
	"github.com/gantry-labs/gantry/pkg/validators"
)

// Build statuses as reported by describe and list operations
const (
	BuildStatusInProgress       = "BUILD_IN_PROGRESS"
	BuildStatusComplete         = "BUILD_COMPLETE"
	BuildStatusFailed           = "BUILD_FAILED"
	BuildStatusDeleteInProgress = "DELETE_IN_PROGRESS"
	BuildStatusDeleteFailed     = "DELETE_FAILED"
)

// Status buckets accepted when listing images
const (
	StatusAvailable = "AVAILABLE"
	StatusPending   = "PENDING"
	StatusFailed    = "FAILED"
)

// DryrunMessage is returned when an operation is only simulated
const DryrunMessage = "Request would have succeeded, but DryRun flag is set."

// Info is the summarised state of a custom image
type Info struct {
	ImageID                   string   `json:"imageId"`
	Region                    string   `json:"region"`
	Version                   string   `json:"version,omitempty"`
	ImageBuildStatus          string   `json:"imageBuildStatus"`
	CloudformationStackArn    string   `json:"cloudformationStackArn,omitempty"`
	CloudformationStackStatus string   `json:"cloudformationStackStatus,omitempty"`
	Ec2AmiInfo                *AmiInfo `json:"ec2AmiInfo,omitempty"`
}

// AmiInfo describes the machine image produced by a build
type AmiInfo struct {
	AmiID        string       `json:"amiId"`
	AmiName      string       `json:"amiName,omitempty"`
	State        string       `json:"state,omitempty"`
	Description  string       `json:"description,omitempty"`
	Architecture string       `json:"architecture,omitempty"`
	Tags         []config.Tag `json:"tags,omitempty"`
}

// Description is the detailed state of a custom image
type Description struct {
	ImageID                   string            `json:"imageId"`
	Region                    string            `json:"region"`
	Version                   string            `json:"version,omitempty"`
	ImageBuildStatus          string            `json:"imageBuildStatus"`
	CloudformationStackArn    string            `json:"cloudformationStackArn,omitempty"`
	CloudformationStackStatus string            `json:"cloudformationStackStatus,omitempty"`
	CreationTime              *time.Time        `json:"creationTime,omitempty"`
	ImageConfiguration        *ConfigurationURL `json:"imageConfiguration,omitempty"`
	Ec2AmiInfo                *AmiInfo          `json:"ec2AmiInfo,omitempty"`
	Tags                      []config.Tag      `json:"tags,omitempty"`
	Failures                  []StatusReason    `json:"failures,omitempty"`
}

// ConfigurationURL points at the configuration an image was built with
type ConfigurationURL struct {
	URL string `json:"url"`
}

// StatusReason explains a failed image build
type StatusReason struct {
	Reason string `json:"reason"`
}

// OfficialImage is an image published and maintained by gantry
type OfficialImage struct {
	AmiID        string `json:"amiId"`
	Name         string `json:"name"`
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
	Version      string `json:"version"`
}

// BuildOutput is the result of a build operation
type BuildOutput struct {
	Image              *Info                `json:"image,omitempty"`
	Message            string               `json:"message,omitempty"`
	ValidationMessages []validators.Failure `json:"validationMessages,omitempty"`
}

// DeleteOutput is the result of a delete operation
type DeleteOutput struct {
	Image *Info `json:"image"`
}

// StackEvent is a single CloudFormation event of the image stack
type StackEvent struct {
	EventID              string    `json:"eventId"`
	StackName            string    `json:"stackName"`
	LogicalResourceID    string    `json:"logicalResourceId"`
	PhysicalResourceID   string    `json:"physicalResourceId"`
	ResourceType         string    `json:"resourceType"`
	ResourceStatus       string    `json:"resourceStatus"`
	ResourceStatusReason string    `json:"resourceStatusReason,omitempty"`
	Timestamp            time.Time `json:"timestamp"`
}

// buildStatusFromStack maps a CloudFormation stack status to a build
// status, a complete stack is deleted shortly after by the cleanup
// function it carries
func buildStatusFromStack(status string) string {
	switch {
	case status == "CREATE_COMPLETE":
		return BuildStatusComplete
	case status == "DELETE_IN_PROGRESS":
		return BuildStatusDeleteInProgress
	case status == "DELETE_FAILED":
		return BuildStatusDeleteFailed
	case status == "CREATE_FAILED",
		strings.HasPrefix(status, "ROLLBACK_"),
		strings.HasPrefix(status, "UPDATE_ROLLBACK_"):
		return BuildStatusFailed
	}

	return BuildStatusInProgress
}
