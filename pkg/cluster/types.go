package cluster

import (
	"strings"
	"time"

	"github.com/gantry-labs/gantry/pkg/config"
	"github.com/gantry-labs/gantry/pkg/validators"
)

// Cluster statuses as reported by describe and list operations
const (
	StatusCreateInProgress = "CREATE_IN_PROGRESS"
	StatusCreateComplete   = "CREATE_COMPLETE"
	StatusCreateFailed     = "CREATE_FAILED"
	StatusDeleteInProgress = "DELETE_IN_PROGRESS"
	StatusDeleteFailed     = "DELETE_FAILED"
	StatusUpdateInProgress = "UPDATE_IN_PROGRESS"
	StatusUpdateComplete   = "UPDATE_COMPLETE"
	StatusUpdateFailed     = "UPDATE_FAILED"
)

// Compute fleet statuses
const (
	FleetStatusRunning        = "RUNNING"
	FleetStatusStopped        = "STOPPED"
	FleetStatusStartRequested = "START_REQUESTED"
	FleetStatusStopRequested  = "STOP_REQUESTED"
	FleetStatusStarting       = "STARTING"
	FleetStatusStopping       = "STOPPING"
	FleetStatusEnabled        = "ENABLED"
	FleetStatusDisabled       = "DISABLED"
	FleetStatusUnknown        = "UNKNOWN"
)

// DryrunMessage is returned when an operation is only simulated
const DryrunMessage = "Request would have succeeded, but DryRun flag is set."

// Info is the summarised state of a cluster
type Info struct {
	ClusterName               string `json:"clusterName"`
	Region                    string `json:"region"`
	Version                   string `json:"version"`
	CloudformationStackArn    string `json:"cloudformationStackArn"`
	CloudformationStackStatus string `json:"cloudformationStackStatus"`
	ClusterStatus             string `json:"clusterStatus"`
	Scheduler                 string `json:"scheduler,omitempty"`
}

// HeadNode is the state of the instance managing a cluster
type HeadNode struct {
	InstanceID       string    `json:"instanceId"`
	InstanceType     string    `json:"instanceType"`
	State            string    `json:"state"`
	LaunchTime       time.Time `json:"launchTime"`
	PrivateIPAddress string    `json:"privateIpAddress"`
	PublicIPAddress  string    `json:"publicIpAddress,omitempty"`
}

// Description is the detailed state of a cluster
type Description struct {
	ClusterName               string            `json:"clusterName"`
	Region                    string            `json:"region"`
	Version                   string            `json:"version"`
	CloudformationStackArn    string            `json:"cloudformationStackArn"`
	CloudformationStackStatus string            `json:"cloudformationStackStatus"`
	ClusterStatus             string            `json:"clusterStatus"`
	Scheduler                 string            `json:"scheduler,omitempty"`
	CreationTime              time.Time         `json:"creationTime"`
	LastUpdatedTime           time.Time         `json:"lastUpdatedTime"`
	ClusterConfiguration      ConfigurationURL  `json:"clusterConfiguration"`
	ComputeFleetStatus        string            `json:"computeFleetStatus"`
	Tags                      []config.Tag      `json:"tags"`
	HeadNode                  *HeadNode         `json:"headNode,omitempty"`
	Failures                  []StatusReason    `json:"failures,omitempty"`
}

// ConfigurationURL points at the configuration a cluster was created
// with
type ConfigurationURL struct {
	URL string `json:"url"`
}

// StatusReason explains a failed cluster operation
type StatusReason struct {
	FailureCode string `json:"failureCode,omitempty"`
	Reason      string `json:"reason"`
}

// CreateOutput is the result of a create operation
type CreateOutput struct {
	Cluster            *Info                `json:"cluster,omitempty"`
	Message            string               `json:"message,omitempty"`
	ValidationMessages []validators.Failure `json:"validationMessages,omitempty"`
}

// UpdateOutput is the result of an update operation
type UpdateOutput struct {
	Cluster            *Info                `json:"cluster,omitempty"`
	Message            string               `json:"message,omitempty"`
	ChangeSet          []config.Change      `json:"changeSet"`
	ValidationMessages []validators.Failure `json:"validationMessages,omitempty"`
}

// DeleteOutput is the result of a delete operation
type DeleteOutput struct {
	Cluster *Info `json:"cluster"`
}

// Instance is the summarised state of a cluster node
type Instance struct {
	InstanceID       string    `json:"instanceId"`
	InstanceType     string    `json:"instanceType"`
	State            string    `json:"state"`
	LaunchTime       time.Time `json:"launchTime"`
	PrivateIPAddress string    `json:"privateIpAddress"`
	PublicIPAddress  string    `json:"publicIpAddress,omitempty"`
	NodeType         string    `json:"nodeType"`
	QueueName        string    `json:"queueName,omitempty"`
}

// FleetStatus is the state of the compute fleet of a cluster
type FleetStatus struct {
	Status                string     `json:"status"`
	LastStatusUpdatedTime *time.Time `json:"lastStatusUpdatedTime,omitempty"`
}

// StackEvent is a single CloudFormation event of the cluster stack
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

// statusFromStack maps a CloudFormation stack status to a cluster
// status
func statusFromStack(status string) string {
	switch {
	case status == "CREATE_IN_PROGRESS":
		return StatusCreateInProgress
	case status == "CREATE_COMPLETE":
		return StatusCreateComplete
	case status == "CREATE_FAILED",
		strings.HasPrefix(status, "ROLLBACK_"):
		return StatusCreateFailed
	case status == "DELETE_IN_PROGRESS":
		return StatusDeleteInProgress
	case status == "DELETE_FAILED":
		return StatusDeleteFailed
	case status == "UPDATE_COMPLETE":
		return StatusUpdateComplete
	case strings.HasPrefix(status, "UPDATE_ROLLBACK_"), status == "UPDATE_FAILED":
		return StatusUpdateFailed
	case strings.HasPrefix(status, "UPDATE_"):
		return StatusUpdateInProgress
	}

	return status
}
