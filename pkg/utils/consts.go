package utils

import (
	"fmt"
	"strings"
)

// StackPrefix is prepended to the cluster name to form the name of the
// CloudFormation stack managing the cluster
const StackPrefix = "gantry-"

// ReservedTagPrefix marks tag keys managed by gantry, user supplied tags
// must not use it
const ReservedTagPrefix = "gantry:"

// Tags written to CloudFormation stacks and the resources they create
const (
	VersionTag     = "gantry:version"
	ClusterNameTag = "gantry:cluster-name"
	ConfigHashTag  = "gantry:config-hash"
	SchedulerTag   = "gantry:scheduler"
	NodeTypeTag    = "gantry:node-type"
	QueueNameTag   = "gantry:queue-name"
	ImageIDTag     = "gantry:image:id"
	ImageNameTag   = "gantry:image:name"
	ImageConfigTag = "gantry:build-config"
)

// Node type tag values
const (
	NodeTypeHeadNode = "HeadNode"
	NodeTypeCompute  = "ComputeNode"
)

// ClusterStackName returns the name of the CloudFormation stack
// managing the given cluster
func ClusterStackName(clusterName string) string {
	return StackPrefix + clusterName
}

// ClusterNameFromStack returns the cluster name for a stack created
// by ClusterStackName
func ClusterNameFromStack(stackName string) string {
	return strings.TrimPrefix(stackName, StackPrefix)
}

// FleetStatusTable returns the name of the DynamoDB table holding the
// compute fleet state for the given cluster
func FleetStatusTable(clusterName string) string {
	return StackPrefix + clusterName
}

// ClusterLogGroup returns the CloudWatch log group for the given cluster
func ClusterLogGroup(clusterName string) string {
	return fmt.Sprintf("/aws/gantry/clusters/%s", clusterName)
}

// ImageLogGroup returns the CloudWatch log group for the given image build
func ImageLogGroup(imageID string) string {
	return fmt.Sprintf("/aws/gantry/images/%s", imageID)
}
