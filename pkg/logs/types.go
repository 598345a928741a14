package logs

import (
	"fmt"
	"time"

	"github.com/gantry-labs/gantry/pkg/utils"
)

// StackEventsStream is the pseudo stream exposing the CloudFormation
// events of a stack alongside its CloudWatch streams
const StackEventsStream = "cloudformation-stack-events"

// Source identifies where a cluster or an image build writes its logs
type Source struct {
	Kind  string
	Name  string
	Group string
	Stack string
}

// ClusterSource addresses the logs of a cluster
func ClusterSource(name string) Source {
	return Source{
		Kind:  "cluster",
		Name:  name,
		Group: utils.ClusterLogGroup(name),
		Stack: utils.ClusterStackName(name),
	}
}

// ImageSource addresses the logs of an image build
func ImageSource(id string) Source {
	return Source{
		Kind:  "image",
		Name:  id,
		Group: utils.ImageLogGroup(id),
		Stack: id,
	}
}

func (s Source) notFound() error {
	return fmt.Errorf("%s %s does not exist", s.Kind, s.Name)
}

func (s Source) noLogs() error {
	return fmt.Errorf("no logs found for %s %s", s.Kind, s.Name)
}

// Stream is the summarised state of a log stream
type Stream struct {
	Name           string     `json:"logStreamName"`
	CreationTime   *time.Time `json:"creationTime,omitempty"`
	FirstEventTime *time.Time `json:"firstEventTimestamp,omitempty"`
	LastEventTime  *time.Time `json:"lastEventTimestamp,omitempty"`
}

// Event is a single log line
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// ListStreamsInput contains the options used when listing log streams
type ListStreamsInput struct {
	Source    Source
	Filters   []string
	NextToken string
}

// ListStreamsOutput is one page of log streams
type ListStreamsOutput struct {
	Streams   []Stream `json:"logStreams"`
	NextToken string   `json:"nextToken,omitempty"`
}

// GetEventsInput contains the options used when fetching log events
type GetEventsInput struct {
	Source    Source
	Stream    string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Head      int
	Tail      int
	NextToken string
}

// GetEventsOutput is one page of log events together with the tokens
// for the neighbouring pages
type GetEventsOutput struct {
	Events        []Event `json:"events"`
	NextToken     string  `json:"nextToken,omitempty"`
	PreviousToken string  `json:"previousToken,omitempty"`
}

// ExportInput contains the options used when exporting logs to an
// archive
type ExportInput struct {
	Source       Source
	Bucket       string
	BucketPrefix string
	OutputFile   string
	StartTime    time.Time
	EndTime      time.Time
	Filters      []string
}

// ExportOutput points at the archive written by an export
type ExportOutput struct {
	LogArchive string `json:"path"`
}
