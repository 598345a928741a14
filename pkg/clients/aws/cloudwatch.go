package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/gantry-labs/gantry/pkg/clients/logger"
)

// LogGroupNotFoundError is returned when a CloudWatch log group or one of
// its streams does not exist
type LogGroupNotFoundError struct {
	Group string
}

func (e LogGroupNotFoundError) Error() string {
	return fmt.Sprintf("log group %s does not exist", e.Group)
}

// GetLogEventsInput contains the options used when fetching log events
type GetLogEventsInput struct {
	StartTime     time.Time
	EndTime       time.Time
	Limit         int
	StartFromHead bool
	NextToken     string
}

// Logs defines the interactions with the CloudWatch Logs API
type Logs interface {
	// LogGroupExists returns true when the named log group exists
	LogGroupExists(ctx context.Context, group string) (bool, error)
	// ListLogStreams returns one page of streams for the given log group
	// ordered by the time of their last event, newest first, together with
	// the token for the next page
	ListLogStreams(ctx context.Context, group, prefix, nextToken string) ([]LogStream, string, error)
	// GetLogEvents returns one page of events from the given stream together
	// with the forward and backward tokens for further pages
	GetLogEvents(ctx context.Context, group, stream string, in GetLogEventsInput) ([]LogEvent, string, string, error)
	// CreateExportTask starts an export of the given log group to an S3
	// bucket and returns the id of the export task
	CreateExportTask(ctx context.Context, group string, from, to time.Time, bucket, prefix string) (string, error)
	// ExportTaskStatus returns the status code of the given export task
	ExportTaskStatus(ctx context.Context, taskID string) (string, error)
}

// LogsImpl is a concrete implementation of the Logs interface
type LogsImpl struct {
	client *cloudwatchlogs.Client
	log    logger.Logger
}

// NewLogs creates a new CloudWatch Logs client
func NewLogs(cfg aws.Config, l logger.Logger) Logs {
	return &LogsImpl{cloudwatchlogs.NewFromConfig(cfg), l}
}

func (c *LogsImpl) LogGroupExists(ctx context.Context, group string) (bool, error) {
	out, err := c.client.DescribeLogGroups(ctx, &cloudwatchlogs.DescribeLogGroupsInput{
		LogGroupNamePrefix: aws.String(group),
	})
	if err != nil {
		return false, fmt.Errorf("unable to describe log group %s: %w", group, err)
	}

	for _, g := range out.LogGroups {
		if aws.ToString(g.LogGroupName) == group {
			return true, nil
		}
	}

	return false, nil
}

func (c *LogsImpl) ListLogStreams(ctx context.Context, group, prefix, nextToken string) ([]LogStream, string, error) {
	in := &cloudwatchlogs.DescribeLogStreamsInput{
		LogGroupName: aws.String(group),
		OrderBy:      types.OrderByLastEventTime,
		Descending:   aws.Bool(true),
	}

	// ordering by last event time is not permitted together with a
	// name prefix
	if prefix != "" {
		in.LogStreamNamePrefix = aws.String(prefix)
		in.OrderBy = types.OrderByLogStreamName
		in.Descending = nil
	}

	if nextToken != "" {
		in.NextToken = aws.String(nextToken)
	}

	out, err := c.client.DescribeLogStreams(ctx, in)
	if err != nil {
		if apiErrorCode(err, "ResourceNotFoundException") {
			return nil, "", LogGroupNotFoundError{Group: group}
		}

		return nil, "", fmt.Errorf("unable to list streams for log group %s: %w", group, err)
	}

	streams := []LogStream{}
	for _, s := range out.LogStreams {
		streams = append(streams, LogStream{
			Name:           aws.ToString(s.LogStreamName),
			CreationTime:   toTimeMillis(s.CreationTime),
			FirstEventTime: toTimeMillis(s.FirstEventTimestamp),
			LastEventTime:  toTimeMillis(s.LastEventTimestamp),
		})
	}

	return streams, aws.ToString(out.NextToken), nil
}

func (c *LogsImpl) GetLogEvents(ctx context.Context, group, stream string, in GetLogEventsInput) ([]LogEvent, string, string, error) {
	input := &cloudwatchlogs.GetLogEventsInput{
		LogGroupName:  aws.String(group),
		LogStreamName: aws.String(stream),
		StartFromHead: aws.Bool(in.StartFromHead),
	}

	if !in.StartTime.IsZero() {
		input.StartTime = aws.Int64(in.StartTime.UnixMilli())
	}

	if !in.EndTime.IsZero() {
		input.EndTime = aws.Int64(in.EndTime.UnixMilli())
	}

	if in.Limit > 0 {
		input.Limit = aws.Int32(int32(in.Limit))
	}

	if in.NextToken != "" {
		input.NextToken = aws.String(in.NextToken)
	}

	out, err := c.client.GetLogEvents(ctx, input)
	if err != nil {
		if apiErrorCode(err, "ResourceNotFoundException") {
			return nil, "", "", LogGroupNotFoundError{Group: group}
		}

		return nil, "", "", fmt.Errorf("unable to get events for stream %s: %w", stream, err)
	}

	events := []LogEvent{}
	for _, e := range out.Events {
		events = append(events, LogEvent{
			Timestamp: toTimeMillis(e.Timestamp),
			Message:   aws.ToString(e.Message),
		})
	}

	return events, aws.ToString(out.NextForwardToken), aws.ToString(out.NextBackwardToken), nil
}

func (c *LogsImpl) CreateExportTask(ctx context.Context, group string, from, to time.Time, bucket, prefix string) (string, error) {
	c.log.Debug("Creating export task", "group", group, "bucket", bucket, "prefix", prefix)

	in := &cloudwatchlogs.CreateExportTaskInput{
		LogGroupName: aws.String(group),
		From:         aws.Int64(from.UnixMilli()),
		To:           aws.Int64(to.UnixMilli()),
		Destination:  aws.String(bucket),
		TaskName:     aws.String(fmt.Sprintf("%s-export", group)),
	}

	if prefix != "" {
		in.DestinationPrefix = aws.String(prefix)
	}

	out, err := c.client.CreateExportTask(ctx, in)
	if err != nil {
		if apiErrorCode(err, "ResourceNotFoundException") {
			return "", LogGroupNotFoundError{Group: group}
		}

		return "", fmt.Errorf("unable to create export task for log group %s: %w", group, err)
	}

	return aws.ToString(out.TaskId), nil
}

func (c *LogsImpl) ExportTaskStatus(ctx context.Context, taskID string) (string, error) {
	out, err := c.client.DescribeExportTasks(ctx, &cloudwatchlogs.DescribeExportTasksInput{
		TaskId: aws.String(taskID),
	})
	if err != nil {
		return "", fmt.Errorf("unable to describe export task %s: %w", taskID, err)
	}

	if len(out.ExportTasks) == 0 || out.ExportTasks[0].Status == nil {
		return "", fmt.Errorf("export task %s not found", taskID)
	}

	return string(out.ExportTasks[0].Status.Code), nil
}

func toTimeMillis(ms *int64) time.Time {
	if ms == nil {
		return time.Time{}
	}

	return time.UnixMilli(*ms).UTC()
}
