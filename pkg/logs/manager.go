package logs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	cp "github.com/otiai10/copy"
	"github.com/ryanuber/go-glob"
	"github.com/sethvargo/go-retry"

	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/clients/aws"
	"github.com/gantry-labs/gantry/pkg/clients/logger"
	"github.com/gantry-labs/gantry/pkg/clients/tar"
	"github.com/gantry-labs/gantry/pkg/utils"
)

const (
	// exportTimeout bounds the total time spent waiting for a CloudWatch
	// export task to finish
	exportTimeout = 15 * time.Minute

	exportPollBase = 500 * time.Millisecond
	exportPollCap  = 10 * time.Second
)

// Manager reads and exports the CloudWatch logs written by clusters and
// image builds
type Manager struct {
	c   *clients.Clients
	log logger.Logger
}

// NewManager creates a new log manager using the given clients
func NewManager(c *clients.Clients) *Manager {
	return &Manager{c, c.Logger}
}

// ListStreams returns one page of log streams for the given source,
// the stack events pseudo stream is prepended to the first page
func (m *Manager) ListStreams(ctx context.Context, in ListStreamsInput) (*ListStreamsOutput, error) {
	streams, token, err := m.c.Logs.ListLogStreams(ctx, in.Source.Group, "", in.NextToken)
	if err != nil {
		var notFound aws.LogGroupNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}

		// the log group only appears once the first instance boots, fall
		// back to the stack so young resources still list their events
		exists, serr := m.c.CFN.StackExists(ctx, in.Source.Stack)
		if serr != nil {
			return nil, serr
		}

		if !exists {
			return nil, in.Source.notFound()
		}

		streams = nil
		token = ""
	}

	out := &ListStreamsOutput{Streams: []Stream{}, NextToken: token}

	if in.NextToken == "" && matchesFilters(StackEventsStream, in.Filters) {
		out.Streams = append(out.Streams, Stream{Name: StackEventsStream})
	}

	for _, s := range streams {
		if !matchesFilters(s.Name, in.Filters) {
			continue
		}

		out.Streams = append(out.Streams, toStream(s))
	}

	return out, nil
}

// GetEvents returns one page of events from a stream of the given source
// together with the tokens addressing the neighbouring pages
func (m *Manager) GetEvents(ctx context.Context, in GetEventsInput) (*GetEventsOutput, error) {
	if in.Head > 0 && in.Tail > 0 {
		return nil, fmt.Errorf("head and tail cannot be combined")
	}

	if err := validateWindow(in.StartTime, in.EndTime); err != nil {
		return nil, err
	}

	if in.Stream == StackEventsStream {
		return m.stackEvents(ctx, in)
	}

	li := aws.GetLogEventsInput{
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Limit:     in.Limit,
		NextToken: in.NextToken,
	}

	if in.Head > 0 {
		li.StartFromHead = true
		li.Limit = in.Head
	}

	if in.Tail > 0 {
		li.Limit = in.Tail
	}

	events, fwd, bwd, err := m.c.Logs.GetLogEvents(ctx, in.Source.Group, in.Stream, li)
	if err != nil {
		var notFound aws.LogGroupNotFoundError
		if errors.As(err, &notFound) {
			return nil, in.Source.noLogs()
		}

		return nil, err
	}

	out := &GetEventsOutput{Events: []Event{}, NextToken: fwd, PreviousToken: bwd}
	for _, e := range events {
		out.Events = append(out.Events, Event{Timestamp: e.Timestamp, Message: e.Message})
	}

	return out, nil
}

// Export copies the logs of the given source to S3 using a CloudWatch
// export task, downloads the exported streams, adds the stack events and
// re-packs everything as a single tar.gz archive
func (m *Manager) Export(ctx context.Context, in ExportInput) (*ExportOutput, error) {
	stack, err := m.c.CFN.DescribeStack(ctx, in.Source.Stack)
	if err != nil {
		if aws.IsStackNotFound(err) {
			return nil, in.Source.notFound()
		}

		return nil, err
	}

	start := in.StartTime
	if start.IsZero() {
		start = stack.CreationTime
	}

	end := in.EndTime
	if end.IsZero() {
		end = time.Now()
	}

	if err := validateWindow(start, end); err != nil {
		return nil, err
	}

	bucket := in.Bucket
	if bucket == "" {
		account, err := m.c.STS.AccountID(ctx)
		if err != nil {
			return nil, err
		}

		bucket = utils.ArtifactBucketName(account, m.c.Region)
	}

	bundle := fmt.Sprintf("%s-logs-%d", in.Source.Name, time.Now().UnixMilli())

	prefix := in.BucketPrefix
	if prefix == "" {
		prefix = bundle
	}

	staging := utils.ExportStagingFolder(bundle)
	defer os.RemoveAll(staging)

	bundleDir := filepath.Join(staging, bundle)
	if err := os.MkdirAll(bundleDir, 0755); err != nil {
		return nil, fmt.Errorf("unable to create the staging folder %s: %w", bundleDir, err)
	}

	hasLogs, err := m.c.Logs.LogGroupExists(ctx, in.Source.Group)
	if err != nil {
		return nil, err
	}

	if hasLogs {
		if err := m.stageStreams(ctx, in, bucket, prefix, start, end, staging, bundleDir); err != nil {
			return nil, err
		}
	} else {
		m.log.Debug("Log group does not exist, the archive only contains stack events", "group", in.Source.Group)
	}

	if err := m.writeStackEvents(ctx, in.Source, bundleDir); err != nil {
		return nil, err
	}

	output := in.OutputFile
	if output == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}

		output = filepath.Join(cwd, bundle+".tar.gz")
	}

	if err := m.archive(bundleDir, output); err != nil {
		return nil, err
	}

	m.log.Info("Exported logs", "source", in.Source.Name, "archive", output)

	return &ExportOutput{LogArchive: output}, nil
}

// stageStreams runs the CloudWatch export task and stages the exported
// streams inside the bundle directory
func (m *Manager) stageStreams(ctx context.Context, in ExportInput, bucket, prefix string, start, end time.Time, staging, bundleDir string) error {
	taskID, err := m.c.Logs.CreateExportTask(ctx, in.Source.Group, start, end, bucket, prefix)
	if err != nil {
		return err
	}

	m.log.Info("Waiting for the log export task to complete", "task", taskID)

	if err := m.waitForExportTask(ctx, taskID); err != nil {
		return err
	}

	keys, err := m.c.S3.ListObjects(ctx, bucket, prefix)
	if err != nil {
		return err
	}

	download := filepath.Join(staging, "download")
	for _, key := range keys {
		// CloudWatch writes a permission check object at the top of the
		// prefix, it is not part of the export
		if strings.HasSuffix(key, "aws-logs-write-test") {
			continue
		}

		rel := strings.TrimPrefix(key, prefix+"/")
		dest := filepath.Join(download, filepath.FromSlash(rel))

		if err := m.c.S3.DownloadObject(ctx, bucket, key, dest); err != nil {
			return err
		}
	}

	// the exported objects are nested under the id of the export task,
	// flatten that level away so the archive starts at the stream names
	entries, err := os.ReadDir(download)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return err
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		if err := cp.Copy(filepath.Join(download, e.Name()), bundleDir, cp.Options{Sync: true}); err != nil {
			return fmt.Errorf("unable to stage the exported streams: %w", err)
		}
	}

	if len(in.Filters) == 0 {
		return nil
	}

	streams, err := os.ReadDir(bundleDir)
	if err != nil {
		return err
	}

	for _, s := range streams {
		if !matchesFilters(s.Name(), in.Filters) {
			if err := os.RemoveAll(filepath.Join(bundleDir, s.Name())); err != nil {
				return err
			}
		}
	}

	// the export to S3 is an intermediate step, remove the objects once
	// they are staged locally
	if err := m.c.S3.DeleteObjects(ctx, bucket, prefix); err != nil {
		m.log.Warn("Unable to remove the exported objects", "bucket", bucket, "prefix", prefix, "error", err)
	}

	return nil
}

func (m *Manager) waitForExportTask(ctx context.Context, taskID string) error {
	b := retry.WithMaxDuration(exportTimeout, retry.WithCappedDuration(exportPollCap, retry.NewFibonacci(exportPollBase)))

	return retry.Do(ctx, b, func(ctx context.Context) error {
		status, err := m.c.Logs.ExportTaskStatus(ctx, taskID)
		if err != nil {
			return err
		}

		switch status {
		case "COMPLETED":
			return nil
		case "CANCELLED", "FAILED":
			return fmt.Errorf("the log export task %s ended with status %s", taskID, status)
		default:
			return retry.RetryableError(fmt.Errorf("the log export task %s is still %s", taskID, status))
		}
	})
}

// writeStackEvents renders every CloudFormation event of the source
// stack into a log file inside the bundle
func (m *Manager) writeStackEvents(ctx context.Context, source Source, bundleDir string) error {
	f, err := os.Create(filepath.Join(bundleDir, StackEventsStream+".log"))
	if err != nil {
		return err
	}
	defer f.Close()

	token := ""
	for {
		events, next, err := m.c.CFN.StackEvents(ctx, source.Stack, token)
		if err != nil {
			return err
		}

		for _, e := range events {
			if _, err := fmt.Fprintln(f, formatStackEvent(e)); err != nil {
				return err
			}
		}

		if next == "" {
			return nil
		}

		token = next
	}
}

func (m *Manager) archive(bundleDir, output string) error {
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("unable to create the archive %s: %w", output, err)
	}
	defer f.Close()

	if err := m.c.TarGz.Create(f, &tar.TarGzOptions{ZipContents: true}, []string{bundleDir}); err != nil {
		return fmt.Errorf("unable to write the archive %s: %w", output, err)
	}

	return nil
}

// stackEvents serves the pseudo stream backed by the CloudFormation
// events of the source stack, events arrive newest first
func (m *Manager) stackEvents(ctx context.Context, in GetEventsInput) (*GetEventsOutput, error) {
	events, token, err := m.c.CFN.StackEvents(ctx, in.Source.Stack, in.NextToken)
	if err != nil {
		if aws.IsStackNotFound(err) {
			return nil, in.Source.notFound()
		}

		return nil, err
	}

	out := &GetEventsOutput{Events: []Event{}, NextToken: token}
	for _, e := range events {
		if !in.StartTime.IsZero() && e.Timestamp.Before(in.StartTime) {
			continue
		}

		if !in.EndTime.IsZero() && !e.Timestamp.Before(in.EndTime) {
			continue
		}

		out.Events = append(out.Events, Event{Timestamp: e.Timestamp, Message: formatStackEvent(e)})
	}

	// the page is ordered newest first so head, tail and limit all cap it
	// at the most recent events
	limit := in.Limit
	if in.Head > 0 {
		limit = in.Head
	}

	if in.Tail > 0 {
		limit = in.Tail
	}

	if limit > 0 && len(out.Events) > limit {
		out.Events = out.Events[:limit]
		out.NextToken = ""
	}

	return out, nil
}

func validateWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return nil
	}

	if !start.Before(end) {
		return fmt.Errorf("the start time %s must be earlier than the end time %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	return nil
}

// formatStackEvent renders a stack event as a single log line
func formatStackEvent(e aws.StackEvent) string {
	return strings.TrimSpace(fmt.Sprintf("%s %s %s %s %s",
		e.Timestamp.Format(time.RFC3339),
		e.ResourceType,
		e.LogicalResourceID,
		e.ResourceStatus,
		e.ResourceStatusReason,
	))
}

// matchesFilters returns true when the name matches any of the given
// glob patterns, an empty filter list matches everything
func matchesFilters(name string, filters []string) bool {
	if len(filters) == 0 {
		return true
	}

	for _, f := range filters {
		if glob.Glob(f, name) {
			return true
		}
	}

	return false
}

func toStream(s aws.LogStream) Stream {
	return Stream{
		Name:           s.Name,
		CreationTime:   optionalTime(s.CreationTime),
		FirstEventTime: optionalTime(s.FirstEventTime),
		LastEventTime:  optionalTime(s.LastEventTime),
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}

	return &t
}
