package logs

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gantry-labs/gantry/pkg/clients"
	"github.com/gantry-labs/gantry/pkg/clients/aws"
	"github.com/gantry-labs/gantry/pkg/clients/aws/mocks"
	"github.com/gantry-labs/gantry/pkg/clients/logger"
	gtar "github.com/gantry-labs/gantry/pkg/clients/tar"
	"github.com/gantry-labs/gantry/pkg/utils"
)

const (
	clusterGroup = "/aws/gantry/clusters/demo"
	clusterStack = "gantry-demo"
)

var streamTime = time.Date(2024, 5, 2, 10, 30, 0, 0, time.UTC)

type logsMocks struct {
	cfn  *mocks.MockCFN
	logs *mocks.MockLogs
	s3   *mocks.MockS3
	sts  *mocks.MockSTS
}

func setupManager(t *testing.T) (*Manager, *logsMocks) {
	lm := &logsMocks{
		cfn:  &mocks.MockCFN{},
		logs: &mocks.MockLogs{},
		s3:   &mocks.MockS3{},
		sts:  &mocks.MockSTS{},
	}

	c := &clients.Clients{
		CFN:    lm.cfn,
		Logs:   lm.logs,
		S3:     lm.s3,
		STS:    lm.sts,
		TarGz:  &gtar.TarGz{},
		Logger: logger.NewTestLogger(t),
		Region: "eu-west-1",
	}

	return NewManager(c), lm
}

func headNodeStream() aws.LogStream {
	return aws.LogStream{
		Name:           "ip-10-0-0-12.i-0abc123def456.cfn-init",
		CreationTime:   streamTime,
		FirstEventTime: streamTime,
		LastEventTime:  streamTime.Add(10 * time.Minute),
	}
}

func demoStackEvents() []aws.StackEvent {
	return []aws.StackEvent{
		{
			EventID:           "evt-2",
			StackName:         clusterStack,
			LogicalResourceID: clusterStack,
			ResourceType:      "AWS::CloudFormation::Stack",
			ResourceStatus:    "CREATE_COMPLETE",
			Timestamp:         streamTime.Add(5 * time.Minute),
		},
		{
			EventID:              "evt-1",
			StackName:            clusterStack,
			LogicalResourceID:    "HeadNode",
			ResourceType:         "AWS::EC2::Instance",
			ResourceStatus:       "CREATE_IN_PROGRESS",
			ResourceStatusReason: "Resource creation Initiated",
			Timestamp:            streamTime,
		},
	}
}

func TestListStreamsPrependsStackEvents(t *testing.T) {
	m, lm := setupManager(t)
	lm.logs.On("ListLogStreams", mock.Anything, clusterGroup, "", "").
		Return([]aws.LogStream{headNodeStream()}, "page-2", nil)

	out, err := m.ListStreams(context.Background(), ListStreamsInput{Source: ClusterSource("demo")})

	require.NoError(t, err)
	require.Len(t, out.Streams, 2)
	assert.Equal(t, StackEventsStream, out.Streams[0].Name)
	assert.Equal(t, "ip-10-0-0-12.i-0abc123def456.cfn-init", out.Streams[1].Name)
	assert.Equal(t, "page-2", out.NextToken)

	require.NotNil(t, out.Streams[1].LastEventTime)
	assert.Equal(t, streamTime.Add(10*time.Minute), *out.Streams[1].LastEventTime)
	assert.Nil(t, out.Streams[0].CreationTime)
}

func TestListStreamsLaterPagesOmitStackEvents(t *testing.T) {
	m, lm := setupManager(t)
	lm.logs.On("ListLogStreams", mock.Anything, clusterGroup, "", "page-2").
		Return([]aws.LogStream{headNodeStream()}, "", nil)

	out, err := m.ListStreams(context.Background(), ListStreamsInput{
		Source:    ClusterSource("demo"),
		NextToken: "page-2",
	})

	require.NoError(t, err)
	require.Len(t, out.Streams, 1)
	assert.Equal(t, "ip-10-0-0-12.i-0abc123def456.cfn-init", out.Streams[0].Name)
}

func TestListStreamsAppliesGlobFilters(t *testing.T) {
	m, lm := setupManager(t)
	lm.logs.On("ListLogStreams", mock.Anything, clusterGroup, "", "").
		Return([]aws.LogStream{
			{Name: "ip-10-0-0-12.i-0abc123def456.cfn-init"},
			{Name: "ip-10-0-0-12.i-0abc123def456.chef-client"},
		}, "", nil)

	out, err := m.ListStreams(context.Background(), ListStreamsInput{
		Source:  ClusterSource("demo"),
		Filters: []string{"*.cfn-init"},
	})

	require.NoError(t, err)
	require.Len(t, out.Streams, 1)
	assert.Equal(t, "ip-10-0-0-12.i-0abc123def456.cfn-init", out.Streams[0].Name)
}

func TestListStreamsFallsBackToStack(t *testing.T) {
	m, lm := setupManager(t)
	lm.logs.On("ListLogStreams", mock.Anything, clusterGroup, "", "").
		Return(nil, "", aws.LogGroupNotFoundError{Group: clusterGroup})
	lm.cfn.On("StackExists", mock.Anything, clusterStack).Return(true, nil)

	out, err := m.ListStreams(context.Background(), ListStreamsInput{Source: ClusterSource("demo")})

	require.NoError(t, err)
	require.Len(t, out.Streams, 1)
	assert.Equal(t, StackEventsStream, out.Streams[0].Name)
	assert.Equal(t, "", out.NextToken)
}

func TestListStreamsFailsWhenClusterMissing(t *testing.T) {
	m, lm := setupManager(t)
	lm.logs.On("ListLogStreams", mock.Anything, clusterGroup, "", "").
		Return(nil, "", aws.LogGroupNotFoundError{Group: clusterGroup})
	lm.cfn.On("StackExists", mock.Anything, clusterStack).Return(false, nil)

	_, err := m.ListStreams(context.Background(), ListStreamsInput{Source: ClusterSource("demo")})

	require.EqualError(t, err, "cluster demo does not exist")
}

func TestGetEventsReturnsPage(t *testing.T) {
	m, lm := setupManager(t)

	var captured aws.GetLogEventsInput
	lm.logs.On("GetLogEvents", mock.Anything, clusterGroup, "ip-10-0-0-12.i-0abc123def456.cfn-init", mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(3).(aws.GetLogEventsInput)
		}).
		Return([]aws.LogEvent{{Timestamp: streamTime, Message: "Starting cfn-init"}}, "f/2", "b/1", nil)

	out, err := m.GetEvents(context.Background(), GetEventsInput{
		Source: ClusterSource("demo"),
		Stream: "ip-10-0-0-12.i-0abc123def456.cfn-init",
		Limit:  50,
	})

	require.NoError(t, err)
	require.Len(t, out.Events, 1)
	assert.Equal(t, "Starting cfn-init", out.Events[0].Message)
	assert.Equal(t, streamTime, out.Events[0].Timestamp)
	assert.Equal(t, "f/2", out.NextToken)
	assert.Equal(t, "b/1", out.PreviousToken)

	assert.Equal(t, 50, captured.Limit)
	assert.False(t, captured.StartFromHead)
}

func TestGetEventsHeadReadsFromTheStart(t *testing.T) {
	m, lm := setupManager(t)

	var captured aws.GetLogEventsInput
	lm.logs.On("GetLogEvents", mock.Anything, clusterGroup, "stream", mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(3).(aws.GetLogEventsInput)
		}).
		Return([]aws.LogEvent{}, "", "", nil)

	_, err := m.GetEvents(context.Background(), GetEventsInput{
		Source: ClusterSource("demo"),
		Stream: "stream",
		Head:   3,
	})

	require.NoError(t, err)
	assert.True(t, captured.StartFromHead)
	assert.Equal(t, 3, captured.Limit)
}

func TestGetEventsRejectsHeadAndTail(t *testing.T) {
	m, lm := setupManager(t)

	_, err := m.GetEvents(context.Background(), GetEventsInput{
		Source: ClusterSource("demo"),
		Stream: "stream",
		Head:   3,
		Tail:   3,
	})

	require.EqualError(t, err, "head and tail cannot be combined")
	lm.logs.AssertNotCalled(t, "GetLogEvents", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetEventsRejectsInvalidWindow(t *testing.T) {
	m, _ := setupManager(t)

	_, err := m.GetEvents(context.Background(), GetEventsInput{
		Source:    ClusterSource("demo"),
		Stream:    "stream",
		StartTime: streamTime.Add(time.Hour),
		EndTime:   streamTime,
	})

	require.ErrorContains(t, err, "must be earlier than the end time")
}

func TestGetEventsFailsWhenStreamMissing(t *testing.T) {
	m, lm := setupManager(t)
	lm.logs.On("GetLogEvents", mock.Anything, clusterGroup, "stream", mock.Anything).
		Return(nil, "", "", aws.LogGroupNotFoundError{Group: clusterGroup})

	_, err := m.GetEvents(context.Background(), GetEventsInput{
		Source: ClusterSource("demo"),
		Stream: "stream",
	})

	require.EqualError(t, err, "no logs found for cluster demo")
}

func TestGetEventsReadsStackEvents(t *testing.T) {
	m, lm := setupManager(t)
	lm.cfn.On("StackEvents", mock.Anything, clusterStack, "").
		Return(demoStackEvents(), "next-page", nil)

	out, err := m.GetEvents(context.Background(), GetEventsInput{
		Source: ClusterSource("demo"),
		Stream: StackEventsStream,
	})

	require.NoError(t, err)
	require.Len(t, out.Events, 2)
	assert.Equal(t, "next-page", out.NextToken)

	assert.Contains(t, out.Events[0].Message, "AWS::CloudFormation::Stack")
	assert.Contains(t, out.Events[0].Message, "CREATE_COMPLETE")
	assert.Contains(t, out.Events[1].Message, "Resource creation Initiated")
	assert.Equal(t, streamTime.Add(5*time.Minute), out.Events[0].Timestamp)

	lm.logs.AssertNotCalled(t, "GetLogEvents", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetEventsCapsStackEventsAtTail(t *testing.T) {
	m, lm := setupManager(t)
	lm.cfn.On("StackEvents", mock.Anything, clusterStack, "").
		Return(demoStackEvents(), "next-page", nil)

	out, err := m.GetEvents(context.Background(), GetEventsInput{
		Source: ClusterSource("demo"),
		Stream: StackEventsStream,
		Tail:   1,
	})

	require.NoError(t, err)
	require.Len(t, out.Events, 1)
	assert.Contains(t, out.Events[0].Message, "CREATE_COMPLETE")
	assert.Equal(t, "", out.NextToken)
}

func TestGetEventsFiltersStackEventsByWindow(t *testing.T) {
	m, lm := setupManager(t)
	lm.cfn.On("StackEvents", mock.Anything, clusterStack, "").
		Return(demoStackEvents(), "", nil)

	out, err := m.GetEvents(context.Background(), GetEventsInput{
		Source:    ClusterSource("demo"),
		Stream:    StackEventsStream,
		StartTime: streamTime.Add(time.Minute),
	})

	require.NoError(t, err)
	require.Len(t, out.Events, 1)
	assert.Contains(t, out.Events[0].Message, "CREATE_COMPLETE")
}

// mockClusterStack satisfies the stack lookups made during an export
func mockClusterStack(lm *logsMocks) {
	lm.cfn.On("DescribeStack", mock.Anything, clusterStack).Return(&aws.Stack{
		Name:         clusterStack,
		Status:       "CREATE_COMPLETE",
		CreationTime: streamTime,
	}, nil)

	lm.cfn.On("StackEvents", mock.Anything, clusterStack, "").
		Return(demoStackEvents(), "", nil)
}

// mockExportTask wires a complete CloudWatch export, the given objects
// are keyed by stream path and written to disk when downloaded
func mockExportTask(lm *logsMocks, bucket, prefix string, objects map[string]string) {
	lm.logs.On("LogGroupExists", mock.Anything, clusterGroup).Return(true, nil)
	lm.logs.On("CreateExportTask", mock.Anything, clusterGroup, mock.Anything, mock.Anything, bucket, prefix).
		Return("task-1", nil)
	lm.logs.On("ExportTaskStatus", mock.Anything, "task-1").Return("COMPLETED", nil)

	keys := []string{path.Join(prefix, "aws-logs-write-test")}
	for name := range objects {
		keys = append(keys, path.Join(prefix, "task-1", name))
	}
	sort.Strings(keys)

	lm.s3.On("ListObjects", mock.Anything, bucket, prefix).Return(keys, nil)

	for name, content := range objects {
		key := path.Join(prefix, "task-1", name)
		body := content

		lm.s3.On("DownloadObject", mock.Anything, bucket, key, mock.Anything).
			Run(func(args mock.Arguments) {
				dest := args.String(3)
				os.MkdirAll(filepath.Dir(dest), 0755)
				os.WriteFile(dest, []byte(body), 0644)
			}).
			Return(nil)
	}

	lm.s3.On("DeleteObjects", mock.Anything, bucket, prefix).Return(nil)
}

// archiveEntries reads the archive back, returning file contents keyed
// by path with the timestamped bundle folder stripped
func archiveEntries(t *testing.T, archivePath string) map[string]string {
	f, err := os.Open(archivePath)
	require.NoError(t, err)
	defer f.Close()

	zr, err := gzip.NewReader(f)
	require.NoError(t, err)

	entries := map[string]string{}

	tr := tar.NewReader(zr)
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		if h.Typeflag != tar.TypeReg {
			continue
		}

		parts := strings.SplitN(h.Name, "/", 2)
		require.Len(t, parts, 2)

		body, err := io.ReadAll(tr)
		require.NoError(t, err)

		entries[parts[1]] = string(body)
	}

	return entries
}

func TestExportWritesArchive(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	m, lm := setupManager(t)
	mockClusterStack(lm)

	// the task is still running on the first poll
	lm.logs.On("ExportTaskStatus", mock.Anything, "task-1").Return("RUNNING", nil).Once()

	mockExportTask(lm, "log-bucket", "demo-export", map[string]string{
		"ip-10-0-0-12.i-0abc123def456.cfn-init/000000.gz":    "boot line",
		"ip-10-0-0-12.i-0abc123def456.chef-client/000000.gz": "recipe line",
	})

	output := filepath.Join(t.TempDir(), "demo-logs.tar.gz")

	out, err := m.Export(context.Background(), ExportInput{
		Source:       ClusterSource("demo"),
		Bucket:       "log-bucket",
		BucketPrefix: "demo-export",
		OutputFile:   output,
	})

	require.NoError(t, err)
	require.Equal(t, output, out.LogArchive)

	entries := archiveEntries(t, output)
	require.Contains(t, entries, "ip-10-0-0-12.i-0abc123def456.cfn-init/000000.gz")
	assert.Equal(t, "boot line", entries["ip-10-0-0-12.i-0abc123def456.cfn-init/000000.gz"])
	assert.Contains(t, entries, "ip-10-0-0-12.i-0abc123def456.chef-client/000000.gz")

	require.Contains(t, entries, "cloudformation-stack-events.log")
	assert.Contains(t, entries["cloudformation-stack-events.log"], "CREATE_COMPLETE")
	assert.Contains(t, entries["cloudformation-stack-events.log"], "Resource creation Initiated")

	for name := range entries {
		assert.NotContains(t, name, "aws-logs-write-test")
	}

	// the exported objects are removed once staged
	lm.s3.AssertCalled(t, "DeleteObjects", mock.Anything, "log-bucket", "demo-export")

	// the staging folder is cleaned up
	staged, err := os.ReadDir(filepath.Join(os.Getenv("HOME"), ".gantry", "exports"))
	require.NoError(t, err)
	assert.Empty(t, staged)
}

func TestExportAppliesStreamFilters(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	m, lm := setupManager(t)
	mockClusterStack(lm)
	mockExportTask(lm, "log-bucket", "demo-export", map[string]string{
		"ip-10-0-0-12.i-0abc123def456.cfn-init/000000.gz":    "boot line",
		"ip-10-0-0-12.i-0abc123def456.chef-client/000000.gz": "recipe line",
	})

	output := filepath.Join(t.TempDir(), "demo-logs.tar.gz")

	_, err := m.Export(context.Background(), ExportInput{
		Source:       ClusterSource("demo"),
		Bucket:       "log-bucket",
		BucketPrefix: "demo-export",
		OutputFile:   output,
		Filters:      []string{"*.cfn-init"},
	})

	require.NoError(t, err)

	entries := archiveEntries(t, output)
	assert.Contains(t, entries, "ip-10-0-0-12.i-0abc123def456.cfn-init/000000.gz")
	assert.NotContains(t, entries, "ip-10-0-0-12.i-0abc123def456.chef-client/000000.gz")

	// the stack events are kept regardless of the filters
	assert.Contains(t, entries, "cloudformation-stack-events.log")
}

func TestExportDefaultsBucketAndWindow(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	m, lm := setupManager(t)
	mockClusterStack(lm)

	bucket := utils.ArtifactBucketName("123456789012", "eu-west-1")
	lm.sts.On("AccountID", mock.Anything).Return("123456789012", nil)
	lm.logs.On("LogGroupExists", mock.Anything, clusterGroup).Return(true, nil)

	var from, to time.Time
	lm.logs.On("CreateExportTask", mock.Anything, clusterGroup, mock.Anything, mock.Anything, bucket, mock.Anything).
		Run(func(args mock.Arguments) {
			from = args.Get(2).(time.Time)
			to = args.Get(3).(time.Time)
		}).
		Return("task-9", nil)
	lm.logs.On("ExportTaskStatus", mock.Anything, "task-9").Return("COMPLETED", nil)
	lm.s3.On("ListObjects", mock.Anything, bucket, mock.Anything).Return([]string{}, nil)

	out, err := m.Export(context.Background(), ExportInput{
		Source:     ClusterSource("demo"),
		OutputFile: filepath.Join(t.TempDir(), "out.tar.gz"),
	})

	require.NoError(t, err)
	assert.FileExists(t, out.LogArchive)

	// the window defaults to the lifetime of the stack
	assert.Equal(t, streamTime, from)
	assert.WithinDuration(t, time.Now(), to, time.Minute)
}

func TestExportSkipsMissingLogGroup(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	m, lm := setupManager(t)
	mockClusterStack(lm)
	lm.logs.On("LogGroupExists", mock.Anything, clusterGroup).Return(false, nil)

	output := filepath.Join(t.TempDir(), "demo-logs.tar.gz")

	_, err := m.Export(context.Background(), ExportInput{
		Source:     ClusterSource("demo"),
		OutputFile: output,
	})

	require.NoError(t, err)

	entries := archiveEntries(t, output)
	require.Len(t, entries, 1)
	assert.Contains(t, entries, "cloudformation-stack-events.log")

	lm.logs.AssertNotCalled(t, "CreateExportTask",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExportFailsWhenTaskFails(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	m, lm := setupManager(t)
	mockClusterStack(lm)
	lm.logs.On("LogGroupExists", mock.Anything, clusterGroup).Return(true, nil)
	lm.logs.On("CreateExportTask", mock.Anything, clusterGroup, mock.Anything, mock.Anything, "log-bucket", mock.Anything).
		Return("task-1", nil)
	lm.logs.On("ExportTaskStatus", mock.Anything, "task-1").Return("FAILED", nil)

	_, err := m.Export(context.Background(), ExportInput{
		Source:     ClusterSource("demo"),
		Bucket:     "log-bucket",
		OutputFile: filepath.Join(t.TempDir(), "out.tar.gz"),
	})

	require.ErrorContains(t, err, "ended with status FAILED")
}

func TestExportFailsWhenClusterMissing(t *testing.T) {
	m, lm := setupManager(t)
	lm.cfn.On("DescribeStack", mock.Anything, clusterStack).
		Return(nil, aws.StackNotFoundError{StackName: clusterStack})

	_, err := m.Export(context.Background(), ExportInput{Source: ClusterSource("demo")})

	require.EqualError(t, err, "cluster demo does not exist")
}

func TestImageSourceAddressesImageLogs(t *testing.T) {
	s := ImageSource("custom-ami")

	assert.Equal(t, "image", s.Kind)
	assert.Equal(t, "/aws/gantry/images/custom-ami", s.Group)
	assert.Equal(t, "custom-ami", s.Stack)
}
