package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/gantry-labs/gantry/pkg/clients/aws"
)

type MockLogs struct {
	mock.Mock
}

func (m *MockLogs) LogGroupExists(ctx context.Context, group string) (bool, error) {
	args := m.Called(ctx, group)

	return args.Bool(0), args.Error(1)
}

func (m *MockLogs) ListLogStreams(ctx context.Context, group, prefix, nextToken string) ([]aws.LogStream, string, error) {
	args := m.Called(ctx, group, prefix, nextToken)

	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}

	return args.Get(0).([]aws.LogStream), args.String(1), args.Error(2)
}

func (m *MockLogs) GetLogEvents(ctx context.Context, group, stream string, in aws.GetLogEventsInput) ([]aws.LogEvent, string, string, error) {
	args := m.Called(ctx, group, stream, in)

	if args.Get(0) == nil {
		return nil, args.String(1), args.String(2), args.Error(3)
	}

	return args.Get(0).([]aws.LogEvent), args.String(1), args.String(2), args.Error(3)
}

func (m *MockLogs) CreateExportTask(ctx context.Context, group string, from, to time.Time, bucket, prefix string) (string, error) {
	args := m.Called(ctx, group, from, to, bucket, prefix)

	return args.String(0), args.Error(1)
}

func (m *MockLogs) ExportTaskStatus(ctx context.Context, taskID string) (string, error) {
	args := m.Called(ctx, taskID)

	return args.String(0), args.Error(1)
}
