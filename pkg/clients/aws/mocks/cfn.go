package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gantry-labs/gantry/pkg/clients/aws"
)

type MockCFN struct {
	mock.Mock
}

func (m *MockCFN) CreateStack(ctx context.Context, in aws.CreateStackInput) (string, error) {
	args := m.Called(ctx, in)

	return args.String(0), args.Error(1)
}

func (m *MockCFN) UpdateStack(ctx context.Context, in aws.UpdateStackInput) (string, error) {
	args := m.Called(ctx, in)

	return args.String(0), args.Error(1)
}

func (m *MockCFN) DeleteStack(ctx context.Context, name string) error {
	args := m.Called(ctx, name)

	return args.Error(0)
}

func (m *MockCFN) DescribeStack(ctx context.Context, name string) (*aws.Stack, error) {
	args := m.Called(ctx, name)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*aws.Stack), args.Error(1)
}

func (m *MockCFN) StackExists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)

	return args.Bool(0), args.Error(1)
}

func (m *MockCFN) GetStackTemplate(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)

	return args.String(0), args.Error(1)
}

func (m *MockCFN) ListClusterStacks(ctx context.Context, nextToken string) ([]aws.Stack, string, error) {
	args := m.Called(ctx, nextToken)

	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}

	return args.Get(0).([]aws.Stack), args.String(1), args.Error(2)
}

func (m *MockCFN) ListImageStacks(ctx context.Context, nextToken string) ([]aws.Stack, string, error) {
	args := m.Called(ctx, nextToken)

	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}

	return args.Get(0).([]aws.Stack), args.String(1), args.Error(2)
}

func (m *MockCFN) StackEvents(ctx context.Context, name string, nextToken string) ([]aws.StackEvent, string, error) {
	args := m.Called(ctx, name, nextToken)

	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}

	return args.Get(0).([]aws.StackEvent), args.String(1), args.Error(2)
}

func (m *MockCFN) DescribeStackResource(ctx context.Context, name, logicalID string) (*aws.StackResource, error) {
	args := m.Called(ctx, name, logicalID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*aws.StackResource), args.Error(1)
}
