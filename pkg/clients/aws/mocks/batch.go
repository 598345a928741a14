package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gantry-labs/gantry/pkg/clients/aws"
)

type MockBatch struct {
	mock.Mock
}

func (m *MockBatch) EnableComputeEnvironment(ctx context.Context, name string) error {
	args := m.Called(ctx, name)

	return args.Error(0)
}

func (m *MockBatch) DisableComputeEnvironment(ctx context.Context, name string) error {
	args := m.Called(ctx, name)

	return args.Error(0)
}

func (m *MockBatch) DescribeComputeEnvironment(ctx context.Context, name string) (*aws.ComputeEnvironment, error) {
	args := m.Called(ctx, name)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*aws.ComputeEnvironment), args.Error(1)
}
