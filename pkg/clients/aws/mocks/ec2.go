package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gantry-labs/gantry/pkg/clients/aws"
)

type MockEC2 struct {
	mock.Mock
}

func (m *MockEC2) DescribeInstances(ctx context.Context, filters []aws.Filter, nextToken string) ([]aws.Instance, string, error) {
	args := m.Called(ctx, filters, nextToken)

	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}

	return args.Get(0).([]aws.Instance), args.String(1), args.Error(2)
}

func (m *MockEC2) TerminateInstances(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)

	return args.Error(0)
}

func (m *MockEC2) DescribeInstanceTypes(ctx context.Context, instanceTypes []string) ([]aws.InstanceTypeInfo, error) {
	args := m.Called(ctx, instanceTypes)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]aws.InstanceTypeInfo), args.Error(1)
}

func (m *MockEC2) KeyPairExists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)

	return args.Bool(0), args.Error(1)
}

func (m *MockEC2) ListKeyPairs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

func (m *MockEC2) DescribeSubnets(ctx context.Context, ids []string) ([]aws.Subnet, error) {
	args := m.Called(ctx, ids)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]aws.Subnet), args.Error(1)
}

func (m *MockEC2) DescribeImages(ctx context.Context, in aws.DescribeImagesInput) ([]aws.AMI, error) {
	args := m.Called(ctx, in)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]aws.AMI), args.Error(1)
}

func (m *MockEC2) DeregisterImage(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockEC2) DeleteSnapshot(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockEC2) DescribeSnapshot(ctx context.Context, id string) (*aws.Snapshot, error) {
	args := m.Called(ctx, id)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*aws.Snapshot), args.Error(1)
}

func (m *MockEC2) ImageSharedAccounts(ctx context.Context, id string) ([]string, error) {
	args := m.Called(ctx, id)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}
