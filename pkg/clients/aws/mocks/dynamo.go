package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockDynamo struct {
	mock.Mock
}

func (m *MockDynamo) GetItem(ctx context.Context, table, id string) (map[string]string, error) {
	args := m.Called(ctx, table, id)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockDynamo) PutItem(ctx context.Context, table, id string, data map[string]string) error {
	args := m.Called(ctx, table, id, data)

	return args.Error(0)
}
