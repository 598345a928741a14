package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockSTS struct {
	mock.Mock
}

func (m *MockSTS) AccountID(ctx context.Context) (string, error) {
	args := m.Called(ctx)

	return args.String(0), args.Error(1)
}
