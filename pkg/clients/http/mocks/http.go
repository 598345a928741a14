package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockHTTP struct {
	mock.Mock
}

func (m *MockHTTP) Head(ctx context.Context, uri string) error {
	args := m.Called(ctx, uri)

	return args.Error(0)
}
