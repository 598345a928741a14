package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gantry-labs/gantry/pkg/clients/command"
)

type MockCommand struct {
	mock.Mock
}

func (m *MockCommand) Run(ctx context.Context, config command.CommandConfig) error {
	args := m.Called(ctx, config)

	return args.Error(0)
}
