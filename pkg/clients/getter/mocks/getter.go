package mocks

import (
	"github.com/stretchr/testify/mock"
)

type MockGetter struct {
	mock.Mock
}

func (m *MockGetter) GetFile(uri, dst string) error {
	args := m.Called(uri, dst)

	return args.Error(0)
}

func (m *MockGetter) SetForce(force bool) {
	m.Called(force)
}
