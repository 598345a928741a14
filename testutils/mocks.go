package testutils

import "github.com/stretchr/testify/mock"

// RemoveOn removes the expectations for a method from a mock, used to
// override an expectation registered by a shared setup helper
func RemoveOn(m *mock.Mock, method string) {
	ec := m.ExpectedCalls
	rc := make([]*mock.Call, 0)

	for _, c := range ec {
		if c.Method != method {
			rc = append(rc, c)
		}
	}

	m.ExpectedCalls = rc
}

// GetCalls returns the recorded calls to a method of a mock
func GetCalls(m *mock.Mock, method string) []mock.Call {
	rc := make([]mock.Call, 0)
	for _, c := range m.Calls {
		if c.Method == method {
			rc = append(rc, c)
		}
	}

	return rc
}
