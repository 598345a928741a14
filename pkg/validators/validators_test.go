package validators

import (
	"context"
	"testing"

	"github.com/gantry-labs/gantry/pkg/clients/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator struct {
	name     string
	failures []Failure
}

func (s *stubValidator) Name() string { return s.name }

func (s *stubValidator) Validate(ctx context.Context) []Failure { return s.failures }

func intPtr(i int) *int { return &i }

func boolPtr(b bool) *bool { return &b }

func TestParsesFailureLevel(t *testing.T) {
	l, err := ParseFailureLevel("warning")
	require.NoError(t, err)

	assert.Equal(t, FailureLevelWarning, l)
}

func TestParseFailureLevelRejectsUnknown(t *testing.T) {
	_, err := ParseFailureLevel("fatal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid failure level")
}

func TestSeverityOrdersLevels(t *testing.T) {
	assert.Greater(t, FailureLevelError.Severity(), FailureLevelWarning.Severity())
	assert.Greater(t, FailureLevelWarning.Severity(), FailureLevelInfo.Severity())
}

func TestParseSuppressorsAcceptsPatterns(t *testing.T) {
	s, err := ParseSuppressors([]string{"ALL", "type:Ebs*"})
	require.NoError(t, err)

	assert.Len(t, s, 2)
}

func TestParseSuppressorsRejectsBarePattern(t *testing.T) {
	_, err := ParseSuppressors([]string{"Ebs*"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid suppressor")
}

func TestRunnerAggregatesFailures(t *testing.T) {
	r := NewRunner([]Validator{
		&stubValidator{name: "AValidator", failures: []Failure{{Validator: "AValidator", Level: FailureLevelError, Message: "a"}}},
		&stubValidator{name: "BValidator", failures: []Failure{{Validator: "BValidator", Level: FailureLevelWarning, Message: "b"}}},
	}, nil, logger.NewTestLogger(t))

	failures := r.Run(context.Background())

	require.Len(t, failures, 2)
	assert.Equal(t, "AValidator", failures[0].Validator)
	assert.Equal(t, "BValidator", failures[1].Validator)
}

func TestRunnerSuppressesByType(t *testing.T) {
	r := NewRunner([]Validator{
		&stubValidator{name: "AValidator", failures: []Failure{{Validator: "AValidator", Level: FailureLevelError, Message: "a"}}},
		&stubValidator{name: "BValidator", failures: []Failure{{Validator: "BValidator", Level: FailureLevelError, Message: "b"}}},
	}, []string{"type:AValidator"}, logger.NewTestLogger(t))

	failures := r.Run(context.Background())

	require.Len(t, failures, 1)
	assert.Equal(t, "BValidator", failures[0].Validator)
}

func TestRunnerSuppressesByGlob(t *testing.T) {
	r := NewRunner([]Validator{
		&stubValidator{name: "EbsVolumeIopsValidator", failures: []Failure{{Level: FailureLevelError}}},
		&stubValidator{name: "EbsVolumeThroughputValidator", failures: []Failure{{Level: FailureLevelError}}},
		&stubValidator{name: "KeyPairValidator", failures: []Failure{{Validator: "KeyPairValidator", Level: FailureLevelError}}},
	}, []string{"type:Ebs*"}, logger.NewTestLogger(t))

	failures := r.Run(context.Background())

	require.Len(t, failures, 1)
	assert.Equal(t, "KeyPairValidator", failures[0].Validator)
}

func TestRunnerSuppressesAll(t *testing.T) {
	r := NewRunner([]Validator{
		&stubValidator{name: "AValidator", failures: []Failure{{Level: FailureLevelError}}},
	}, []string{SuppressAll}, logger.NewTestLogger(t))

	assert.Empty(t, r.Run(context.Background()))
}

func TestHasBlockingComparesAgainstLevel(t *testing.T) {
	failures := []Failure{
		{Level: FailureLevelInfo},
		{Level: FailureLevelWarning},
	}

	assert.False(t, HasBlocking(failures, FailureLevelError))
	assert.True(t, HasBlocking(failures, FailureLevelWarning))
	assert.True(t, HasBlocking(failures, FailureLevelInfo))
}

func TestHasBlockingWithNoFailures(t *testing.T) {
	assert.False(t, HasBlocking(nil, FailureLevelInfo))
}
