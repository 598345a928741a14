package validators

import (
	"context"
	"fmt"
	"strings"

	"github.com/gantry-labs/gantry/pkg/clients/logger"
	"github.com/ryanuber/go-glob"
)

// FailureLevel is the severity of a validation failure
type FailureLevel string

const (
	FailureLevelInfo    FailureLevel = "INFO"
	FailureLevelWarning FailureLevel = "WARNING"
	FailureLevelError   FailureLevel = "ERROR"
)

// Severity returns the level as a comparable ordinal, higher is more
// severe
func (l FailureLevel) Severity() int {
	switch l {
	case FailureLevelInfo:
		return 1
	case FailureLevelWarning:
		return 2
	case FailureLevelError:
		return 3
	}

	return 0
}

// ParseFailureLevel parses a failure level as passed on the command line
func ParseFailureLevel(s string) (FailureLevel, error) {
	switch strings.ToUpper(s) {
	case string(FailureLevelInfo):
		return FailureLevelInfo, nil
	case string(FailureLevelWarning):
		return FailureLevelWarning, nil
	case string(FailureLevelError):
		return FailureLevelError, nil
	}

	return "", fmt.Errorf("invalid failure level %q, must be one of INFO, WARNING, ERROR", s)
}

// Failure is a single finding reported by a validator
type Failure struct {
	Validator string       `json:"type"`
	Level     FailureLevel `json:"level"`
	Message   string       `json:"message"`
}

// Validator checks one aspect of a configuration
type Validator interface {
	// Name returns the type of the validator as used for suppression
	Name() string
	// Validate returns the findings for the configuration, an empty
	// slice when the configuration passes
	Validate(ctx context.Context) []Failure
}

// SuppressAll suppresses every validator
const SuppressAll = "ALL"

// ParseSuppressors validates the suppression patterns passed on the
// command line, patterns are either ALL or type:<glob>
func ParseSuppressors(patterns []string) ([]string, error) {
	for _, p := range patterns {
		if p == SuppressAll || strings.HasPrefix(p, "type:") {
			continue
		}

		return nil, fmt.Errorf("invalid suppressor %q, must be ALL or type:<pattern>", p)
	}

	return patterns, nil
}

// Runner executes a set of validators honoring suppression patterns
type Runner struct {
	validators []Validator
	suppress   []string
	log        logger.Logger
}

// NewRunner creates a Runner for the given validators, findings of
// validators matching a suppression pattern are discarded
func NewRunner(validators []Validator, suppress []string, l logger.Logger) *Runner {
	return &Runner{validators: validators, suppress: suppress, log: l}
}

// Run executes all validators and returns the aggregated findings
func (r *Runner) Run(ctx context.Context) []Failure {
	failures := []Failure{}

	for _, v := range r.validators {
		if r.suppressed(v.Name()) {
			r.log.Debug("Suppressed validator", "type", v.Name())
			continue
		}

		r.log.Debug("Running validator", "type", v.Name())

		for _, f := range v.Validate(ctx) {
			switch f.Level {
			case FailureLevelError:
				r.log.Error(f.Message, "type", f.Validator)
			case FailureLevelWarning:
				r.log.Warn(f.Message, "type", f.Validator)
			default:
				r.log.Info(f.Message, "type", f.Validator)
			}

			failures = append(failures, f)
		}
	}

	return failures
}

func (r *Runner) suppressed(name string) bool {
	for _, s := range r.suppress {
		if s == SuppressAll {
			return true
		}

		if glob.Glob(strings.TrimPrefix(s, "type:"), name) {
			return true
		}
	}

	return false
}

// HasBlocking returns true when any finding is at or above the given
// level
func HasBlocking(failures []Failure, level FailureLevel) bool {
	for _, f := range failures {
		if f.Level.Severity() >= level.Severity() {
			return true
		}
	}

	return false
}
