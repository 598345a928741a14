package aws

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// ErrNoUpdates is returned when a stack update contains no changes
var ErrNoUpdates = errors.New("no changes found to update")

// ErrItemNotFound is returned when a DynamoDB item does not exist
var ErrItemNotFound = errors.New("item not found")

// StackNotFoundError is returned when a CloudFormation stack does not exist
type StackNotFoundError struct {
	StackName string
}

func (e StackNotFoundError) Error() string {
	return fmt.Sprintf("stack %s does not exist", e.StackName)
}

// ImageNotFoundError is returned when an AMI does not exist
type ImageNotFoundError struct {
	ImageID string
}

func (e ImageNotFoundError) Error() string {
	return fmt.Sprintf("image %s does not exist", e.ImageID)
}

// IsStackNotFound returns true when the given error denotes a missing stack
func IsStackNotFound(err error) bool {
	var snf StackNotFoundError

	return errors.As(err, &snf)
}

// IsImageNotFound returns true when the given error denotes a missing image
func IsImageNotFound(err error) bool {
	var inf ImageNotFoundError

	return errors.As(err, &inf)
}

// apiErrorContains returns true when the error is an AWS API error with the
// given code and the message contains the given string
func apiErrorContains(err error, code, message string) bool {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return false
	}

	return ae.ErrorCode() == code && strings.Contains(ae.ErrorMessage(), message)
}

// apiErrorCode returns true when the error is an AWS API error with the
// given code
func apiErrorCode(err error, code string) bool {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return false
	}

	return ae.ErrorCode() == code
}
