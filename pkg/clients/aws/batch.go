package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/batch"
	"github.com/aws/aws-sdk-go-v2/service/batch/types"

	"github.com/gantry-labs/gantry/pkg/clients/logger"
)

// Batch defines the interactions with the AWS Batch API
type Batch interface {
	// EnableComputeEnvironment sets the state of the compute environment
	// to ENABLED
	EnableComputeEnvironment(ctx context.Context, name string) error
	// DisableComputeEnvironment sets the state of the compute environment
	// to DISABLED
	DisableComputeEnvironment(ctx context.Context, name string) error
	// DescribeComputeEnvironment returns the current state of the named
	// compute environment
	DescribeComputeEnvironment(ctx context.Context, name string) (*ComputeEnvironment, error)
}

// BatchImpl is a concrete implementation of the Batch interface
type BatchImpl struct {
	client *batch.Client
	log    logger.Logger
}

// NewBatch creates a new AWS Batch client
func NewBatch(cfg aws.Config, l logger.Logger) Batch {
	return &BatchImpl{batch.NewFromConfig(cfg), l}
}

func (c *BatchImpl) EnableComputeEnvironment(ctx context.Context, name string) error {
	return c.updateState(ctx, name, types.CEStateEnabled)
}

func (c *BatchImpl) DisableComputeEnvironment(ctx context.Context, name string) error {
	return c.updateState(ctx, name, types.CEStateDisabled)
}

func (c *BatchImpl) updateState(ctx context.Context, name string, state types.CEState) error {
	c.log.Debug("Updating compute environment", "name", name, "state", state)

	_, err := c.client.UpdateComputeEnvironment(ctx, &batch.UpdateComputeEnvironmentInput{
		ComputeEnvironment: aws.String(name),
		State:              state,
	})
	if err != nil {
		return fmt.Errorf("unable to update compute environment %s: %w", name, err)
	}

	return nil
}

func (c *BatchImpl) DescribeComputeEnvironment(ctx context.Context, name string) (*ComputeEnvironment, error) {
	out, err := c.client.DescribeComputeEnvironments(ctx, &batch.DescribeComputeEnvironmentsInput{
		ComputeEnvironments: []string{name},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to describe compute environment %s: %w", name, err)
	}

	if len(out.ComputeEnvironments) == 0 {
		return nil, fmt.Errorf("compute environment %s not found", name)
	}

	ce := out.ComputeEnvironments[0]

	return &ComputeEnvironment{
		Name:         aws.ToString(ce.ComputeEnvironmentName),
		State:        string(ce.State),
		Status:       string(ce.Status),
		StatusReason: aws.ToString(ce.StatusReason),
	}, nil
}
