package cluster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gantry-labs/gantry/pkg/clients/aws"
	"github.com/gantry-labs/gantry/pkg/config"
	"github.com/gantry-labs/gantry/pkg/utils"
)

// fleetStatusItem is the id of the DynamoDB item tracking the compute
// fleet of a slurm cluster
const fleetStatusItem = "COMPUTE_FLEET"

// batchEnvironmentOutput is the stack output naming the compute
// environment of an awsbatch cluster
const batchEnvironmentOutput = "BatchComputeEnvironment"

// DescribeComputeFleet returns the status of the compute fleet of the
// cluster
func (m *Manager) DescribeComputeFleet(ctx context.Context, name string) (*FleetStatus, error) {
	stack, err := m.describeClusterStack(ctx, name)
	if err != nil {
		return nil, err
	}

	return m.fleetStatus(ctx, name, stack)
}

// UpdateComputeFleet requests a status change for the compute fleet,
// slurm clusters accept START_REQUESTED and STOP_REQUESTED, awsbatch
// clusters accept ENABLED and DISABLED
func (m *Manager) UpdateComputeFleet(ctx context.Context, name, status string) (*FleetStatus, error) {
	stack, err := m.describeClusterStack(ctx, name)
	if err != nil {
		return nil, err
	}

	if stack.Tags[utils.SchedulerTag] == config.SchedulerAwsBatch {
		return m.updateBatchFleet(ctx, stack, status)
	}

	return m.updateSlurmFleet(ctx, name, status)
}

func (m *Manager) updateSlurmFleet(ctx context.Context, name, status string) (*FleetStatus, error) {
	if status != FleetStatusStartRequested && status != FleetStatusStopRequested {
		return nil, fmt.Errorf("status %s is not valid for a slurm cluster, must be one of START_REQUESTED, STOP_REQUESTED", status)
	}

	m.log.Info("Updating compute fleet", "cluster", name, "status", status)

	now := time.Now().UTC()

	err := m.c.Dynamo.PutItem(ctx, utils.FleetStatusTable(name), fleetStatusItem, map[string]string{
		"status":                status,
		"lastStatusUpdatedTime": now.Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}

	return &FleetStatus{Status: status, LastStatusUpdatedTime: &now}, nil
}

func (m *Manager) updateBatchFleet(ctx context.Context, stack *aws.Stack, status string) (*FleetStatus, error) {
	name, err := batchEnvironment(stack)
	if err != nil {
		return nil, err
	}

	m.log.Info("Updating compute environment", "name", name, "status", status)

	switch status {
	case FleetStatusEnabled:
		err = m.c.Batch.EnableComputeEnvironment(ctx, name)
	case FleetStatusDisabled:
		err = m.c.Batch.DisableComputeEnvironment(ctx, name)
	default:
		return nil, fmt.Errorf("status %s is not valid for an awsbatch cluster, must be one of ENABLED, DISABLED", status)
	}

	if err != nil {
		return nil, err
	}

	return &FleetStatus{Status: status}, nil
}

// fleetStatus reads the current fleet status, slurm clusters track it
// in a DynamoDB table, awsbatch clusters report the state of their
// compute environment
func (m *Manager) fleetStatus(ctx context.Context, name string, stack *aws.Stack) (*FleetStatus, error) {
	if stack.Tags[utils.SchedulerTag] == config.SchedulerAwsBatch {
		ceName, err := batchEnvironment(stack)
		if err != nil {
			// the compute environment has not been created yet
			return &FleetStatus{Status: FleetStatusUnknown}, nil
		}

		ce, err := m.c.Batch.DescribeComputeEnvironment(ctx, ceName)
		if err != nil {
			return nil, err
		}

		return &FleetStatus{Status: ce.State}, nil
	}

	data, err := m.c.Dynamo.GetItem(ctx, utils.FleetStatusTable(name), fleetStatusItem)
	if err != nil {
		// the table is created with the cluster, no item means the fleet
		// has not reported yet
		if errors.Is(err, aws.ErrItemNotFound) {
			return &FleetStatus{Status: FleetStatusUnknown}, nil
		}

		return nil, err
	}

	fs := &FleetStatus{Status: data["status"]}
	if fs.Status == "" {
		fs.Status = FleetStatusUnknown
	}

	if ts, ok := data["lastStatusUpdatedTime"]; ok {
		if t, err := utils.ParseTimestamp(ts); err == nil {
			fs.LastStatusUpdatedTime = &t
		}
	}

	return fs, nil
}

func batchEnvironment(stack *aws.Stack) (string, error) {
	name := stack.Outputs[batchEnvironmentOutput]
	if name == "" {
		return "", fmt.Errorf("stack %s has no compute environment output", stack.Name)
	}

	return name, nil
}
